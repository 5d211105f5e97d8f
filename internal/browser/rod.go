package browser

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/config"
)

// clickableTags bounds text-based click lookups to interactive-looking
// elements.
const clickableTags = "button, a, [role='tab'], [role='button'], li, summary, label, span, div"

// RodBrowser drives a Chromium page through go-rod and records JSON
// network responses.
type RodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	recorder *Recorder

	mu       sync.Mutex
	requests map[proto.NetworkRequestID]pendingRequest
	fetches  sync.WaitGroup
}

type pendingRequest struct {
	url    string
	method string
	mime   string
	body   string
}

// NewRod launches a browser per cfg and opens one page on it.
func NewRod(cfg config.BrowserConfig) (*RodBrowser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, eris.Wrap(err, "browser: launch")
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, eris.Wrap(err, "browser: connect")
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.Close() //nolint:errcheck
		l.Kill()
		return nil, eris.Wrap(err, "browser: new page")
	}

	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.ViewportWidth,
			Height:            cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			zap.L().Warn("browser: set viewport failed", zap.Error(err))
		}
	}

	rb := &RodBrowser{
		browser:  b,
		launcher: l,
		page:     page,
		recorder: NewRecorder(),
		requests: make(map[proto.NetworkRequestID]pendingRequest),
	}
	if err := rb.listen(); err != nil {
		rb.Close() //nolint:errcheck
		return nil, err
	}

	zap.L().Info("browser: started", zap.Bool("headless", cfg.Headless), zap.String("bin", cfg.Bin))
	return rb, nil
}

// listen subscribes to network events. Bodies are fetched once loading
// finishes, off the event goroutine.
func (r *RodBrowser) listen() error {
	if err := (proto.NetworkEnable{}).Call(r.page); err != nil {
		return eris.Wrap(err, "browser: enable network domain")
	}

	go r.page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			if e.Request == nil {
				return
			}
			r.mu.Lock()
			r.requests[e.RequestID] = pendingRequest{url: e.Request.URL, method: e.Request.Method}
			r.mu.Unlock()
		},
		func(e *proto.NetworkResponseReceived) {
			if e.Response == nil {
				return
			}
			r.mu.Lock()
			req := r.requests[e.RequestID]
			req.url = e.Response.URL
			req.mime = e.Response.MIMEType
			r.requests[e.RequestID] = req
			r.mu.Unlock()
		},
		func(e *proto.NetworkLoadingFinished) {
			r.mu.Lock()
			req, ok := r.requests[e.RequestID]
			delete(r.requests, e.RequestID)
			r.mu.Unlock()
			if !ok || !isJSONMime(req.mime) {
				return
			}
			r.fetches.Add(1)
			go func() {
				defer r.fetches.Done()
				r.fetchBody(e.RequestID, req)
			}()
		},
	)()
	return nil
}

func (r *RodBrowser) fetchBody(id proto.NetworkRequestID, req pendingRequest) {
	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(r.page)
	if err != nil || res.Base64Encoded {
		return
	}
	if req.method != "" && req.method != "GET" {
		if post, err := (proto.NetworkGetRequestPostData{RequestID: id}).Call(r.page); err == nil {
			req.body = post.PostData
		}
	}
	r.recorder.Record(Response{
		URL:         req.url,
		Method:      req.method,
		RequestBody: req.body,
		Body:        json.RawMessage(res.Body),
	})
}

// Navigate implements Browser.
func (r *RodBrowser) Navigate(ctx context.Context, pageURL string, timeout time.Duration) error {
	p := r.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	if err := p.Navigate(pageURL); err != nil {
		return eris.Wrapf(ErrNavigation, "browser: navigate %s: %v", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return eris.Wrapf(ErrNavigation, "browser: wait load %s: %v", pageURL, err)
	}
	return nil
}

// Click implements Browser.
func (r *RodBrowser) Click(ctx context.Context, target string, timeout time.Duration) error {
	p := r.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	selector, text := splitTarget(target)
	var (
		el  *rod.Element
		err error
	)
	if text != "" {
		el, err = p.ElementR(clickableTags, `^\s*`+regexp.QuoteMeta(text)+`\s*$`)
	} else {
		el, err = p.Element(selector)
	}
	if err != nil {
		return eris.Wrapf(ErrNotFound, "browser: click %s: %v", target, err)
	}

	if err := el.ScrollIntoView(); err != nil {
		zap.L().Debug("browser: scroll into view failed", zap.String("target", target), zap.Error(err))
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		var invisible *rod.InvisibleShapeError
		if errors.As(err, &invisible) || errors.Is(err, context.DeadlineExceeded) {
			return eris.Wrapf(ErrNotFound, "browser: click %s: %v", target, err)
		}
		return eris.Wrapf(err, "browser: click %s", target)
	}
	return nil
}

// Evaluate implements Browser.
func (r *RodBrowser) Evaluate(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	res, err := r.page.Context(ctx).Eval(script, args...)
	if err != nil {
		return nil, eris.Wrap(err, "browser: evaluate")
	}
	return json.RawMessage(res.Value.JSON("", "")), nil
}

// Screenshot implements Browser.
func (r *RodBrowser) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	data, err := r.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, eris.Wrap(err, "browser: screenshot")
	}
	return data, nil
}

// HTML implements Browser.
func (r *RodBrowser) HTML(ctx context.Context) (string, error) {
	html, err := r.page.Context(ctx).HTML()
	if err != nil {
		return "", eris.Wrap(err, "browser: read html")
	}
	return html, nil
}

// URL implements Browser.
func (r *RodBrowser) URL() string {
	info, err := r.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Responses waits for in-flight body fetches and returns the recorded
// responses.
func (r *RodBrowser) Responses() []Response {
	r.fetches.Wait()
	return r.recorder.Responses()
}

// ResetResponses implements Browser.
func (r *RodBrowser) ResetResponses() {
	r.fetches.Wait()
	r.recorder.Reset()
}

// Close closes the browser and kills the launched process.
func (r *RodBrowser) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
	}
	if r.launcher != nil {
		r.launcher.Kill()
	}
	if err != nil {
		return eris.Wrap(err, "browser: close")
	}
	return nil
}

var _ Browser = (*RodBrowser)(nil)
