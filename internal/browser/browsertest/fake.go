// Package browsertest provides an in-memory browser.Browser for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/menu-cli/internal/browser"
)

// Page is one scripted page.
type Page struct {
	HTML        string
	Responses   []browser.Response
	NavigateErr error
	// Clicks maps a click target to the HTML shown after clicking it.
	Clicks map[string]string
}

// Fake serves scripted pages. Unknown URLs fail navigation with
// browser.ErrNavigation; unknown click targets fail with browser.ErrNotFound.
type Fake struct {
	Pages map[string]*Page
	// EvalFunc answers Evaluate calls; nil returns JSON null.
	EvalFunc func(script string, args []any) (json.RawMessage, error)
	// ScreenshotFunc answers Screenshot calls with the zero-based call index.
	ScreenshotFunc func(n int) ([]byte, error)

	mu          sync.Mutex
	current     string
	html        string
	recorder    *browser.Recorder
	shots       int
	Navigations []string
	Clicked     []string
	Closed      bool
}

// New creates a Fake serving pages.
func New(pages map[string]*Page) *Fake {
	return &Fake{Pages: pages, recorder: browser.NewRecorder()}
}

// Navigate implements browser.Browser.
func (f *Fake) Navigate(ctx context.Context, pageURL string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Navigations = append(f.Navigations, pageURL)
	p, ok := f.Pages[pageURL]
	if !ok {
		return eris.Wrapf(browser.ErrNavigation, "browsertest: no page %s", pageURL)
	}
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	f.current = pageURL
	f.html = p.HTML
	for _, r := range p.Responses {
		f.recorder.Record(r)
	}
	return nil
}

// Click implements browser.Browser.
func (f *Fake) Click(_ context.Context, target string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.Pages[f.current]
	if p == nil {
		return eris.Wrapf(browser.ErrNotFound, "browsertest: no page loaded")
	}
	html, ok := p.Clicks[target]
	if !ok {
		return eris.Wrapf(browser.ErrNotFound, "browsertest: no target %s", target)
	}
	f.Clicked = append(f.Clicked, target)
	f.html = html
	return nil
}

// Evaluate implements browser.Browser.
func (f *Fake) Evaluate(_ context.Context, script string, args ...any) (json.RawMessage, error) {
	if f.EvalFunc == nil {
		return json.RawMessage("null"), nil
	}
	return f.EvalFunc(script, args)
}

// Screenshot implements browser.Browser.
func (f *Fake) Screenshot(_ context.Context, _ bool) ([]byte, error) {
	f.mu.Lock()
	n := f.shots
	f.shots++
	f.mu.Unlock()
	if f.ScreenshotFunc == nil {
		return []byte("png"), nil
	}
	return f.ScreenshotFunc(n)
}

// HTML implements browser.Browser.
func (f *Fake) HTML(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.html, nil
}

// URL implements browser.Browser.
func (f *Fake) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Responses implements browser.Browser.
func (f *Fake) Responses() []browser.Response {
	return f.recorder.Responses()
}

// ResetResponses implements browser.Browser.
func (f *Fake) ResetResponses() {
	f.recorder.Reset()
}

// Close implements browser.Browser.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Visited returns a copy of the navigated URLs.
func (f *Fake) Visited() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Navigations)
}

var _ browser.Browser = (*Fake)(nil)
