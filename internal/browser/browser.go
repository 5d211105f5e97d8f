// Package browser defines the browser-automation collaborator and a go-rod
// implementation of it.
package browser

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

var (
	// ErrNavigation is returned when a page fails to load within its timeout.
	ErrNavigation = eris.New("browser: navigation failed")
	// ErrNotFound is returned when a click target does not appear in time.
	ErrNotFound = eris.New("browser: element not found")
)

// TextPrefix marks a click target as visible text instead of a CSS selector.
const TextPrefix = "text="

// Response is one JSON network response observed while a page was open.
type Response struct {
	URL         string          `json:"url"`
	Method      string          `json:"method"`
	RequestBody string          `json:"request_body,omitempty"`
	Body        json.RawMessage `json:"body"`
}

// Path returns the endpoint path used to key the response.
func (r Response) Path() string {
	u, err := url.Parse(r.URL)
	if err != nil || u.Path == "" {
		return r.URL
	}
	return u.Path
}

// Browser is the page-automation surface the pipeline depends on. A
// Browser holds one page and is used by one goroutine at a time.
type Browser interface {
	// Navigate loads pageURL and waits for the load event.
	Navigate(ctx context.Context, pageURL string, timeout time.Duration) error
	// Click clicks the first element matching target, a CSS selector or a
	// TextPrefix-prefixed visible text.
	Click(ctx context.Context, target string, timeout time.Duration) error
	// Evaluate runs a JS function expression with args and returns its
	// JSON-encoded result.
	Evaluate(ctx context.Context, script string, args ...any) (json.RawMessage, error)
	// Screenshot captures the viewport, or the whole page when fullPage is set.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// HTML returns the current document's serialized HTML.
	HTML(ctx context.Context) (string, error)
	// URL returns the page's current URL.
	URL() string
	// Responses returns the JSON responses recorded since the last reset.
	Responses() []Response
	// ResetResponses clears recorded responses.
	ResetResponses()
	Close() error
}

// Recorder collects intercepted responses keyed by endpoint path. A later
// response for the same path and request body replaces the earlier one.
type Recorder struct {
	mu    sync.Mutex
	order []string
	byKey map[string]Response
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{byKey: make(map[string]Response)}
}

// Record stores resp if its body is valid JSON.
func (r *Recorder) Record(resp Response) {
	if len(resp.Body) == 0 || !json.Valid(resp.Body) {
		return
	}
	key := resp.Method + " " + resp.Path() + "\n" + resp.RequestBody
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[key]; !ok {
		r.order = append(r.order, key)
	}
	r.byKey[key] = resp
}

// Responses returns recorded responses in first-seen order.
func (r *Recorder) Responses() []Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Response, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byKey[k])
	}
	return out
}

// Reset clears all recorded responses.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.byKey = make(map[string]Response)
}

// Len returns the number of distinct recorded responses.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// isJSONMime reports whether a response MIME type carries JSON.
func isJSONMime(mime string) bool {
	mime = strings.ToLower(mime)
	return strings.Contains(mime, "json")
}

// splitTarget separates a click target into selector or text form.
func splitTarget(target string) (selector, text string) {
	if strings.HasPrefix(target, TextPrefix) {
		return "", strings.TrimSpace(strings.TrimPrefix(target, TextPrefix))
	}
	return target, ""
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
