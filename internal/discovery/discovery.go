// Package discovery finds the structure of a loaded menu page: sub-page
// links, pagination, tab or accordion controls, and the scrollable
// container holding the menu.
package discovery

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/browser"
	"github.com/sells-group/menu-cli/internal/selectors"
)

// Options bounds discovery.
type Options struct {
	MaxSubpages   int
	MaxPagination int
	MaxTabs       int
	// Exclude filters sub-page links by path. Nil uses the defaults.
	Exclude *PathMatcher
}

// DefaultOptions returns the discovery caps.
func DefaultOptions() Options {
	return Options{MaxSubpages: 15, MaxPagination: 35, MaxTabs: 25}
}

// Tab is a clickable tab or accordion control. Target is a click target
// for browser.Browser.Click.
type Tab struct {
	Label  string `json:"label"`
	Target string `json:"target"`
	Group  int    `json:"group"`
}

// ScrollContainer is the element that scrolls the menu. An empty Selector
// means the document itself.
type ScrollContainer struct {
	Selector       string  `json:"selector"`
	ScrollHeight   float64 `json:"scroll_height"`
	ClientHeight   float64 `json:"client_height"`
	ViewportHeight float64 `json:"viewport_height"`
}

// Overflow returns how far the container can scroll.
func (c ScrollContainer) Overflow() float64 {
	return max(0, c.ScrollHeight-c.ClientHeight)
}

// Structure is everything discovered on one page.
type Structure struct {
	Links  LinkSet          `json:"links"`
	Tabs   []Tab            `json:"tabs"`
	Scroll *ScrollContainer `json:"scroll,omitempty"`
}

// SingleUnit reports whether the page has no sub-pages or tabs and should
// be processed on its own.
func (s *Structure) SingleUnit() bool {
	return len(s.Links.SubPages) == 0 && len(s.Tabs) == 0
}

// Discoverer runs structure discovery against a browser page.
type Discoverer struct {
	reg  selectors.Registry
	opts Options
}

// New creates a Discoverer.
func New(reg selectors.Registry, opts Options) *Discoverer {
	def := DefaultOptions()
	if opts.MaxSubpages <= 0 {
		opts.MaxSubpages = def.MaxSubpages
	}
	if opts.MaxPagination <= 0 {
		opts.MaxPagination = def.MaxPagination
	}
	if opts.MaxTabs <= 0 {
		opts.MaxTabs = def.MaxTabs
	}
	if opts.Exclude == nil {
		opts.Exclude = NewPathMatcher(nil)
	}
	return &Discoverer{reg: reg, opts: opts}
}

// Options returns the effective caps.
func (d *Discoverer) Options() Options {
	return d.opts
}

// Links runs static link discovery on a page that is not the origin, such
// as a sub-page or a later pagination page.
func (d *Discoverer) Links(html, pageURL string) (*LinkSet, error) {
	return ParseLinks(html, pageURL, d.reg, d.opts.Exclude, d.opts.MaxSubpages, d.opts.MaxPagination)
}

// Discover inspects the page currently loaded in b. Tab and scroll
// detection failures are logged and leave those parts empty; only an
// unreadable document is an error.
func (d *Discoverer) Discover(ctx context.Context, b browser.Browser) (*Structure, error) {
	pageURL := b.URL()
	html, err := b.HTML(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: read page")
	}

	links, err := ParseLinks(html, pageURL, d.reg, d.opts.Exclude, d.opts.MaxSubpages, d.opts.MaxPagination)
	if err != nil {
		return nil, err
	}
	st := &Structure{Links: *links}

	if tabs, err := d.Tabs(ctx, b); err != nil {
		zap.L().Warn("discovery: tab detection failed", zap.String("url", pageURL), zap.Error(err))
	} else {
		st.Tabs = tabs
	}

	if sc, err := FindScrollContainer(ctx, b); err != nil {
		zap.L().Warn("discovery: scroll container detection failed", zap.String("url", pageURL), zap.Error(err))
	} else {
		st.Scroll = sc
	}

	zap.L().Info("discovery: structure found",
		zap.String("url", pageURL),
		zap.Int("sub_pages", len(st.Links.SubPages)),
		zap.Int("pagination", len(st.Links.Pagination)),
		zap.Int("tabs", len(st.Tabs)),
	)
	return st, nil
}

// Tabs finds tab-like controls. Selector matches are kept unless their
// label is boilerplate; sibling groups are kept only when at least one
// label reads like a menu section.
func (d *Discoverer) Tabs(ctx context.Context, b browser.Browser) ([]Tab, error) {
	raw, err := b.Evaluate(ctx, tabScript, d.reg.TabSelectors(), d.opts.MaxTabs)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: evaluate tab script")
	}
	var found []Tab
	if err := json.Unmarshal(raw, &found); err != nil {
		return nil, eris.Wrap(err, "discovery: decode tabs")
	}
	return d.filterTabs(found), nil
}

func (d *Discoverer) filterTabs(found []Tab) []Tab {
	menuGroup := make(map[int]bool)
	for _, t := range found {
		if t.Group >= 0 && d.reg.IsMenuText(t.Label) {
			menuGroup[t.Group] = true
		}
	}

	seen := make(map[string]bool)
	var out []Tab
	for _, t := range found {
		if d.reg.IsNegative(t.Label) || seen[t.Label] {
			continue
		}
		if t.Group >= 0 && !menuGroup[t.Group] {
			continue
		}
		seen[t.Label] = true
		out = append(out, t)
	}
	return out
}

// FindScrollContainer locates the element that scrolls the menu.
func FindScrollContainer(ctx context.Context, b browser.Browser) (*ScrollContainer, error) {
	raw, err := b.Evaluate(ctx, scrollContainerScript)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: evaluate scroll script")
	}
	var sc ScrollContainer
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, eris.Wrap(err, "discovery: decode scroll container")
	}
	return &sc, nil
}

// ScrollBy scrolls the container by dy pixels and reports whether it moved.
func ScrollBy(ctx context.Context, b browser.Browser, c *ScrollContainer, dy float64) (bool, error) {
	selector := ""
	if c != nil {
		selector = c.Selector
	}
	raw, err := b.Evaluate(ctx, scrollScript, selector, dy)
	if err != nil {
		return false, eris.Wrap(err, "discovery: scroll")
	}
	var res struct {
		Moved bool `json:"moved"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return false, eris.Wrap(err, "discovery: decode scroll result")
	}
	return res.Moved, nil
}

// ScrollToTop resets the container's scroll position.
func ScrollToTop(ctx context.Context, b browser.Browser, c *ScrollContainer) error {
	selector := ""
	if c != nil {
		selector = c.Selector
	}
	if _, err := b.Evaluate(ctx, scrollTopScript, selector); err != nil {
		return eris.Wrap(err, "discovery: scroll to top")
	}
	return nil
}
