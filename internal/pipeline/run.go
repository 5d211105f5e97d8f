package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/browser"
	"github.com/sells-group/menu-cli/internal/discovery"
	"github.com/sells-group/menu-cli/internal/merge"
	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/strategy"
)

// run is the mutable state of one Pipeline.Run. Units are processed one at
// a time on the shared browser session.
type run struct {
	p         *Pipeline
	log       *zap.Logger
	preferred model.Strategy
	engine    *merge.Engine
	reports   []model.UnitReport
	usage     model.TokenUsage
	wins      map[model.Strategy]int
	failed    int
}

func newRun(p *Pipeline, preferred model.Strategy, log *zap.Logger) *run {
	return &run{
		p:         p,
		log:       log,
		preferred: preferred,
		engine:    merge.NewEngine(p.normalizer.IsJunk),
		wins:      make(map[model.Strategy]int),
	}
}

// load navigates to pageURL with a fresh response recorder and returns the
// rendered page as a unit.
func (r *run) load(ctx context.Context, pageURL string) (model.PageCaptureUnit, error) {
	b := r.p.deps.Browser
	b.ResetResponses()
	if err := b.Navigate(ctx, pageURL, seconds(r.p.cfg.Browser.NavigationTimeoutSecs)); err != nil {
		return model.PageCaptureUnit{}, err
	}
	if err := browser.Wait(ctx, millis(r.p.cfg.Browser.SettleMillis)); err != nil {
		return model.PageCaptureUnit{}, err
	}
	html, err := b.HTML(ctx)
	if err != nil {
		return model.PageCaptureUnit{}, eris.Wrap(err, "pipeline: read html")
	}
	return model.PageCaptureUnit{URL: pageURL, HTML: html}, nil
}

// tab clicks a tab on the origin page and captures what it reveals under
// the tab's label.
func (r *run) tab(ctx context.Context, originURL string, tab discovery.Tab) {
	unit := model.PageCaptureUnit{URL: originURL, TabLabel: tab.Label}
	b := r.p.deps.Browser
	b.ResetResponses()
	if err := b.Click(ctx, tab.Target, seconds(r.p.cfg.Browser.ClickTimeoutSecs)); err != nil {
		r.fail(unit, err)
		return
	}
	if err := browser.Wait(ctx, millis(r.p.cfg.Browser.SettleMillis)); err != nil {
		r.fail(unit, err)
		return
	}
	html, err := b.HTML(ctx)
	if err != nil {
		r.fail(unit, eris.Wrap(err, "pipeline: read tab html"))
		return
	}
	unit.HTML = html
	r.capture(ctx, unit)
}

// maxMenuDepth bounds sub-page nesting: menu, sub-menu, category.
const maxMenuDepth = 2

// queuedLink is a sub-page or pagination link waiting to be captured.
// category is the context its items fall under and parent the menu that
// category belongs to.
type queuedLink struct {
	link       discovery.Link
	category   string
	parent     string
	depth      int
	pagination bool
}

// crawl captures the origin's sub-pages and pagination, then follows the
// links each captured page exposes in turn. Sub-pages and pagination pages
// each share one cap across the whole run, and no URL is visited twice.
func (r *run) crawl(ctx context.Context, originURL string, links discovery.LinkSet) {
	opts := r.p.discoverer.Options()
	visited := map[string]bool{discovery.VisitKey(originURL): true}
	subpages, pages := 0, 0
	var queue []queuedLink

	enqueue := func(q queuedLink) {
		key := discovery.VisitKey(q.link.URL)
		if visited[key] {
			return
		}
		if q.pagination {
			if pages >= opts.MaxPagination {
				return
			}
			pages++
		} else {
			if subpages >= opts.MaxSubpages {
				return
			}
			subpages++
		}
		visited[key] = true
		queue = append(queue, q)
	}

	for _, l := range links.SubPages {
		enqueue(queuedLink{link: l, category: l.Text, depth: 1})
	}
	for _, l := range links.Pagination {
		enqueue(queuedLink{link: l, pagination: true})
	}

	for len(queue) > 0 && ctx.Err() == nil {
		next := queue[0]
		queue = queue[1:]

		found := r.subpage(ctx, next)
		if found == nil {
			continue
		}
		for _, l := range found.Pagination {
			enqueue(queuedLink{link: l, category: next.category, parent: next.parent, depth: next.depth, pagination: true})
		}
		if next.depth >= maxMenuDepth {
			continue
		}
		for _, l := range found.SubPages {
			enqueue(queuedLink{link: l, category: l.Text, parent: next.category, depth: next.depth + 1})
		}
	}
}

// subpage captures a linked page and returns the links it exposes. PDFs
// are downloaded and converted to text instead of being rendered and never
// expose links.
func (r *run) subpage(ctx context.Context, q queuedLink) *discovery.LinkSet {
	unit := model.PageCaptureUnit{URL: q.link.URL, Context: q.category, ParentMenu: q.parent}
	if discovery.IsPDF(q.link.URL) {
		if r.p.deps.PDF == nil {
			r.fail(unit, eris.New("pipeline: no pdf extractor configured"))
			return nil
		}
		text, err := r.p.pdfText(ctx, q.link.URL)
		if err != nil {
			r.fail(unit, err)
			return nil
		}
		unit.Text = text
		r.capture(ctx, unit)
		return nil
	}

	loaded, err := r.load(ctx, q.link.URL)
	if err != nil {
		r.fail(unit, err)
		return nil
	}
	unit.HTML = loaded.HTML

	found, err := r.p.discoverer.Links(unit.HTML, q.link.URL)
	if err != nil {
		r.log.Warn("pipeline: sub-page link discovery failed", zap.String("url", q.link.URL), zap.Error(err))
	} else {
		unit.SubLinks = found.URLs()
	}
	r.capture(ctx, unit)
	return found
}

// capture runs the strategy selector on one unit and merges its items.
func (r *run) capture(ctx context.Context, unit model.PageCaptureUnit) {
	out, err := r.p.selector.Run(ctx, &unit, r.preferred)
	if out != nil {
		r.usage.Add(out.Usage)
	}
	if err != nil {
		r.fail(unit, err)
		return
	}

	unit.Source = out.Strategy
	added := r.engine.Add(unit, unit.Source, out.Items)
	r.wins[out.Strategy] += added
	r.reports = append(r.reports, model.UnitReport{
		Label:      unit.Label(),
		ParentMenu: unit.ParentMenu,
		Strategy:   out.Strategy,
		Items:      added,
		SubLinks:   unit.SubLinks,
		Matches:    out.Matches,
	})
	r.log.Info("pipeline: unit captured",
		zap.String("unit", unit.Label()),
		zap.String("tier", string(out.Strategy)),
		zap.Int("items", added),
	)
}

func (r *run) fail(unit model.PageCaptureUnit, err error) {
	r.failed++
	r.reports = append(r.reports, model.UnitReport{
		Label:      unit.Label(),
		ParentMenu: unit.ParentMenu,
		Failed:     true,
		Error:      err.Error(),
	})
	level := r.log.Warn
	if errors.Is(err, strategy.ErrNoYield) {
		level = r.log.Info
	}
	level("pipeline: unit failed",
		zap.String("unit", unit.Label()),
		zap.Error(err),
	)
}

// winner returns the strategy that contributed the most items.
func (r *run) winner() model.Strategy {
	var best model.Strategy
	for _, s := range model.AllStrategies() {
		if r.wins[s] > r.wins[best] {
			best = s
		}
	}
	return best
}
