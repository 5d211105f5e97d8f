// Package pipeline orchestrates one extraction run: load the menu page,
// discover its structure, capture every unit through the strategy
// selector, merge, normalize categories, and return the catalog.
package pipeline

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/bbox"
	"github.com/sells-group/menu-cli/internal/browser"
	"github.com/sells-group/menu-cli/internal/category"
	"github.com/sells-group/menu-cli/internal/config"
	"github.com/sells-group/menu-cli/internal/cost"
	"github.com/sells-group/menu-cli/internal/discovery"
	"github.com/sells-group/menu-cli/internal/domtext"
	"github.com/sells-group/menu-cli/internal/extract"
	"github.com/sells-group/menu-cli/internal/fuzzy"
	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/ocr"
	"github.com/sells-group/menu-cli/internal/resilience"
	"github.com/sells-group/menu-cli/internal/rules"
	"github.com/sells-group/menu-cli/internal/strategy"
	"github.com/sells-group/menu-cli/pkg/anthropic"
)

// ErrNoItemsExtracted is the only hard failure: every unit yielded nothing.
var ErrNoItemsExtracted = eris.New("pipeline: no items extracted")

// Request identifies the restaurant and menu page to extract.
type Request struct {
	Restaurant string `json:"restaurant"`
	Slug       string `json:"slug,omitempty"`
	URL        string `json:"url"`
}

// Deps are the pipeline's collaborators. Browser is required; a nil Model
// limits capture to the API and heuristic DOM tiers, a nil Words skips
// position matching, and a nil PDF skips PDF sub-pages.
type Deps struct {
	Browser browser.Browser
	Model   anthropic.Client
	Words   ocr.WordDetector
	PDF     ocr.PDFExtractor
	HTTP    *http.Client
}

// Pipeline runs extractions. It is not safe for concurrent Run calls
// because it drives a single browser session.
type Pipeline struct {
	cfg        *config.Config
	deps       Deps
	rules      *rules.Rules
	discoverer *discovery.Discoverer
	normalizer *category.Normalizer
	selector   *strategy.Selector
	retry      resilience.RetryConfig
}

// New wires a Pipeline. r is read for heuristics and strategy history and
// is never modified; Run returns an updated copy.
func New(cfg *config.Config, deps Deps, r *rules.Rules) *Pipeline {
	if r == nil {
		r = rules.Default()
	}
	if deps.HTTP == nil {
		deps.HTTP = &http.Client{Timeout: seconds(cfg.Browser.NavigationTimeoutSecs)}
	}
	retry := resilience.FromRetryConfig(cfg.Extract.RetryAttempts, cfg.Extract.InitialBackoffMs, cfg.Extract.MaxBackoffMs)

	var driver *extract.Driver
	if deps.Model != nil {
		driver = extract.NewDriver(deps.Model, extract.Config{
			Model:             cfg.Anthropic.Model,
			MaxTokens:         cfg.Anthropic.MaxTokens,
			ChunkChars:        cfg.Extract.ChunkChars,
			ImageBatch:        cfg.Extract.ImageBatch,
			Concurrency:       cfg.Extract.Concurrency,
			RequestsPerSecond: cfg.Extract.RequestsPerSecond,
			Retry:             retry,
			Pricing:           cost.NewCalculator(cfg.Pricing),
		})
	}

	reg := r.Selectors
	selector := strategy.NewSelector(cfg.Strategy.MinYield,
		&strategy.APITier{Browser: deps.Browser},
		&strategy.DOMTier{
			Extractor: domtext.New(reg, cfg.Strategy.ShortTextChars),
			Driver:    driver,
			MinYield:  cfg.Strategy.MinYield,
		},
		&strategy.ScreenshotTier{
			Browser:        deps.Browser,
			Driver:         driver,
			OCR:            deps.Words,
			Matcher:        bbox.NewMatcher(bbox.DefaultOptions()),
			ViewportHeight: float64(cfg.Browser.ViewportHeight),
			MaxScreenshots: cfg.Browser.MaxScreenshots,
			Settle:         millis(cfg.Browser.SettleMillis),
		},
	)

	return &Pipeline{
		cfg:   cfg,
		deps:  deps,
		rules: r,
		discoverer: discovery.New(reg, discovery.Options{
			MaxSubpages:   cfg.Discovery.MaxSubpages,
			MaxPagination: cfg.Discovery.MaxPagination,
			MaxTabs:       cfg.Discovery.MaxTabs,
		}),
		normalizer: category.New(r, category.Options{
			Language:       cfg.Normalize.Language,
			SplitThreshold: cfg.Normalize.SplitThreshold,
			SplitSize:      cfg.Normalize.SplitSize,
		}),
		selector: selector,
		retry:    retry,
	}
}

// Run extracts one restaurant's menu. Per-unit failures are recorded in the
// catalog's unit reports and never abort the run; only a run that gathered
// no items at all returns ErrNoItemsExtracted. The returned rules are a
// copy carrying this run's winning strategy for the host.
func (p *Pipeline) Run(ctx context.Context, req Request) (*model.Catalog, *rules.Rules, error) {
	if req.URL == "" {
		return nil, nil, eris.New("pipeline: url is required")
	}
	if req.Slug == "" {
		req.Slug = Slug(req.Restaurant)
	}
	log := zap.L().With(zap.String("restaurant", req.Restaurant), zap.String("url", req.URL))
	log.Info("pipeline: starting extraction")
	start := time.Now()

	updated := p.rules.Clone()
	host := hostOf(req.URL)
	preferred, _ := updated.PreferredStrategy(host)
	r := newRun(p, preferred, log)

	origin, err := r.load(ctx, req.URL)
	if err != nil {
		r.fail(model.PageCaptureUnit{URL: req.URL}, err)
		return nil, updated, eris.Wrapf(ErrNoItemsExtracted, "pipeline: load %s: %v", req.URL, err)
	}

	st, err := p.discoverer.Discover(ctx, p.deps.Browser)
	if err != nil {
		log.Warn("pipeline: discovery failed, single unit", zap.Error(err))
		st = &discovery.Structure{}
	}

	origin.SubLinks = st.Links.URLs()
	r.capture(ctx, origin)
	for _, tab := range st.Tabs {
		if ctx.Err() != nil {
			break
		}
		r.tab(ctx, req.URL, tab)
	}
	r.crawl(ctx, req.URL, st.Links)
	if err := ctx.Err(); err != nil {
		return nil, updated, eris.Wrap(err, "pipeline: run canceled")
	}

	items := r.engine.Items()
	if len(items) == 0 {
		log.Error("pipeline: nothing extracted", zap.Int("units", len(r.reports)))
		return nil, updated, eris.Wrapf(ErrNoItemsExtracted, "pipeline: %d units, 0 items", len(r.reports))
	}

	catalog := &model.Catalog{
		RunID:       uuid.NewString(),
		Restaurant:  req.Restaurant,
		Slug:        req.Slug,
		MenuURL:     req.URL,
		ExtractedAt: time.Now().UTC(),
		Categories:  p.normalizer.Normalize(items),
		Units:       r.reports,
		Usage:       r.usage,
	}

	if winner := r.winner(); winner != "" {
		updated.RecordStrategy(host, winner)
	}

	log.Info("pipeline: extraction complete",
		zap.String("run_id", catalog.RunID),
		zap.Int("units", len(r.reports)),
		zap.Int("failed_units", r.failed),
		zap.Int("categories", len(catalog.Categories)),
		zap.Int("items", catalog.TotalItems()),
		zap.Duration("elapsed", time.Since(start)),
	)
	r.usage.LogCost(p.cfg.Anthropic.Model, "extract")
	return catalog, updated, nil
}

// Slug derives a URL-safe identifier from a restaurant name.
func Slug(name string) string {
	return strings.ReplaceAll(fuzzy.Normalize(name), " ", "-")
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
