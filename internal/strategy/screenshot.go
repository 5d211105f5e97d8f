package strategy

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/bbox"
	"github.com/sells-group/menu-cli/internal/browser"
	"github.com/sells-group/menu-cli/internal/discovery"
	"github.com/sells-group/menu-cli/internal/extract"
	"github.com/sells-group/menu-cli/internal/merge"
	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/ocr"
)

// ScrollFraction is the share of the viewport scrolled between
// screenshots. Consecutive shots overlap by the remainder.
const ScrollFraction = 0.8

// DefaultMaxScreenshots caps the screenshots taken for one unit.
const DefaultMaxScreenshots = 12

// ScreenshotTier scrolls the page's menu container, screenshots each
// viewport, and sends the images in order to the extraction model. With a
// WordDetector set, each product is also placed on its screenshot.
type ScreenshotTier struct {
	Browser        browser.Browser
	Driver         *extract.Driver
	OCR            ocr.WordDetector
	Matcher        *bbox.Matcher
	ViewportHeight float64
	MaxScreenshots int
	Settle         time.Duration
}

// Strategy implements Tier.
func (t *ScreenshotTier) Strategy() model.Strategy { return model.StrategyScreenshot }

// Capture implements Tier.
func (t *ScreenshotTier) Capture(ctx context.Context, unit *model.PageCaptureUnit) (*Outcome, error) {
	out := &Outcome{Strategy: model.StrategyScreenshot}
	if t.Driver == nil {
		return out, eris.New("strategy: screenshot tier has no extraction model")
	}

	images := unit.Images
	if len(images) == 0 {
		if unit.HTML == "" || t.Browser == nil {
			return out, nil
		}
		var err error
		if images, err = t.capture(ctx); err != nil {
			return out, err
		}
	}

	res, err := t.Driver.ExtractImages(ctx, images, unit.ContextCategory())
	if res != nil {
		out.Usage = res.Usage
	}
	if err != nil {
		return out, err
	}
	out.Items = merge.ScrollOverlap(res.Batches)

	if t.OCR != nil && len(out.Items) > 0 {
		out.Matches = t.anchor(ctx, images, res.Batches)
	}
	return out, nil
}

// capture screenshots the viewport, scrolling the container between shots
// until it stops moving or the cap is reached.
func (t *ScreenshotTier) capture(ctx context.Context) ([]model.Image, error) {
	container, err := discovery.FindScrollContainer(ctx, t.Browser)
	if err != nil {
		zap.L().Debug("strategy: no scroll container, using document", zap.Error(err))
	}
	if err := discovery.ScrollToTop(ctx, t.Browser, container); err != nil {
		zap.L().Debug("strategy: scroll to top failed", zap.Error(err))
	}

	step := t.ViewportHeight
	if container != nil && container.ClientHeight > 0 {
		step = container.ClientHeight
	}
	step *= ScrollFraction

	limit := t.MaxScreenshots
	if limit <= 0 {
		limit = DefaultMaxScreenshots
	}

	var images []model.Image
	for len(images) < limit {
		if err := browser.Wait(ctx, t.Settle); err != nil {
			return images, err
		}
		data, err := t.Browser.Screenshot(ctx, false)
		if err != nil {
			if len(images) == 0 {
				return nil, eris.Wrap(err, "strategy: screenshot")
			}
			zap.L().Warn("strategy: screenshot failed, keeping earlier shots", zap.Error(err))
			break
		}
		images = append(images, model.Image{Data: data, MediaType: "image/png"})

		if step <= 0 {
			break
		}
		moved, err := discovery.ScrollBy(ctx, t.Browser, container, step)
		if err != nil || !moved {
			break
		}
	}
	zap.L().Debug("strategy: captured screenshots", zap.Int("count", len(images)))
	return images, nil
}

// anchor places each batch's products on the screenshots of that batch,
// keeping the best-scoring match per product.
func (t *ScreenshotTier) anchor(ctx context.Context, images []model.Image, batches [][]model.MenuItem) []model.MatchResult {
	matcher := t.Matcher
	if matcher == nil {
		matcher = bbox.NewMatcher(bbox.DefaultOptions())
	}

	var out []model.MatchResult
	offset := 0
	for bi, group := range t.Driver.BatchImages(images) {
		start := offset
		offset += len(group)
		if bi >= len(batches) || len(batches[bi]) == 0 {
			continue
		}
		products := make([]bbox.Product, len(batches[bi]))
		for i, it := range batches[bi] {
			products[i] = bbox.Product{Name: it.Name, Price: it.Price}
		}

		var best []model.MatchResult
		for gi, img := range group {
			words, err := t.OCR.DetectWords(ctx, img)
			if err != nil {
				zap.L().Warn("strategy: ocr failed",
					zap.Int("image", start+gi),
					zap.Error(err),
				)
				continue
			}
			results := matcher.Match(words, products)
			for i := range results {
				results[i].Image = start + gi
			}
			if best == nil {
				best = results
				continue
			}
			for i, r := range results {
				if r.Matched() && (!best[i].Matched() || r.Score > best[i].Score) {
					best[i] = r
				}
			}
		}
		out = append(out, best...)
	}
	return out
}
