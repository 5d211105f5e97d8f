package strategy

import (
	"context"
	"strings"

	"github.com/sells-group/menu-cli/internal/browser"
	"github.com/sells-group/menu-cli/internal/domtext"
	"github.com/sells-group/menu-cli/internal/extract"
	"github.com/sells-group/menu-cli/internal/intercept"
	"github.com/sells-group/menu-cli/internal/merge"
	"github.com/sells-group/menu-cli/internal/model"
)

// APITier reads items from JSON responses recorded while the unit loaded
// and from JSON-LD embedded in its HTML. Units without HTML (PDF text) are
// not browser pages and yield nothing here.
type APITier struct {
	Browser browser.Browser
}

// Strategy implements Tier.
func (t *APITier) Strategy() model.Strategy { return model.StrategyAPI }

// Capture implements Tier.
func (t *APITier) Capture(_ context.Context, unit *model.PageCaptureUnit) (*Outcome, error) {
	out := &Outcome{Strategy: model.StrategyAPI}
	if unit.HTML == "" {
		return out, nil
	}
	if t.Browser != nil {
		out.Items = intercept.Extract(t.Browser.Responses())
	}
	out.Items = append(out.Items, intercept.FromHTML(unit.HTML)...)
	return out, nil
}

// DOMTier parses the unit's visible text, or its selector-matched cards
// when the text is short. When the heuristics fall below MinYield and a
// Driver is set, the text is sent to the extraction model.
type DOMTier struct {
	Extractor *domtext.Extractor
	Driver    *extract.Driver
	MinYield  int
}

// Strategy implements Tier.
func (t *DOMTier) Strategy() model.Strategy { return model.StrategyDOMText }

// Capture implements Tier.
func (t *DOMTier) Capture(ctx context.Context, unit *model.PageCaptureUnit) (*Outcome, error) {
	out := &Outcome{Strategy: model.StrategyDOMText}
	text := unit.Text
	if unit.HTML != "" {
		res, err := t.Extractor.Extract(unit.HTML, unit.URL)
		if err != nil {
			return nil, err
		}
		text = res.Text
		out.Strategy = res.Strategy
		out.Items = res.Items
	} else if text != "" {
		out.Items = domtext.ParseLines(text)
	}

	heuristic := Yield(out.Items)
	if heuristic >= t.minYield() || t.Driver == nil || strings.TrimSpace(text) == "" {
		return out, nil
	}

	res, err := t.Driver.ExtractText(ctx, text, unit.ContextCategory())
	if res != nil {
		out.Usage = res.Usage
	}
	if err != nil {
		return out, err
	}
	items := merge.Dedup(res.Items(), nil)
	if Yield(items) > heuristic {
		out.Strategy = model.StrategyDOMText
		out.Items = items
	}
	return out, nil
}

func (t *DOMTier) minYield() int {
	if t.MinYield <= 0 {
		return DefaultMinYield
	}
	return t.MinYield
}
