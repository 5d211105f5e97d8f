// Package domtext implements the DOM tier: visible page text with chrome
// removed, a deterministic line parser, and a CSS-selector fallback for
// pages whose text is too short to trust.
package domtext

import (
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/selectors"
)

// ErrBlocked is returned when the page is an anti-bot interstitial.
var ErrBlocked = eris.New("domtext: page blocked")

// DefaultShortTextChars is the visible-text length below which the
// selector fallback is used.
const DefaultShortTextChars = 500

// Result is the DOM tier's output for one page. Text is always populated
// so the caller can hand it to the model when Items fall short.
type Result struct {
	Text     string
	Items    []model.MenuItem
	Strategy model.Strategy
}

// Extractor runs the DOM tier over rendered HTML.
type Extractor struct {
	reg            selectors.Registry
	shortTextChars int
}

// New creates an Extractor. shortTextChars <= 0 uses DefaultShortTextChars.
func New(reg selectors.Registry, shortTextChars int) *Extractor {
	if shortTextChars <= 0 {
		shortTextChars = DefaultShortTextChars
	}
	return &Extractor{reg: reg, shortTextChars: shortTextChars}
}

// Extract cleans html, converts it to text, and parses items. Short text
// tries the selector fallback first and reports StrategyDOMSelector when it
// finds anything.
func (e *Extractor) Extract(html, pageURL string) (*Result, error) {
	doc, err := Clean(html, e.reg.Chrome)
	if err != nil {
		return nil, err
	}
	text, err := Markdown(doc)
	if err != nil {
		return nil, err
	}

	if blocked, kind := DetectBlock(html, text); blocked {
		return nil, eris.Wrapf(ErrBlocked, "domtext: %s on %s", kind, pageURL)
	}

	res := &Result{Text: text}
	if utf8.RuneCountInString(text) < e.shortTextChars {
		res.Strategy = model.StrategyDOMSelector
		res.Items = SelectorItems(doc, pageURL, html, e.reg)
	}
	if len(res.Items) == 0 {
		res.Strategy = model.StrategyDOMText
		res.Items = ParseLines(text)
	}

	zap.L().Debug("domtext: extracted",
		zap.String("url", pageURL),
		zap.String("strategy", string(res.Strategy)),
		zap.Int("text_chars", len(text)),
		zap.Int("items", len(res.Items)),
	)
	return res, nil
}
