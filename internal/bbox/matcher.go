// Package bbox maps model-proposed product names onto OCR word geometry.
// Matching is greedy in product order; unmatched products get Y estimates
// interpolated from their matched neighbours.
package bbox

import (
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/fuzzy"
	"github.com/sells-group/menu-cli/internal/model"
)

// Tier identifies which matching rule produced a candidate.
type Tier int

const (
	TierNone Tier = iota
	TierExactPrefix
	TierShortPrefix
	TierOCRConfusion
	TierEditDistance
	TierSubstring
	TierShortName
)

var tierBase = map[Tier]float64{
	TierExactPrefix:  100,
	TierShortPrefix:  70,
	TierOCRConfusion: 75,
	TierEditDistance: 65,
	TierSubstring:    55,
	TierShortName:    90,
}

// Product is a candidate name to place on the image.
type Product struct {
	Name  string
	Price float64
}

// Options tunes scoring. Zero values use DefaultOptions.
type Options struct {
	MinScore          float64
	ExactBonus        float64
	AllCapsBonus      float64
	LeftColumnBonus   float64
	ContinuationBonus float64
	UsagePenalty      float64
	UpwardPenalty     float64
	// LineTolerance is the fraction of the anchor word's height within
	// which another word's centre counts as the same line.
	LineTolerance float64
	// MinLineTolerance is the floor for the same-line tolerance, in
	// normalized units.
	MinLineTolerance float64
	// DefaultSpacing is the Y step used for extrapolation when fewer than
	// two anchors exist.
	DefaultSpacing float64
}

// DefaultOptions returns the scoring used in production.
func DefaultOptions() Options {
	return Options{
		MinScore:          60,
		ExactBonus:        30,
		AllCapsBonus:      10,
		LeftColumnBonus:   10,
		ContinuationBonus: 15,
		UsagePenalty:      25,
		UpwardPenalty:     40,
		LineTolerance:     0.6,
		MinLineTolerance:  0.008 * model.CoordinateSpace,
		DefaultSpacing:    0.04 * model.CoordinateSpace,
	}
}

// Matcher assigns bounding boxes to products.
type Matcher struct {
	opts Options
}

// NewMatcher creates a Matcher.
func NewMatcher(opts Options) *Matcher {
	def := DefaultOptions()
	if opts.MinScore == 0 {
		opts = def
	}
	if opts.LineTolerance <= 0 {
		opts.LineTolerance = def.LineTolerance
	}
	if opts.MinLineTolerance <= 0 {
		opts.MinLineTolerance = def.MinLineTolerance
	}
	if opts.DefaultSpacing <= 0 {
		opts.DefaultSpacing = def.DefaultSpacing
	}
	return &Matcher{opts: opts}
}

type candidate struct {
	index        int
	tier         Tier
	score        float64
	continuation []int
}

// Match places every product. The input words are not modified: usage
// counts live on a private copy for the duration of this pass.
func (m *Matcher) Match(words []model.WordToken, products []Product) []model.MatchResult {
	tokens := make([]model.WordToken, len(words))
	copy(tokens, words)
	for i := range tokens {
		if tokens[i].NormalizedText == "" {
			tokens[i].NormalizedText = fuzzy.NormalizeWord(tokens[i].Text)
		}
	}

	results := make([]model.MatchResult, len(products))
	lastY := math.NaN()
	for pi, p := range products {
		results[pi] = model.MatchResult{ProductName: p.Name, Price: p.Price}
		best, ok := m.best(tokens, p.Name, lastY)
		if !ok {
			continue
		}

		anchor := tokens[best.index]
		box := anchor.Box
		tokens[best.index].UsageCount++
		for _, ci := range best.continuation {
			box = box.Union(tokens[ci].Box)
			tokens[ci].UsageCount++
		}
		results[pi].Box = &box
		results[pi].Y = box.Y
		results[pi].Score = best.score
		lastY = anchor.Box.CenterY()
	}

	Interpolate(results, m.opts.DefaultSpacing)

	matched := 0
	for _, r := range results {
		if r.Matched() {
			matched++
		}
	}
	zap.L().Debug("bbox: matched products",
		zap.Int("products", len(products)),
		zap.Int("matched", matched),
		zap.Int("words", len(words)),
	)
	return results
}

// best walks the tiers in order and returns the highest-scoring candidate
// of the first tier whose best clears MinScore.
func (m *Matcher) best(tokens []model.WordToken, name string, lastY float64) (candidate, bool) {
	nameWords := strings.Fields(name)
	if len(nameWords) == 0 {
		return candidate{}, false
	}
	first := fuzzy.NormalizeWord(nameWords[0])
	if first == "" {
		return candidate{}, false
	}
	rest := make([]string, 0, len(nameWords)-1)
	for _, w := range nameWords[1:] {
		if nw := fuzzy.NormalizeWord(w); nw != "" {
			rest = append(rest, nw)
		}
	}

	short := utf8.RuneCountInString(first) <= 3 && len(rest) == 0
	tiers := []Tier{TierExactPrefix, TierShortPrefix, TierOCRConfusion, TierEditDistance, TierSubstring}
	if short {
		tiers = []Tier{TierShortName}
	}

	for _, tier := range tiers {
		var top candidate
		found := false
		for i := range tokens {
			if !matchTier(tier, first, tokens[i].NormalizedText) {
				continue
			}
			c := m.score(tokens, i, tier, first, rest, lastY)
			if !found || c.score > top.score {
				top = c
				found = true
			}
		}
		if found && top.score >= m.opts.MinScore {
			return top, true
		}
	}
	return candidate{}, false
}

// matchTier reports whether the normalized first name word nf matches the
// normalized token tn under tier.
func matchTier(tier Tier, nf, tn string) bool {
	if tn == "" {
		return false
	}
	nfLen := utf8.RuneCountInString(nf)
	tnLen := utf8.RuneCountInString(tn)
	switch tier {
	case TierExactPrefix:
		if tn == nf {
			return true
		}
		return nfLen >= 4 && tnLen >= 4 && (strings.HasPrefix(tn, nf) || strings.HasPrefix(nf, tn))
	case TierShortPrefix:
		return nfLen >= 3 && tnLen >= 3 && prefix(nf, 3) == prefix(tn, 3)
	case TierOCRConfusion:
		return fuzzy.FoldOCR(tn) == fuzzy.FoldOCR(nf)
	case TierEditDistance:
		maxEdits := max(fuzzy.MaxEditsFor(nfLen), 1)
		return fuzzy.WithinDistance(nf, tn, maxEdits)
	case TierSubstring:
		return (nfLen >= 3 && strings.Contains(tn, nf)) || (tnLen >= 3 && strings.Contains(nf, tn))
	case TierShortName:
		return tn == nf
	}
	return false
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) < n {
		return s
	}
	return string(r[:n])
}

func (m *Matcher) score(tokens []model.WordToken, idx int, tier Tier, first string, rest []string, lastY float64) candidate {
	tok := tokens[idx]
	c := candidate{index: idx, tier: tier, score: tierBase[tier]}

	if tok.NormalizedText == first {
		c.score += m.opts.ExactBonus
	}
	if fuzzy.IsAllUpper(tok.Text) {
		c.score += m.opts.AllCapsBonus
	}
	if tok.Box.X < model.CoordinateSpace/2 {
		c.score += m.opts.LeftColumnBonus
	}
	if tier != TierShortName {
		c.score -= m.opts.UsagePenalty * float64(tok.UsageCount)
	}

	tol := m.lineTolerance(tok.Box)
	if !math.IsNaN(lastY) {
		dy := tok.Box.CenterY() - lastY
		switch {
		case dy < -tol:
			c.score -= m.opts.UpwardPenalty
		case dy <= 0.05*model.CoordinateSpace:
			c.score += 25
		case dy <= 0.15*model.CoordinateSpace:
			c.score += 15
		case dy <= 0.3*model.CoordinateSpace:
			c.score += 5
		}
	}

	c.continuation = m.continuation(tokens, idx, rest, tol)
	c.score += m.opts.ContinuationBonus * float64(len(c.continuation))

	total := len(rest) + 1
	if total >= 3 {
		need := max(2, (total+1)/2)
		if 1+len(c.continuation) < need {
			c.score = math.Inf(-1)
		}
	}
	return c
}

// continuation finds tokens on the anchor's line, to its right, matching
// the remaining name words. Each token is used at most once per match.
func (m *Matcher) continuation(tokens []model.WordToken, anchor int, rest []string, tol float64) []int {
	if len(rest) == 0 {
		return nil
	}
	a := tokens[anchor].Box
	used := map[int]bool{anchor: true}
	var out []int
	for _, w := range rest {
		bestIdx := -1
		bestX := math.Inf(1)
		for i, tok := range tokens {
			if used[i] || tok.Box.X < a.X {
				continue
			}
			if math.Abs(tok.Box.CenterY()-a.CenterY()) > tol {
				continue
			}
			if !wordMatches(w, tok.NormalizedText) {
				continue
			}
			if tok.Box.X < bestX {
				bestX = tok.Box.X
				bestIdx = i
			}
		}
		if bestIdx >= 0 {
			used[bestIdx] = true
			out = append(out, bestIdx)
		}
	}
	return out
}

func wordMatches(w, tn string) bool {
	if tn == "" {
		return false
	}
	if w == tn || fuzzy.FoldOCR(w) == fuzzy.FoldOCR(tn) {
		return true
	}
	return fuzzy.WithinDistance(w, tn, fuzzy.MaxEditsFor(utf8.RuneCountInString(w)))
}

func (m *Matcher) lineTolerance(b model.BoundingBox) float64 {
	return max(b.Height()*m.opts.LineTolerance, m.opts.MinLineTolerance)
}
