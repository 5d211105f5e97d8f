// Package strategy is the capture strategy selector: it runs the capture
// tiers for one unit in ascending cost order and stops at the first tier
// whose yield clears the minimum.
package strategy

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/browser"
	"github.com/sells-group/menu-cli/internal/domtext"
	"github.com/sells-group/menu-cli/internal/model"
)

// DefaultMinYield is the number of distinct items a tier must produce to
// stop escalation.
const DefaultMinYield = 3

// ErrNoYield is returned when every tier produced zero items for a unit.
var ErrNoYield = eris.New("strategy: no tier produced items")

// ErrUnavailable marks a unit whose page cannot be read at all (blocked or
// not loaded). Escalating to a costlier tier would not help.
var ErrUnavailable = eris.New("strategy: unit unavailable")

// Outcome is one tier's result for a unit.
type Outcome struct {
	Strategy model.Strategy
	Items    []model.MenuItem
	Usage    model.TokenUsage
	Matches  []model.MatchResult
}

// Tier is one capture strategy.
type Tier interface {
	Strategy() model.Strategy
	Capture(ctx context.Context, unit *model.PageCaptureUnit) (*Outcome, error)
}

// Selector tries tiers in priority order, returning the first result that
// clears the minimum yield.
type Selector struct {
	tiers    []Tier
	minYield int
}

// NewSelector creates a Selector. Tiers are tried in the given order unless
// a preferred strategy moves one to the front.
func NewSelector(minYield int, tiers ...Tier) *Selector {
	if minYield <= 0 {
		minYield = DefaultMinYield
	}
	return &Selector{tiers: tiers, minYield: minYield}
}

// MinYield returns the configured threshold.
func (s *Selector) MinYield() int {
	return s.minYield
}

// Run captures one unit. A tier error or a below-threshold yield moves on
// to the next tier. When no tier clears the threshold the largest non-empty
// result is returned; when all are empty ErrNoYield is returned. Token
// usage from every attempted tier is summed into the returned outcome.
func (s *Selector) Run(ctx context.Context, unit *model.PageCaptureUnit, preferred model.Strategy) (*Outcome, error) {
	var (
		best    *Outcome
		usage   model.TokenUsage
		lastErr error
	)
	for _, t := range s.order(preferred) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := t.Capture(ctx, unit)
		if out != nil {
			usage.Add(out.Usage)
		}
		if err != nil {
			if unavailable(err) {
				return nil, eris.Wrapf(ErrUnavailable, "strategy: %s: %v", unit.Label(), err)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			zap.L().Warn("strategy: tier failed",
				zap.String("unit", unit.Label()),
				zap.String("tier", string(t.Strategy())),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		n := Yield(out.Items)
		if n >= s.minYield {
			out.Usage = usage
			zap.L().Debug("strategy: tier accepted",
				zap.String("unit", unit.Label()),
				zap.String("tier", string(out.Strategy)),
				zap.Int("items", n),
			)
			return out, nil
		}
		if best == nil || n > Yield(best.Items) {
			best = out
		}
		zap.L().Info("strategy: yield below threshold, escalating",
			zap.String("unit", unit.Label()),
			zap.String("tier", string(t.Strategy())),
			zap.Int("items", n),
			zap.Int("min_yield", s.minYield),
		)
	}

	if best != nil && len(best.Items) > 0 {
		best.Usage = usage
		return best, nil
	}
	if lastErr != nil {
		return &Outcome{Usage: usage}, eris.Wrapf(ErrNoYield, "strategy: %s: last error: %v", unit.Label(), lastErr)
	}
	return &Outcome{Usage: usage}, eris.Wrapf(ErrNoYield, "strategy: %s", unit.Label())
}

// order returns the tiers with the preferred one first.
func (s *Selector) order(preferred model.Strategy) []Tier {
	if preferred == "" {
		return s.tiers
	}
	want := family(preferred)
	out := make([]Tier, 0, len(s.tiers))
	for _, t := range s.tiers {
		if family(t.Strategy()) == want {
			out = append(out, t)
		}
	}
	for _, t := range s.tiers {
		if family(t.Strategy()) != want {
			out = append(out, t)
		}
	}
	return out
}

// family maps both DOM variants onto the DOM tier.
func family(s model.Strategy) model.Strategy {
	if s == model.StrategyDOMSelector {
		return model.StrategyDOMText
	}
	return s
}

func unavailable(err error) bool {
	return errors.Is(err, domtext.ErrBlocked) || errors.Is(err, browser.ErrNavigation)
}

// Yield counts distinct (name, price) keys.
func Yield(items []model.MenuItem) int {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.NameKey() == "" {
			continue
		}
		seen[it.Key()] = struct{}{}
	}
	return len(seen)
}
