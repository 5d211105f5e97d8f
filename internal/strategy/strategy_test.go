package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-cli/internal/browser"
	"github.com/sells-group/menu-cli/internal/domtext"
	"github.com/sells-group/menu-cli/internal/model"
)

type stubTier struct {
	strategy model.Strategy
	items    []model.MenuItem
	usage    model.TokenUsage
	err      error
	calls    int
}

func (s *stubTier) Strategy() model.Strategy { return s.strategy }

func (s *stubTier) Capture(_ context.Context, _ *model.PageCaptureUnit) (*Outcome, error) {
	s.calls++
	if s.err != nil {
		return &Outcome{Strategy: s.strategy, Usage: s.usage}, s.err
	}
	return &Outcome{Strategy: s.strategy, Items: s.items, Usage: s.usage}, nil
}

func items(names ...string) []model.MenuItem {
	out := make([]model.MenuItem, len(names))
	for i, n := range names {
		out[i] = model.MenuItem{Name: n, Price: float64(10 * (i + 1))}
	}
	return out
}

func unit() *model.PageCaptureUnit {
	return &model.PageCaptureUnit{URL: "https://cafe.example/menu"}
}

func TestSelector_FirstTierAboveThreshold(t *testing.T) {
	api := &stubTier{strategy: model.StrategyAPI, items: items("Latte", "Mocha", "Americano")}
	dom := &stubTier{strategy: model.StrategyDOMText, items: items("x", "y", "z")}

	out, err := NewSelector(3, api, dom).Run(context.Background(), unit(), "")
	require.NoError(t, err)
	assert.Equal(t, model.StrategyAPI, out.Strategy)
	assert.Len(t, out.Items, 3)
	assert.Equal(t, 0, dom.calls)
}

func TestSelector_EscalatesOnLowYieldAndError(t *testing.T) {
	api := &stubTier{strategy: model.StrategyAPI, items: items("Latte")}
	dom := &stubTier{strategy: model.StrategyDOMText, err: errors.New("parse failed"), usage: model.TokenUsage{Calls: 1, InputTokens: 50}}
	shot := &stubTier{strategy: model.StrategyScreenshot, items: items("Çay", "Kahve", "Kola", "Su"), usage: model.TokenUsage{Calls: 2, InputTokens: 400}}

	out, err := NewSelector(3, api, dom, shot).Run(context.Background(), unit(), "")
	require.NoError(t, err)
	assert.Equal(t, model.StrategyScreenshot, out.Strategy)
	assert.Len(t, out.Items, 4)
	assert.Equal(t, 3, out.Usage.Calls)
	assert.Equal(t, 450, out.Usage.InputTokens)
	assert.Equal(t, 1, api.calls)
	assert.Equal(t, 1, dom.calls)
}

func TestSelector_BestBelowThreshold(t *testing.T) {
	api := &stubTier{strategy: model.StrategyAPI, items: items("Latte")}
	dom := &stubTier{strategy: model.StrategyDOMText, items: items("Latte", "Mocha")}
	shot := &stubTier{strategy: model.StrategyScreenshot}

	out, err := NewSelector(3, api, dom, shot).Run(context.Background(), unit(), "")
	require.NoError(t, err)
	assert.Equal(t, model.StrategyDOMText, out.Strategy)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, 1, shot.calls)
}

func TestSelector_AllEmpty(t *testing.T) {
	api := &stubTier{strategy: model.StrategyAPI}
	shot := &stubTier{strategy: model.StrategyScreenshot, err: errors.New("no model")}

	out, err := NewSelector(3, api, shot).Run(context.Background(), unit(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoYield)
	require.NotNil(t, out)
	assert.Empty(t, out.Items)
}

func TestSelector_PreferredTierFirst(t *testing.T) {
	api := &stubTier{strategy: model.StrategyAPI, items: items("a", "b", "c")}
	dom := &stubTier{strategy: model.StrategyDOMText, items: items("d", "e", "f")}
	shot := &stubTier{strategy: model.StrategyScreenshot, items: items("g", "h", "i")}

	s := NewSelector(3, api, dom, shot)

	out, err := s.Run(context.Background(), unit(), model.StrategyDOMSelector)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyDOMText, out.Strategy)
	assert.Equal(t, 0, api.calls)

	out, err = s.Run(context.Background(), unit(), model.StrategyScreenshot)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyScreenshot, out.Strategy)
	assert.Equal(t, 0, api.calls)
}

func TestSelector_PreferredFallsBack(t *testing.T) {
	api := &stubTier{strategy: model.StrategyAPI, items: items("a", "b", "c")}
	shot := &stubTier{strategy: model.StrategyScreenshot}

	out, err := NewSelector(3, api, shot).Run(context.Background(), unit(), model.StrategyScreenshot)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyAPI, out.Strategy)
	assert.Equal(t, 1, shot.calls)
}

func TestSelector_UnavailableStops(t *testing.T) {
	for _, cause := range []error{domtext.ErrBlocked, browser.ErrNavigation} {
		api := &stubTier{strategy: model.StrategyAPI}
		dom := &stubTier{strategy: model.StrategyDOMText, err: eris.Wrap(cause, "captcha")}
		shot := &stubTier{strategy: model.StrategyScreenshot, items: items("a", "b", "c")}

		_, err := NewSelector(3, api, dom, shot).Run(context.Background(), unit(), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, 0, shot.calls)
	}
}

func TestSelector_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api := &stubTier{strategy: model.StrategyAPI}

	_, err := NewSelector(3, api).Run(ctx, unit(), "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, api.calls)
}

func TestYield(t *testing.T) {
	in := []model.MenuItem{
		{Name: "Çay", Price: 20},
		{Name: " çay ", Price: 20},
		{Name: "Çay", Price: 25},
		{Name: "", Price: 5},
	}
	assert.Equal(t, 2, Yield(in))
	assert.Equal(t, 0, Yield(nil))
}

func TestNewSelector_DefaultMinYield(t *testing.T) {
	assert.Equal(t, DefaultMinYield, NewSelector(0).MinYield())
	assert.Equal(t, 5, NewSelector(5).MinYield())
}
