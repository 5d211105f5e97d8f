package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuItem_Key(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b MenuItem
		same bool
	}{
		{"case and spaces", MenuItem{Name: "  Adana  Kebap ", Price: 120}, MenuItem{Name: "adana kebap", Price: 120}, true},
		{"different price", MenuItem{Name: "Çay", Price: 20}, MenuItem{Name: "Çay", Price: 25}, false},
		{"different name", MenuItem{Name: "Çay", Price: 20}, MenuItem{Name: "Kahve", Price: 20}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.same, tt.a.Key() == tt.b.Key())
		})
	}
}

func TestCatalog_TotalItemsRecomputed(t *testing.T) {
	t.Parallel()

	c := &Catalog{Categories: []Category{
		{Name: "A", Items: []MenuItem{{Name: "x"}, {Name: "y"}}},
		{Name: "B", Items: []MenuItem{{Name: "z"}}},
	}}
	assert.Equal(t, 3, c.TotalItems())

	c.Categories[1].Items = append(c.Categories[1].Items, MenuItem{Name: "w"})
	assert.Equal(t, 4, c.TotalItems())
	assert.Len(t, c.Items(), 4)
}

func TestCatalog_MarshalJSON_IncludesTotal(t *testing.T) {
	t.Parallel()

	c := Catalog{
		Restaurant: "Test",
		Categories: []Category{{Name: "A", Items: []MenuItem{{Name: "x", Price: 5}}}},
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(1), raw["total_items"])
	assert.Equal(t, "Test", raw["restaurant"])
	assert.Equal(t, map[string]any{"units": float64(0), "failed_units": float64(0), "items": float64(1)}, raw["stats"])
}

func TestCatalog_Stats(t *testing.T) {
	t.Parallel()

	c := &Catalog{
		Categories: []Category{{Name: "Tatlılar", Items: []MenuItem{{Name: "Baklava"}, {Name: "Künefe"}}}},
		Units: []UnitReport{
			{Label: "https://a.com/menu", Strategy: StrategyDOMText, Items: 2},
			{Label: "Kampanyalar", Failed: true},
			{Label: "https://a.com/menu.pdf", Failed: true},
		},
	}
	assert.Equal(t, RunStats{Units: 3, FailedUnits: 2, Items: 2}, c.Stats())
}

func TestPageCaptureUnit_ContextCategory(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Çorbalar", PageCaptureUnit{TabLabel: "Çorbalar", Context: "Menü"}.ContextCategory())
	assert.Equal(t, "Tatlılar", PageCaptureUnit{Context: "Tatlılar"}.ContextCategory())
	assert.Empty(t, PageCaptureUnit{URL: "https://a.com"}.ContextCategory())
}

func TestBoundingBox_Union(t *testing.T) {
	t.Parallel()

	a := BoundingBox{X: 10, Y: 20, X2: 50, Y2: 40}
	b := BoundingBox{X: 60, Y: 18, X2: 90, Y2: 42}
	u := a.Union(b)
	assert.Equal(t, BoundingBox{X: 10, Y: 18, X2: 90, Y2: 42}, u)
	assert.InDelta(t, 30, u.CenterY(), 0.001)
}

func TestPageCaptureUnit_Label(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Drinks", PageCaptureUnit{URL: "https://x.com/menu", TabLabel: "Drinks"}.Label())
	assert.Equal(t, "https://x.com/menu", PageCaptureUnit{URL: "https://x.com/menu"}.Label())
}
