package selectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_IsMenuText(t *testing.T) {
	t.Parallel()
	r := Default()

	tests := []struct {
		text string
		want bool
	}{
		{"Menü", true},
		{"/menu/drinks", true},
		{"Kahvaltı", true},
		{"/our-menu.html", true},
		{"İÇECEKLER", true},
		{"Speisekarte", true},
		{"Gallery", false},
		{"/reservations", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.IsMenuText(tt.text))
		})
	}
}

func TestRegistry_IsNegative(t *testing.T) {
	t.Parallel()
	r := Default()

	assert.True(t, r.IsNegative("/privacy-policy"))
	assert.True(t, r.IsNegative("Kariyer"))
	assert.True(t, r.IsNegative("İletişim"))
	assert.True(t, r.IsNegative("mailto:info@x.com"))
	assert.False(t, r.IsNegative("/menu"))
	assert.False(t, r.IsNegative("Tatlılar"))
}

func TestRegistry_ProductTitleSelectors_DetectedFirst(t *testing.T) {
	t.Parallel()
	r := Default()

	sels := r.ProductTitleSelectors("https://x.com", `<img src="https://static.wixstatic.com/a.png">`)
	assert.Equal(t, "[data-hook='item.name']", sels[0])

	seen := make(map[string]bool)
	for _, s := range sels {
		assert.False(t, seen[s], "duplicate selector %s", s)
		seen[s] = true
	}
	assert.True(t, seen[".menu-item-name"])
}

func TestRegistry_TabSelectors(t *testing.T) {
	t.Parallel()

	sels := Default().TabSelectors()
	assert.Contains(t, sels, "[role='tab']")
	assert.Contains(t, sels, ".category-tab")
}

func TestRegistry_Merge(t *testing.T) {
	t.Parallel()

	base := Default()
	extra := Registry{
		MenuKeywords: []string{"menu", "şarküteri"},
		Platforms: []Platform{
			{Name: "generic", ProductTitle: []string{".only"}},
			{Name: "custom", Markers: []string{"custom-cdn"}, ProductTitle: []string{".c-title"}},
		},
	}
	merged := base.Merge(extra)

	assert.True(t, merged.IsMenuText("Şarküteri"))
	assert.Len(t, merged.Platforms, len(base.Platforms)+1)

	var gen Platform
	for _, p := range merged.Platforms {
		if p.Name == "generic" {
			gen = p
		}
	}
	assert.Equal(t, []string{".only"}, gen.ProductTitle)
	assert.Equal(t, ".c-title", merged.ProductTitleSelectors("https://custom-cdn.io/x", "")[0])
}
