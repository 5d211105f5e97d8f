package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Serpme Kahvaltı", "serpme kahvalti"},
		{"İÇECEKLER", "icecekler"},
		{"  Çay  ", "cay"},
		{"Crème Brûlée", "creme brulee"},
		{"Adana-Kebap!", "adana kebap"},
		{"Şiş/Köfte", "sis kofte"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestLevenshtein(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kebap", "kebab", 1},
		{"kitten", "sitting", 3},
		{"çay", "cay", 1},
		{"same", "same", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a))
		})
	}
}

func TestWithinDistance(t *testing.T) {
	t.Parallel()

	assert.True(t, WithinDistance("lahmacun", "lahmacon", 1))
	assert.False(t, WithinDistance("lahmacun", "lah", 2))
	assert.True(t, WithinDistance("pide", "pide", 0))
}

func TestFoldOCR(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "kofte", FoldOCR("k0fte"))
	assert.Equal(t, "iskender", FoldOCR("1skender"))
	assert.Equal(t, FoldOCR("salata"), FoldOCR("5alata"))
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, Similarity("Çay", "CAY"), 0.0001)
	assert.InDelta(t, 0.8, Similarity("kebap", "kebab"), 0.0001)
	assert.Less(t, Similarity("pizza", "baklava"), 0.5)
}

func TestTurkishCasing(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "kahvaltılar", Lower("tr", "KAHVALTILAR"))
	assert.Equal(t, "içecekler", Lower("tr", "İÇECEKLER"))
	assert.Equal(t, "Kahvaltılar", Title("tr", "KAHVALTILAR"))
	assert.Equal(t, "İçecekler", Title("tr", "İÇECEKLER"))
	assert.Equal(t, "Drinks", Title("en", "DRINKS"))
}

func TestIsAllUpper(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAllUpper("İÇECEKLER"))
	assert.True(t, IsAllUpper("ANA YEMEKLER 2"))
	assert.False(t, IsAllUpper("Menemen"))
	assert.False(t, IsAllUpper("A"))
	assert.False(t, IsAllUpper("120"))
}

func TestMaxEditsFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, MaxEditsFor(3))
	assert.Equal(t, 1, MaxEditsFor(5))
	assert.Equal(t, 2, MaxEditsFor(9))
}
