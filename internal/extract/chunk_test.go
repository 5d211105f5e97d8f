package extract

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-cli/internal/model"
)

func TestSplitLines_BudgetAndOrder(t *testing.T) {
	t.Parallel()

	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, fmt.Sprintf("Ürün %d %s %d", i, strings.Repeat("ş", i%17), i*5))
	}

	for _, budget := range []int{40, 100, 512, 4000} {
		t.Run(fmt.Sprintf("budget_%d", budget), func(t *testing.T) {
			t.Parallel()
			chunks := SplitLines(lines, budget)

			var rejoined []string
			for _, c := range chunks {
				require.NotEmpty(t, c)
				assert.LessOrEqual(t, utf8.RuneCountInString(strings.Join(c, "\n")), budget)
				rejoined = append(rejoined, c...)
			}
			assert.Equal(t, lines, rejoined)
		})
	}
}

func TestSplitLines_LongLineWrapped(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ç", 25)
	chunks := SplitLines([]string{"a", long, "b"}, 10)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(strings.Join(c, "\n")), 10)
	}

	var joined strings.Builder
	for _, c := range chunks {
		for _, l := range c {
			joined.WriteString(l)
		}
	}
	assert.Equal(t, "a"+long+"b", joined.String())
}

func TestSplitLines_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, SplitLines(nil, 100))
}

func TestSplitText(t *testing.T) {
	t.Parallel()

	text := "KAHVALTILAR\r\nSerpme Kahvaltı 250\nMenemen 120\n\n"
	chunks := SplitText(text, 1000)
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0], "KAHVALTILAR\nSerpme"))

	assert.Empty(t, SplitText("\n\n  \n", 1000))
}

func TestSplitText_DropsOnlyBlankChunks(t *testing.T) {
	t.Parallel()

	text := "Çay 20\n\n\n\nKahve 50"
	lines := strings.Split(text, "\n")

	var rejoined []string
	for _, c := range SplitLines(lines, 6) {
		rejoined = append(rejoined, c...)
	}
	assert.Equal(t, []string{"Çay 20", "", "", "", "Kahve ", "50"}, rejoined)

	assert.Equal(t, []string{"Çay 20", "Kahve ", "50"}, SplitText(text, 6))
}

func TestBatchImages(t *testing.T) {
	t.Parallel()

	imgs := make([]model.Image, 5)
	for i := range imgs {
		imgs[i] = model.Image{Data: []byte{byte(i)}, MediaType: "image/png"}
	}

	batches := BatchImages(imgs, 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, byte(4), batches[2][0].Data[0])

	assert.Len(t, BatchImages(imgs, 0), 3)
	assert.Empty(t, BatchImages(nil, 2))
}
