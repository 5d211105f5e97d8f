package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/sells-group/menu-cli/internal/model"
)

// DefaultChunkChars is the text budget for one model call.
const DefaultChunkChars = 8000

// DefaultImageBatch is the number of screenshots sent per model call.
const DefaultImageBatch = 2

// SplitLines greedily packs lines into chunks so that no chunk, joined with
// newlines, exceeds budget characters. Line order is preserved. A single
// line longer than the budget is hard-wrapped at rune boundaries into
// budget-sized pieces.
func SplitLines(lines []string, budget int) [][]string {
	if budget <= 0 {
		budget = DefaultChunkChars
	}

	var chunks [][]string
	var cur []string
	size := 0
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, cur)
			cur = nil
			size = 0
		}
	}

	for _, line := range lines {
		for _, piece := range wrapLine(line, budget) {
			n := utf8.RuneCountInString(piece)
			add := n
			if len(cur) > 0 {
				add++ // newline separator
			}
			if size+add > budget {
				flush()
				add = n
			}
			cur = append(cur, piece)
			size += add
		}
	}
	flush()
	return chunks
}

// SplitText splits text on newlines and packs it with SplitLines, returning
// each chunk joined back into a string. Chunks holding only whitespace are
// dropped, so concatenating the result reproduces the input line sequence
// only up to those blank runs; use SplitLines when exact reconstruction
// matters.
func SplitText(text string, budget int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	chunks := SplitLines(strings.Split(text, "\n"), budget)
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		joined := strings.Join(c, "\n")
		if strings.TrimSpace(joined) == "" {
			continue
		}
		out = append(out, joined)
	}
	return out
}

func wrapLine(line string, budget int) []string {
	if utf8.RuneCountInString(line) <= budget {
		return []string{line}
	}
	var out []string
	runes := []rune(line)
	for start := 0; start < len(runes); start += budget {
		end := min(start+budget, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

// BatchImages groups images into batches of at most size, in order.
func BatchImages(images []model.Image, size int) [][]model.Image {
	if size <= 0 {
		size = DefaultImageBatch
	}
	var out [][]model.Image
	for start := 0; start < len(images); start += size {
		end := min(start+size, len(images))
		out = append(out, images[start:end])
	}
	return out
}
