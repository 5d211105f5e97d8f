// Package fuzzy matches noisy text (OCR output, model-proposed names, stored
// records) using edit distance over locale-folded characters.
package fuzzy

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// turkishFold maps letters that Unicode decomposition leaves untouched.
var turkishFold = strings.NewReplacer(
	"ı", "i", "İ", "i", "I", "i",
	"ğ", "g", "Ğ", "g",
	"ş", "s", "Ş", "s",
	"ç", "c", "Ç", "c",
	"ö", "o", "Ö", "o",
	"ü", "u", "Ü", "u",
	"ß", "ss", "æ", "ae", "ø", "o",
)

// ocrConfusions folds characters OCR engines commonly swap.
var ocrConfusions = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"l", "i",
	"|", "i",
	"!", "i",
	"5", "s",
	"8", "b",
	"6", "g",
	"rn", "m",
	"vv", "w",
)

// Normalize lowercases, strips diacritics, folds Turkish-specific letters,
// drops apostrophes, and turns every other non-alphanumeric run into a
// single space.
func Normalize(s string) string {
	s = turkishFold.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case r == '\'' || r == '’':
		default:
			space = true
		}
	}
	return b.String()
}

// NormalizeWord normalizes and removes all spaces, for single-token comparison.
func NormalizeWord(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "")
}

// FoldOCR applies the OCR confusion table to already-normalized text.
func FoldOCR(s string) string {
	return ocrConfusions.Replace(s)
}

// Levenshtein returns the rune-level edit distance between a and b.
func Levenshtein(a, b string) int {
	return levenshtein.Distance(a, b, nil)
}

// WithinDistance reports whether a and b are at most maxDist edits apart,
// short-circuiting on length difference.
func WithinDistance(a, b string, maxDist int) bool {
	diff := len([]rune(a)) - len([]rune(b))
	if diff < 0 {
		diff = -diff
	}
	if diff > maxDist {
		return false
	}
	if maxDist == 0 {
		return a == b
	}
	return levenshtein.Distance(a, b, levenshtein.NewParams().MaxCost(maxDist)) <= maxDist
}

// Similarity returns 1 - distance/maxLen over normalized forms, in [0, 1].
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" && nb == "" {
		return 1
	}
	maxLen := max(len([]rune(na)), len([]rune(nb)))
	return 1 - float64(Levenshtein(na, nb))/float64(maxLen)
}

// Equal reports whether two strings are identical after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// MaxEditsFor returns the edit budget for a word of the given rune length:
// none for very short words, one for medium, two for long.
func MaxEditsFor(length int) int {
	switch {
	case length <= 3:
		return 0
	case length <= 6:
		return 1
	default:
		return 2
	}
}

// Lower lowercases s with locale-specific rules (Turkish I/ı, İ/i).
func Lower(lang, s string) string {
	return cases.Lower(parseLang(lang)).String(s)
}

// Upper uppercases s with locale-specific rules.
func Upper(lang, s string) string {
	return cases.Upper(parseLang(lang)).String(s)
}

// Title title-cases s with locale-specific rules.
func Title(lang, s string) string {
	return cases.Title(parseLang(lang)).String(s)
}

func parseLang(lang string) language.Tag {
	if lang == "" {
		return language.Und
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return language.Und
	}
	return tag
}

// IsAllUpper reports whether s has at least two letters and no lowercase ones.
func IsAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if unicode.IsLower(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 2
}
