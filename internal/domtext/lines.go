package domtext

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sells-group/menu-cli/internal/extract"
	"github.com/sells-group/menu-cli/internal/fuzzy"
	"github.com/sells-group/menu-cli/internal/model"
)

const (
	currency = `(?:₺|TL|TRY|\$|€|£|USD|EUR|GBP|,-)`
	amount   = `\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?`

	maxHeaderRunes = 60
	maxDescRunes   = 240
)

var (
	// reTrailingPrice matches "name .... 120,50 TL".
	reTrailingPrice = regexp.MustCompile(`(?i)^(.*?\pL.*?)[\s.…·:|\-–—]*` + currency + `?\s*(` + amount + `)\s*` + currency + `?$`)
	// rePriceOnly matches a line holding only a price.
	rePriceOnly = regexp.MustCompile(`(?i)^` + currency + `?\s*(` + amount + `)\s*` + currency + `?$`)
	reBullet    = regexp.MustCompile(`^(?:[-*+•·]\s+|\d{1,2}[.)]\s+)`)
	reHeading   = regexp.MustCompile(`^#{1,6}\s*`)
)

type lineKind int

const (
	kindText lineKind = iota
	kindItem
	kindPrice
)

type line struct {
	text    string
	kind    lineKind
	heading bool
	name    string
	price   float64
}

func classify(raw string) (line, bool) {
	s := strings.TrimSpace(raw)
	heading := reHeading.MatchString(s)
	s = reHeading.ReplaceAllString(s, "")
	s = reBullet.ReplaceAllString(s, "")
	s = strings.TrimSpace(strings.Trim(s, "|"))
	if s == "" || s == "---" || !hasLetterOrDigit(s) {
		return line{}, false
	}

	l := line{text: s, heading: heading}
	if m := rePriceOnly.FindStringSubmatch(s); m != nil {
		l.kind = kindPrice
		l.price = extract.ParsePriceString(m[1])
		return l, true
	}
	if m := reTrailingPrice.FindStringSubmatch(s); m != nil {
		l.kind = kindItem
		l.name = strings.TrimSpace(m[1])
		l.price = extract.ParsePriceString(m[2])
		return l, true
	}
	return l, true
}

// ParseLines runs the deterministic menu text parser. A line ending in a
// price is an item; a name-only line followed by a price-only line is an
// item; a priceless line that is a markdown heading, upper-case, or
// followed by an item line becomes the category for the lines below it.
// Other priceless lines directly after an item become its description.
func ParseLines(text string) []model.MenuItem {
	var lines []line
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if l, ok := classify(raw); ok {
			lines = append(lines, l)
		}
	}

	var (
		items    []model.MenuItem
		category string
		lastItem = -1
	)
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		switch l.kind {
		case kindItem:
			items = append(items, model.MenuItem{Name: l.name, Price: l.price, Category: category})
			lastItem = len(items) - 1
			continue
		case kindPrice:
			lastItem = -1
			continue
		}

		next := -1
		if i+1 < len(lines) {
			next = i + 1
		}

		if next >= 0 && lines[next].kind == kindPrice && !l.heading {
			items = append(items, model.MenuItem{Name: l.text, Price: lines[next].price, Category: category})
			lastItem = len(items) - 1
			i++
			continue
		}

		if isHeader(l, next, lines) {
			category = l.text
			lastItem = -1
			continue
		}

		if lastItem >= 0 && items[lastItem].Description == "" && utf8.RuneCountInString(l.text) <= maxDescRunes {
			items[lastItem].Description = l.text
		}
		lastItem = -1
	}
	return items
}

func isHeader(l line, next int, lines []line) bool {
	if utf8.RuneCountInString(l.text) > maxHeaderRunes {
		return false
	}
	if l.heading {
		return true
	}
	if letters(l.text) >= 2 && fuzzy.IsAllUpper(l.text) {
		return true
	}
	return next >= 0 && lines[next].kind == kindItem
}

func letters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func hasLetterOrDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
