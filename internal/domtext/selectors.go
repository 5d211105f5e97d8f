package domtext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/extract"
	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/selectors"
)

// maxAncestorHops bounds the walk from a title element to its item card.
const maxAncestorHops = 5

// SelectorItems extracts items from the cleaned doc by the registry's
// product-title selectors. Platforms are detected on rawHTML, the page
// before cleaning, since platform markers often live in script tags.
// Every selector is tried; the one that yields the most named items wins,
// ties going to the earlier (platform-specific) selector.
func SelectorItems(doc *goquery.Document, pageURL, rawHTML string, reg selectors.Registry) []model.MenuItem {
	titles := reg.ProductTitleSelectors(pageURL, rawHTML)
	prices := strings.Join(reg.PriceSelectors(pageURL, rawHTML), ", ")
	descs := strings.Join(reg.DescriptionSelectors(pageURL, rawHTML), ", ")
	heads := strings.Join(reg.CategoryHeadSelectors(pageURL, rawHTML), ", ")

	var best []model.MenuItem
	bestSel := ""
	for _, sel := range titles {
		query := sel
		if heads != "" {
			query = heads + ", " + sel
		}

		// Headings and titles come back in document order, so the latest
		// heading seen is the section of the titles that follow it.
		var items []model.MenuItem
		category := ""
		doc.Find(query).Each(func(_ int, s *goquery.Selection) {
			if !s.Is(sel) {
				category = squash(s.Text())
				return
			}
			name := squash(s.Text())
			if name == "" || len([]rune(name)) > 120 {
				return
			}
			card := itemCard(s, prices)
			items = append(items, model.MenuItem{
				Name:        name,
				Price:       extract.ParsePriceString(squash(card.Find(prices).First().Text())),
				Description: squash(card.Find(descs).First().Text()),
				Category:    category,
			})
		})
		if len(items) > len(best) {
			best, bestSel = items, sel
		}
	}

	if len(best) > 0 {
		zap.L().Debug("domtext: selector fallback",
			zap.String("selector", bestSel),
			zap.Int("items", len(best)),
		)
	}
	return best
}

// itemCard walks up from a title element to the nearest ancestor that also
// contains a price element, falling back to the title's parent.
func itemCard(title *goquery.Selection, prices string) *goquery.Selection {
	cur := title
	for range maxAncestorHops {
		parent := cur.Parent()
		if parent.Length() == 0 || parent.Is("body") {
			break
		}
		if prices != "" && parent.Find(prices).Length() > 0 {
			return parent
		}
		cur = parent
	}
	return title.Parent()
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
