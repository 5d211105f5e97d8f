// Package intercept turns intercepted JSON API responses and embedded
// JSON-LD into menu items without a model call.
package intercept

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/browser"
	"github.com/sells-group/menu-cli/internal/extract"
	"github.com/sells-group/menu-cli/internal/model"
)

var (
	nameKeys        = []string{"name", "title", "productName", "product_name", "displayName", "display_name", "label", "ad", "urun_adi"}
	priceKeys       = []string{"price", "currentPrice", "current_price", "salePrice", "sale_price", "regularPrice", "basePrice", "base_price", "unitPrice", "unit_price", "priceValue", "fiyat", "offers"}
	descKeys        = []string{"description", "desc", "details", "subtitle", "aciklama", "ingredients"}
	categoryKeys    = []string{"categoryName", "category_name", "category", "section", "sectionName", "kategori"}
	categoryIDKeys  = []string{"categoryId", "category_id", "categoryID", "sectionId", "section_id"}
	localizedOrder  = []string{"tr", "en", "default", "value", "text", "name"}
	categoryMarkers = []string{"categor", "section", "kategori", "group"}
)

// Extract walks every recorded response and returns the product-shaped
// objects as menu items, in response order. Category names are resolved
// from explicit fields, category-id lookups across all responses, or the
// nearest named ancestor object.
func Extract(responses []browser.Response) []model.MenuItem {
	docs := make([]document, 0, len(responses))
	for _, r := range responses {
		var v any
		if err := json.Unmarshal(r.Body, &v); err != nil {
			continue
		}
		docs = append(docs, document{path: strings.ToLower(r.Path()), root: v})
	}

	ids := make(map[string]string)
	for _, d := range docs {
		collectCategoryIDs(d.root, isCategoryKey(d.path), ids)
	}

	var out []model.MenuItem
	for _, d := range docs {
		before := len(out)
		w := walker{ids: ids}
		w.walk(d.root, "")
		out = append(out, w.items...)
		if len(out) > before {
			zap.L().Debug("intercept: products in response",
				zap.String("path", d.path),
				zap.Int("items", len(out)-before),
			)
		}
	}
	return out
}

// FromJSON extracts items from one JSON document.
func FromJSON(data []byte) []model.MenuItem {
	return Extract([]browser.Response{{URL: "inline", Body: data}})
}

// FromHTML extracts items from schema.org Menu JSON-LD blocks embedded in
// the page.
func FromHTML(html string) []model.MenuItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var responses []browser.Response
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		body := strings.TrimSpace(s.Text())
		if body == "" || !json.Valid([]byte(body)) {
			return
		}
		responses = append(responses, browser.Response{
			URL:  fmt.Sprintf("ld+json/%d", i),
			Body: json.RawMessage(body),
		})
	})
	return Extract(responses)
}

type document struct {
	path string
	root any
}

type walker struct {
	ids   map[string]string
	items []model.MenuItem
}

func (w *walker) walk(v any, category string) {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			w.walk(e, category)
		}
	case map[string]any:
		if item, ok := w.product(t, category); ok {
			w.items = append(w.items, item)
			return
		}
		if name := pickString(t, nameKeys...); name != "" {
			category = name
		}
		for _, k := range sortedKeys(t) {
			w.walk(t[k], category)
		}
	}
}

func (w *walker) product(obj map[string]any, ancestor string) (model.MenuItem, bool) {
	name := pickString(obj, nameKeys...)
	if name == "" {
		return model.MenuItem{}, false
	}
	price, ok := pickPrice(obj)
	if !ok {
		return model.MenuItem{}, false
	}

	category := pickString(obj, categoryKeys...)
	if category == "" {
		if id := pickID(obj, categoryIDKeys...); id != "" {
			category = w.ids[id]
		}
	}
	if category == "" {
		category = ancestor
	}

	return model.MenuItem{
		Name:        name,
		Price:       price,
		Category:    category,
		Description: pickString(obj, descKeys...),
	}, true
}

// collectCategoryIDs records id -> name for non-product objects that live
// under a category-like key or in a category-like response.
func collectCategoryIDs(v any, inCategory bool, ids map[string]string) {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			collectCategoryIDs(e, inCategory, ids)
		}
	case map[string]any:
		if inCategory {
			if _, isProduct := pickPrice(t); !isProduct {
				id := pickID(t, "id", "_id", "uuid", "categoryId", "category_id")
				name := pickString(t, nameKeys...)
				if id != "" && name != "" {
					if _, seen := ids[id]; !seen {
						ids[id] = name
					}
				}
			}
		}
		for _, k := range sortedKeys(t) {
			collectCategoryIDs(t[k], inCategory || isCategoryKey(strings.ToLower(k)), ids)
		}
	}
}

func isCategoryKey(s string) bool {
	for _, m := range categoryMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// pickString returns the first non-empty string among keys. Localized
// objects such as {"tr": "...", "en": "..."} resolve to their preferred
// language.
func pickString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.Join(strings.Fields(t), " ")
	case map[string]any:
		for _, k := range localizedOrder {
			if s, ok := t[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.Join(strings.Fields(s), " ")
			}
		}
	}
	return ""
}

func pickID(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch t := obj[k].(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

// pickPrice finds a price among the known keys, then inside nested price
// objects, then in any key containing "price". The second return is false
// when the object carries no price field at all.
func pickPrice(obj map[string]any) (float64, bool) {
	for _, k := range priceKeys {
		if v, ok := obj[k]; ok {
			if p, ok := priceValue(v); ok {
				return p, true
			}
		}
	}
	for _, k := range sortedKeys(obj) {
		if strings.Contains(strings.ToLower(k), "price") {
			if p, ok := priceValue(obj[k]); ok {
				return p, true
			}
		}
	}
	return 0, false
}

func priceValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return extract.ParsePrice(t), true
	case string:
		if !strings.ContainsAny(t, "0123456789") {
			return 0, false
		}
		return extract.ParsePrice(t), true
	case map[string]any:
		for _, k := range []string{"price", "value", "amount", "current", "regular"} {
			if p, ok := priceValue(t[k]); ok {
				return p, true
			}
		}
		for _, k := range sortedKeys(t) {
			if strings.Contains(strings.ToLower(k), "price") {
				if p, ok := priceValue(t[k]); ok {
					return p, true
				}
			}
		}
	case []any:
		// schema.org offers may be a list; the first priced offer wins.
		for _, e := range t {
			if p, ok := priceValue(e); ok {
				return p, true
			}
		}
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
