// Package selectors holds the heuristic CSS selector and keyword catalog
// shared by structure discovery and DOM scraping.
package selectors

import (
	"strings"

	"github.com/sells-group/menu-cli/internal/fuzzy"
)

// Platform groups the selectors used by one menu-builder platform. Markers
// are substrings of the page URL or HTML that identify the platform.
type Platform struct {
	Name         string   `yaml:"name" json:"name"`
	Markers      []string `yaml:"markers" json:"markers"`
	ProductTitle []string `yaml:"product_title" json:"product_title"`
	Price        []string `yaml:"price" json:"price"`
	Description  []string `yaml:"description" json:"description"`
	CategoryHead []string `yaml:"category_head" json:"category_head"`
	Tab          []string `yaml:"tab" json:"tab"`
}

// Registry is the consolidated selector and keyword catalog.
type Registry struct {
	Platforms        []Platform `yaml:"platforms" json:"platforms"`
	MenuKeywords     []string   `yaml:"menu_keywords" json:"menu_keywords"`
	NegativeKeywords []string   `yaml:"negative_keywords" json:"negative_keywords"`
	Chrome           []string   `yaml:"chrome" json:"chrome"`
}

// generic is the catch-all platform whose selectors apply everywhere.
const generic = "generic"

// Default returns the built-in registry.
func Default() Registry {
	return Registry{
		Platforms: []Platform{
			{
				Name:         "menulux",
				Markers:      []string{"menulux"},
				ProductTitle: []string{".product-name", ".product-title"},
				Price:        []string{".product-price"},
				Description:  []string{".product-description"},
				CategoryHead: []string{".category-name"},
				Tab:          []string{".category-tab", ".menu-category-item"},
			},
			{
				Name:         "finedine",
				Markers:      []string{"finedinemenu", "finedine"},
				ProductTitle: []string{".menu-item-title", ".item-name"},
				Price:        []string{".menu-item-price", ".item-price"},
				Description:  []string{".menu-item-description"},
				CategoryHead: []string{".menu-section-title"},
				Tab:          []string{".menu-section-tab"},
			},
			{
				Name:         "wix",
				Markers:      []string{"wixstatic", "wix.com"},
				ProductTitle: []string{"[data-hook='item.name']", "[data-hook='wixrest-menus-item-title']"},
				Price:        []string{"[data-hook='item.price']", "[data-hook='wixrest-menus-item-price']"},
				Description:  []string{"[data-hook='item.description']"},
				CategoryHead: []string{"[data-hook='section.name']"},
				Tab:          []string{"[data-hook='menus.tab']"},
			},
			{
				Name:         "woocommerce",
				Markers:      []string{"woocommerce", "wp-content"},
				ProductTitle: []string{".woocommerce-loop-product__title", ".product_title"},
				Price:        []string{".woocommerce-Price-amount", ".price"},
				Description:  []string{".woocommerce-product-details__short-description"},
				CategoryHead: []string{".woocommerce-loop-category__title"},
			},
			{
				Name:    generic,
				Markers: nil,
				ProductTitle: []string{
					".menu-item-name", ".menu-item-title", ".item-title", ".item-name",
					".product-name", ".product-title", ".dish-name", ".food-name",
					"[itemprop='name']", ".card-title", "h3.title", "h4.title",
				},
				Price: []string{
					".menu-item-price", ".item-price", ".product-price", ".price",
					"[itemprop='price']", ".amount",
				},
				Description: []string{
					".menu-item-description", ".item-description", ".product-description",
					"[itemprop='description']",
				},
				CategoryHead: []string{".menu-category", ".category-title", ".section-title"},
				Tab: []string{
					"[role='tab']", "[data-toggle='tab']", "[data-bs-toggle='tab']",
					".nav-tabs a", ".nav-pills a", ".tabs button", ".tab-button",
					".accordion-button", ".accordion-header", "[aria-controls]",
					"details > summary",
				},
			},
		},
		MenuKeywords: []string{
			// en
			"menu", "menus", "food", "foods", "drink", "drinks", "beverage", "beverages",
			"breakfast", "brunch", "lunch", "dinner", "dessert", "desserts", "starter",
			"starters", "appetizer", "appetizers", "main", "mains", "pizza", "burger",
			"salad", "salads", "soup", "soups", "coffee", "wine", "cocktail", "cocktails",
			"kitchen", "carte",
			// tr
			"menü", "menu", "yemek", "yemekler", "içecek", "içecekler", "kahvaltı",
			"kahvaltılar", "tatlı", "tatlılar", "çorba", "çorbalar", "salata", "salatalar",
			"ana yemek", "başlangıç", "aperatif", "kahve", "pizza", "pide", "kebap",
			"mezeler", "meze", "fiyat", "fiyatlar", "fiyat listesi",
			// de / fr / es / it
			"speisekarte", "getränke", "getraenke", "karte", "carta", "bebidas",
			"boissons", "bevande", "dolci", "postres", "desserts",
		},
		NegativeKeywords: []string{
			"privacy", "policy", "gizlilik", "kvkk", "cookie", "cerez", "çerez",
			"careers", "career", "jobs", "kariyer", "iş ilanları", "contact", "iletişim",
			"iletisim", "about", "hakkımızda", "hakkimizda", "terms", "kullanım koşulları",
			"login", "signin", "sign-in", "register", "giriş", "account", "cart", "sepet",
			"checkout", "blog", "news", "haber", "press", "franchise", "bayilik",
			"instagram", "facebook", "twitter", "tiktok", "youtube", "whatsapp",
			"maps.google", "mailto:", "tel:", "javascript:",
		},
		Chrome: []string{"script", "style", "noscript", "nav", "footer", "header", "svg", "iframe", "form"},
	}
}

// Detect returns the platforms whose markers appear in the page URL or
// HTML. The generic platform is never returned.
func (r Registry) Detect(pageURL, html string) []Platform {
	haystack := strings.ToLower(pageURL + "\n" + html)
	var out []Platform
	for _, p := range r.Platforms {
		if p.Name == generic {
			continue
		}
		for _, m := range p.Markers {
			if m != "" && strings.Contains(haystack, strings.ToLower(m)) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// ProductTitleSelectors returns product-title selectors, detected platforms
// first, then every other platform, without duplicates.
func (r Registry) ProductTitleSelectors(pageURL, html string) []string {
	return r.collect(pageURL, html, func(p Platform) []string { return p.ProductTitle })
}

// PriceSelectors returns price selectors in the same order as
// ProductTitleSelectors.
func (r Registry) PriceSelectors(pageURL, html string) []string {
	return r.collect(pageURL, html, func(p Platform) []string { return p.Price })
}

// DescriptionSelectors returns description selectors.
func (r Registry) DescriptionSelectors(pageURL, html string) []string {
	return r.collect(pageURL, html, func(p Platform) []string { return p.Description })
}

// CategoryHeadSelectors returns category-heading selectors.
func (r Registry) CategoryHeadSelectors(pageURL, html string) []string {
	return r.collect(pageURL, html, func(p Platform) []string { return p.CategoryHead })
}

// TabSelectors returns tab/accordion selectors across all platforms.
func (r Registry) TabSelectors() []string {
	return r.collect("", "", func(p Platform) []string { return p.Tab })
}

func (r Registry) collect(pageURL, html string, pick func(Platform) []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(sels []string) {
		for _, s := range sels {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	detected := r.Detect(pageURL, html)
	for _, p := range detected {
		add(pick(p))
	}
	for _, p := range r.Platforms {
		add(pick(p))
	}
	return out
}

// IsMenuText reports whether text (anchor text or a URL path) contains a
// menu keyword. Comparison is accent- and case-insensitive on whole words.
func (r Registry) IsMenuText(text string) bool {
	return containsKeyword(text, r.MenuKeywords)
}

// IsNegative reports whether text contains a non-menu boilerplate keyword.
func (r Registry) IsNegative(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range r.NegativeKeywords {
		if strings.HasSuffix(k, ":") && strings.Contains(lower, k) {
			return true
		}
	}
	return containsKeyword(text, r.NegativeKeywords)
}

func containsKeyword(text string, keywords []string) bool {
	norm := " " + fuzzy.Normalize(text) + " "
	if strings.TrimSpace(norm) == "" {
		return false
	}
	for _, k := range keywords {
		nk := fuzzy.Normalize(k)
		if nk == "" {
			continue
		}
		if strings.Contains(norm, " "+nk+" ") {
			return true
		}
	}
	return false
}

// Merge returns a registry whose lists are r's extended by extra's,
// without duplicates. Platforms in extra replace same-named ones in r.
func (r Registry) Merge(extra Registry) Registry {
	out := Registry{
		MenuKeywords:     union(r.MenuKeywords, extra.MenuKeywords),
		NegativeKeywords: union(r.NegativeKeywords, extra.NegativeKeywords),
		Chrome:           union(r.Chrome, extra.Chrome),
	}
	replaced := make(map[string]Platform, len(extra.Platforms))
	for _, p := range extra.Platforms {
		replaced[p.Name] = p
	}
	for _, p := range r.Platforms {
		if np, ok := replaced[p.Name]; ok {
			out.Platforms = append(out.Platforms, np)
			delete(replaced, p.Name)
			continue
		}
		out.Platforms = append(out.Platforms, p)
	}
	for _, p := range extra.Platforms {
		if _, ok := replaced[p.Name]; ok {
			out.Platforms = append(out.Platforms, p)
		}
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
