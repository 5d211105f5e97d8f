package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Strategy identifies the capture tier that produced an item.
type Strategy string

const (
	StrategyAPI         Strategy = "api"
	StrategyDOMText     Strategy = "dom-text"
	StrategyDOMSelector Strategy = "dom-selector"
	StrategyScreenshot  Strategy = "screenshot"
)

// AllStrategies returns the capture tiers in ascending cost order.
func AllStrategies() []Strategy {
	return []Strategy{
		StrategyAPI,
		StrategyDOMText,
		StrategyDOMSelector,
		StrategyScreenshot,
	}
}

// DefaultCategory is the label given to items with no usable category signal.
const DefaultCategory = "General"

// MenuItem is a single priced entry on a menu. Price 0 means the price is
// unknown or unpublished.
type MenuItem struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`
	ParentMenu  string   `json:"parent_menu,omitempty"`
	Source      Strategy `json:"source,omitempty"`
	Unit        string   `json:"unit,omitempty"`
}

// NameKey returns the normalized lowercase-trimmed name used for identity.
func (i MenuItem) NameKey() string {
	return NormalizeKey(i.Name)
}

// Key returns the (name, price) identity used for deduplication.
func (i MenuItem) Key() string {
	return i.NameKey() + "|" + strconv.FormatFloat(i.Price, 'f', 2, 64)
}

// HasPrice reports whether the item carries a published price.
func (i MenuItem) HasPrice() bool {
	return i.Price > 0
}

// NormalizeKey lowercases, trims, and collapses internal whitespace.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Category groups items under one label. ParentMenu is set for hierarchical
// sources (top-level menu -> sub-menu -> category).
type Category struct {
	Name       string     `json:"name"`
	ParentMenu string     `json:"parent_menu,omitempty"`
	Items      []MenuItem `json:"items"`
}

// Catalog is the normalized result of one extraction run.
type Catalog struct {
	RunID       string       `json:"run_id"`
	Restaurant  string       `json:"restaurant"`
	Slug        string       `json:"slug,omitempty"`
	MenuURL     string       `json:"menu_url"`
	ExtractedAt time.Time    `json:"extracted_at"`
	Categories  []Category   `json:"categories"`
	Units       []UnitReport `json:"units,omitempty"`
	Usage       TokenUsage   `json:"usage"`
}

// TotalItems sums the items across all categories. It is always computed
// from the current categories.
func (c *Catalog) TotalItems() int {
	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Items)
	}
	return n
}

// Items flattens the catalog into a single list in category order.
func (c *Catalog) Items() []MenuItem {
	out := make([]MenuItem, 0, c.TotalItems())
	for _, cat := range c.Categories {
		out = append(out, cat.Items...)
	}
	return out
}

// Stats counts units and items from the current unit reports and
// categories.
func (c *Catalog) Stats() RunStats {
	st := RunStats{Units: len(c.Units), Items: c.TotalItems()}
	for _, u := range c.Units {
		if u.Failed {
			st.FailedUnits++
		}
	}
	return st
}

// MarshalJSON adds the computed total_items and stats fields.
func (c Catalog) MarshalJSON() ([]byte, error) {
	type alias Catalog
	return json.Marshal(struct {
		alias
		TotalItems int      `json:"total_items"`
		Stats      RunStats `json:"stats"`
	}{
		alias:      alias(c),
		TotalItems: c.TotalItems(),
		Stats:      c.Stats(),
	})
}

// UnitReport records the outcome of processing one capture unit.
type UnitReport struct {
	Label      string        `json:"label"`
	ParentMenu string        `json:"parent_menu,omitempty"`
	Strategy   Strategy      `json:"strategy,omitempty"`
	Items      int           `json:"items"`
	Failed     bool          `json:"failed"`
	Error      string        `json:"error,omitempty"`
	SubLinks   []string      `json:"sub_links,omitempty"`
	Matches    []MatchResult `json:"matches,omitempty"`
}
