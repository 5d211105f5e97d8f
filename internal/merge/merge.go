// Package merge combines items from chunks, tiers and units into one list,
// removing duplicates keyed on normalized (name, price).
package merge

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/model"
)

// GenericFunc reports whether a category label carries no real signal
// (empty, "Menu", "undefined" and the like).
type GenericFunc func(label string) bool

// Dedup keeps the first occurrence of each (name, price) key in input order.
// When a later duplicate carries a more specific category or a description
// the kept item lacks, the kept item is replaced with the enriched copy.
func Dedup(items []model.MenuItem, generic GenericFunc) []model.MenuItem {
	if generic == nil {
		generic = isBlank
	}
	out := make([]model.MenuItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		key := it.Key()
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, it)
			continue
		}
		kept := out[i]
		if generic(kept.Category) && !generic(it.Category) {
			kept.Category = it.Category
			kept.ParentMenu = it.ParentMenu
		}
		if kept.Description == "" && it.Description != "" {
			kept.Description = it.Description
		}
		out[i] = kept
	}
	return out
}

// ScrollOverlap concatenates per-screenshot extractions in order. Items in a
// batch whose normalized name also appears in the immediately preceding
// batch are dropped as overlap repeats.
func ScrollOverlap(batches [][]model.MenuItem) []model.MenuItem {
	var out []model.MenuItem
	var prev map[string]bool
	for bi, batch := range batches {
		seen := make(map[string]bool, len(batch))
		dropped := 0
		for _, it := range batch {
			key := it.NameKey()
			seen[key] = true
			if prev[key] {
				dropped++
				continue
			}
			out = append(out, it)
		}
		if dropped > 0 {
			zap.L().Debug("merge: dropped scroll overlap",
				zap.Int("screenshot", bi),
				zap.Int("dropped", dropped),
			)
		}
		prev = seen
	}
	return out
}

// ApplyContext gives items with a generic category the unit's explicit
// context label (tab or sub-page). Items with a real category keep it.
func ApplyContext(items []model.MenuItem, contextLabel, parentMenu string, generic GenericFunc) []model.MenuItem {
	if generic == nil {
		generic = isBlank
	}
	out := make([]model.MenuItem, len(items))
	for i, it := range items {
		if contextLabel != "" && generic(it.Category) {
			it.Category = contextLabel
		}
		if it.ParentMenu == "" {
			it.ParentMenu = parentMenu
		}
		out[i] = it
	}
	return out
}

// Engine accumulates unit results for one run.
type Engine struct {
	generic GenericFunc
	items   []model.MenuItem
}

// NewEngine creates an Engine. generic decides which categories a unit's
// context label may override.
func NewEngine(generic GenericFunc) *Engine {
	if generic == nil {
		generic = isBlank
	}
	return &Engine{generic: generic}
}

// Add records one unit's items, stamping provenance and context.
func (e *Engine) Add(unit model.PageCaptureUnit, source model.Strategy, items []model.MenuItem) int {
	stamped := ApplyContext(items, unit.ContextCategory(), unit.ParentMenu, e.generic)
	for i := range stamped {
		if stamped[i].Source == "" {
			stamped[i].Source = source
		}
		if stamped[i].Unit == "" {
			stamped[i].Unit = unit.Label()
		}
	}
	stamped = Dedup(stamped, e.generic)
	e.items = append(e.items, stamped...)
	return len(stamped)
}

// Items returns the deduplicated union of every added unit.
func (e *Engine) Items() []model.MenuItem {
	return Dedup(e.items, e.generic)
}

// Len returns the number of distinct items recorded so far.
func (e *Engine) Len() int {
	return len(e.Items())
}

func isBlank(label string) bool {
	return strings.TrimSpace(label) == ""
}
