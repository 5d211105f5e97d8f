// Package category canonicalizes category labels: it merges case, plural
// and whitespace variants, repairs junk labels, and splits oversized
// groups. It never drops or duplicates items.
package category

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sells-group/menu-cli/internal/fuzzy"
	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/rules"
)

// Options tunes the normalizer.
type Options struct {
	// Language selects casing rules, junk labels and plural suffixes.
	Language string
	// SplitThreshold is the item count above which a category is split.
	// Zero disables splitting.
	SplitThreshold int
	// SplitSize is the maximum size of each split sub-group.
	SplitSize int
	// Fallback is the label for items with no usable category signal.
	Fallback string
}

// DefaultOptions returns the options used by the pipeline.
func DefaultOptions() Options {
	return Options{
		Language:       "tr",
		SplitThreshold: 80,
		SplitSize:      40,
		Fallback:       model.DefaultCategory,
	}
}

// Normalizer merges and repairs category labels.
type Normalizer struct {
	lang           string
	junk           map[string]bool
	suffixes       []string
	splitThreshold int
	splitSize      int
	fallback       string
}

// New creates a Normalizer from the rule store. English plural suffixes
// are always applied alongside the configured language's.
func New(r *rules.Rules, opts Options) *Normalizer {
	if r == nil {
		r = rules.Default()
	}
	if opts.Fallback == "" {
		opts.Fallback = model.DefaultCategory
	}
	if opts.SplitSize <= 0 {
		opts.SplitSize = max(1, opts.SplitThreshold/2)
	}

	seen := make(map[string]bool)
	var suffixes []string
	for _, lang := range []string{opts.Language, "en"} {
		for _, s := range r.Suffixes(lang) {
			ns := fuzzy.Normalize(s)
			if ns == "" || seen[ns] {
				continue
			}
			seen[ns] = true
			suffixes = append(suffixes, ns)
		}
	}

	junk := r.JunkSet(opts.Language)
	for k := range r.JunkSet("en") {
		junk[k] = true
	}

	return &Normalizer{
		lang:           opts.Language,
		junk:           junk,
		suffixes:       suffixes,
		splitThreshold: opts.SplitThreshold,
		splitSize:      opts.SplitSize,
		fallback:       opts.Fallback,
	}
}

// IsJunk reports whether label is empty, numeric, or a generic placeholder.
func (n *Normalizer) IsJunk(label string) bool {
	f := fuzzy.Normalize(label)
	if f == "" || n.junk[f] {
		return true
	}
	if strings.IndexFunc(f, unicode.IsLetter) < 0 {
		return true
	}
	for _, s := range n.stems(f) {
		if n.junk[s] {
			return true
		}
	}
	return false
}

// Normalize groups items into categories. Every input item appears in
// exactly one output category; item order within a category is input order.
func (n *Normalizer) Normalize(items []model.MenuItem) []model.Category {
	if len(items) == 0 {
		return nil
	}
	repaired := n.repairJunk(items)
	groups := n.group(repaired)
	return n.split(groups)
}

// NormalizeCatalog regroups the catalog's items in place. Category names
// on the existing categories are authoritative for their items.
func (n *Normalizer) NormalizeCatalog(c *model.Catalog) {
	var items []model.MenuItem
	for _, cat := range c.Categories {
		for _, it := range cat.Items {
			it.Category = cat.Name
			if it.ParentMenu == "" {
				it.ParentMenu = cat.ParentMenu
			}
			items = append(items, it)
		}
	}
	c.Categories = n.Normalize(items)
}

// cleanLabel collapses whitespace and trims markdown/list decoration.
func cleanLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " :-–*#•|>_=")
}

func contextKey(it model.MenuItem) string {
	return it.Unit + "\x00" + it.ParentMenu
}

// repairJunk reassigns junk-labelled items to the most frequent non-junk
// label among items from the same extraction context, else the fallback.
func (n *Normalizer) repairJunk(items []model.MenuItem) []model.MenuItem {
	type tally struct {
		counts map[string]int
		order  []string
	}
	byCtx := make(map[string]*tally)
	for _, it := range items {
		label := cleanLabel(it.Category)
		if n.IsJunk(label) {
			continue
		}
		key := contextKey(it)
		t := byCtx[key]
		if t == nil {
			t = &tally{counts: make(map[string]int)}
			byCtx[key] = t
		}
		if t.counts[label] == 0 {
			t.order = append(t.order, label)
		}
		t.counts[label]++
	}

	out := make([]model.MenuItem, len(items))
	for i, it := range items {
		label := cleanLabel(it.Category)
		if n.IsJunk(label) {
			label = n.fallback
			if t := byCtx[contextKey(it)]; t != nil {
				best := 0
				for _, l := range t.order {
					if t.counts[l] > best {
						best = t.counts[l]
						label = l
					}
				}
			}
		}
		it.Category = label
		out[i] = it
	}
	return out
}

type labelInfo struct {
	parent string
	label  string
	folded string
	count  int
}

type group struct {
	labels []int
	items  []model.MenuItem
}

// group merges label variants (case, whitespace, plural suffix) within the
// same parent menu using union-find, keeping first-appearance order.
func (n *Normalizer) group(items []model.MenuItem) []group {
	var labels []labelInfo
	index := make(map[string]int)
	itemLabel := make([]int, len(items))
	for i, it := range items {
		key := it.ParentMenu + "\x00" + it.Category
		id, ok := index[key]
		if !ok {
			id = len(labels)
			index[key] = id
			labels = append(labels, labelInfo{
				parent: it.ParentMenu,
				label:  it.Category,
				folded: fuzzy.Normalize(it.Category),
			})
		}
		labels[id].count++
		itemLabel[i] = id
	}

	parent := make([]int, len(labels))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Lower id stays root so groups keep first-appearance order.
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	byFolded := make(map[string][]int)
	for id, l := range labels {
		k := l.parent + "\x00" + l.folded
		byFolded[k] = append(byFolded[k], id)
	}
	for id, l := range labels {
		keys := append([]string{l.folded}, n.stems(l.folded)...)
		for _, k := range keys {
			for _, other := range byFolded[l.parent+"\x00"+k] {
				union(id, other)
			}
		}
	}

	groupOf := make(map[int]int)
	var groups []group
	for id := range labels {
		root := find(id)
		gi, ok := groupOf[root]
		if !ok {
			gi = len(groups)
			groupOf[root] = gi
			groups = append(groups, group{})
		}
		groups[gi].labels = append(groups[gi].labels, id)
	}
	for i, it := range items {
		gi := groupOf[find(itemLabel[i])]
		groups[gi].items = append(groups[gi].items, it)
	}

	for gi := range groups {
		g := &groups[gi]
		best := g.labels[0]
		for _, id := range g.labels[1:] {
			if labels[id].count > labels[best].count {
				best = id
			}
		}
		name := n.display(labels[best].label)
		for i := range g.items {
			g.items[i].Category = name
		}
	}
	return groups
}

// stems returns folded with each matching plural suffix removed, keeping
// stems of at least three runes.
func (n *Normalizer) stems(folded string) []string {
	var out []string
	for _, s := range n.suffixes {
		if !strings.HasSuffix(folded, s) {
			continue
		}
		stem := strings.TrimSuffix(folded, s)
		if len([]rune(strings.TrimSpace(stem))) < 3 || strings.HasSuffix(stem, " ") {
			continue
		}
		out = append(out, stem)
	}
	return out
}

// display title-cases labels written entirely in capitals.
func (n *Normalizer) display(label string) string {
	if fuzzy.IsAllUpper(label) {
		return fuzzy.Title(n.lang, label)
	}
	return label
}

// split breaks oversized groups into bounded sub-groups. The union of
// items is unchanged. Part numbers skip names already used by another
// group under the same parent menu, so labels stay unique and a second
// pass leaves the result alone.
func (n *Normalizer) split(groups []group) []model.Category {
	taken := make(map[string]bool)
	for _, g := range groups {
		if len(g.items) > 0 && !n.oversized(g) {
			taken[nameKey(g.items[0].ParentMenu, g.items[0].Category)] = true
		}
	}

	var out []model.Category
	for _, g := range groups {
		if len(g.items) == 0 {
			continue
		}
		name := g.items[0].Category
		parentMenu := g.items[0].ParentMenu
		if !n.oversized(g) {
			out = append(out, model.Category{Name: name, ParentMenu: parentMenu, Items: g.items})
			continue
		}
		part := 1
		for start := 0; start < len(g.items); start += n.splitSize {
			end := min(start+n.splitSize, len(g.items))
			partName := fmt.Sprintf("%s (%d)", name, part)
			for taken[nameKey(parentMenu, partName)] {
				part++
				partName = fmt.Sprintf("%s (%d)", name, part)
			}
			taken[nameKey(parentMenu, partName)] = true

			chunk := make([]model.MenuItem, end-start)
			copy(chunk, g.items[start:end])
			for i := range chunk {
				chunk[i].Category = partName
			}
			out = append(out, model.Category{Name: partName, ParentMenu: parentMenu, Items: chunk})
			part++
		}
	}
	return out
}

func (n *Normalizer) oversized(g group) bool {
	return n.splitThreshold > 0 && len(g.items) > n.splitThreshold
}

func nameKey(parentMenu, name string) string {
	return parentMenu + "\x00" + fuzzy.Normalize(name)
}
