// Package rules holds the versioned heuristic configuration the pipeline
// reads at construction: junk category labels, plural suffixes, the
// selector registry, and per-host strategy history. It is loaded and saved
// only at the composition root.
package rules

import (
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/menu-cli/internal/fuzzy"
	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/selectors"
)

// CurrentVersion is the schema version written by Save.
const CurrentVersion = 1

// Rules is the explicit rule/strategy store.
type Rules struct {
	Version         int                       `yaml:"version"`
	JunkLabels      map[string][]string       `yaml:"junk_labels"`
	PluralSuffixes  map[string][]string       `yaml:"plural_suffixes"`
	Selectors       selectors.Registry        `yaml:"selectors"`
	StrategyHistory map[string]model.Strategy `yaml:"strategy_history"`
}

// Default returns the built-in rules.
func Default() *Rules {
	return &Rules{
		Version: CurrentVersion,
		JunkLabels: map[string][]string{
			"any": {"", "undefined", "null", "none", "nan", "n/a", "-", "menu", "items", "products"},
			"en":  {"view", "detail", "details", "more", "read more", "see more", "click here", "show all", "all", "uncategorized", "category"},
			"tr":  {"görüntüle", "detay", "detaylar", "incele", "daha fazla", "tümü", "hepsi", "ürünler", "kategori", "kategorisiz", "menü"},
			"de":  {"ansehen", "details", "mehr", "alle", "sonstiges"},
		},
		PluralSuffixes: map[string][]string{
			"tr": {"ları", "leri", "lar", "ler"},
			"en": {"es", "s"},
			"de": {"en", "n"},
		},
		Selectors:       selectors.Default(),
		StrategyHistory: map[string]model.Strategy{},
	}
}

// Load reads rules from a YAML file. A missing file yields Default.
// Fields absent from the file keep their default values; selector lists
// are merged onto the defaults.
func Load(path string) (*Rules, error) {
	def := Default()
	if path == "" {
		return def, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return def, nil
		}
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}

	var file Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "rules: parse %s", path)
	}
	if file.Version > CurrentVersion {
		return nil, eris.Errorf("rules: unsupported version %d (max %d)", file.Version, CurrentVersion)
	}

	out := def
	out.Version = CurrentVersion
	for lang, labels := range file.JunkLabels {
		out.JunkLabels[lang] = labels
	}
	for lang, suffixes := range file.PluralSuffixes {
		out.PluralSuffixes[lang] = suffixes
	}
	out.Selectors = def.Selectors.Merge(file.Selectors)
	for host, s := range file.StrategyHistory {
		out.StrategyHistory[host] = s
	}
	return out, nil
}

// Save writes the rules as YAML, creating parent directories.
func (r *Rules) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "rules: create dir %s", dir)
		}
	}
	r.Version = CurrentVersion
	data, err := yaml.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "rules: marshal")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "rules: write %s", path)
	}
	return nil
}

// Clone returns a deep copy so a run can record history without touching
// the caller's rules.
func (r *Rules) Clone() *Rules {
	out := &Rules{
		Version:         r.Version,
		JunkLabels:      make(map[string][]string, len(r.JunkLabels)),
		PluralSuffixes:  make(map[string][]string, len(r.PluralSuffixes)),
		Selectors:       selectors.Registry{}.Merge(r.Selectors),
		StrategyHistory: maps.Clone(r.StrategyHistory),
	}
	for k, v := range r.JunkLabels {
		out.JunkLabels[k] = slices.Clone(v)
	}
	for k, v := range r.PluralSuffixes {
		out.PluralSuffixes[k] = slices.Clone(v)
	}
	if out.StrategyHistory == nil {
		out.StrategyHistory = map[string]model.Strategy{}
	}
	return out
}

// JunkSet returns the normalized junk labels for lang plus the
// language-independent ones.
func (r *Rules) JunkSet(lang string) map[string]bool {
	set := make(map[string]bool)
	for _, key := range []string{"any", lang} {
		for _, l := range r.JunkLabels[key] {
			set[fuzzy.Normalize(l)] = true
		}
	}
	return set
}

// Suffixes returns plural suffixes for lang, longest first.
func (r *Rules) Suffixes(lang string) []string {
	out := slices.Clone(r.PluralSuffixes[lang])
	slices.SortStableFunc(out, func(a, b string) int {
		return len([]rune(b)) - len([]rune(a))
	})
	return out
}

// PreferredStrategy returns the strategy that last succeeded for host.
func (r *Rules) PreferredStrategy(host string) (model.Strategy, bool) {
	s, ok := r.StrategyHistory[strings.ToLower(host)]
	return s, ok
}

// RecordStrategy remembers the winning strategy for host.
func (r *Rules) RecordStrategy(host string, s model.Strategy) {
	if host == "" || s == "" {
		return
	}
	if r.StrategyHistory == nil {
		r.StrategyHistory = map[string]model.Strategy{}
	}
	r.StrategyHistory[strings.ToLower(host)] = s
}
