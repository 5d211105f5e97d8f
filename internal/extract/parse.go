package extract

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/menu-cli/internal/model"
)

// ErrNoJSON is returned when a model response contains no well-formed JSON
// array or object.
var ErrNoJSON = eris.New("extract: no JSON in response")

// ParseStructuredResponse locates the first well-formed JSON array or
// object in free text (tolerating prose and code fences around it) and
// decodes it into T. Candidate spans are tried in order of their opening
// bracket; the first one that decodes wins.
func ParseStructuredResponse[T any](text string) (T, error) {
	var zero T
	for start := 0; start < len(text); {
		rel := strings.IndexAny(text[start:], "[{")
		if rel < 0 {
			break
		}
		open := start + rel
		if end := matchBracket(text, open); end > open {
			var out T
			if err := json.Unmarshal([]byte(text[open:end+1]), &out); err == nil {
				return out, nil
			}
		}
		start = open + 1
	}
	return zero, ErrNoJSON
}

// matchBracket returns the index of the bracket closing text[open], or -1.
// Brackets inside JSON strings are ignored.
func matchBracket(text string, open int) int {
	var stack []byte
	inString := false
	escaped := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			stack = append(stack, c)
		case ']', '}':
			if len(stack) == 0 {
				return -1
			}
			top := stack[len(stack)-1]
			if (c == ']' && top != '[') || (c == '}' && top != '{') {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// rawItem is the item shape requested from the model. Prices may arrive as
// numbers or strings.
type rawItem struct {
	Name        string `json:"name"`
	Price       any    `json:"price"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type rawCategory struct {
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Items    []rawItem `json:"items"`
	Products []rawItem `json:"products"`
}

type rawEnvelope struct {
	Items      []rawItem     `json:"items"`
	Products   []rawItem     `json:"products"`
	Menu       []rawItem     `json:"menu"`
	Categories []rawCategory `json:"categories"`
	Name       string        `json:"name"`
	Price      any           `json:"price"`
	Category   string        `json:"category"`
}

// ParseItems decodes a model response into menu items. Accepted shapes are
// a bare item array, an object wrapping items/products/menu, an object with
// categories each holding items, or a single item object. Items without a
// name are dropped.
func ParseItems(text string) ([]model.MenuItem, error) {
	raw, err := ParseStructuredResponse[json.RawMessage](text)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(raw))
	var items []rawItem
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, eris.Wrap(err, "extract: decode item array")
		}
		return toMenuItems(items, ""), nil
	}

	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, eris.Wrap(err, "extract: decode response object")
	}

	var out []model.MenuItem
	for _, list := range [][]rawItem{env.Items, env.Products, env.Menu} {
		out = append(out, toMenuItems(list, "")...)
	}
	for _, c := range env.Categories {
		label := c.Name
		if label == "" {
			label = c.Category
		}
		out = append(out, toMenuItems(c.Items, label)...)
		out = append(out, toMenuItems(c.Products, label)...)
	}
	if len(out) == 0 && env.Name != "" {
		out = toMenuItems([]rawItem{{Name: env.Name, Price: env.Price, Category: env.Category}}, "")
	}
	return out, nil
}

func toMenuItems(raw []rawItem, category string) []model.MenuItem {
	out := make([]model.MenuItem, 0, len(raw))
	for _, r := range raw {
		name := strings.Join(strings.Fields(r.Name), " ")
		if name == "" {
			continue
		}
		cat := strings.TrimSpace(r.Category)
		if cat == "" {
			cat = category
		}
		out = append(out, model.MenuItem{
			Name:        name,
			Price:       ParsePrice(r.Price),
			Category:    cat,
			Description: strings.TrimSpace(r.Description),
		})
	}
	return out
}
