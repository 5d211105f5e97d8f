package extract

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// ParsePrice converts a model- or DOM-supplied price into a number.
// Currency symbols and words are ignored. Comma and period are
// disambiguated heuristically: when both appear the last one is the
// decimal separator; when one appears once followed by exactly three
// digits it groups thousands. Anything unparseable or negative yields 0.
func ParsePrice(v any) float64 {
	switch p := v.(type) {
	case nil:
		return 0
	case float64:
		return clampPrice(p)
	case float32:
		return clampPrice(float64(p))
	case int:
		return clampPrice(float64(p))
	case int64:
		return clampPrice(float64(p))
	case json.Number:
		f, err := p.Float64()
		if err != nil {
			return ParsePriceString(p.String())
		}
		return clampPrice(f)
	case string:
		return ParsePriceString(p)
	default:
		return 0
	}
}

// ParsePriceString parses the first number in s.
func ParsePriceString(s string) float64 {
	if strings.Contains(s, "-") && strings.Index(s, "-") < strings.IndexAny(s, "0123456789") {
		return 0
	}
	tok := numberPattern.FindString(s)
	if tok == "" {
		return 0
	}
	f, err := strconv.ParseFloat(normalizeSeparators(tok), 64)
	if err != nil {
		return 0
	}
	return clampPrice(f)
}

func normalizeSeparators(tok string) string {
	lastDot := strings.LastIndex(tok, ".")
	lastComma := strings.LastIndex(tok, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		dec := max(lastDot, lastComma)
		intPart := strings.NewReplacer(".", "", ",", "").Replace(tok[:dec])
		return intPart + "." + tok[dec+1:]
	case lastDot < 0 && lastComma < 0:
		return tok
	}

	sep := "."
	idx := lastDot
	if lastComma >= 0 {
		sep = ","
		idx = lastComma
	}
	if strings.Count(tok, sep) > 1 {
		return strings.ReplaceAll(tok, sep, "")
	}
	intPart, frac := tok[:idx], tok[idx+1:]
	if len(frac) == 3 && strings.Trim(intPart, "0") != "" {
		return intPart + frac
	}
	return intPart + "." + frac
}

func clampPrice(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return math.Round(f*100) / 100
}
