package bbox

import "github.com/sells-group/menu-cli/internal/model"

// Interpolate estimates Y for unmatched results from the nearest matched
// anchors in list order. Between two anchors Y is linear in list position;
// with one side only, the average anchor spacing (or defaultSpacing with a
// single anchor) extrapolates. Estimates are clamped to the coordinate
// space and flagged Interpolated. With no anchors nothing changes.
func Interpolate(results []model.MatchResult, defaultSpacing float64) {
	var anchors []int
	for i, r := range results {
		if r.Matched() {
			anchors = append(anchors, i)
		}
	}
	if len(anchors) == 0 {
		return
	}

	spacing := defaultSpacing
	if len(anchors) >= 2 {
		first, last := anchors[0], anchors[len(anchors)-1]
		spacing = (results[last].Y - results[first].Y) / float64(last-first)
	}

	next := 0
	for i := range results {
		if results[i].Matched() {
			next++
			continue
		}
		var y float64
		switch {
		case next == 0:
			a := anchors[0]
			y = results[a].Y - spacing*float64(a-i)
		case next == len(anchors):
			a := anchors[len(anchors)-1]
			y = results[a].Y + spacing*float64(i-a)
		default:
			p, n := anchors[next-1], anchors[next]
			frac := float64(i-p) / float64(n-p)
			y = results[p].Y + (results[n].Y-results[p].Y)*frac
		}
		results[i].Y = clamp(y, 0, model.CoordinateSpace)
		results[i].Interpolated = true
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
