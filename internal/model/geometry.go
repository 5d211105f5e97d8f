package model

// CoordinateSpace is the extent of the normalized coordinate space used for
// OCR geometry. Both axes run from 0 to CoordinateSpace.
const CoordinateSpace = 1000.0

// BoundingBox is an axis-aligned box in normalized coordinates.
type BoundingBox struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the horizontal extent.
func (b BoundingBox) Width() float64 { return b.X2 - b.X }

// Height returns the vertical extent.
func (b BoundingBox) Height() float64 { return b.Y2 - b.Y }

// CenterY returns the vertical midpoint.
func (b BoundingBox) CenterY() float64 { return (b.Y + b.Y2) / 2 }

// Union returns the smallest box covering both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{
		X:  min(b.X, o.X),
		Y:  min(b.Y, o.Y),
		X2: max(b.X2, o.X2),
		Y2: max(b.Y2, o.Y2),
	}
}

// WordToken is one OCR-detected word. UsageCount is only mutated during a
// single page's matching pass.
type WordToken struct {
	Text           string      `json:"text"`
	NormalizedText string      `json:"normalized_text"`
	Box            BoundingBox `json:"box"`
	UsageCount     int         `json:"usage_count"`
}

// MatchResult is the outcome of mapping one product name to OCR geometry.
// A nil Box means the product was not matched; Y then holds an
// interpolated estimate when Interpolated is true.
type MatchResult struct {
	ProductName  string       `json:"product_name"`
	Price        float64      `json:"price"`
	Box          *BoundingBox `json:"box"`
	Y            float64      `json:"y"`
	Score        float64      `json:"score,omitempty"`
	Interpolated bool         `json:"interpolated"`
	// Image is the zero-based screenshot index the position refers to.
	Image int `json:"image"`
}

// Matched reports whether the product was anchored to OCR geometry.
func (m MatchResult) Matched() bool {
	return m.Box != nil
}
