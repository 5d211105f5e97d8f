// Package cost prices the external calls an extraction run makes.
package cost

import "github.com/sells-group/menu-cli/internal/model"

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Vision    VisionRate           `yaml:"vision" mapstructure:"vision"`
	Mistral   MistralRate          `yaml:"mistral" mapstructure:"mistral"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// VisionRate holds Google Cloud Vision text-detection pricing.
type VisionRate struct {
	PerThousandImages float64 `yaml:"per_thousand_images" mapstructure:"per_thousand_images"`
}

// MistralRate holds Mistral OCR pricing.
type MistralRate struct {
	PerThousandPages float64 `yaml:"per_thousand_pages" mapstructure:"per_thousand_pages"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost for a Claude API call.
func (c *Calculator) Claude(modelID string, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates.Anthropic[modelID]
	if !ok {
		return 0
	}

	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// Usage prices a single model call's usage and returns it with Cost set.
func (c *Calculator) Usage(modelID string, u model.TokenUsage) model.TokenUsage {
	u.Cost = c.Claude(modelID, u.InputTokens, u.OutputTokens, u.CacheCreationTokens, u.CacheReadTokens)
	return u
}

// VisionImages returns the cost of n text-detection requests.
func (c *Calculator) VisionImages(n int) float64 {
	return float64(n) / 1000 * c.rates.Vision.PerThousandImages
}

// MistralPages returns the cost of OCRing n PDF pages.
func (c *Calculator) MistralPages(n int) float64 {
	return float64(n) / 1000 * c.rates.Mistral.PerThousandPages
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-opus-4-6": {
				Input: 15.00, Output: 75.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Vision:  VisionRate{PerThousandImages: 1.50},
		Mistral: MistralRate{PerThousandPages: 1.00},
	}
}
