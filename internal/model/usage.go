package model

import "go.uber.org/zap"

// TokenUsage tracks LLM token consumption for a run.
type TokenUsage struct {
	InputTokens         int     `json:"input_tokens"`
	OutputTokens        int     `json:"output_tokens"`
	CacheCreationTokens int     `json:"cache_creation_tokens"`
	CacheReadTokens     int     `json:"cache_read_tokens"`
	Calls               int     `json:"calls"`
	Cost                float64 `json:"cost"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.CacheCreationTokens += other.CacheCreationTokens
	t.CacheReadTokens += other.CacheReadTokens
	t.Calls += other.Calls
	t.Cost += other.Cost
}

// LogCost logs token usage and cost with structured zap fields. Runs that
// made no model calls log nothing.
func (t TokenUsage) LogCost(model, phase string) {
	if t.Calls == 0 {
		return
	}
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int("calls", t.Calls),
		zap.Int("input_tokens", t.InputTokens),
		zap.Int("output_tokens", t.OutputTokens),
		zap.Int("cache_write_tokens", t.CacheCreationTokens),
		zap.Int("cache_read_tokens", t.CacheReadTokens),
		zap.Float64("cost_usd", t.Cost),
	)
}

// RunStats summarizes the units of one extraction run.
type RunStats struct {
	Units       int `json:"units"`
	FailedUnits int `json:"failed_units"`
	Items       int `json:"items"`
}
