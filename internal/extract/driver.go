// Package extract is the chunked extraction driver: it splits oversized
// text or screenshot sets into bounded chunks, calls the extraction model
// per chunk with bounded concurrency, and parses each response into items.
package extract

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/menu-cli/internal/cost"
	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/resilience"
	"github.com/sells-group/menu-cli/pkg/anthropic"
)

// Config tunes the driver.
type Config struct {
	Model             string
	MaxTokens         int64
	ChunkChars        int
	ImageBatch        int
	Concurrency       int
	RequestsPerSecond float64
	Retry             resilience.RetryConfig
	// Pricing overrides the SDK's built-in model prices when set.
	Pricing *cost.Calculator
}

// Result is the outcome of extracting one unit's content.
type Result struct {
	// Batches holds each chunk's items in chunk order.
	Batches      [][]model.MenuItem
	Chunks       int
	FailedChunks int
	Usage        model.TokenUsage
}

// Items flattens all batches in order without deduplication.
func (r *Result) Items() []model.MenuItem {
	var out []model.MenuItem
	for _, b := range r.Batches {
		out = append(out, b...)
	}
	return out
}

// Driver sends chunks to the extraction model.
type Driver struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
}

// NewDriver creates a Driver. Zero config values fall back to defaults.
func NewDriver(client anthropic.Client, cfg Config) *Driver {
	if cfg.ChunkChars <= 0 {
		cfg.ChunkChars = DefaultChunkChars
	}
	if cfg.ImageBatch <= 0 {
		cfg.ImageBatch = DefaultImageBatch
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = resilience.DefaultRetryConfig()
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Driver{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Concurrency),
	}
}

// ExtractText splits text into line-bounded chunks and extracts each.
// hint is the unit's context label (tab or sub-page name), if any.
func (d *Driver) ExtractText(ctx context.Context, text, hint string) (*Result, error) {
	chunks := SplitText(text, d.cfg.ChunkChars)
	reqs := make([]anthropic.MessageRequest, len(chunks))
	for i, c := range chunks {
		reqs[i] = d.request(buildTextPrompt(c, hint), nil)
	}
	return d.run(ctx, "text", reqs)
}

// ExtractImages sends screenshots in small ordered batches.
func (d *Driver) ExtractImages(ctx context.Context, images []model.Image, hint string) (*Result, error) {
	batches := d.BatchImages(images)
	reqs := make([]anthropic.MessageRequest, len(batches))
	for i, b := range batches {
		imgs := make([]anthropic.Image, len(b))
		for j, img := range b {
			imgs[j] = anthropic.Image{Data: img.Data, MediaType: img.MediaType}
		}
		reqs[i] = d.request(buildImagePrompt(hint), imgs)
	}
	return d.run(ctx, "image", reqs)
}

// BatchImages groups images the way ExtractImages sends them, so callers
// can map each result batch back to its screenshots.
func (d *Driver) BatchImages(images []model.Image) [][]model.Image {
	return BatchImages(images, d.cfg.ImageBatch)
}

func (d *Driver) request(prompt string, images []anthropic.Image) anthropic.MessageRequest {
	return anthropic.MessageRequest{
		Model:     d.cfg.Model,
		MaxTokens: d.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: prompt,
			Images:  images,
		}},
	}
}

// run fans the requests out with bounded concurrency. A chunk whose call
// fails after retries, or whose response has no JSON, contributes zero
// items. Only context cancellation is returned as an error.
func (d *Driver) run(ctx context.Context, kind string, reqs []anthropic.MessageRequest) (*Result, error) {
	res := &Result{
		Batches: make([][]model.MenuItem, len(reqs)),
		Chunks:  len(reqs),
	}
	if len(reqs) == 0 {
		return res, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)

	var mu sync.Mutex
	for i, req := range reqs {
		g.Go(func() error {
			items, usage, err := d.extractChunk(gCtx, req)
			mu.Lock()
			defer mu.Unlock()
			res.Usage.Add(usage)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				res.FailedChunks++
				zap.L().Warn("extract: chunk failed",
					zap.String("kind", kind),
					zap.Int("chunk", i),
					zap.String("class", resilience.Classify(err).String()),
					zap.Error(err),
				)
				return nil
			}
			res.Batches[i] = items
			zap.L().Debug("extract: chunk done",
				zap.String("kind", kind),
				zap.Int("chunk", i),
				zap.Int("items", len(items)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, eris.Wrap(err, "extract: run chunks")
	}
	return res, nil
}

func (d *Driver) extractChunk(ctx context.Context, req anthropic.MessageRequest) ([]model.MenuItem, model.TokenUsage, error) {
	var usage model.TokenUsage
	cfg := d.cfg.Retry
	cfg.OnRetry = resilience.RetryLogger("anthropic", "create_message")

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: rate limiter")
		}
		return d.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, usage, err
	}

	usage = d.toUsage(resp.Usage)
	items, err := ParseItems(resp.Text())
	if err != nil {
		return nil, usage, err
	}
	return items, usage, nil
}

func (d *Driver) toUsage(u anthropic.TokenUsage) model.TokenUsage {
	out := model.TokenUsage{
		InputTokens:         int(u.InputTokens),
		OutputTokens:        int(u.OutputTokens),
		CacheCreationTokens: int(u.CacheCreationInputTokens),
		CacheReadTokens:     int(u.CacheReadInputTokens),
		Calls:               1,
	}
	if d.cfg.Pricing != nil {
		return d.cfg.Pricing.Usage(d.cfg.Model, out)
	}
	out.Cost = u.EstimateCost(d.cfg.Model)
	return out
}
