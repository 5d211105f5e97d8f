package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/browser"
	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/ocr"
	"github.com/sells-group/menu-cli/internal/pipeline"
	"github.com/sells-group/menu-cli/internal/resilience"
	"github.com/sells-group/menu-cli/internal/rules"
	"github.com/sells-group/menu-cli/internal/store"
	anthropicpkg "github.com/sells-group/menu-cli/pkg/anthropic"
)

// extractor is the part of *pipeline.Pipeline the commands drive.
type extractor interface {
	Run(ctx context.Context, req pipeline.Request) (*model.Catalog, *rules.Rules, error)
}

// extractEnv holds the collaborators shared by the extract and serve
// commands. Pipelines are built per rules snapshot so learned strategy
// history feeds the next run.
type extractEnv struct {
	Deps  pipeline.Deps
	Rules *rules.Rules
	Store store.Store // may be nil

	browser *browser.RodBrowser
}

// NewPipeline builds a pipeline over r.
func (e *extractEnv) NewPipeline(r *rules.Rules) extractor {
	return pipeline.New(cfg, e.Deps, r)
}

// Close releases the browser and store.
func (e *extractEnv) Close() {
	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			zap.L().Warn("close browser", zap.Error(err))
		}
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initExtract validates config for mode, loads rules, launches the browser
// and wires the model and OCR clients. withStore opens and migrates the
// catalog store. Callers should defer env.Close().
func initExtract(ctx context.Context, mode string, withStore bool) (*extractEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	r, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return nil, err
	}

	retry := resilience.FromRetryConfig(cfg.Extract.RetryAttempts, cfg.Extract.InitialBackoffMs, cfg.Extract.MaxBackoffMs)
	words, err := ocr.NewWordDetector(cfg.OCR, retry)
	if err != nil {
		return nil, err
	}
	pdf, err := ocr.NewPDFExtractor(cfg.OCR)
	if err != nil {
		return nil, err
	}

	env := &extractEnv{Rules: r}
	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	b, err := browser.NewRod(cfg.Browser)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "launch browser")
	}
	env.browser = b

	env.Deps = pipeline.Deps{
		Browser: b,
		Model:   anthropicpkg.NewClient(cfg.Anthropic.Key),
		Words:   words,
		PDF:     pdf,
	}
	if words == nil {
		zap.L().Debug("word ocr not configured, screenshot positions disabled")
	}
	return env, nil
}

// initStore opens the configured store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// saveRules writes updated strategy history. Failure is logged; the
// extraction result stands without it.
func saveRules(r *rules.Rules) {
	if r == nil || cfg.Rules.Path == "" {
		return
	}
	if err := r.Save(cfg.Rules.Path); err != nil {
		zap.L().Warn("save rules", zap.String("path", cfg.Rules.Path), zap.Error(err))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeOutput writes v as JSON to path, or stdout when path is empty.
func writeOutput(path string, v any) error {
	if path == "" {
		return writeJSON(os.Stdout, v)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close() //nolint:errcheck
	return writeJSON(f, v)
}
