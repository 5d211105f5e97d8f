package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/pipeline"
	"github.com/sells-group/menu-cli/internal/rules"
	"github.com/sells-group/menu-cli/internal/store"
)

var servePort int

// server handles the HTTP API. Extractions are serialized because a
// pipeline drives a single browser session.
type server struct {
	mu      sync.Mutex
	rules   *rules.Rules
	build   func(*rules.Rules) extractor
	onLearn func(*rules.Rules)
	store   store.Store // may be nil
}

type extractRequest struct {
	Restaurant string `json:"restaurant"`
	Slug       string `json:"slug,omitempty"`
	URL        string `json:"url"`
	Persist    bool   `json:"persist,omitempty"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/extract", s.handleExtract)
	r.Get("/catalogs", s.handleListCatalogs)
	r.Get("/catalogs/{slug}", s.handleGetCatalog)
	return r
}

func (s *server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.Persist && s.store == nil {
		respondError(w, http.StatusBadRequest, "persistence is not configured")
		return
	}

	catalog, err := s.extract(r.Context(), pipeline.Request{Restaurant: req.Restaurant, Slug: req.Slug, URL: req.URL})
	switch {
	case errors.Is(err, pipeline.ErrNoItemsExtracted):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		zap.L().Error("serve: extraction failed", zap.String("url", req.URL), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "extraction failed")
		return
	}

	if req.Persist {
		if err := s.store.UpsertCatalog(r.Context(), catalog); err != nil {
			zap.L().Error("serve: persist failed", zap.String("slug", catalog.Slug), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "persist failed")
			return
		}
	}
	respond(w, http.StatusOK, catalog)
}

// extract runs one pipeline under the server lock and keeps the rules it
// learned for the next request.
func (s *server) extract(ctx context.Context, req pipeline.Request) (*model.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, updated, err := s.build(s.rules).Run(ctx, req)
	if updated != nil {
		s.rules = updated
		if s.onLearn != nil {
			s.onLearn(updated)
		}
	}
	return catalog, err
}

func (s *server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}
	slug := chi.URLParam(r, "slug")
	catalog, err := s.store.GetCatalog(r.Context(), slug)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, fmt.Sprintf("no catalog for %q", slug))
	case err != nil:
		zap.L().Error("serve: get catalog", zap.String("slug", slug), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "read failed")
	default:
		respond(w, http.StatusOK, catalog)
	}
}

func (s *server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}
	list, err := s.store.ListCatalogs(r.Context())
	if err != nil {
		zap.L().Error("serve: list catalogs", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "read failed")
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	respond(w, http.StatusOK, list)
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initExtract(ctx, "serve", true)
		if err != nil {
			return err
		}
		defer env.Close()

		s := &server{
			rules:   env.Rules,
			build:   env.NewPipeline,
			onLearn: saveRules,
			store:   env.Store,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           s.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
