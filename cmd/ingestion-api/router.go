// Package main provides the API router setup.
package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/prism-beauty/ingestion-engine/cmd/ingestion-api/handlers"
	"github.com/prism-beauty/ingestion-engine/cmd/ingestion-api/middleware"
	"github.com/prism-beauty/ingestion-engine/internal/cache"
	"github.com/prism-beauty/ingestion-engine/internal/config"
	"github.com/prism-beauty/ingestion-engine/internal/debug"
	"github.com/prism-beauty/ingestion-engine/internal/ingest"
	"github.com/prism-beauty/ingestion-engine/internal/llm"
	"github.com/prism-beauty/ingestion-engine/internal/observability"
	"github.com/prism-beauty/ingestion-engine/internal/prompt"
	"github.com/prism-beauty/ingestion-engine/internal/storage"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config, db *sql.DB, cacheClient cache.Client) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"ingestion-engine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ready"}`))
	})

	gateway, err := llm.NewClient(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		Referer:     cfg.LLM.Referer,
		Title:       cfg.LLM.Title,
	})
	if err != nil {
		return nil, err
	}

	repos := storage.NewRepositories(db)
	sink := debug.NewSink(cfg.Ingestion.DebugDir, logger)
	builder := prompt.NewBuilder(cfg.LLM.MaxTokens)
	store := ingest.NewStore(repos, cacheClient, logger)
	runner := ingest.NewRunner(gateway, builder, store, sink, logger, ingest.RunnerConfig{
		MaxJSONBytes:  cfg.Ingestion.MaxJSONBytes,
		ChunkMaxBytes: cfg.Ingestion.ChunkMaxBytes,
		MaxWorkers:    cfg.Ingestion.MaxWorkers,
	})
	service := ingest.NewService(runner, repos.Products, logger)
	consolidated := storage.NewConsolidatedRepository(repos)

	ingestionHandler := handlers.NewIngestionHandler(logger, service, cfg.Ingestion.DefaultStrategy)
	productHandler := handlers.NewProductHandler(logger, repos, consolidated, cacheClient, cfg.Cache.TTL)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/ingest", func(r chi.Router) {
			r.Get("/active", ingestionHandler.Active)
			r.Post("/{productId}", ingestionHandler.Ingest)
		})
		r.Post("/ingest-all", ingestionHandler.IngestAll)
		r.Post("/benchmark/{productId}", ingestionHandler.Benchmark)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/{productId}", productHandler.Get)
			r.Get("/{productId}/price-history", productHandler.PriceHistory)
		})
		r.Get("/compare", productHandler.Compare)
	})

	return r, nil
}
