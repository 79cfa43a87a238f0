// Package main provides the ingestion CLI entrypoint.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/prism-beauty/ingestion-engine/internal/cache"
	"github.com/prism-beauty/ingestion-engine/internal/config"
	"github.com/prism-beauty/ingestion-engine/internal/debug"
	"github.com/prism-beauty/ingestion-engine/internal/ingest"
	"github.com/prism-beauty/ingestion-engine/internal/llm"
	"github.com/prism-beauty/ingestion-engine/internal/observability"
	"github.com/prism-beauty/ingestion-engine/internal/prompt"
	"github.com/prism-beauty/ingestion-engine/internal/storage"
)

var (
	cfgFile    string
	outputJSON bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ingestion-cli",
	Short: "Ingestion CLI for multi-retailer beauty product data",
	Long: `Ingestion CLI manages the product catalog and runs model-backed ingestion.

Use this tool to:
- Run a single-product ingestion with any strategy
- Sweep the whole catalog
- Benchmark two strategies against each other
- Inspect products, consolidated data, and price history

All commands support --json for automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		if outputJSON {
			logFormat = "json"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.Observability.LogLevel,
			Format:      logFormat,
			ServiceName: "ingestion-cli",
		})

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newIngestAllCmd())
	rootCmd.AddCommand(newBenchmarkCmd())
	rootCmd.AddCommand(newProductsCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired dependencies a command needs.
type app struct {
	db      *sql.DB
	cache   cache.Client
	repos   *storage.Repositories
	service *ingest.Service
}

// newApp connects to the database and wires the ingestion service.
func newApp(ctx context.Context) (*app, error) {
	db, err := storage.Open(ctx, storage.OpenConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := storage.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	var cacheClient cache.Client
	if cfg.Cache.Driver == "redis" {
		cacheClient, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
			cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
		}
	} else {
		cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}

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
		cacheClient.Close()
		db.Close()
		return nil, err
	}

	repos := storage.NewRepositories(db)
	store := ingest.NewStore(repos, cacheClient, logger)
	runner := ingest.NewRunner(gateway, prompt.NewBuilder(cfg.LLM.MaxTokens), store,
		debug.NewSink(cfg.Ingestion.DebugDir, logger), logger, ingest.RunnerConfig{
			MaxJSONBytes:  cfg.Ingestion.MaxJSONBytes,
			ChunkMaxBytes: cfg.Ingestion.ChunkMaxBytes,
			MaxWorkers:    cfg.Ingestion.MaxWorkers,
		})

	return &app{
		db:      db,
		cache:   cacheClient,
		repos:   repos,
		service: ingest.NewService(runner, repos.Products, logger),
	}, nil
}

// Close releases the app's connections.
func (a *app) Close() {
	a.cache.Close()
	a.db.Close()
}

// printJSON writes a value as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
