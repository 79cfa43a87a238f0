package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// OpenConfig holds connection pool settings.
type OpenConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, cfg OpenConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrate applies the schema. Idempotent: every statement is IF NOT EXISTS.
func Migrate(ctx context.Context, db DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT 'Unknown',
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS offers (
		id BIGSERIAL PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		retailer TEXT NOT NULL,
		price_amount DOUBLE PRECISION,
		price_currency TEXT NOT NULL DEFAULT 'USD',
		unit_price TEXT,
		availability TEXT,
		promo TEXT,
		url TEXT,
		scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (product_id, retailer)
	)`,
	`CREATE TABLE IF NOT EXISTS price_history (
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		retailer TEXT NOT NULL,
		price_amount DOUBLE PRECISION NOT NULL,
		price_currency TEXT NOT NULL DEFAULT 'USD',
		url TEXT,
		day DATE NOT NULL,
		PRIMARY KEY (product_id, retailer, day)
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		id BIGSERIAL PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		retailer TEXT NOT NULL,
		average DOUBLE PRECISION,
		count INTEGER NOT NULL DEFAULT 0,
		breakdown JSONB,
		url TEXT,
		scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (product_id, retailer)
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGSERIAL PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		retailer TEXT NOT NULL,
		author TEXT,
		rating DOUBLE PRECISION,
		title TEXT,
		body TEXT,
		posted_at TEXT,
		url TEXT,
		inserted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS reviews_product_retailer_idx ON reviews (product_id, retailer)`,
	`CREATE TABLE IF NOT EXISTS specs (
		id BIGSERIAL PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		source TEXT NOT NULL,
		url TEXT,
		scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS specs_product_key_idx ON specs (product_id, key)`,
	`CREATE TABLE IF NOT EXISTS summaries (
		product_id UUID PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE,
		pros TEXT[],
		cons TEXT[],
		verdict TEXT,
		aspect_scores JSONB,
		citations JSONB,
		model_name TEXT NOT NULL DEFAULT '',
		prompt_hash TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
