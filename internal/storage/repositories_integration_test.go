package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a disposable Postgres container, applies the schema,
// and hands back a ready connection. Skipped without Docker.
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("CI") == "" && !isDockerAvailable() {
		t.Skip("Docker not available")
	}

	ctx := context.Background()

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:17-alpine"),
		postgres.WithDatabase("ingestion_engine_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/ingestion_engine_test?sslmode=disable",
		host, port.Port())

	db, err := Open(ctx, OpenConfig{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	return db
}

// isDockerAvailable checks if Docker is available for testing.
func isDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.Client().Ping(ctx)
	return err == nil
}

func seedProduct(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	p := &Product{Name: "Soft Pinch Liquid Blush", Brand: "Rare Beauty", Category: "Makeup"}
	require.NoError(t, NewProductRepository(db).Create(context.Background(), p))
	return p.ID
}

func countRows(t *testing.T, db *sql.DB, table string, productID uuid.UUID) int {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE product_id = $1", table), productID).Scan(&n)
	require.NoError(t, err)
	return n
}

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string { return &s }

func TestOfferRepository_UpsertReplacesExistingRow(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	productID := seedProduct(t, db)
	offers := NewOfferRepository(db)

	require.NoError(t, offers.Upsert(ctx, &Offer{
		ProductID:     productID,
		Retailer:      "sephora",
		PriceAmount:   floatPtr(23.00),
		PriceCurrency: "USD",
		Availability:  strPtr("in_stock"),
	}))
	require.NoError(t, offers.Upsert(ctx, &Offer{
		ProductID:     productID,
		Retailer:      "sephora",
		PriceAmount:   floatPtr(18.40),
		PriceCurrency: "USD",
		Availability:  strPtr("low_stock"),
		Promo:         strPtr("20% off"),
	}))

	assert.Equal(t, 1, countRows(t, db, "offers", productID))

	got, err := offers.ListByProduct(ctx, productID)
	require.NoError(t, err)
	require.Contains(t, got, "sephora")
	assert.Equal(t, 18.40, *got["sephora"].PriceAmount)
	assert.Equal(t, "low_stock", *got["sephora"].Availability)
	assert.Equal(t, "20% off", *got["sephora"].Promo)
}

func TestPriceHistoryRepository_FirstWritePerDayWins(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	productID := seedProduct(t, db)
	history := NewPriceHistoryRepository(db)

	require.NoError(t, history.Record(ctx, &PriceHistoryPoint{
		ProductID:     productID,
		Retailer:      "amazon",
		PriceAmount:   23.00,
		PriceCurrency: "USD",
	}))
	// Re-ingesting the same day must not add a row or move the price.
	require.NoError(t, history.Record(ctx, &PriceHistoryPoint{
		ProductID:     productID,
		Retailer:      "amazon",
		PriceAmount:   19.99,
		PriceCurrency: "USD",
	}))

	points, err := history.List(ctx, productID, nil, 7)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 23.00, points[0].PriceAmount)

	// A second retailer the same day is its own row.
	require.NoError(t, history.Record(ctx, &PriceHistoryPoint{
		ProductID:     productID,
		Retailer:      "ulta",
		PriceAmount:   21.50,
		PriceCurrency: "USD",
	}))
	points, err = history.List(ctx, productID, []string{"ulta"}, 7)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "ulta", points[0].Retailer)
}

func TestRatingRepository_UpsertReplacesExistingRow(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	productID := seedProduct(t, db)
	ratings := NewRatingRepository(db)

	require.NoError(t, ratings.Upsert(ctx, &RatingRecord{
		ProductID: productID,
		Retailer:  "sephora",
		Average:   floatPtr(4.2),
		Count:     9120,
	}))
	require.NoError(t, ratings.Upsert(ctx, &RatingRecord{
		ProductID: productID,
		Retailer:  "sephora",
		Average:   floatPtr(4.6),
		Count:     9543,
		Breakdown: []byte(`{"5": 7200, "4": 1500}`),
	}))

	assert.Equal(t, 1, countRows(t, db, "ratings", productID))

	got, err := ratings.ListByProduct(ctx, productID)
	require.NoError(t, err)
	require.Contains(t, got, "sephora")
	assert.Equal(t, 4.6, *got["sephora"].Average)
	assert.Equal(t, 9543, got["sephora"].Count)
	assert.JSONEq(t, `{"5": 7200, "4": 1500}`, string(got["sephora"].Breakdown))
}

func TestReviewRepository_InsertAppendsAcrossRuns(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	productID := seedProduct(t, db)
	reviews := NewReviewRepository(db)

	first := &ReviewRecord{
		ProductID: productID,
		Retailer:  "sephora",
		Author:    strPtr("kat"),
		Rating:    floatPtr(5),
		Body:      strPtr("a little goes a long way"),
	}
	require.NoError(t, reviews.Insert(ctx, []*ReviewRecord{first}))
	require.NoError(t, reviews.Insert(ctx, []*ReviewRecord{first}))

	got, err := reviews.ListByProduct(ctx, productID)
	require.NoError(t, err)
	assert.Len(t, got["sephora"], 2)
}

func TestSummaryRepository_UpsertKeepsOneRowPerProduct(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	productID := seedProduct(t, db)
	summaries := NewSummaryRepository(db)

	require.NoError(t, summaries.Upsert(ctx, &SummaryRecord{
		ProductID:  productID,
		Pros:       []string{"pigmented"},
		Cons:       []string{"easy to overapply"},
		Verdict:    strPtr("A highly pigmented liquid blush."),
		ModelName:  "model-a",
		PromptHash: "hash-a",
	}))
	require.NoError(t, summaries.Upsert(ctx, &SummaryRecord{
		ProductID:    productID,
		Pros:         []string{"pigmented", "long-wearing"},
		Cons:         []string{"easy to overapply"},
		Verdict:      strPtr("Outlasts most powder formulas."),
		AspectScores: []byte(`{"longevity": 0.9}`),
		ModelName:    "model-b",
		PromptHash:   "hash-b",
	}))

	assert.Equal(t, 1, countRows(t, db, "summaries", productID))

	got, err := summaries.GetByProduct(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, "Outlasts most powder formulas.", *got.Verdict)
	assert.Equal(t, []string{"pigmented", "long-wearing"}, got.Pros)
	assert.Equal(t, "model-b", got.ModelName)
	assert.Equal(t, "hash-b", got.PromptHash)
	assert.JSONEq(t, `{"longevity": 0.9}`, string(got.AspectScores))
}

func TestProductRepository_UpdateCategoryUnknownID(t *testing.T) {
	db := setupPostgres(t)

	err := NewProductRepository(db).UpdateCategory(context.Background(), uuid.New(), "Makeup")
	assert.ErrorIs(t, err, ErrNotFound)
}
