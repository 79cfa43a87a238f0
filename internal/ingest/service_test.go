package ingest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-beauty/ingestion-engine/internal/llm"
	"github.com/prism-beauty/ingestion-engine/internal/prompt"
	"github.com/prism-beauty/ingestion-engine/internal/storage"
)

// fakeCatalog serves products from memory.
type fakeCatalog struct {
	products []*storage.Product
}

func (c *fakeCatalog) GetByID(_ context.Context, id uuid.UUID) (*storage.Product, error) {
	for _, p := range c.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (c *fakeCatalog) List(_ context.Context) ([]*storage.Product, error) {
	return c.products, nil
}

func newTestService(gateway llm.Gateway, catalog Catalog) (*Service, *fakeConsolidator) {
	store := newFakeConsolidator()
	runner := NewRunner(gateway, prompt.NewBuilder(0), store, nil, nil, RunnerConfig{})
	return NewService(runner, catalog, nil), store
}

func TestService_IngestProduct(t *testing.T) {
	product := testProduct("Test Serum", "Glow Labs")
	svc, store := newTestService(llm.NewMockClient(fullSnapshotJSON), &fakeCatalog{products: []*storage.Product{product}})

	result, err := svc.IngestProduct(context.Background(), product.ID, StrategyQuick)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, product.ID.String(), result.ProductID)
	assert.Equal(t, 1, store.summaryCalls)
	assert.Empty(t, svc.Active())
}

func TestService_IngestProduct_NotFound(t *testing.T) {
	svc, _ := newTestService(llm.NewMockClient(fullSnapshotJSON), &fakeCatalog{})

	_, err := svc.IngestProduct(context.Background(), uuid.New(), StrategyQuick)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_IngestProduct_AlreadyIngesting(t *testing.T) {
	product := testProduct("Test Serum", "Glow Labs")
	svc, _ := newTestService(llm.NewMockClient(fullSnapshotJSON), &fakeCatalog{products: []*storage.Product{product}})

	require.True(t, svc.tracker.TryAcquire(product.ID.String()))
	defer svc.tracker.Release(product.ID.String())

	_, err := svc.IngestProduct(context.Background(), product.ID, StrategyQuick)
	assert.ErrorIs(t, err, ErrAlreadyIngesting)
}

func TestService_IngestAll(t *testing.T) {
	products := []*storage.Product{
		testProduct("Serum One", "Glow Labs"),
		testProduct("Serum Two", "Glow Labs"),
		testProduct("Serum Three", "Glow Labs"),
	}
	svc, _ := newTestService(llm.NewMockClient(fullSnapshotJSON), &fakeCatalog{products: products})

	batch, err := svc.IngestAll(context.Background(), StrategyQuick)
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Total)
	assert.Equal(t, 3, batch.Processed)
	assert.Zero(t, batch.Errored)
	assert.InDelta(t, 1.0, batch.SuccessRate, 0.001)
	require.Len(t, batch.Items, 3)
	for _, item := range batch.Items {
		assert.Equal(t, StatusCompleted, item.Status)
	}
}

func TestService_IngestAll_ContinuesPastFailedProduct(t *testing.T) {
	products := []*storage.Product{
		testProduct("Serum One", "Glow Labs"),
		testProduct("Serum Two", "Glow Labs"),
		testProduct("Serum Three", "Glow Labs"),
	}
	// The second product's single call yields unrepairable output.
	mock := llm.NewMockClient(fullSnapshotJSON, "no usable output", fullSnapshotJSON)
	svc, _ := newTestService(mock, &fakeCatalog{products: products})

	batch, err := svc.IngestAll(context.Background(), StrategyQuick)
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Total)
	assert.Equal(t, 2, batch.Processed)
	assert.Equal(t, 1, batch.Errored)
	assert.InDelta(t, 2.0/3.0, batch.SuccessRate, 0.001)
	assert.Equal(t, StatusFailed, batch.Items[1].Status)
	assert.Equal(t, StatusCompleted, batch.Items[2].Status)
}

func TestService_IngestAll_Empty(t *testing.T) {
	svc, _ := newTestService(llm.NewMockClient(), &fakeCatalog{})

	batch, err := svc.IngestAll(context.Background(), StrategyQuick)
	require.NoError(t, err)

	assert.Zero(t, batch.Total)
	assert.Zero(t, batch.SuccessRate)
}

func TestService_IngestAll_CancelledContext(t *testing.T) {
	products := []*storage.Product{testProduct("Serum One", "Glow Labs")}
	svc, _ := newTestService(llm.NewMockClient(fullSnapshotJSON), &fakeCatalog{products: products})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := svc.IngestAll(ctx, StrategyQuick)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, batch.Items)
}

func TestService_Benchmark(t *testing.T) {
	product := testProduct("Test Serum", "Glow Labs")
	svc, _ := newTestService(llm.NewMockClient(fullSnapshotJSON), &fakeCatalog{products: []*storage.Product{product}})

	report, err := svc.Benchmark(context.Background(), product.ID, StrategyQuick, StrategyQuick)
	require.NoError(t, err)

	assert.Equal(t, product.ID.String(), report.ProductID)
	assert.Equal(t, StatusCompleted, report.StatusA)
	assert.Equal(t, StatusCompleted, report.StatusB)
	assert.Greater(t, report.SpeedupFactor, 0.0)
}

func TestService_Benchmark_NotFound(t *testing.T) {
	svc, _ := newTestService(llm.NewMockClient(fullSnapshotJSON), &fakeCatalog{})

	_, err := svc.Benchmark(context.Background(), uuid.New(), StrategyQuick, StrategyChunked)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
