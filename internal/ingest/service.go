package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prism-beauty/ingestion-engine/internal/observability"
	"github.com/prism-beauty/ingestion-engine/internal/storage"
)

// ErrAlreadyIngesting signals that a run for the product is in flight.
var ErrAlreadyIngesting = errors.New("ingestion already in progress for product")

// Catalog is the product lookup seam the service reads from.
type Catalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*storage.Product, error)
	List(ctx context.Context) ([]*storage.Product, error)
}

// Service is the entry point for ingestion operations: single product, full
// catalog, and the strategy benchmark.
type Service struct {
	runner  *Runner
	catalog Catalog
	tracker *Tracker
	logger  *observability.Logger
}

// NewService creates an ingestion service.
func NewService(runner *Runner, catalog Catalog, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Service{
		runner:  runner,
		catalog: catalog,
		tracker: NewTracker(),
		logger:  logger,
	}
}

// IngestProduct runs one ingestion for the product. Unknown products return
// storage.ErrNotFound; a product already being ingested returns
// ErrAlreadyIngesting.
func (s *Service) IngestProduct(ctx context.Context, productID uuid.UUID, strategy Strategy) (*Result, error) {
	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if !s.tracker.TryAcquire(productID.String()) {
		return nil, ErrAlreadyIngesting
	}
	defer s.tracker.Release(productID.String())

	return s.runner.Run(ctx, product, strategy), nil
}

// BatchItem is the per-product line of a batch report.
type BatchItem struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// BatchResult reports a full-catalog ingestion.
type BatchResult struct {
	Strategy    Strategy      `json:"strategy"`
	Total       int           `json:"total"`
	Processed   int           `json:"processed"`
	Errored     int           `json:"errored"`
	SuccessRate float64       `json:"success_rate"`
	Duration    time.Duration `json:"duration"`
	Items       []BatchItem   `json:"items"`
}

// IngestAll runs ingestion across the whole catalog sequentially. A failing
// product is recorded and the batch moves on; nothing short of context
// cancellation aborts the sweep.
func (s *Service) IngestAll(ctx context.Context, strategy Strategy) (*BatchResult, error) {
	products, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	start := time.Now()
	batch := &BatchResult{Strategy: strategy, Total: len(products)}

	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		item := BatchItem{ProductID: product.ID.String(), Name: product.Name}

		result, err := s.IngestProduct(ctx, product.ID, strategy)
		switch {
		case err != nil:
			item.Status = StatusFailed
			item.Error = err.Error()
			batch.Errored++
			s.logger.Warn().Err(err).Str("product_id", item.ProductID).Msg("batch item failed")
		case result.Status == StatusFailed:
			item.Status = StatusFailed
			batch.Errored++
		default:
			item.Status = result.Status
			batch.Processed++
		}

		batch.Items = append(batch.Items, item)
	}

	batch.Duration = time.Since(start)
	if batch.Total > 0 {
		batch.SuccessRate = float64(batch.Processed) / float64(batch.Total)
	}

	s.logger.Info().
		Int("total", batch.Total).
		Int("processed", batch.Processed).
		Int("errored", batch.Errored).
		Dur("duration", batch.Duration).
		Msg("catalog ingestion finished")

	return batch, nil
}

// BenchmarkResult compares two strategies on the same product.
type BenchmarkResult struct {
	ProductID     string        `json:"product_id"`
	StrategyA     Strategy      `json:"strategy_a"`
	StrategyB     Strategy      `json:"strategy_b"`
	StatusA       RunStatus     `json:"status_a"`
	StatusB       RunStatus     `json:"status_b"`
	DurationA     time.Duration `json:"duration_a"`
	DurationB     time.Duration `json:"duration_b"`
	SpeedupFactor float64       `json:"speedup_factor"`
}

// Benchmark runs two strategies back to back against the product and reports
// wall-clock durations. SpeedupFactor is durationA / durationB: above 1 means
// B was faster.
func (s *Service) Benchmark(ctx context.Context, productID uuid.UUID, a, b Strategy) (*BenchmarkResult, error) {
	resultA, err := s.IngestProduct(ctx, productID, a)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", a, err)
	}

	resultB, err := s.IngestProduct(ctx, productID, b)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", b, err)
	}

	bench := &BenchmarkResult{
		ProductID: productID.String(),
		StrategyA: a,
		StrategyB: b,
		StatusA:   resultA.Status,
		StatusB:   resultB.Status,
		DurationA: resultA.Duration,
		DurationB: resultB.Duration,
	}
	if resultB.Duration > 0 {
		bench.SpeedupFactor = float64(resultA.Duration) / float64(resultB.Duration)
	}

	return bench, nil
}

// Active lists the products currently being ingested.
func (s *Service) Active() []ActiveEntry {
	return s.tracker.Active()
}

// Ensure the product repository satisfies the catalog seam.
var _ Catalog = (*storage.ProductRepository)(nil)
