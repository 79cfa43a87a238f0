// Package ingest orchestrates product ingestion runs: prompting the model,
// repairing and validating its output, and consolidating the result into
// storage.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/prism-beauty/ingestion-engine/internal/category"
	"github.com/prism-beauty/ingestion-engine/internal/debug"
	"github.com/prism-beauty/ingestion-engine/internal/jsonrepair"
	"github.com/prism-beauty/ingestion-engine/internal/llm"
	"github.com/prism-beauty/ingestion-engine/internal/observability"
	"github.com/prism-beauty/ingestion-engine/internal/prompt"
	"github.com/prism-beauty/ingestion-engine/internal/snapshot"
	"github.com/prism-beauty/ingestion-engine/internal/storage"
)

// RunStatus is the terminal state of one ingestion run.
type RunStatus string

const (
	// StatusCompleted: every chunk succeeded and every write landed.
	StatusCompleted RunStatus = "completed"
	// StatusPartiallyCompleted: at least one chunk succeeded, but something
	// else failed along the way.
	StatusPartiallyCompleted RunStatus = "partially_completed"
	// StatusFailed: no chunk produced usable data.
	StatusFailed RunStatus = "failed"
)

// ChunkResult records the outcome of one chunk within a run.
type ChunkResult struct {
	Chunk    prompt.Kind   `json:"chunk"`
	OK       bool          `json:"ok"`
	Kind     FailureKind   `json:"failure_kind,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is the full report for one ingestion run.
type Result struct {
	ProductID        string        `json:"product_id"`
	Strategy         Strategy      `json:"strategy"`
	Status           RunStatus     `json:"status"`
	Category         string        `json:"category,omitempty"`
	PlatformsUpdated []string      `json:"platforms_updated"`
	Chunks           []ChunkResult `json:"chunks"`
	Duration         time.Duration `json:"duration"`
	ModelName        string        `json:"model_name,omitempty"`
	PromptHash       string        `json:"prompt_hash,omitempty"`
	Store            StoreResult   `json:"store"`
}

// RunnerConfig holds the runner's tunables.
type RunnerConfig struct {
	MaxJSONBytes  int
	ChunkMaxBytes int
	MaxWorkers    int
}

// Consolidator is the storage seam the runner writes through.
type Consolidator interface {
	StorePlatforms(ctx context.Context, productID uuid.UUID, platforms map[string]snapshot.Platform, result *StoreResult)
	StoreSummary(ctx context.Context, productID uuid.UUID, snap *snapshot.Snapshot, modelName, promptHash string, result *StoreResult)
	PersistCategory(ctx context.Context, productID uuid.UUID, cat category.Category) error
}

// Runner executes ingestion plans. One runner serves every strategy; the plan
// alone decides chunking, concurrency, and schema variant.
type Runner struct {
	gateway llm.Gateway
	builder *prompt.Builder
	store   Consolidator
	sink    *debug.Sink
	logger  *observability.Logger
	cfg     RunnerConfig
}

// NewRunner creates a runner.
func NewRunner(gateway llm.Gateway, builder *prompt.Builder, store Consolidator, sink *debug.Sink, logger *observability.Logger, cfg RunnerConfig) *Runner {
	if cfg.MaxJSONBytes <= 0 {
		cfg.MaxJSONBytes = jsonrepair.DefaultMaxBytes
	}
	if cfg.ChunkMaxBytes <= 0 {
		cfg.ChunkMaxBytes = jsonrepair.ChunkMaxBytes
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 3
	}
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Runner{
		gateway: gateway,
		builder: builder,
		store:   store,
		sink:    sink,
		logger:  logger,
		cfg:     cfg,
	}
}

// chunkOutcome is the internal per-chunk result before reporting.
type chunkOutcome struct {
	kind      prompt.Kind
	raw       json.RawMessage
	platforms map[string]snapshot.Platform
	model     string
	err       *ChunkError
	duration  time.Duration
}

// Run executes one ingestion run for the product using the given strategy.
func (r *Runner) Run(ctx context.Context, product *storage.Product, strategy Strategy) *Result {
	start := time.Now()
	plan := PlanFor(strategy)
	logger := r.logger.WithProduct(product.ID.String()).WithOperation("ingest")

	cat := category.CategoryUnknown
	if plan.CategoryAware {
		cat = category.Classify(product.Name, product.Brand, product.Description)
		logger.Info().Str("category", string(cat)).Str("strategy", string(strategy)).Msg("category detected")
		if cat != category.CategoryUnknown {
			if err := r.store.PersistCategory(ctx, product.ID, cat); err != nil {
				logger.Warn().Err(err).Msg("could not persist detected category")
			}
		}
	}

	result := &Result{
		ProductID: product.ID.String(),
		Strategy:  strategy,
		Category:  string(cat),
		ModelName: r.gateway.Model(),
	}

	if plan.Chunks[0] == prompt.KindFull {
		r.runQuick(ctx, product, cat, result)
	} else {
		r.runChunked(ctx, product, cat, plan, result)
	}

	result.Duration = time.Since(start)
	result.Status = r.status(result)
	result.PlatformsUpdated = result.Store.PlatformsUpdated

	logger.Info().
		Str("strategy", string(strategy)).
		Str("status", string(result.Status)).
		Int("platforms", len(result.PlatformsUpdated)).
		Dur("duration", result.Duration).
		Msg("ingestion run finished")

	return result
}

// runQuick executes the single-shot plan.
func (r *Runner) runQuick(ctx context.Context, product *storage.Product, cat category.Category, result *Result) {
	p := r.builder.Full(product.Name, product.Brand)
	result.PromptHash = p.Hash()

	outcome := r.callChunk(ctx, product, p, r.cfg.MaxJSONBytes)
	result.Chunks = append(result.Chunks, outcome.report())
	if outcome.err != nil {
		return
	}
	result.ModelName = outcome.model

	snap, err := snapshot.Validate(outcome.raw, cat)
	if err != nil {
		cerr := classify(string(p.Kind), err)
		result.Chunks[len(result.Chunks)-1] = ChunkResult{
			Chunk: p.Kind, Kind: cerr.Kind, Error: cerr.Err.Error(), Duration: outcome.duration,
		}
		return
	}

	r.store.StorePlatforms(ctx, product.ID, snap.Platforms, &result.Store)
	r.store.StoreSummary(ctx, product.ID, snap, result.ModelName, result.PromptHash, &result.Store)
}

// runChunked executes multi-chunk plans, sequentially or concurrently per the
// plan, then the dependent summary chunk. A failed chunk contributes nothing
// but never aborts its siblings.
func (r *Runner) runChunked(ctx context.Context, product *storage.Product, cat category.Category, plan Plan, result *Result) {
	outcomes := make([]chunkOutcome, len(plan.Chunks))

	if plan.Concurrent {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.MaxWorkers)
		for i, kind := range plan.Chunks {
			i, kind := i, kind
			g.Go(func() error {
				p := r.renderChunk(kind, product, cat, plan)
				outcomes[i] = r.callChunkPlatforms(gctx, product, p)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, kind := range plan.Chunks {
			p := r.renderChunk(kind, product, cat, plan)
			outcomes[i] = r.callChunkPlatforms(ctx, product, p)
		}
	}

	collected := make(map[prompt.Kind]json.RawMessage)
	merged := make(map[string]snapshot.Platform)
	succeeded := 0
	for _, outcome := range outcomes {
		result.Chunks = append(result.Chunks, outcome.report())
		if outcome.err != nil {
			continue
		}
		succeeded++
		collected[outcome.kind] = outcome.raw
		for name, platform := range outcome.platforms {
			merged[name] = platform
		}
		result.ModelName = outcome.model
	}

	if succeeded == 0 {
		return
	}

	if !plan.WithSummary {
		r.store.StorePlatforms(ctx, product.ID, merged, &result.Store)
		return
	}

	p := r.builder.Summary(product.Name, cat, collected)
	result.PromptHash = p.Hash()

	outcome := r.callChunk(ctx, product, p, r.cfg.MaxJSONBytes)
	result.Chunks = append(result.Chunks, outcome.report())
	if outcome.err != nil {
		// Platform data survives a failed summary.
		r.store.StorePlatforms(ctx, product.ID, merged, &result.Store)
		return
	}
	result.ModelName = outcome.model

	snap, err := snapshot.Validate(outcome.raw, cat)
	if err != nil {
		cerr := classify(string(p.Kind), err)
		result.Chunks[len(result.Chunks)-1] = ChunkResult{
			Chunk: p.Kind, Kind: cerr.Kind, Error: cerr.Err.Error(), Duration: outcome.duration,
		}
		r.store.StorePlatforms(ctx, product.ID, merged, &result.Store)
		return
	}

	r.store.StorePlatforms(ctx, product.ID, merged, &result.Store)
	r.store.StoreSummary(ctx, product.ID, snap, result.ModelName, result.PromptHash, &result.Store)
}

// renderChunk builds the prompt for one platform chunk.
func (r *Runner) renderChunk(kind prompt.Kind, product *storage.Product, cat category.Category, plan Plan) prompt.Prompt {
	switch kind {
	case prompt.KindRetail:
		if plan.CategoryAware {
			return r.builder.Retail(product.Name, cat)
		}
		return r.builder.Retail(product.Name, category.CategoryUnknown)
	case prompt.KindBrandEditorial:
		return r.builder.BrandEditorial(product.Name)
	case prompt.KindInfluencer:
		return r.builder.Influencer(product.Name)
	default:
		return r.builder.Full(product.Name, product.Brand)
	}
}

// callChunk performs one model call followed by repair. The raw output of an
// unrepairable response is persisted as a debug artifact.
func (r *Runner) callChunk(ctx context.Context, product *storage.Product, p prompt.Prompt, maxBytes int) chunkOutcome {
	start := time.Now()
	outcome := chunkOutcome{kind: p.Kind}

	raw, err := r.gateway.Complete(ctx, p.System, p.User, p.MaxTokens)
	outcome.duration = time.Since(start)
	if err != nil {
		outcome.err = classify(string(p.Kind), err)
		return outcome
	}
	outcome.model = raw.Model

	repaired, err := jsonrepair.Repair(raw.Text, maxBytes)
	if err != nil {
		outcome.err = classify(string(p.Kind), err)
		if outcome.err.Kind == FailUnrepairable {
			r.sink.SaveInvalidOutput(product.ID.String(), string(p.Kind), p.Hash(), raw.Text)
		}
		return outcome
	}

	outcome.raw = repaired
	return outcome
}

// callChunkPlatforms is callChunk plus platform payload validation, used for
// the platform group chunks.
func (r *Runner) callChunkPlatforms(ctx context.Context, product *storage.Product, p prompt.Prompt) chunkOutcome {
	outcome := r.callChunk(ctx, product, p, r.cfg.ChunkMaxBytes)
	if outcome.err != nil {
		return outcome
	}

	platforms, err := snapshot.ParsePlatforms(outcome.raw)
	if err != nil {
		outcome.err = classify(string(p.Kind), err)
		return outcome
	}
	outcome.platforms = platforms
	return outcome
}

// status derives the run state: no usable chunk means failed, a clean sweep
// means completed, anything in between is partial.
func (r *Runner) status(result *Result) RunStatus {
	succeeded, failed := 0, 0
	for _, chunk := range result.Chunks {
		if chunk.OK {
			succeeded++
		} else {
			failed++
		}
	}

	if succeeded == 0 {
		return StatusFailed
	}
	if failed > 0 || len(result.Store.Errors) > 0 {
		return StatusPartiallyCompleted
	}
	return StatusCompleted
}

func (o chunkOutcome) report() ChunkResult {
	cr := ChunkResult{Chunk: o.kind, Duration: o.duration}
	if o.err != nil {
		cr.Kind = o.err.Kind
		cr.Error = o.err.Err.Error()
		return cr
	}
	cr.OK = true
	return cr
}
