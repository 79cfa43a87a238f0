package ingest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-beauty/ingestion-engine/internal/category"
	"github.com/prism-beauty/ingestion-engine/internal/llm"
	"github.com/prism-beauty/ingestion-engine/internal/prompt"
	"github.com/prism-beauty/ingestion-engine/internal/snapshot"
	"github.com/prism-beauty/ingestion-engine/internal/storage"
)

const fullSnapshotJSON = `{
	"product_identity": {"name": "Test Serum", "brand": "Glow Labs"},
	"platforms": {
		"amazon": {"price": {"amount": 24.99, "currency": "USD"}},
		"sephora": {"rating": {"average": 4.2, "count": 118}}
	},
	"summarized_review": {"verdict": "Solid pick for the price."}
}`

const summaryJSON = `{
	"product_identity": {"name": "Test Serum"},
	"summarized_review": {
		"verdict": "Well reviewed across retailers.",
		"pros": ["absorbs fast"],
		"cons": ["strong scent"]
	}
}`

func platformJSON(name string) string {
	return `{"platforms": {"` + name + `": {"price": {"amount": 10.0, "currency": "USD"}}}}`
}

// fakeConsolidator records consolidation calls without touching a database.
type fakeConsolidator struct {
	mu            sync.Mutex
	platformCalls int
	summaryCalls  int
	platforms     map[string]snapshot.Platform
	lastSnap      *snapshot.Snapshot
	lastHash      string
	category      category.Category
	categoryErr   error
	writeErr      error
}

func newFakeConsolidator() *fakeConsolidator {
	return &fakeConsolidator{platforms: make(map[string]snapshot.Platform)}
}

func (f *fakeConsolidator) StorePlatforms(_ context.Context, _ uuid.UUID, platforms map[string]snapshot.Platform, result *StoreResult) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.platformCalls++
	for name, p := range platforms {
		f.platforms[name] = p
		result.PlatformsUpdated = append(result.PlatformsUpdated, name)
	}
	sort.Strings(result.PlatformsUpdated)
	if f.writeErr != nil {
		result.fail("offers", f.writeErr)
	}
}

func (f *fakeConsolidator) StoreSummary(_ context.Context, _ uuid.UUID, snap *snapshot.Snapshot, _ string, promptHash string, result *StoreResult) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.summaryCalls++
	f.lastSnap = snap
	f.lastHash = promptHash
	result.SummaryWritten = true
}

func (f *fakeConsolidator) PersistCategory(_ context.Context, _ uuid.UUID, cat category.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.category = cat
	return f.categoryErr
}

func testProduct(name, brand string) *storage.Product {
	return &storage.Product{ID: uuid.New(), Name: name, Brand: brand}
}

func newTestRunner(gateway llm.Gateway, store *fakeConsolidator) *Runner {
	return NewRunner(gateway, prompt.NewBuilder(0), store, nil, nil, RunnerConfig{})
}

func TestRunner_QuickStoresFullSnapshot(t *testing.T) {
	store := newFakeConsolidator()
	runner := newTestRunner(llm.NewMockClient(fullSnapshotJSON), store)

	result := runner.Run(context.Background(), testProduct("Test Serum", "Glow Labs"), StrategyQuick)

	assert.Equal(t, StatusCompleted, result.Status)
	require.Len(t, result.Chunks, 1)
	assert.True(t, result.Chunks[0].OK)
	assert.Equal(t, prompt.KindFull, result.Chunks[0].Chunk)
	assert.Equal(t, 1, store.platformCalls)
	assert.Equal(t, 1, store.summaryCalls)
	assert.ElementsMatch(t, []string{"amazon", "sephora"}, result.PlatformsUpdated)
	assert.NotEmpty(t, result.PromptHash)
	assert.Equal(t, "mock-model", result.ModelName)
	assert.Equal(t, result.PromptHash, store.lastHash)
}

func TestRunner_QuickInvalidSchemaFails(t *testing.T) {
	store := newFakeConsolidator()
	runner := newTestRunner(llm.NewMockClient(`{"platforms": {}}`), store)

	result := runner.Run(context.Background(), testProduct("Test Serum", "Glow Labs"), StrategyQuick)

	assert.Equal(t, StatusFailed, result.Status)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, FailSchemaInvalid, result.Chunks[0].Kind)
	assert.Zero(t, store.platformCalls)
	assert.Zero(t, store.summaryCalls)
}

func TestRunner_ChunkedBadChunkIsPartial(t *testing.T) {
	store := newFakeConsolidator()
	mock := llm.NewMockClient(
		platformJSON("amazon"),
		"model rambled, no data here",
		platformJSON("youtube"),
		summaryJSON,
	)
	runner := newTestRunner(mock, store)

	result := runner.Run(context.Background(), testProduct("Test Serum", "Glow Labs"), StrategyChunked)

	assert.Equal(t, StatusPartiallyCompleted, result.Status)
	require.Len(t, result.Chunks, 4)
	assert.True(t, result.Chunks[0].OK)
	assert.False(t, result.Chunks[1].OK)
	assert.Equal(t, FailUnrepairable, result.Chunks[1].Kind)
	assert.True(t, result.Chunks[2].OK)
	assert.True(t, result.Chunks[3].OK)

	// The bad chunk contributes nothing; the others still land.
	assert.ElementsMatch(t, []string{"amazon", "youtube"}, result.PlatformsUpdated)
	assert.Equal(t, 1, store.summaryCalls)
}

func TestRunner_AllChunksFailedIsFailed(t *testing.T) {
	store := newFakeConsolidator()
	mock := llm.NewMockClient()
	mock.Errs = []error{errors.New("connection refused")}
	runner := newTestRunner(mock, store)

	result := runner.Run(context.Background(), testProduct("Test Serum", "Glow Labs"), StrategyChunked)

	assert.Equal(t, StatusFailed, result.Status)
	// No summary attempt when nothing was collected.
	require.Len(t, result.Chunks, 3)
	for _, chunk := range result.Chunks {
		assert.Equal(t, FailTransport, chunk.Kind)
	}
	assert.Zero(t, store.platformCalls)
	assert.Zero(t, store.summaryCalls)
	assert.Empty(t, result.PlatformsUpdated)
}

func TestRunner_SummaryFailureKeepsPlatformData(t *testing.T) {
	store := newFakeConsolidator()
	mock := llm.NewMockClient(
		platformJSON("amazon"),
		platformJSON("brand_site"),
		platformJSON("instagram"),
		"not a snapshot",
	)
	runner := newTestRunner(mock, store)

	result := runner.Run(context.Background(), testProduct("Test Serum", "Glow Labs"), StrategyChunked)

	assert.Equal(t, StatusPartiallyCompleted, result.Status)
	require.Len(t, result.Chunks, 4)
	assert.Equal(t, FailUnrepairable, result.Chunks[3].Kind)
	assert.Equal(t, 1, store.platformCalls)
	assert.Zero(t, store.summaryCalls)
	assert.ElementsMatch(t, []string{"amazon", "brand_site", "instagram"}, result.PlatformsUpdated)
}

// scriptedGateway answers by chunk rather than by call order, so concurrent
// chunks can be scripted deterministically.
type scriptedGateway struct {
	responses map[string]string
	errs      map[string]error
	delays    map[string]time.Duration
}

func chunkFor(user string) string {
	switch {
	case strings.HasPrefix(user, "Get current retail data"):
		return "retail"
	case strings.HasPrefix(user, "Get brand and editorial data"):
		return "brand_editorial"
	case strings.HasPrefix(user, "Get influencer content"):
		return "influencer"
	default:
		return "summary"
	}
}

func (g *scriptedGateway) Complete(ctx context.Context, _, user string, _ int) (llm.RawResult, error) {
	key := chunkFor(user)
	if d, ok := g.delays[key]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return llm.RawResult{}, llm.ErrTimeout
		}
	}
	if err, ok := g.errs[key]; ok {
		return llm.RawResult{}, err
	}
	resp, ok := g.responses[key]
	if !ok {
		return llm.RawResult{}, errors.New("no scripted response for " + key)
	}
	return llm.RawResult{Text: resp, Model: "scripted-model"}, nil
}

func (g *scriptedGateway) Model() string { return "scripted-model" }

func TestRunner_ParallelCompletesAllChunks(t *testing.T) {
	store := newFakeConsolidator()
	mock := llm.NewMockClient(
		platformJSON("amazon"),
		platformJSON("brand_site"),
		platformJSON("youtube"),
		summaryJSON,
	)
	runner := newTestRunner(mock, store)

	result := runner.Run(context.Background(), testProduct("Test Serum", "Glow Labs"), StrategyParallel)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Len(t, result.Chunks, 4)
	assert.Equal(t, 4, mock.Calls())
	assert.Len(t, result.PlatformsUpdated, 3)
	assert.Equal(t, 1, store.summaryCalls)
}

func TestRunner_ParallelTimedOutChunkIsIsolated(t *testing.T) {
	store := newFakeConsolidator()
	gateway := &scriptedGateway{
		responses: map[string]string{
			"retail":          platformJSON("amazon"),
			"brand_editorial": platformJSON("brand_site"),
			"summary":         summaryJSON,
		},
		errs: map[string]error{"influencer": llm.ErrTimeout},
	}
	runner := newTestRunner(gateway, store)

	result := runner.Run(context.Background(), testProduct("Test Serum", "Glow Labs"), StrategyParallel)

	assert.Equal(t, StatusPartiallyCompleted, result.Status)
	require.Len(t, result.Chunks, 4)

	byChunk := make(map[prompt.Kind]ChunkResult)
	for _, chunk := range result.Chunks {
		byChunk[chunk.Chunk] = chunk
	}
	assert.True(t, byChunk[prompt.KindRetail].OK)
	assert.True(t, byChunk[prompt.KindBrandEditorial].OK)
	assert.True(t, byChunk[prompt.KindSummary].OK)
	assert.False(t, byChunk[prompt.KindInfluencer].OK)
	assert.Equal(t, FailTimeout, byChunk[prompt.KindInfluencer].Kind)

	// The timed-out chunk contributes nothing; its siblings still land.
	assert.ElementsMatch(t, []string{"amazon", "brand_site"}, result.PlatformsUpdated)
	assert.NotContains(t, store.platforms, "youtube")
	assert.Equal(t, 1, store.summaryCalls)
}

func TestRunner_ParallelChunksOverlapInTime(t *testing.T) {
	store := newFakeConsolidator()
	delay := 60 * time.Millisecond
	gateway := &scriptedGateway{
		responses: map[string]string{
			"retail":          platformJSON("amazon"),
			"brand_editorial": platformJSON("brand_site"),
			"influencer":      platformJSON("youtube"),
			"summary":         summaryJSON,
		},
		delays: map[string]time.Duration{
			"retail":          delay,
			"brand_editorial": delay,
			"influencer":      delay,
		},
	}
	runner := newTestRunner(gateway, store)

	start := time.Now()
	result := runner.Run(context.Background(), testProduct("Test Serum", "Glow Labs"), StrategyParallel)
	elapsed := time.Since(start)

	assert.Equal(t, StatusCompleted, result.Status)
	// Three delayed platform chunks run together, so the run tracks the
	// slowest chunk, not the sum of all three.
	assert.Less(t, elapsed, 3*delay)
}

func TestRunner_AdaptivePersistsDetectedCategory(t *testing.T) {
	store := newFakeConsolidator()
	mock := llm.NewMockClient(
		platformJSON("sephora"),
		platformJSON("brand_site"),
		platformJSON("youtube"),
		summaryJSON,
	)
	runner := newTestRunner(mock, store)

	result := runner.Run(context.Background(), testProduct("Midnight Eau de Parfum", "Maison Test"), StrategyAdaptive)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, string(category.CategoryFragrance), result.Category)
	assert.Equal(t, category.CategoryFragrance, store.category)
}

func TestRunner_CategoryPersistFailureDoesNotAbort(t *testing.T) {
	store := newFakeConsolidator()
	store.categoryErr = errors.New("update failed")
	mock := llm.NewMockClient(
		platformJSON("sephora"),
		platformJSON("brand_site"),
		platformJSON("youtube"),
		summaryJSON,
	)
	runner := newTestRunner(mock, store)

	result := runner.Run(context.Background(), testProduct("Matte Lipstick", "Maison Test"), StrategyAdaptive)

	assert.Equal(t, StatusCompleted, result.Status)
}

func TestRunner_StoreWriteFailureIsPartial(t *testing.T) {
	store := newFakeConsolidator()
	store.writeErr = errors.New("deadlock detected")
	runner := newTestRunner(llm.NewMockClient(fullSnapshotJSON), store)

	result := runner.Run(context.Background(), testProduct("Test Serum", "Glow Labs"), StrategyQuick)

	assert.Equal(t, StatusPartiallyCompleted, result.Status)
	require.Len(t, result.Store.Errors, 1)
	assert.Equal(t, FailUpsertFailed, result.Store.Errors[0].Kind)
}

func TestRunner_TimeoutClassified(t *testing.T) {
	store := newFakeConsolidator()
	mock := llm.NewMockClient()
	mock.Errs = []error{llm.ErrTimeout}
	runner := newTestRunner(mock, store)

	result := runner.Run(context.Background(), testProduct("Test Serum", "Glow Labs"), StrategyQuick)

	assert.Equal(t, StatusFailed, result.Status)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, FailTimeout, result.Chunks[0].Kind)
}
