package ingest

import (
	"fmt"

	"github.com/prism-beauty/ingestion-engine/internal/prompt"
)

// Strategy selects how a run fans out over the source universe.
type Strategy string

const (
	// StrategyQuick issues one combined call covering every platform.
	StrategyQuick Strategy = "quick"
	// StrategyChunked runs the platform group chunks sequentially, then a
	// summary chunk over what they collected.
	StrategyChunked Strategy = "chunked"
	// StrategyAdaptive is chunked with category-aware prompts and schema.
	StrategyAdaptive Strategy = "adaptive"
	// StrategyParallel runs the platform group chunks concurrently, then the
	// summary chunk.
	StrategyParallel Strategy = "parallel"
)

// ParseStrategy validates a strategy name, defaulting empty to chunked.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyQuick, StrategyChunked, StrategyAdaptive, StrategyParallel:
		return Strategy(s), nil
	case "":
		return StrategyChunked, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

// Plan is the single execution shape every strategy reduces to: which chunks
// to run, whether to run them concurrently, and whether prompts carry the
// category vocabulary. One runner interprets plans; strategies only differ in
// the plan they produce.
type Plan struct {
	Strategy      Strategy
	Chunks        []prompt.Kind
	Concurrent    bool
	CategoryAware bool
	// WithSummary appends the dependent summary chunk after the platform
	// chunks complete.
	WithSummary bool
}

var platformChunks = []prompt.Kind{
	prompt.KindRetail,
	prompt.KindBrandEditorial,
	prompt.KindInfluencer,
}

// PlanFor builds the execution plan for a strategy.
func PlanFor(strategy Strategy) Plan {
	switch strategy {
	case StrategyQuick:
		return Plan{
			Strategy: StrategyQuick,
			Chunks:   []prompt.Kind{prompt.KindFull},
		}
	case StrategyAdaptive:
		return Plan{
			Strategy:      StrategyAdaptive,
			Chunks:        platformChunks,
			CategoryAware: true,
			WithSummary:   true,
		}
	case StrategyParallel:
		return Plan{
			Strategy:    StrategyParallel,
			Chunks:      platformChunks,
			Concurrent:  true,
			WithSummary: true,
		}
	default:
		return Plan{
			Strategy:    StrategyChunked,
			Chunks:      platformChunks,
			WithSummary: true,
		}
	}
}
