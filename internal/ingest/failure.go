package ingest

import (
	"errors"
	"fmt"

	"github.com/prism-beauty/ingestion-engine/internal/jsonrepair"
	"github.com/prism-beauty/ingestion-engine/internal/llm"
	"github.com/prism-beauty/ingestion-engine/internal/snapshot"
)

// FailureKind classifies everything that can go wrong between prompt and
// committed row.
type FailureKind string

const (
	FailTransport     FailureKind = "transport"
	FailTimeout       FailureKind = "timeout"
	FailUnrepairable  FailureKind = "unrepairable"
	FailSchemaInvalid FailureKind = "schema_invalid"
	FailUpsertFailed  FailureKind = "upsert_failed"
)

// ChunkError is a classified failure for one chunk of one run.
type ChunkError struct {
	Chunk string
	Kind  FailureKind
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %s: %s: %v", e.Chunk, e.Kind, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// classify maps an underlying error onto the failure taxonomy.
func classify(chunk string, err error) *ChunkError {
	kind := FailTransport

	var unrep *jsonrepair.UnrepairableError
	var verr *snapshot.ValidationError
	switch {
	case errors.Is(err, llm.ErrTimeout):
		kind = FailTimeout
	case errors.As(err, &unrep):
		kind = FailUnrepairable
	case errors.As(err, &verr):
		kind = FailSchemaInvalid
	}

	return &ChunkError{Chunk: chunk, Kind: kind, Err: err}
}
