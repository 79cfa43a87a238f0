package ingest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prism-beauty/ingestion-engine/internal/jsonrepair"
	"github.com/prism-beauty/ingestion-engine/internal/llm"
	"github.com/prism-beauty/ingestion-engine/internal/snapshot"
)

func TestClassify_Timeout(t *testing.T) {
	cerr := classify("retail", fmt.Errorf("call model: %w", llm.ErrTimeout))
	assert.Equal(t, FailTimeout, cerr.Kind)
	assert.Equal(t, "retail", cerr.Chunk)
}

func TestClassify_Unrepairable(t *testing.T) {
	cerr := classify("influencer", &jsonrepair.UnrepairableError{Raw: "garbage", Reason: "no json object found"})
	assert.Equal(t, FailUnrepairable, cerr.Kind)
}

func TestClassify_SchemaInvalid(t *testing.T) {
	verr := &snapshot.ValidationError{Fields: []snapshot.FieldError{
		{Field: "product_identity.name", Message: "required"},
	}}
	cerr := classify("summary", verr)
	assert.Equal(t, FailSchemaInvalid, cerr.Kind)
}

func TestClassify_TransportDefault(t *testing.T) {
	cerr := classify("retail", errors.New("connection reset by peer"))
	assert.Equal(t, FailTransport, cerr.Kind)
}

func TestChunkError_Unwrap(t *testing.T) {
	base := errors.New("boom")
	cerr := classify("retail", fmt.Errorf("wrapped: %w", base))
	assert.True(t, errors.Is(cerr, base))
	assert.Contains(t, cerr.Error(), "retail")
	assert.Contains(t, cerr.Error(), "transport")
}
