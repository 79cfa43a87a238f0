package debug

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_SaveInvalidOutput(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, nil)

	path := sink.SaveInvalidOutput("prod-1", "retail", "abc123", "not json at all")
	require.NotEmpty(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var artifact Artifact
	require.NoError(t, json.Unmarshal(data, &artifact))
	assert.Equal(t, "prod-1", artifact.ProductID)
	assert.Equal(t, "retail", artifact.Chunk)
	assert.Equal(t, "abc123", artifact.PromptHash)
	assert.Equal(t, "not json at all", artifact.RawOutput)
	assert.Equal(t, len("not json at all"), artifact.Length)
	assert.False(t, artifact.SavedAt.IsZero())
}

func TestSink_EmptyDirIsNoop(t *testing.T) {
	sink := NewSink("", nil)
	assert.Empty(t, sink.SaveInvalidOutput("prod-1", "retail", "abc123", "raw"))
}

func TestSink_NilIsNoop(t *testing.T) {
	var sink *Sink
	assert.Empty(t, sink.SaveInvalidOutput("prod-1", "retail", "abc123", "raw"))
}
