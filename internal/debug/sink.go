// Package debug persists raw model output that the repair engine gave up on,
// so failed runs can be inspected offline.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prism-beauty/ingestion-engine/internal/observability"
)

// Artifact is the on-disk record for one unrepairable output.
type Artifact struct {
	ProductID  string    `json:"product_id"`
	Chunk      string    `json:"chunk"`
	PromptHash string    `json:"prompt_hash"`
	RawOutput  string    `json:"raw_output"`
	Length     int       `json:"length"`
	SavedAt    time.Time `json:"saved_at"`
}

// Sink writes artifacts as JSON files under a directory. A Sink with an empty
// directory is a no-op, so callers never need to nil-check.
type Sink struct {
	dir    string
	logger *observability.Logger
}

// NewSink creates a sink rooted at dir.
func NewSink(dir string, logger *observability.Logger) *Sink {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Sink{dir: dir, logger: logger}
}

// SaveInvalidOutput writes one artifact and returns its path. Failures are
// logged, not returned: losing a debug file must never fail the run.
func (s *Sink) SaveInvalidOutput(productID, chunk, promptHash, raw string) string {
	if s == nil || s.dir == "" {
		return ""
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Warn().Err(err).Str("dir", s.dir).Msg("could not create debug dir")
		return ""
	}

	artifact := Artifact{
		ProductID:  productID,
		Chunk:      chunk,
		PromptHash: promptHash,
		RawOutput:  raw,
		Length:     len(raw),
		SavedAt:    time.Now().UTC(),
	}

	name := fmt.Sprintf("invalid_%s_%s_%d.json", chunk, productID, artifact.SavedAt.UnixNano())
	path := filepath.Join(s.dir, name)

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not marshal debug artifact")
		return ""
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("could not save debug artifact")
		return ""
	}

	s.logger.Error().
		Str("product_id", productID).
		Str("chunk", chunk).
		Str("path", path).
		Int("length", artifact.Length).
		Msg("raw model output saved for inspection")

	return path
}
