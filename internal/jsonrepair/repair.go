// Package jsonrepair recovers usable JSON from imperfect model output.
//
// Model responses routinely arrive wrapped in markdown fences, padded with
// prose, truncated mid-object, or littered with trailing commas. Repair runs a
// fixed pipeline over the raw text and either yields a parseable document or a
// typed failure carrying the original output for offline inspection.
package jsonrepair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxBytes bounds full-snapshot repair input.
const DefaultMaxBytes = 300000

// ChunkMaxBytes bounds per-chunk repair input.
const ChunkMaxBytes = 50000

// UnrepairableError reports raw output that survived no repair step. Raw holds
// the original model output so callers can persist a debug artifact.
type UnrepairableError struct {
	Raw    string
	Reason string
}

func (e *UnrepairableError) Error() string {
	return fmt.Sprintf("unrepairable json: %s", e.Reason)
}

var (
	fenceRe         = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// Repair attempts to turn raw model output into valid JSON. Already-valid
// input is returned unchanged, so the operation is idempotent. maxBytes <= 0
// falls back to DefaultMaxBytes.
//
// Pipeline, in order:
//  1. strip markdown code fences
//  2. truncate to maxBytes on a rune boundary
//  3. cut to the outermost {...} span
//  4. drop literal control characters
//  5. remove trailing commas before } or ]
func Repair(raw string, maxBytes int) (json.RawMessage, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	if trimmed := strings.TrimSpace(raw); json.Valid([]byte(trimmed)) && len(trimmed) <= maxBytes {
		return json.RawMessage(trimmed), nil
	}

	s := extractFenced(raw)
	s = truncateUTF8(s, maxBytes)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil, &UnrepairableError{Raw: raw, Reason: "no json object found"}
	}
	s = s[start : end+1]

	s = stripControlChars(s)
	s = trailingCommaRe.ReplaceAllString(s, "$1")

	if !json.Valid([]byte(s)) {
		return nil, &UnrepairableError{Raw: raw, Reason: "invalid after repair"}
	}

	return json.RawMessage(s), nil
}

// extractFenced returns the contents of the first markdown code fence, or the
// input untouched when no fence is present.
func extractFenced(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// truncateUTF8 cuts s to at most maxBytes without splitting a rune.
func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// stripControlChars removes literal control characters (0x00-0x1F and DEL).
// Escaped sequences inside JSON strings are untouched.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F {
			return -1
		}
		return r
	}, s)
}
