package snapshot

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/prism-beauty/ingestion-engine/internal/category"
	"github.com/prism-beauty/ingestion-engine/internal/prompt"
)

// FieldError pins a validation failure to a specific field path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every missing required field at once, so callers
// see the full damage from one pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// Validate parses repaired JSON into a Snapshot and normalizes it for
// storage. Unknown fields are ignored; known fields are cleaned in place:
//   - aspect scores outside the category vocabulary are dropped, the rest
//     clamped to [0,1]
//   - rating averages and review ratings clamped to [0,5]
//   - currencies normalized to USD
//   - control characters stripped from free text
//
// Missing required fields come back as a *ValidationError listing each one.
func Validate(raw json.RawMessage, cat category.Category) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	var fields []FieldError
	if strings.TrimSpace(snap.ProductIdentity.Name) == "" {
		fields = append(fields, FieldError{Field: "product_identity.name", Message: "required"})
	}
	if strings.TrimSpace(snap.SummarizedReview.Verdict) == "" {
		fields = append(fields, FieldError{Field: "summarized_review.verdict", Message: "required"})
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	normalize(&snap, cat)
	return &snap, nil
}

// ParsePlatforms parses a chunk payload, which only carries a platforms map.
// An empty map is an error: a chunk that found nothing is a failed chunk.
func ParsePlatforms(raw json.RawMessage) (map[string]Platform, error) {
	var payload struct {
		Platforms map[string]Platform `json:"platforms"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode chunk payload: %w", err)
	}
	if len(payload.Platforms) == 0 {
		return nil, &ValidationError{Fields: []FieldError{
			{Field: "platforms", Message: "required"},
		}}
	}

	for name, p := range payload.Platforms {
		normalizePlatform(&p)
		payload.Platforms[name] = p
	}
	return payload.Platforms, nil
}

func normalize(snap *Snapshot, cat category.Category) {
	snap.ProductIdentity.Name = cleanText(snap.ProductIdentity.Name)
	snap.ProductIdentity.Brand = cleanText(snap.ProductIdentity.Brand)

	for name, p := range snap.Platforms {
		normalizePlatform(&p)
		snap.Platforms[name] = p
	}

	sr := &snap.SummarizedReview
	sr.Verdict = cleanText(sr.Verdict)
	sr.MasterSummary = cleanText(sr.MasterSummary)
	for i, s := range sr.Pros {
		sr.Pros[i] = cleanText(s)
	}
	for i, s := range sr.Cons {
		sr.Cons[i] = cleanText(s)
	}

	if sr.AspectScores != nil {
		allowed := prompt.AllowedAspects(cat)
		for key, score := range sr.AspectScores {
			if !allowed[key] {
				delete(sr.AspectScores, key)
				continue
			}
			sr.AspectScores[key] = clamp(score, 0, 1)
		}
	}
}

func normalizePlatform(p *Platform) {
	if p.Price != nil {
		p.Price.Currency = ensureCurrencyUSD(p.Price.Currency)
		p.Price.Availability = cleanText(p.Price.Availability)
		p.Price.Promo = cleanText(p.Price.Promo)
	}
	if p.Rating != nil && p.Rating.Average != nil {
		v := clamp(*p.Rating.Average, 0, 5)
		p.Rating.Average = &v
	}
	for i := range p.Reviews {
		r := &p.Reviews[i]
		r.Author = cleanText(r.Author)
		r.Title = cleanText(r.Title)
		r.Body = cleanText(r.Body)
		r.Creator = cleanText(r.Creator)
		r.Summary = cleanText(r.Summary)
		if r.Rating != nil {
			v := clamp(*r.Rating, 0, 5)
			r.Rating = &v
		}
	}
	for i := range p.Quotes {
		p.Quotes[i].Quote = cleanText(p.Quotes[i].Quote)
	}
	p.Summary = cleanText(p.Summary)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ensureCurrencyUSD normalizes currency codes. The pipeline asks for USD
// pricing only; anything else collapses to USD rather than propagating
// hallucinated codes.
func ensureCurrencyUSD(string) string {
	return "USD"
}

var controlRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// cleanText strips control characters (keeping newlines and tabs) and trims
// surrounding whitespace.
func cleanText(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(controlRe.ReplaceAllString(s, ""))
}
