package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/prism-beauty/ingestion-engine/internal/cache"
	"github.com/prism-beauty/ingestion-engine/internal/category"
	"github.com/prism-beauty/ingestion-engine/internal/observability"
	"github.com/prism-beauty/ingestion-engine/internal/snapshot"
	"github.com/prism-beauty/ingestion-engine/internal/storage"
)

// reviewCap bounds how many reviews one run stores per (product, retailer).
const reviewCap = 5

// Store consolidates a snapshot into the relational tables. Every write is
// independent: one failed table never rolls back the others, it is recorded
// and the rest proceed.
type Store struct {
	repos  *storage.Repositories
	cache  cache.Client
	logger *observability.Logger
}

// NewStore creates a consolidation store.
func NewStore(repos *storage.Repositories, cacheClient cache.Client, logger *observability.Logger) *Store {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Store{repos: repos, cache: cacheClient, logger: logger}
}

// StoreResult accumulates what one consolidation pass wrote.
type StoreResult struct {
	PlatformsUpdated []string
	OffersWritten    int
	RatingsWritten   int
	ReviewsWritten   int
	SpecsWritten     int
	SummaryWritten   bool
	Errors           []*ChunkError
}

func (r *StoreResult) fail(table string, err error) {
	r.Errors = append(r.Errors, &ChunkError{
		Chunk: table,
		Kind:  FailUpsertFailed,
		Err:   err,
	})
}

// StorePlatforms writes offers, price history, ratings, and reviews for each
// collected platform. Editorial quotes land in the specs table.
func (s *Store) StorePlatforms(ctx context.Context, productID uuid.UUID, platforms map[string]snapshot.Platform, result *StoreResult) {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		platform := platforms[name]
		if name == "editorial" {
			s.storeEditorial(ctx, productID, platform, result)
			continue
		}
		s.storePlatform(ctx, productID, name, platform, result)
	}

	s.invalidate(ctx, productID)
}

func (s *Store) storePlatform(ctx context.Context, productID uuid.UUID, name string, platform snapshot.Platform, result *StoreResult) {
	touched := false

	if platform.Price != nil {
		offer := &storage.Offer{
			ProductID:     productID,
			Retailer:      name,
			PriceAmount:   platform.Price.Amount,
			PriceCurrency: platform.Price.Currency,
			UnitPrice:     optional(platform.Price.UnitPrice),
			Availability:  optional(platform.Price.Availability),
			Promo:         optional(platform.Price.Promo),
			URL:           optional(platform.URL),
		}
		if err := s.repos.Offers.Upsert(ctx, offer); err != nil {
			result.fail("offers", fmt.Errorf("%s: %w", name, err))
		} else {
			result.OffersWritten++
			touched = true
		}

		if platform.Price.Amount != nil {
			point := &storage.PriceHistoryPoint{
				ProductID:     productID,
				Retailer:      name,
				PriceAmount:   *platform.Price.Amount,
				PriceCurrency: platform.Price.Currency,
				URL:           optional(platform.URL),
			}
			if err := s.repos.PriceHistory.Record(ctx, point); err != nil {
				result.fail("price_history", fmt.Errorf("%s: %w", name, err))
			}
		}
	}

	if platform.Rating != nil {
		var breakdown json.RawMessage
		if len(platform.Rating.Breakdown) > 0 {
			if data, err := json.Marshal(platform.Rating.Breakdown); err == nil {
				breakdown = data
			}
		}
		rating := &storage.RatingRecord{
			ProductID: productID,
			Retailer:  name,
			Average:   platform.Rating.Average,
			Count:     platform.Rating.Count,
			Breakdown: breakdown,
			URL:       optional(platform.URL),
		}
		if err := s.repos.Ratings.Upsert(ctx, rating); err != nil {
			result.fail("ratings", fmt.Errorf("%s: %w", name, err))
		} else {
			result.RatingsWritten++
			touched = true
		}
	}

	if len(platform.Reviews) > 0 {
		records := make([]*storage.ReviewRecord, 0, reviewCap)
		for _, review := range platform.Reviews {
			if len(records) == reviewCap {
				break
			}
			records = append(records, reviewRecord(productID, name, review))
		}
		if err := s.repos.Reviews.Insert(ctx, records); err != nil {
			result.fail("reviews", fmt.Errorf("%s: %w", name, err))
		} else {
			result.ReviewsWritten += len(records)
			touched = true
		}
	}

	if touched {
		result.PlatformsUpdated = append(result.PlatformsUpdated, name)
	}
}

// reviewRecord maps a snapshot review to a row. Influencer content uses
// creator/summary fields; they fall back into author/body.
func reviewRecord(productID uuid.UUID, retailer string, review snapshot.Review) *storage.ReviewRecord {
	author := review.Author
	if author == "" {
		author = review.Creator
	}
	body := review.Body
	if body == "" {
		body = review.Summary
	}
	return &storage.ReviewRecord{
		ProductID: productID,
		Retailer:  retailer,
		Author:    optional(author),
		Rating:    review.Rating,
		Title:     optional(review.Title),
		Body:      optional(body),
		PostedAt:  optional(review.Date),
		URL:       optional(review.URL),
	}
}

func (s *Store) storeEditorial(ctx context.Context, productID uuid.UUID, platform snapshot.Platform, result *StoreResult) {
	if len(platform.Quotes) == 0 {
		return
	}

	specs := make([]*storage.SpecRecord, 0, len(platform.Quotes))
	for _, quote := range platform.Quotes {
		value, err := json.Marshal(quote)
		if err != nil {
			continue
		}
		key := "editorial_quote_" + strings.ReplaceAll(strings.ToLower(quote.Outlet), " ", "_")
		specs = append(specs, &storage.SpecRecord{
			ProductID: productID,
			Key:       key,
			Value:     string(value),
			Source:    "editorial",
			URL:       optional(quote.URL),
		})
	}

	if err := s.repos.Specs.Insert(ctx, specs); err != nil {
		result.fail("specs", fmt.Errorf("editorial: %w", err))
		return
	}
	result.SpecsWritten += len(specs)
	result.PlatformsUpdated = append(result.PlatformsUpdated, "editorial")
}

// StoreSummary writes the specifications and the synthesized summary from a
// validated snapshot.
func (s *Store) StoreSummary(ctx context.Context, productID uuid.UUID, snap *snapshot.Snapshot, modelName, promptHash string, result *StoreResult) {
	specs := specRecords(productID, snap.Specifications)
	if len(specs) > 0 {
		if err := s.repos.Specs.Insert(ctx, specs); err != nil {
			result.fail("specs", err)
		} else {
			result.SpecsWritten += len(specs)
		}
	}

	summary := &storage.SummaryRecord{
		ProductID:  productID,
		Pros:       snap.SummarizedReview.Pros,
		Cons:       snap.SummarizedReview.Cons,
		Verdict:    optional(snap.SummarizedReview.Verdict),
		ModelName:  modelName,
		PromptHash: promptHash,
	}
	if len(snap.SummarizedReview.AspectScores) > 0 {
		if data, err := json.Marshal(snap.SummarizedReview.AspectScores); err == nil {
			summary.AspectScores = data
		}
	}
	if len(snap.Citations) > 0 {
		if data, err := json.Marshal(snap.Citations); err == nil {
			summary.Citations = data
		}
	}

	if err := s.repos.Summaries.Upsert(ctx, summary); err != nil {
		result.fail("summaries", err)
	} else {
		result.SummaryWritten = true
	}

	s.invalidate(ctx, productID)
}

// specRecords flattens the structured specifications into rows. Lists are
// stored as JSON arrays, scalars as plain text.
func specRecords(productID uuid.UUID, specs snapshot.Specifications) []*storage.SpecRecord {
	scalar := map[string]string{
		"size":           specs.Size,
		"form":           specs.Form,
		"finish_texture": specs.FinishTexture,
		"spf_pa":         specs.SPFPA,
		"usage":          specs.Usage,
	}
	list := map[string][]string{
		"skin_types":       specs.SkinTypes,
		"ingredients_inci": specs.IngredientsINCI,
		"certifications":   specs.Certifications,
		"awards":           specs.Awards,
	}

	var records []*storage.SpecRecord
	add := func(key, value string) {
		records = append(records, &storage.SpecRecord{
			ProductID: productID,
			Key:       key,
			Value:     value,
			Source:    "aggregated",
		})
	}

	for _, key := range []string{"size", "form", "finish_texture", "spf_pa", "usage"} {
		if v := strings.TrimSpace(scalar[key]); v != "" {
			add(key, v)
		}
	}
	for _, key := range []string{"skin_types", "ingredients_inci", "certifications", "awards"} {
		if v := list[key]; len(v) > 0 {
			if data, err := json.Marshal(v); err == nil {
				add(key, string(data))
			}
		}
	}
	if len(specs.CategorySpecific) > 0 {
		add("category_specific", string(specs.CategorySpecific))
	}

	return records
}

// PersistCategory writes a detected category back onto the catalog row.
func (s *Store) PersistCategory(ctx context.Context, productID uuid.UUID, cat category.Category) error {
	return s.repos.Products.UpdateCategory(ctx, productID, string(cat))
}

// invalidate drops any cached consolidated view of the product.
func (s *Store) invalidate(ctx context.Context, productID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, cache.ProductCacheKey(productID.String())); err != nil {
		s.logger.Warn().Err(err).Str("product_id", productID.String()).Msg("cache invalidation failed")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure Store satisfies the runner's seam.
var _ Consolidator = (*Store)(nil)
