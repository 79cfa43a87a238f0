package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ConsolidatedRepository assembles the full read model for a product from the
// per-table repositories.
type ConsolidatedRepository struct {
	repos *Repositories
}

// NewConsolidatedRepository creates a consolidated reader over the bundle.
func NewConsolidatedRepository(repos *Repositories) *ConsolidatedRepository {
	return &ConsolidatedRepository{repos: repos}
}

// Get returns everything stored for one product. A missing product is
// ErrNotFound; missing sections (no summary yet, no offers yet) are simply
// empty.
func (r *ConsolidatedRepository) Get(ctx context.Context, productID uuid.UUID) (*ConsolidatedProduct, error) {
	product, err := r.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	offers, err := r.repos.Offers.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}

	ratings, err := r.repos.Ratings.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}

	reviews, err := r.repos.Reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	specs, err := r.repos.Specs.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list specs: %w", err)
	}

	summary, err := r.repos.Summaries.GetByProduct(ctx, productID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	return &ConsolidatedProduct{
		Product: product,
		Offers:  offers,
		Ratings: ratings,
		Reviews: reviews,
		Specs:   specs,
		Summary: summary,
	}, nil
}

// Compare returns the consolidated view for 2-4 products, preserving request
// order. Any unknown ID fails the whole comparison.
func (r *ConsolidatedRepository) Compare(ctx context.Context, productIDs []uuid.UUID) ([]*ConsolidatedProduct, error) {
	if len(productIDs) < 2 || len(productIDs) > 4 {
		return nil, fmt.Errorf("compare requires 2-4 products, got %d", len(productIDs))
	}

	out := make([]*ConsolidatedProduct, 0, len(productIDs))
	for _, id := range productIDs {
		cp, err := r.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", id, err)
		}
		out = append(out, cp)
	}
	return out, nil
}
