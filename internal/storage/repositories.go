// Package storage provides database models and repositories for the
// ingestion engine.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ProductRepository handles product catalog operations.
type ProductRepository struct {
	db DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a new product.
func (r *ProductRepository) Create(ctx context.Context, product *Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	query := `
		INSERT INTO products (id, name, brand, category, description, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		product.ID, product.Name, product.Brand, product.Category,
		product.Description, product.ImageURL, product.CreatedAt, product.UpdatedAt,
	)
	return err
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `
		SELECT id, name, brand, category, description, image_url, created_at, updated_at
		FROM products WHERE id = $1
	`
	product := &Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID, &product.Name, &product.Brand, &product.Category,
		&product.Description, &product.ImageURL, &product.CreatedAt, &product.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return product, err
}

// List returns the full product catalog ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]*Product, error) {
	query := `
		SELECT id, name, brand, category, description, image_url, created_at, updated_at
		FROM products ORDER BY name ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		product := &Product{}
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Brand, &product.Category,
			&product.Description, &product.ImageURL, &product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// UpdateCategory persists a detected category back onto the catalog row.
func (r *ProductRepository) UpdateCategory(ctx context.Context, id uuid.UUID, cat string) error {
	query := `UPDATE products SET category = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, cat)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// OfferRepository handles current price listings.
type OfferRepository struct {
	db DB
}

// NewOfferRepository creates a new offer repository.
func NewOfferRepository(db DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// Upsert writes the current offer for (product, retailer), replacing any
// previous row for the pair.
func (r *OfferRepository) Upsert(ctx context.Context, offer *Offer) error {
	query := `
		INSERT INTO offers (product_id, retailer, price_amount, price_currency,
			unit_price, availability, promo, url, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (product_id, retailer)
		DO UPDATE SET
			price_amount = EXCLUDED.price_amount,
			price_currency = EXCLUDED.price_currency,
			unit_price = EXCLUDED.unit_price,
			availability = EXCLUDED.availability,
			promo = EXCLUDED.promo,
			url = EXCLUDED.url,
			scraped_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		offer.ProductID, offer.Retailer, offer.PriceAmount, offer.PriceCurrency,
		offer.UnitPrice, offer.Availability, offer.Promo, offer.URL,
	)
	return err
}

// ListByProduct returns all current offers for a product keyed by retailer.
func (r *OfferRepository) ListByProduct(ctx context.Context, productID uuid.UUID) (map[string]*Offer, error) {
	query := `
		SELECT id, product_id, retailer, price_amount, price_currency,
			unit_price, availability, promo, url, scraped_at
		FROM offers WHERE product_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offers := make(map[string]*Offer)
	for rows.Next() {
		offer := &Offer{}
		if err := rows.Scan(
			&offer.ID, &offer.ProductID, &offer.Retailer, &offer.PriceAmount,
			&offer.PriceCurrency, &offer.UnitPrice, &offer.Availability,
			&offer.Promo, &offer.URL, &offer.ScrapedAt,
		); err != nil {
			return nil, err
		}
		offers[offer.Retailer] = offer
	}
	return offers, rows.Err()
}

// PriceHistoryRepository handles the daily price timeline.
type PriceHistoryRepository struct {
	db DB
}

// NewPriceHistoryRepository creates a new price history repository.
func NewPriceHistoryRepository(db DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

// Record captures today's price for (product, retailer). The first write for
// a UTC day wins; re-running ingestion the same day is a no-op.
func (r *PriceHistoryRepository) Record(ctx context.Context, point *PriceHistoryPoint) error {
	query := `
		INSERT INTO price_history (product_id, retailer, price_amount, price_currency, url, day)
		VALUES ($1, $2, $3, $4, $5, (NOW() AT TIME ZONE 'UTC')::date)
		ON CONFLICT (product_id, retailer, day) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		point.ProductID, point.Retailer, point.PriceAmount, point.PriceCurrency, point.URL,
	)
	return err
}

// List returns history points for a product, optionally filtered by retailer,
// covering the last `days` days.
func (r *PriceHistoryRepository) List(ctx context.Context, productID uuid.UUID, retailers []string, days int) ([]*PriceHistoryPoint, error) {
	if days <= 0 {
		days = 90
	}

	query := `
		SELECT product_id, retailer, price_amount, price_currency, url, day
		FROM price_history
		WHERE product_id = $1 AND day >= (NOW() AT TIME ZONE 'UTC')::date - $2::int
	`
	args := []interface{}{productID, days}
	if len(retailers) > 0 {
		query += fmt.Sprintf(" AND retailer = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(retailers))
	}
	query += " ORDER BY day ASC, retailer ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []*PriceHistoryPoint
	for rows.Next() {
		point := &PriceHistoryPoint{}
		if err := rows.Scan(
			&point.ProductID, &point.Retailer, &point.PriceAmount,
			&point.PriceCurrency, &point.URL, &point.Day,
		); err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

// RatingRepository handles aggregate retailer ratings.
type RatingRepository struct {
	db DB
}

// NewRatingRepository creates a new rating repository.
func NewRatingRepository(db DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert writes the aggregate rating for (product, retailer), replacing any
// previous row for the pair.
func (r *RatingRepository) Upsert(ctx context.Context, rating *RatingRecord) error {
	query := `
		INSERT INTO ratings (product_id, retailer, average, count, breakdown, url, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (product_id, retailer)
		DO UPDATE SET
			average = EXCLUDED.average,
			count = EXCLUDED.count,
			breakdown = EXCLUDED.breakdown,
			url = EXCLUDED.url,
			scraped_at = NOW()
	`
	var breakdown interface{}
	if len(rating.Breakdown) > 0 {
		breakdown = []byte(rating.Breakdown)
	}
	_, err := r.db.ExecContext(ctx, query,
		rating.ProductID, rating.Retailer, rating.Average, rating.Count,
		breakdown, rating.URL,
	)
	return err
}

// ListByProduct returns all ratings for a product keyed by retailer.
func (r *RatingRepository) ListByProduct(ctx context.Context, productID uuid.UUID) (map[string]*RatingRecord, error) {
	query := `
		SELECT id, product_id, retailer, average, count, breakdown, url, scraped_at
		FROM ratings WHERE product_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make(map[string]*RatingRecord)
	for rows.Next() {
		rating := &RatingRecord{}
		if err := rows.Scan(
			&rating.ID, &rating.ProductID, &rating.Retailer, &rating.Average,
			&rating.Count, &rating.Breakdown, &rating.URL, &rating.ScrapedAt,
		); err != nil {
			return nil, err
		}
		ratings[rating.Retailer] = rating
	}
	return ratings, rows.Err()
}

// ReviewRepository handles review content. Inserts are append-only.
type ReviewRepository struct {
	db DB
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Insert appends reviews. No dedup across runs: the table is an audit trail
// of what each ingestion observed.
func (r *ReviewRepository) Insert(ctx context.Context, reviews []*ReviewRecord) error {
	query := `
		INSERT INTO reviews (product_id, retailer, author, rating, title, body, posted_at, url, inserted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	for _, review := range reviews {
		if _, err := r.db.ExecContext(ctx, query,
			review.ProductID, review.Retailer, review.Author, review.Rating,
			review.Title, review.Body, review.PostedAt, review.URL,
		); err != nil {
			return fmt.Errorf("insert review for %s: %w", review.Retailer, err)
		}
	}
	return nil
}

// ListByProduct returns reviews grouped by retailer, oldest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) (map[string][]*ReviewRecord, error) {
	query := `
		SELECT id, product_id, retailer, author, rating, title, body, posted_at, url, inserted_at
		FROM reviews WHERE product_id = $1 ORDER BY retailer, inserted_at
	`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make(map[string][]*ReviewRecord)
	for rows.Next() {
		review := &ReviewRecord{}
		if err := rows.Scan(
			&review.ID, &review.ProductID, &review.Retailer, &review.Author,
			&review.Rating, &review.Title, &review.Body, &review.PostedAt,
			&review.URL, &review.InsertedAt,
		); err != nil {
			return nil, err
		}
		reviews[review.Retailer] = append(reviews[review.Retailer], review)
	}
	return reviews, rows.Err()
}

// SpecRepository handles technical attributes. Inserts are append-only.
type SpecRepository struct {
	db DB
}

// NewSpecRepository creates a new spec repository.
func NewSpecRepository(db DB) *SpecRepository {
	return &SpecRepository{db: db}
}

// Insert appends spec rows. Like reviews, no dedup across runs.
func (r *SpecRepository) Insert(ctx context.Context, specs []*SpecRecord) error {
	query := `
		INSERT INTO specs (product_id, key, value, source, url, scraped_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	for _, spec := range specs {
		if _, err := r.db.ExecContext(ctx, query,
			spec.ProductID, spec.Key, spec.Value, spec.Source, spec.URL,
		); err != nil {
			return fmt.Errorf("insert spec %s: %w", spec.Key, err)
		}
	}
	return nil
}

// ListByProduct returns all spec rows for a product.
func (r *SpecRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*SpecRecord, error) {
	query := `
		SELECT id, product_id, key, value, source, url, scraped_at
		FROM specs WHERE product_id = $1 ORDER BY key, scraped_at
	`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specs []*SpecRecord
	for rows.Next() {
		spec := &SpecRecord{}
		if err := rows.Scan(
			&spec.ID, &spec.ProductID, &spec.Key, &spec.Value,
			&spec.Source, &spec.URL, &spec.ScrapedAt,
		); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

// SummaryRepository handles the per-product synthesized summary.
type SummaryRepository struct {
	db DB
}

// NewSummaryRepository creates a new summary repository.
func NewSummaryRepository(db DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Upsert replaces the single summary row for the product.
func (r *SummaryRepository) Upsert(ctx context.Context, summary *SummaryRecord) error {
	query := `
		INSERT INTO summaries (product_id, pros, cons, verdict, aspect_scores,
			citations, model_name, prompt_hash, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (product_id)
		DO UPDATE SET
			pros = EXCLUDED.pros,
			cons = EXCLUDED.cons,
			verdict = EXCLUDED.verdict,
			aspect_scores = EXCLUDED.aspect_scores,
			citations = EXCLUDED.citations,
			model_name = EXCLUDED.model_name,
			prompt_hash = EXCLUDED.prompt_hash,
			updated_at = NOW()
	`
	var aspectScores, citations interface{}
	if len(summary.AspectScores) > 0 {
		aspectScores = []byte(summary.AspectScores)
	}
	if len(summary.Citations) > 0 {
		citations = []byte(summary.Citations)
	}
	_, err := r.db.ExecContext(ctx, query,
		summary.ProductID, pq.Array(summary.Pros), pq.Array(summary.Cons),
		summary.Verdict, aspectScores, citations, summary.ModelName, summary.PromptHash,
	)
	return err
}

// GetByProduct returns the summary for a product.
func (r *SummaryRepository) GetByProduct(ctx context.Context, productID uuid.UUID) (*SummaryRecord, error) {
	query := `
		SELECT product_id, pros, cons, verdict, aspect_scores, citations,
			model_name, prompt_hash, updated_at
		FROM summaries WHERE product_id = $1
	`
	summary := &SummaryRecord{}
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&summary.ProductID, pq.Array(&summary.Pros), pq.Array(&summary.Cons),
		&summary.Verdict, &summary.AspectScores, &summary.Citations,
		&summary.ModelName, &summary.PromptHash, &summary.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return summary, err
}

// Repositories bundles all repositories for dependency injection.
type Repositories struct {
	Products     *ProductRepository
	Offers       *OfferRepository
	PriceHistory *PriceHistoryRepository
	Ratings      *RatingRepository
	Reviews      *ReviewRepository
	Specs        *SpecRepository
	Summaries    *SummaryRepository
}

// NewRepositories creates all repositories sharing the given connection.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Products:     NewProductRepository(db),
		Offers:       NewOfferRepository(db),
		PriceHistory: NewPriceHistoryRepository(db),
		Ratings:      NewRatingRepository(db),
		Reviews:      NewReviewRepository(db),
		Specs:        NewSpecRepository(db),
		Summaries:    NewSummaryRepository(db),
	}
}
