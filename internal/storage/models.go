package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry eligible for ingestion.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Brand       string    `json:"brand" db:"brand"`
	Category    string    `json:"category" db:"category"`
	Description string    `json:"description,omitempty" db:"description"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Offer is the current price listing at one retailer. One row per
// (product, retailer); re-ingestion replaces it.
type Offer struct {
	ID            int64     `json:"id" db:"id"`
	ProductID     uuid.UUID `json:"product_id" db:"product_id"`
	Retailer      string    `json:"retailer" db:"retailer"`
	PriceAmount   *float64  `json:"price_amount" db:"price_amount"`
	PriceCurrency string    `json:"price_currency" db:"price_currency"`
	UnitPrice     *string   `json:"unit_price,omitempty" db:"unit_price"`
	Availability  *string   `json:"availability,omitempty" db:"availability"`
	Promo         *string   `json:"promo,omitempty" db:"promo"`
	URL           *string   `json:"url,omitempty" db:"url"`
	ScrapedAt     time.Time `json:"scraped_at" db:"scraped_at"`
}

// PriceHistoryPoint is one retailer's price on one UTC day. First write for a
// day wins; later writes for the same day are ignored.
type PriceHistoryPoint struct {
	ProductID     uuid.UUID `json:"product_id" db:"product_id"`
	Retailer      string    `json:"retailer" db:"retailer"`
	PriceAmount   float64   `json:"price_amount" db:"price_amount"`
	PriceCurrency string    `json:"price_currency" db:"price_currency"`
	URL           *string   `json:"url,omitempty" db:"url"`
	Day           time.Time `json:"day" db:"day"`
}

// RatingRecord is the aggregate customer rating at one retailer. One row per
// (product, retailer); re-ingestion replaces it.
type RatingRecord struct {
	ID        int64           `json:"id" db:"id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Retailer  string          `json:"retailer" db:"retailer"`
	Average   *float64        `json:"average" db:"average"`
	Count     int             `json:"count" db:"count"`
	Breakdown json.RawMessage `json:"breakdown,omitempty" db:"breakdown"`
	URL       *string         `json:"url,omitempty" db:"url"`
	ScrapedAt time.Time       `json:"scraped_at" db:"scraped_at"`
}

// ReviewRecord is one stored review. Rows are append-only: repeated runs add
// new rows rather than replacing old ones.
type ReviewRecord struct {
	ID         int64     `json:"id" db:"id"`
	ProductID  uuid.UUID `json:"product_id" db:"product_id"`
	Retailer   string    `json:"retailer" db:"retailer"`
	Author     *string   `json:"author,omitempty" db:"author"`
	Rating     *float64  `json:"rating,omitempty" db:"rating"`
	Title      *string   `json:"title,omitempty" db:"title"`
	Body       *string   `json:"body,omitempty" db:"body"`
	PostedAt   *string   `json:"posted_at,omitempty" db:"posted_at"`
	URL        *string   `json:"url,omitempty" db:"url"`
	InsertedAt time.Time `json:"inserted_at" db:"inserted_at"`
}

// SpecRecord is one technical attribute from one source. Append-only.
type SpecRecord struct {
	ID        int64     `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	Source    string    `json:"source" db:"source"`
	URL       *string   `json:"url,omitempty" db:"url"`
	ScrapedAt time.Time `json:"scraped_at" db:"scraped_at"`
}

// SummaryRecord is the synthesized cross-platform summary. Exactly one row
// per product; re-ingestion replaces it.
type SummaryRecord struct {
	ProductID    uuid.UUID       `json:"product_id" db:"product_id"`
	Pros         []string        `json:"pros" db:"pros"`
	Cons         []string        `json:"cons" db:"cons"`
	Verdict      *string         `json:"verdict" db:"verdict"`
	AspectScores json.RawMessage `json:"aspect_scores,omitempty" db:"aspect_scores"`
	Citations    json.RawMessage `json:"citations,omitempty" db:"citations"`
	ModelName    string          `json:"model_name" db:"model_name"`
	PromptHash   string          `json:"prompt_hash" db:"prompt_hash"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// ConsolidatedProduct is the full read model assembled for one product.
type ConsolidatedProduct struct {
	Product *Product                   `json:"product"`
	Offers  map[string]*Offer          `json:"offers"`
	Ratings map[string]*RatingRecord   `json:"ratings"`
	Reviews map[string][]*ReviewRecord `json:"reviews"`
	Specs   []*SpecRecord              `json:"specs"`
	Summary *SummaryRecord             `json:"summary,omitempty"`
}
