// Package snapshot defines the validated product snapshot produced by an
// ingestion run, plus the validation that turns repaired model JSON into one.
package snapshot

import "encoding/json"

// Snapshot is the consolidated view of one product across every platform,
// ready for storage.
type Snapshot struct {
	ProductIdentity  Identity            `json:"product_identity"`
	Platforms        map[string]Platform `json:"platforms"`
	Specifications   Specifications      `json:"specifications"`
	SummarizedReview Summary             `json:"summarized_review"`
	Citations        map[string]string   `json:"citations"`
}

// Identity describes the product itself.
type Identity struct {
	Name     string   `json:"name"`
	Brand    string   `json:"brand"`
	Category string   `json:"category"`
	Images   []string `json:"images"`
}

// Platform holds everything collected from a single source. Retail platforms
// and the brand site populate price/rating/reviews; the editorial platform
// carries quotes; influencer platforms carry creator-style reviews.
type Platform struct {
	URL     string   `json:"url"`
	Price   *Price   `json:"price,omitempty"`
	Rating  *Rating  `json:"rating,omitempty"`
	Reviews []Review `json:"reviews,omitempty"`
	Quotes  []Quote  `json:"quotes,omitempty"`
	Summary string   `json:"summary,omitempty"`
}

// Price is a point-in-time offer.
type Price struct {
	Amount       *float64 `json:"amount"`
	Currency     string   `json:"currency"`
	UnitPrice    string   `json:"unit_price,omitempty"`
	Availability string   `json:"availability,omitempty"`
	Promo        string   `json:"promo,omitempty"`
}

// Rating is an aggregate customer rating with an optional star breakdown.
type Rating struct {
	Average   *float64       `json:"average"`
	Count     int            `json:"count"`
	Breakdown map[string]int `json:"breakdown,omitempty"`
}

// Review is a single piece of review content. Retail reviews fill
// author/title/body; influencer reviews fill creator/summary instead.
type Review struct {
	Author  string   `json:"author,omitempty"`
	Rating  *float64 `json:"rating,omitempty"`
	Title   string   `json:"title,omitempty"`
	Body    string   `json:"body,omitempty"`
	Date    string   `json:"date,omitempty"`
	URL     string   `json:"url,omitempty"`
	Creator string   `json:"creator,omitempty"`
	Summary string   `json:"summary,omitempty"`
}

// Quote is an editorial pull quote.
type Quote struct {
	Outlet string `json:"outlet"`
	Quote  string `json:"quote"`
	URL    string `json:"url,omitempty"`
}

// Specifications holds the product's technical attributes.
type Specifications struct {
	Size             string          `json:"size,omitempty"`
	Form             string          `json:"form,omitempty"`
	FinishTexture    string          `json:"finish_texture,omitempty"`
	SPFPA            string          `json:"spf_pa,omitempty"`
	SkinTypes        []string        `json:"skin_types,omitempty"`
	Usage            string          `json:"usage,omitempty"`
	IngredientsINCI  []string        `json:"ingredients_inci,omitempty"`
	Certifications   []string        `json:"certifications,omitempty"`
	Awards           []string        `json:"awards,omitempty"`
	CategorySpecific json.RawMessage `json:"category_specific,omitempty"`
}

// Summary is the synthesized cross-platform review.
type Summary struct {
	MasterSummary    string           `json:"master_summary,omitempty"`
	PlatformInsights PlatformInsights `json:"platform_insights,omitempty"`
	Pros             []string         `json:"pros,omitempty"`
	Cons             []string         `json:"cons,omitempty"`
	AspectScores     AspectScores     `json:"aspect_scores,omitempty"`
	Verdict          string           `json:"verdict"`
}

// PlatformInsights captures per-audience consensus lines.
type PlatformInsights struct {
	RetailConsensus     string `json:"retail_consensus,omitempty"`
	InfluencerConsensus string `json:"influencer_consensus,omitempty"`
	ExpertConsensus     string `json:"expert_consensus,omitempty"`
}

// AspectScores maps aspect name to a score in [0,1]. Category-aware runs nest
// extra aspects under category_aspects; UnmarshalJSON flattens them.
type AspectScores map[string]float64

// UnmarshalJSON accepts both the flat shape and the category-aware shape with
// a nested category_aspects object. Non-numeric values are dropped.
func (a *AspectScores) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(AspectScores, len(raw))
	for key, val := range raw {
		if key == "category_aspects" {
			var nested map[string]float64
			if err := json.Unmarshal(val, &nested); err == nil {
				for k, v := range nested {
					out[k] = v
				}
			}
			continue
		}
		var f float64
		if err := json.Unmarshal(val, &f); err == nil {
			out[key] = f
		}
	}

	*a = out
	return nil
}
