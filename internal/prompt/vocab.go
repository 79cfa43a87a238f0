package prompt

import "github.com/prism-beauty/ingestion-engine/internal/category"

// Vocab is the closed extraction vocabulary for a product category: which
// specification keys and which scored aspects the model is asked for.
type Vocab struct {
	Specs       []string
	Aspects     []string
	Description string
}

// FallbackAspects is the generic aspect set used when the category is unknown.
var FallbackAspects = []string{"longevity", "texture", "irritation", "value"}

var vocabs = map[category.Category]Vocab{
	category.CategoryFragrance: {
		Specs: []string{
			"fragrance_notes", "concentration", "longevity_hours",
			"sillage_rating", "season_suitability", "occasion_suitability",
		},
		Aspects: []string{
			"longevity", "sillage", "uniqueness", "versatility", "value_for_money",
		},
		Description: "perfume, cologne, or fragrance product",
	},
	category.CategoryMakeup: {
		Specs: []string{
			"coverage_level", "finish_type", "shade_range",
			"undertones", "application_method", "skin_type_suitability",
		},
		Aspects: []string{
			"coverage", "blendability", "longevity", "color_accuracy",
			"ease_of_application", "value_for_money",
		},
		Description: "makeup, cosmetics, color cosmetics, foundation, lipstick, mascara, blush, eyeshadow",
	},
	category.CategorySkincare: {
		Specs: []string{
			"skin_concerns", "active_ingredients", "ph_level",
			"texture_type", "skin_type_suitability", "usage_frequency",
		},
		Aspects: []string{
			"effectiveness", "gentleness", "absorption", "hydration",
			"non_comedogenic", "value_for_money",
		},
		Description: "skincare, serum, moisturizer, cleanser, toner, essence, cream, lotion, treatment",
	},
	category.CategoryTools: {
		Specs: []string{
			"material", "bristle_type", "handle_design",
			"cleaning_ease", "durability_rating", "ergonomics",
		},
		Aspects: []string{
			"durability", "ease_of_use", "effectiveness", "ergonomics",
			"cleaning_ease", "value_for_money",
		},
		Description: "beauty tools, brushes, sponges, curlers, applicators, devices",
	},
}

// VocabFor returns the extraction vocabulary for a category. Unknown (or any
// unmapped) category degrades to a generic vocabulary built around
// FallbackAspects so ingestion still proceeds with the base schema.
func VocabFor(cat category.Category) Vocab {
	if v, ok := vocabs[cat]; ok {
		return v
	}
	return Vocab{
		Specs:       []string{"size", "form", "finish_texture", "usage"},
		Aspects:     FallbackAspects,
		Description: "beauty product",
	}
}

// AllowedAspects returns the closed aspect key set the validator accepts for a
// category. Fallback aspects are always allowed so summary chunks produced
// with the generic schema survive category-aware validation.
func AllowedAspects(cat category.Category) map[string]bool {
	allowed := make(map[string]bool)
	for _, a := range FallbackAspects {
		allowed[a] = true
	}
	for _, a := range VocabFor(cat).Aspects {
		allowed[a] = true
	}
	allowed["overall_satisfaction"] = true
	return allowed
}
