// Package category classifies beauty products into schema categories based on
// keyword evidence in their catalog metadata.
package category

import "strings"

// Category identifies a product family with its own extraction vocabulary.
type Category string

const (
	CategoryFragrance Category = "Fragrance"
	CategoryMakeup    Category = "Makeup"
	CategorySkincare  Category = "Skincare"
	CategoryTools     Category = "Tools"
	CategoryUnknown   Category = "Unknown"
)

// orderedCategories fixes the tie-break order: when two categories score the
// same, the one earlier in this list wins.
var orderedCategories = []Category{
	CategoryFragrance,
	CategoryMakeup,
	CategorySkincare,
	CategoryTools,
}

// keywords maps each category to the indicator terms counted during scoring.
var keywords = map[Category][]string{
	CategoryFragrance: {
		"perfume", "eau de parfum", "eau de toilette", "cologne", "fragrance", "scent",
	},
	CategoryMakeup: {
		"foundation", "lipstick", "mascara", "eyeshadow", "blush", "concealer",
		"powder", "makeup", "cosmetic",
	},
	CategorySkincare: {
		"serum", "moisturizer", "cleanser", "cream", "lotion", "essence",
		"toner", "treatment", "skincare",
	},
	CategoryTools: {
		"brush", "sponge", "curler", "applicator", "tool", "device", "blender",
	},
}

// Classify scores the concatenated name, brand, and description against each
// category's keyword list and returns the best match. Each keyword occurrence
// counts once per keyword. Returns CategoryUnknown when nothing matches, so
// callers can fall back to the generic extraction schema rather than guess.
func Classify(name, brand, description string) Category {
	text := strings.ToLower(name + " " + brand + " " + description)

	best := CategoryUnknown
	bestScore := 0
	for _, cat := range orderedCategories {
		score := 0
		for _, kw := range keywords[cat] {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}

	return best
}

// All returns the known categories in tie-break order, excluding Unknown.
func All() []Category {
	out := make([]Category, len(orderedCategories))
	copy(out, orderedCategories)
	return out
}
