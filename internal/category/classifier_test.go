package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Fragrance(t *testing.T) {
	got := Classify("Bloom Eau de Parfum", "Gucci", "A floral scent with tuberose and jasmine")
	assert.Equal(t, CategoryFragrance, got)
}

func TestClassify_Makeup(t *testing.T) {
	got := Classify("Pro Filt'r Soft Matte Foundation", "Fenty Beauty", "Longwear liquid foundation with buildable coverage")
	assert.Equal(t, CategoryMakeup, got)
}

func TestClassify_Skincare(t *testing.T) {
	got := Classify("Niacinamide 10% + Zinc 1%", "The Ordinary", "A high-strength serum for blemish-prone skin")
	assert.Equal(t, CategorySkincare, got)
}

func TestClassify_Tools(t *testing.T) {
	got := Classify("Original Beauty Blender", "beautyblender", "The iconic makeup sponge applicator")
	// "makeup" and "cosmetic" hit once; sponge, applicator, blender hit three times.
	assert.Equal(t, CategoryTools, got)
}

func TestClassify_UnknownWhenNoKeywordsMatch(t *testing.T) {
	got := Classify("Gift Card", "Prism", "Redeemable for any purchase")
	assert.Equal(t, CategoryUnknown, got)
}

func TestClassify_TieBreaksByEnumerationOrder(t *testing.T) {
	// One fragrance keyword and one skincare keyword: Fragrance enumerates first.
	got := Classify("Scent Cream", "", "")
	assert.Equal(t, CategoryFragrance, got)
}

func TestClassify_CaseInsensitive(t *testing.T) {
	got := Classify("EAU DE TOILETTE SPRAY", "", "")
	assert.Equal(t, CategoryFragrance, got)
}

func TestClassify_EmptyInput(t *testing.T) {
	assert.Equal(t, CategoryUnknown, Classify("", "", ""))
}

func TestAll_StableOrder(t *testing.T) {
	cats := All()
	assert.Equal(t, []Category{CategoryFragrance, CategoryMakeup, CategorySkincare, CategoryTools}, cats)
}
