package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-beauty/ingestion-engine/internal/category"
)

func TestBuilder_Full(t *testing.T) {
	b := NewBuilder(8192)
	p := b.Full("Radiant Serum", "Glow Labs")

	assert.Equal(t, KindFull, p.Kind)
	assert.Equal(t, 8192, p.MaxTokens)
	assert.Contains(t, p.User, "Radiant Serum")
	assert.Contains(t, p.User, "Glow Labs")
	for _, platform := range RetailPlatforms {
		assert.Contains(t, p.User, platform)
	}
	assert.Contains(t, p.System, "product_identity")
	assert.Contains(t, p.System, "summarized_review")
}

func TestBuilder_FullWithoutBrand(t *testing.T) {
	p := NewBuilder(0).Full("Radiant Serum", "")
	assert.Contains(t, p.User, "Radiant Serum")
	assert.Equal(t, 16384, p.MaxTokens)
}

func TestBuilder_RetailGeneric(t *testing.T) {
	p := NewBuilder(0).Retail("Radiant Serum", category.CategoryUnknown)

	assert.Equal(t, KindRetail, p.Kind)
	assert.NotContains(t, p.System, "CATEGORY-SPECIFIC")
	assert.Contains(t, p.User, "Amazon.com")
	assert.Contains(t, p.User, "Nordstrom.com")
}

func TestBuilder_RetailCategoryAware(t *testing.T) {
	p := NewBuilder(0).Retail("Midnight Perfume", category.CategoryFragrance)

	assert.Contains(t, p.System, "CATEGORY-SPECIFIC")
	assert.Contains(t, p.System, "Fragrance")
	assert.Contains(t, p.System, "fragrance_notes")
}

func TestBuilder_Summary(t *testing.T) {
	collected := map[Kind]json.RawMessage{
		KindRetail:     json.RawMessage(`{"platforms":{"amazon":{}}}`),
		KindInfluencer: json.RawMessage(`{"platforms":{"youtube":{}}}`),
	}
	p := NewBuilder(0).Summary("Radiant Serum", category.CategorySkincare, collected)

	assert.Equal(t, KindSummary, p.Kind)
	assert.Contains(t, p.User, "amazon")
	assert.Contains(t, p.User, "youtube")
	assert.Contains(t, p.System, "Skincare")
	assert.Contains(t, p.System, "effectiveness")
}

func TestBuilder_SummaryTruncatesContext(t *testing.T) {
	big := `{"platforms":{"amazon":{"filler":"` + strings.Repeat("x", contextBudget*2) + `"}}}`
	collected := map[Kind]json.RawMessage{KindRetail: json.RawMessage(big)}

	p := NewBuilder(0).Summary("Radiant Serum", category.CategoryUnknown, collected)
	assert.Less(t, len(p.User), contextBudget+1000)
}

func TestPrompt_Hash(t *testing.T) {
	b := NewBuilder(0)
	p1 := b.Retail("Radiant Serum", category.CategoryUnknown)
	p2 := b.Retail("Radiant Serum", category.CategoryUnknown)
	p3 := b.Retail("Other Product", category.CategoryUnknown)

	require.Len(t, p1.Hash(), 64)
	assert.Equal(t, p1.Hash(), p2.Hash())
	assert.NotEqual(t, p1.Hash(), p3.Hash())
}
