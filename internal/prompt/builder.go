// Package prompt builds the system and user messages sent to the language
// model for each ingestion chunk, along with the category vocabularies that
// shape them.
package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prism-beauty/ingestion-engine/internal/category"
)

// Kind identifies which slice of the source universe a prompt targets.
type Kind string

const (
	KindFull           Kind = "full"
	KindRetail         Kind = "retail"
	KindBrandEditorial Kind = "brand_editorial"
	KindInfluencer     Kind = "influencer"
	KindSummary        Kind = "summary"
)

// Platform groups. Each chunk prompt covers exactly one group; the summary
// chunk consumes the output of all of them.
var (
	RetailPlatforms         = []string{"amazon", "sephora", "ulta", "walmart", "nordstrom"}
	BrandEditorialPlatforms = []string{"brand_site", "editorial"}
	InfluencerPlatforms     = []string{"youtube", "instagram"}
)

// Prompt is a fully rendered model request.
type Prompt struct {
	Kind      Kind
	System    string
	User      string
	MaxTokens int
}

// Hash returns a stable hex digest of the rendered prompt, used to key debug
// artifacts and correlate log lines with upstream calls.
func (p Prompt) Hash() string {
	h := sha256.Sum256([]byte(p.System + "\n" + p.User))
	return hex.EncodeToString(h[:])
}

// Builder renders prompts with a shared token budget.
type Builder struct {
	maxTokens int
}

// NewBuilder creates a Builder. maxTokens applies to every rendered prompt.
func NewBuilder(maxTokens int) *Builder {
	if maxTokens <= 0 {
		maxTokens = 16384
	}
	return &Builder{maxTokens: maxTokens}
}

const fullSystem = `You are a cautious, citation-first web aggregator for beauty products. Use web search/browsing to collect PUBLIC data from: Amazon, Sephora, Ulta, Walmart, Nordstrom, the official brand site. For review text only, use Reddit and YouTube.

CRITICAL: Return ONLY one JSON object matching this EXACT schema:

{
  "product_identity": {"name": "string", "brand": "string", "category": "string", "images": ["url1", "url2"]},
  "platforms": {
    "amazon": {
      "url": "string",
      "price": {"amount": number, "currency": "USD", "unit_price": "string", "availability": "string", "promo": "string"},
      "rating": {"average": number, "count": number, "breakdown": {"5": number, "4": number, "3": number, "2": number, "1": number}},
      "reviews": [{"author": "string", "rating": number, "title": "string", "body": "string <=150 chars", "date": "string", "url": "string"}],
      "summary": "string <=100 chars - Platform sentiment summary"
    },
    "sephora": { /* same structure as amazon */ },
    "ulta": { /* same structure as amazon */ },
    "walmart": { /* same structure as amazon */ },
    "nordstrom": { /* same structure as amazon */ },
    "brand_site": { /* same structure as amazon */ },
    "editorial": {"quotes": [{"outlet": "string", "quote": "string <=25 words", "url": "string"}]},
    "youtube": {"reviews": [{"creator": "string", "channel": "string", "title": "string", "summary": "string <=100 chars", "rating": "string", "views": "string", "date": "string", "url": "string"}], "summary": "string <=100 chars"},
    "instagram": {"reviews": [{"creator": "string", "handle": "string", "post_type": "string", "summary": "string <=100 chars", "likes": "string", "date": "string", "url": "string"}], "summary": "string <=100 chars"}
  },
  "specifications": {"size": "string", "form": "string", "finish_texture": "string", "spf_pa": "string", "skin_types": ["string"], "usage": "string", "ingredients_inci": ["string"], "certifications": ["string"], "awards": ["string"]},
  "summarized_review": {
    "master_summary": "string <=300 chars synthesizing ALL platform insights",
    "platform_insights": {"retail_consensus": "string <=150 chars", "influencer_consensus": "string <=150 chars", "expert_consensus": "string <=150 chars"},
    "pros": ["pro1", "pro2", "pro3"],
    "cons": ["con1", "con2", "con3"],
    "aspect_scores": {"longevity": 0.0-1.0, "texture": 0.0-1.0, "irritation": 0.0-1.0, "value": 0.0-1.0},
    "verdict": "2-3 line summary"
  },
  "citations": {"Source Name": "https://url.com"}
}

CRITICAL REQUIREMENTS:
- Exact field names: "product_identity", "platforms" (not "product"/"retailers")
- Platform keys lowercase
- Generate COMPLETE JSON - do not truncate or stop before closing brace
- Use nulls for missing data, keep all fields
- USD currency only, no invented data
- Return pure JSON only (no markdown blocks)`

const retailSystem = `You are a beauty product retail specialist. Extract ONLY retail platform data.

CRITICAL: Return ONLY valid JSON. No markdown, no explanations, no code blocks.

REQUIRED OUTPUT FORMAT - Return ONLY this JSON structure:
{
  "platforms": {
    "amazon": {
      "url": "https://amazon.com/product-url",
      "price": {"amount": 25.99, "currency": "USD", "unit_price": "25.99/fl oz", "availability": "in_stock", "promo": "15% off"},
      "rating": {"average": 4.2, "count": 1250, "breakdown": {"5": 650, "4": 300, "3": 150, "2": 100, "1": 50}},
      "reviews": [{"author": "BeautyLover123", "rating": 5, "title": "Amazing product", "body": "...", "date": "2024-01-15", "url": "https://amazon.com/review/1"}],
      "summary": "Amazon customers love the coverage and longevity"
    },
    "sephora": { /* same structure */ },
    "ulta": { /* same structure */ },
    "walmart": { /* same structure */ },
    "nordstrom": { /* same structure */ }
  }
}

REQUIREMENTS:
- Search current web data for each platform
- Include 3-5 most helpful reviews per platform (body <=150 chars)
- Get current pricing with URLs and availability
- Focus ONLY on retail platforms
- Generate platform summary (<=100 chars) analyzing customer sentiment
- Return complete JSON - all 5 platforms required`

const brandEditorialSystem = `You are a beauty editorial specialist. Extract brand and editorial publication data.

CRITICAL: Return ONLY valid JSON. No markdown, no explanations, no code blocks.

REQUIRED OUTPUT FORMAT - Return ONLY this JSON structure:
{
  "platforms": {
    "brand_site": {
      "url": "https://brand-website.com/product",
      "price": {"amount": 29.99, "currency": "USD", "unit_price": "29.99/unit", "availability": "in_stock", "promo": "Free shipping"},
      "rating": {"average": 4.5, "count": 0, "breakdown": {"5": 0, "4": 0, "3": 0, "2": 0, "1": 0}},
      "reviews": [{"author": "Brand Team", "rating": 5, "title": "Product Claims", "body": "Clinically proven 24hr wear formula", "date": "2024-01-01", "url": "https://brand-website.com/product"}],
      "summary": "Brand emphasizes long-wear and skin benefits"
    },
    "editorial": {
      "quotes": [{"outlet": "Allure", "quote": "Best foundation for oily skin this year", "url": "https://allure.com/review-article"}],
      "summary": "Beauty editors praise natural coverage and wear time"
    }
  }
}

REQUIREMENTS:
- Search brand's official website for product info
- Find editorial reviews from major beauty publications
- Include 4-6 editorial quotes (<=25 words each)
- Get official brand pricing and claims
- Return complete JSON with both sections`

const influencerSystem = `You are a beauty influencer specialist. Extract influencer content from YouTube and Instagram.

CRITICAL: Return ONLY valid JSON. No markdown, no explanations, no code blocks.

REQUIRED OUTPUT FORMAT - Return ONLY this JSON structure:
{
  "platforms": {
    "youtube": {
      "reviews": [{"creator": "string", "channel": "string", "title": "string", "summary": "string <=100 chars", "rating": "8/10", "views": "2.5M", "date": "2024-01-10", "url": "https://youtube.com/watch?v=abc123"}],
      "summary": "YouTube creators praise coverage but note drying effect"
    },
    "instagram": {
      "reviews": [{"creator": "string", "handle": "@handle", "post_type": "Post", "summary": "string <=100 chars", "likes": "125K", "date": "2024-01-12", "url": "https://instagram.com/p/abc123"}],
      "summary": "Instagram influencers love the shade range and finish"
    }
  }
}

REQUIREMENTS:
- Search YouTube for beauty influencer reviews
- Search Instagram for influencer posts and stories
- Focus on macro influencers (500K+ followers)
- Include 3-5 top reviews per platform
- Return complete JSON with both platforms`

const summarySystem = `You are a beauty product analysis expert. Generate comprehensive summaries from provided data.

CRITICAL: Return ONLY valid JSON. No markdown, no explanations, no code blocks.

REQUIRED OUTPUT FORMAT - Return ONLY this JSON structure:
{
  "product_identity": {"name": "Product Name", "brand": "Brand Name", "category": "Foundation", "images": ["https://image1.com/product.jpg"]},
  "specifications": {"size": "1.0 fl oz", "form": "Liquid", "finish_texture": "Matte", "spf_pa": "SPF 15", "skin_types": ["oily"], "usage": "Apply with brush or sponge", "ingredients_inci": ["Water"], "certifications": ["Cruelty-free"], "awards": ["Allure Best of Beauty 2024"]},
  "summarized_review": {
    "master_summary": "Comprehensive summary synthesizing ALL platform insights",
    "platform_insights": {"retail_consensus": "string", "influencer_consensus": "string", "expert_consensus": "string"},
    "pros": ["Long-lasting wear", "Excellent coverage", "Great shade range"],
    "cons": ["Can be drying", "Expensive", "Limited availability"],
    "aspect_scores": {"longevity": 0.85, "texture": 0.92, "irritation": 0.15, "value": 0.78},
    "verdict": "2-3 line summary considering all perspectives"
  },
  "citations": {"Amazon": "https://amazon.com/product-page"}
}

REQUIREMENTS:
- Analyze ALL provided platform data comprehensively
- Generate balanced pros/cons from all sources
- Create master summary synthesizing retail + influencer + editorial insights
- Calculate aspect scores based on actual feedback patterns
- Return complete JSON structure`

// Full renders the single-shot aggregation prompt covering every platform.
func (b *Builder) Full(name, brand string) Prompt {
	var sb strings.Builder
	sb.WriteString("TASK: Search and aggregate live data for this beauty product.\n\n")
	sb.WriteString("PRODUCT: " + name)
	if brand != "" {
		sb.WriteString(" " + brand)
	}
	sb.WriteString("\nREGION: United States (USD pricing)\n\n")
	sb.WriteString("PLATFORMS TO SEARCH:\n")
	for _, p := range RetailPlatforms {
		sb.WriteString(fmt.Sprintf("- %s.com (search: %q)\n", p, name))
	}
	sb.WriteString("\nAlso collect the official brand site, editorial quotes from major beauty publications, and influencer reviews from YouTube and Instagram.\n")
	sb.WriteString("Return the complete JSON object described in the system message.")

	return Prompt{Kind: KindFull, System: fullSystem, User: sb.String(), MaxTokens: b.maxTokens}
}

// Retail renders the retail platform group prompt. A known category narrows
// the specification focus; Unknown keeps the generic framing.
func (b *Builder) Retail(name string, cat category.Category) Prompt {
	system := retailSystem
	if cat != category.CategoryUnknown {
		v := VocabFor(cat)
		focus := strings.Join(v.Specs[:min(4, len(v.Specs))], ", ")
		system += "\n\nCATEGORY-SPECIFIC APPROACH:\n" +
			"- Product Category: " + string(cat) + "\n" +
			"- Focus on relevant specs: " + focus + "\n" +
			"- Ignore irrelevant specifications for this category"
	}

	user := fmt.Sprintf(`Get current retail data for: %s

Search these retail platforms:
1. Amazon.com - pricing, customer reviews, ratings
2. Sephora.com - pricing, customer reviews, ratings
3. Ulta.com - pricing, customer reviews, ratings
4. Walmart.com - pricing, customer reviews, ratings
5. Nordstrom.com - pricing, customer reviews, ratings

For each platform:
- Find the exact product page
- Get current price and availability
- Extract 3-5 most helpful customer reviews
- Analyze overall customer sentiment

Return complete JSON with all 5 retail platforms.`, name)

	return Prompt{Kind: KindRetail, System: system, User: user, MaxTokens: b.maxTokens}
}

// BrandEditorial renders the brand site and editorial publication prompt.
func (b *Builder) BrandEditorial(name string) Prompt {
	user := fmt.Sprintf(`Get brand and editorial data for: %s

Search for:
1. BRAND WEBSITE - official product page with pricing, claims, descriptions
2. EDITORIAL CONTENT - beauty magazine reviews from Allure, Vogue, Elle, Harper's Bazaar, Cosmopolitan, Refinery29, Into The Gloss

Extract:
- Official brand pricing and product claims
- Editorial quotes and reviews from beauty experts
- Publication ratings and recommendations

Return complete JSON with brand and editorial data.`, name)

	return Prompt{Kind: KindBrandEditorial, System: brandEditorialSystem, User: user, MaxTokens: b.maxTokens}
}

// Influencer renders the YouTube and Instagram prompt.
func (b *Builder) Influencer(name string) Prompt {
	user := fmt.Sprintf(`Get influencer content for: %s

Search for reviews from TOP beauty influencers on YouTube (review videos with ratings and opinions) and Instagram (posts, stories, mentions).

Return complete JSON with YouTube and Instagram data.`, name)

	return Prompt{Kind: KindInfluencer, System: influencerSystem, User: user, MaxTokens: b.maxTokens}
}

// Summary renders the analysis prompt over everything the platform chunks
// collected. collected maps chunk kind to the raw merged JSON for that chunk;
// it is embedded truncated, the model only needs representative context.
func (b *Builder) Summary(name string, cat category.Category, collected map[Kind]json.RawMessage) Prompt {
	system := summarySystem
	if cat != category.CategoryUnknown {
		v := VocabFor(cat)
		system += "\n\nCATEGORY-SPECIFIC ANALYSIS for " + string(cat) + ":\n" +
			"- Relevant aspects to score: " + strings.Join(v.Aspects, ", ") + "\n" +
			"- Key specifications to extract: " + strings.Join(v.Specs[:min(4, len(v.Specs))], ", ") + "\n" +
			"- Ignore aspects not applicable to " + string(cat) + " products"
	}

	context := renderCollected(collected)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Analyze all collected data for %s and generate comprehensive summaries.\n\n", name))
	sb.WriteString("FULL DATA FOR ANALYSIS:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nGenerate:\n")
	sb.WriteString("1. PRODUCT IDENTITY - name, brand, category, image URLs\n")
	sb.WriteString("2. SPECIFICATIONS - technical details from all sources\n")
	sb.WriteString("3. MASTER SUMMARY - synthesize ALL platform insights\n")
	sb.WriteString("4. PLATFORM INSIGHTS - retail, influencer, and expert consensus\n")
	sb.WriteString("5. BALANCED ANALYSIS - pros, cons, aspect scores (0.0-1.0), overall verdict\n")
	sb.WriteString("6. CITATIONS - mapping source names to URLs\n\n")
	sb.WriteString("Return complete JSON with all analysis sections.")

	return Prompt{Kind: KindSummary, System: system, User: sb.String(), MaxTokens: b.maxTokens}
}

// contextBudget caps how much collected chunk data the summary prompt embeds.
const contextBudget = 4000

func renderCollected(collected map[Kind]json.RawMessage) string {
	ordered := []Kind{KindRetail, KindBrandEditorial, KindInfluencer}
	var sb strings.Builder
	for _, k := range ordered {
		raw, ok := collected[k]
		if !ok || len(raw) == 0 {
			continue
		}
		sb.WriteString(string(k) + ": ")
		sb.Write(raw)
		sb.WriteString("\n")
	}
	s := sb.String()
	if len(s) > contextBudget {
		s = s[:contextBudget] + "..."
	}
	return s
}
