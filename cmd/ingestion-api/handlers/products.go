package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prism-beauty/ingestion-engine/internal/cache"
	"github.com/prism-beauty/ingestion-engine/internal/category"
	"github.com/prism-beauty/ingestion-engine/internal/observability"
	"github.com/prism-beauty/ingestion-engine/internal/storage"
)

// ProductHandler serves catalog and consolidated product reads.
type ProductHandler struct {
	logger       *observability.Logger
	repos        *storage.Repositories
	consolidated *storage.ConsolidatedRepository
	cache        cache.Client
	cacheTTL     time.Duration
}

// NewProductHandler creates a new product handler.
func NewProductHandler(logger *observability.Logger, repos *storage.Repositories, consolidated *storage.ConsolidatedRepository, cacheClient cache.Client, cacheTTL time.Duration) *ProductHandler {
	return &ProductHandler{
		logger:       logger,
		repos:        repos,
		consolidated: consolidated,
		cache:        cacheClient,
		cacheTTL:     cacheTTL,
	}
}

// List handles GET /api/v1/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.repos.Products.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list products failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"count":    len(products),
	})
}

// CreateProductDTO is the request body for product creation.
type CreateProductDTO struct {
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// Create handles POST /api/v1/products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateProductDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if dto.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", "")
		return
	}

	cat := dto.Category
	if cat == "" {
		cat = string(category.Classify(dto.Name, dto.Brand, dto.Description))
	}

	product := &storage.Product{
		Name:        dto.Name,
		Brand:       dto.Brand,
		Category:    cat,
		Description: dto.Description,
		ImageURL:    dto.ImageURL,
	}
	if err := h.repos.Products.Create(r.Context(), product); err != nil {
		writeError(w, http.StatusInternalServerError, "create product failed", err.Error())
		return
	}

	h.logger.Info().
		Str("product_id", product.ID.String()).
		Str("category", product.Category).
		Msg("Product created")

	writeJSON(w, http.StatusCreated, product)
}

// Get handles GET /api/v1/products/{productId}. Consolidated reads are served
// from cache when a fresh copy exists; ingestion invalidates on write.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid productId", err.Error())
		return
	}

	key := cache.ProductCacheKey(productID.String(), "consolidated")
	if cached, err := h.cache.Get(r.Context(), key); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "hit")
		w.Write(cached)
		return
	}

	product, err := h.consolidated.Get(r.Context(), productID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "get product failed", err.Error())
		return
	}

	payload, err := json.Marshal(product)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode product failed", err.Error())
		return
	}

	if err := h.cache.Set(r.Context(), key, payload, h.cacheTTL); err != nil {
		h.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "miss")
	w.Write(payload)
}

// PriceHistory handles GET /api/v1/products/{productId}/price-history.
// Optional query params: retailers (comma separated) and days.
func (h *ProductHandler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid productId", err.Error())
		return
	}

	var retailers []string
	if raw := r.URL.Query().Get("retailers"); raw != "" {
		for _, retailer := range strings.Split(raw, ",") {
			if retailer = strings.TrimSpace(retailer); retailer != "" {
				retailers = append(retailers, retailer)
			}
		}
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 0 {
			writeError(w, http.StatusBadRequest, "invalid days", raw)
			return
		}
	}

	points, err := h.repos.PriceHistory.List(r.Context(), productID, retailers, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "price history failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"product_id": productID.String(),
		"points":     points,
	})
}

// Compare handles GET /api/v1/compare?ids=a,b,c.
func (h *ProductHandler) Compare(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "ids is required", "")
		return
	}

	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid product id", part)
			return
		}
		ids = append(ids, id)
	}

	products, err := h.consolidated.Compare(r.Context(), ids)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found", "")
			return
		}
		writeError(w, http.StatusBadRequest, "compare failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"count":    len(products),
	})
}
