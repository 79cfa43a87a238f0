// Package handlers provides HTTP handlers for the ingestion API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prism-beauty/ingestion-engine/internal/ingest"
	"github.com/prism-beauty/ingestion-engine/internal/observability"
	"github.com/prism-beauty/ingestion-engine/internal/storage"
)

// IngestionHandler handles ingestion run requests.
type IngestionHandler struct {
	logger          *observability.Logger
	service         *ingest.Service
	defaultStrategy string
}

// NewIngestionHandler creates a new ingestion handler.
func NewIngestionHandler(logger *observability.Logger, service *ingest.Service, defaultStrategy string) *IngestionHandler {
	return &IngestionHandler{
		logger:          logger,
		service:         service,
		defaultStrategy: defaultStrategy,
	}
}

// Ingest handles POST /api/v1/ingest/{productId}?strategy=.
func (h *IngestionHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid productId", err.Error())
		return
	}

	strategy, err := h.parseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid strategy", err.Error())
		return
	}

	h.logger.Info().
		Str("product_id", productID.String()).
		Str("strategy", string(strategy)).
		Msg("Starting ingestion")

	result, err := h.service.IngestProduct(r.Context(), productID, strategy)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// IngestAll handles POST /api/v1/ingest-all?strategy=.
func (h *IngestionHandler) IngestAll(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.parseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid strategy", err.Error())
		return
	}

	batch, err := h.service.IngestAll(r.Context(), strategy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "batch ingestion failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, batch)
}

// Benchmark handles POST /api/v1/benchmark/{productId}?a=&b=.
func (h *IngestionHandler) Benchmark(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid productId", err.Error())
		return
	}

	aRaw := r.URL.Query().Get("a")
	bRaw := r.URL.Query().Get("b")
	if bRaw == "" {
		bRaw = string(ingest.StrategyParallel)
	}

	a, err := ingest.ParseStrategy(aRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid strategy a", err.Error())
		return
	}
	b, err := ingest.ParseStrategy(bRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid strategy b", err.Error())
		return
	}

	report, err := h.service.Benchmark(r.Context(), productID, a, b)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Active handles GET /api/v1/ingest/active.
func (h *IngestionHandler) Active(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active": h.service.Active(),
	})
}

func (h *IngestionHandler) parseStrategy(raw string) (ingest.Strategy, error) {
	if raw == "" {
		raw = h.defaultStrategy
	}
	return ingest.ParseStrategy(raw)
}

func (h *IngestionHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found", err.Error())
	case errors.Is(err, ingest.ErrAlreadyIngesting):
		writeError(w, http.StatusConflict, "ingestion already in progress", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "ingestion failed", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{"error": message}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
