// Package handlers provides HTTP handlers for the screener endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/modules/screener"
)

// Handler provides HTTP handlers for scan results
type Handler struct {
	service *screener.Service
	log     zerolog.Logger
}

// NewHandler creates a new screener handler
func NewHandler(service *screener.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "screener").Logger(),
	}
}

// RegisterRoutes registers all screener routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/opportunities", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/summary", h.HandleSummary)
		r.Post("/scan", h.HandleScan)
	})
}

// HandleList handles GET /api/opportunities?sort=&direction=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	sortField := r.URL.Query().Get("sort")
	direction := screener.SortDirection(r.URL.Query().Get("direction"))

	opps := h.service.Opportunities(sortField, direction)

	writeJSON(w, h.log, map[string]any{
		"opportunities": opps,
		"count":         len(opps),
	})
}

// HandleSummary handles GET /api/opportunities/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, takenAt := h.service.Summary()

	resp := struct {
		screener.ScanSummary
		TakenAt *time.Time `json:"taken_at,omitempty"`
	}{ScanSummary: summary}
	if !takenAt.IsZero() {
		resp.TakenAt = &takenAt
	}

	writeJSON(w, h.log, resp)
}

// HandleScan handles POST /api/opportunities/scan - triggers a feed refresh
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Refresh(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Scan refresh failed")
		http.Error(w, "Failed to refresh scan", http.StatusBadGateway)
		return
	}

	writeJSON(w, h.log, map[string]any{"status": "ok", "count": count})
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
