// Package handlers provides HTTP handlers for the position book.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/modules/portfolio"
)

// Handler provides HTTP handlers for portfolio endpoints
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/positions", h.HandleListPositions)
		r.Post("/positions", h.HandleImport)
		r.Delete("/positions/{id}", h.HandleDeletePosition)
	})
}

// positionView decorates a position with derived figures
type positionView struct {
	portfolio.Position
	CoverableContracts int     `json:"coverable_contracts"`
	MarketValue        float64 `json:"market_value"`
	UnrealizedPnL      float64 `json:"unrealized_pnl"`
}

// HandleListPositions handles GET /api/portfolio/positions
func (h *Handler) HandleListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.service.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list positions")
		http.Error(w, "Failed to list positions", http.StatusInternalServerError)
		return
	}

	views := make([]positionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, positionView{
			Position:           p,
			CoverableContracts: p.CoverableContracts(),
			MarketValue:        p.MarketValue(),
			UnrealizedPnL:      p.UnrealizedPnL(),
		})
	}
	writeJSON(w, h.log, views)
}

// HandleImport handles POST /api/portfolio/positions
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Positions []portfolio.ImportRecord `json:"positions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(body.Positions) == 0 {
		http.Error(w, "No positions to import", http.StatusBadRequest)
		return
	}

	result, err := h.service.Import(body.Positions)
	if err != nil {
		h.log.Error().Err(err).Msg("Position import failed")
		http.Error(w, "Position import failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, result)
}

// HandleDeletePosition handles DELETE /api/portfolio/positions/{id}
func (h *Handler) HandleDeletePosition(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(chi.URLParam(r, "id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, portfolio.ErrPositionNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
