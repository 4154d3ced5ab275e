// Package handlers provides HTTP handlers for the simulated trade book.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/domain"
	"github.com/alevras/covercall/internal/modules/simulator"
)

// Handler provides HTTP handlers for simulator endpoints
type Handler struct {
	service *simulator.Service
	log     zerolog.Logger
}

// NewHandler creates a new simulator handler
func NewHandler(service *simulator.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "simulator").Logger(),
	}
}

// RegisterRoutes registers all simulator routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulator", func(r chi.Router) {
		r.Get("/trades", h.HandleListTrades)
		r.Post("/trades", h.HandleOpenTrade)
		r.Get("/trades/{id}", h.HandleGetTrade)
		r.Post("/trades/{id}/roll", h.HandleRollTrade)
		r.Post("/trades/{id}/close", h.HandleCloseTrade)
		r.Delete("/trades/{id}", h.HandleDeleteTrade)
		r.Post("/prices", h.HandleApplyMarks)
		r.Post("/evaluate", h.HandleEvaluate)
	})
}

// tradeView decorates a trade with its display labels and live P&L
type tradeView struct {
	simulator.Trade
	LongLabel     string  `json:"long_label"`
	ShortLabel    string  `json:"short_label"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

func newTradeView(t simulator.Trade) tradeView {
	long, short := t.ContractLabels()
	return tradeView{
		Trade:         t,
		LongLabel:     long,
		ShortLabel:    short,
		UnrealizedPnL: t.UnrealizedPnL(),
	}
}

// HandleListTrades handles GET /api/simulator/trades?status=open
func (h *Handler) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	status := domain.TradeStatus(r.URL.Query().Get("status"))

	trades, err := h.service.List(status)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list trades")
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}

	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, newTradeView(t))
	}
	writeJSON(w, h.log, views)
}

// HandleOpenTrade handles POST /api/simulator/trades
func (h *Handler) HandleOpenTrade(w http.ResponseWriter, r *http.Request) {
	var req simulator.OpenTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := h.service.Open(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, h.log, newTradeView(*trade))
}

// HandleGetTrade handles GET /api/simulator/trades/{id}
func (h *Handler) HandleGetTrade(w http.ResponseWriter, r *http.Request) {
	trade, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, h.log, newTradeView(*trade))
}

// HandleRollTrade handles POST /api/simulator/trades/{id}/roll
func (h *Handler) HandleRollTrade(w http.ResponseWriter, r *http.Request) {
	var req simulator.RollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := h.service.Roll(chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, h.log, newTradeView(*trade))
}

// HandleCloseTrade handles POST /api/simulator/trades/{id}/close
func (h *Handler) HandleCloseTrade(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.TradeStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Status == "" {
		body.Status = domain.TradeClosed
	}

	trade, err := h.service.Close(chi.URLParam(r, "id"), body.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, h.log, newTradeView(*trade))
}

// HandleDeleteTrade handles DELETE /api/simulator/trades/{id}
func (h *Handler) HandleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleApplyMarks handles POST /api/simulator/prices
func (h *Handler) HandleApplyMarks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Marks []simulator.Mark `json:"marks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	applied, err := h.service.ApplyMarks(body.Marks)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to apply marks")
		http.Error(w, "Failed to apply marks", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, map[string]int{"applied": applied})
}

// HandleEvaluate handles POST /api/simulator/evaluate - run rules on the open book
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	matches, err := h.service.EvaluateRules()
	if err != nil {
		h.log.Error().Err(err).Msg("Rule evaluation failed")
		http.Error(w, "Rule evaluation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, map[string]any{"matches": matches, "count": len(matches)})
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, simulator.ErrTradeNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
