// Package handlers provides HTTP handlers for rule management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/modules/rules"
)

// Handler provides HTTP handlers for rule endpoints
type Handler struct {
	service *rules.Service
	log     zerolog.Logger
}

// NewHandler creates a new rules handler
func NewHandler(service *rules.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rules").Logger(),
	}
}

// RegisterRoutes registers all rule routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rules", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/templates", h.HandleTemplates)
		r.Post("/templates/{id}/instantiate", h.HandleInstantiate)
		r.Post("/evaluate", h.HandleEvaluate)
		r.Patch("/{id}/toggle", h.HandleToggle)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleList handles GET /api/rules
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ruleList, err := h.service.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list rules")
		http.Error(w, "Failed to list rules", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, ruleList)
}

// HandleCreate handles POST /api/rules
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.service.CreateRule(rule)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create rule")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, h.log, created)
}

// HandleTemplates handles GET /api/rules/templates - the grouped catalog
func (h *Handler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, h.service.GroupedTemplates())
}

// HandleInstantiate handles POST /api/rules/templates/{id}/instantiate
func (h *Handler) HandleInstantiate(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "id")

	rule, err := h.service.InstantiateTemplate(templateID)
	if err != nil {
		h.log.Warn().Err(err).Str("template", templateID).Msg("Template instantiation failed")
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, h.log, rule)
}

// HandleToggle handles PATCH /api/rules/{id}/toggle
func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		IsEnabled bool `json:"is_enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rule, err := h.service.SetEnabled(id, body.IsEnabled)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, rules.ErrRuleNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, h.log, rule)
}

// HandleDelete handles DELETE /api/rules/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, rules.ErrRuleNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvaluate handles POST /api/rules/evaluate
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Snapshots []rules.TradeSnapshot `json:"snapshots"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	matches, err := h.service.EvaluateSnapshots(body.Snapshots)
	if err != nil {
		h.log.Error().Err(err).Msg("Rule evaluation failed")
		http.Error(w, "Rule evaluation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, map[string]any{"matches": matches, "count": len(matches)})
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
