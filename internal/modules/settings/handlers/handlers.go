// Package handlers provides HTTP handlers for runtime settings.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/modules/settings"
)

// Handler provides HTTP handlers for settings endpoints
type Handler struct {
	service *settings.Service
	log     zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(service *settings.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "settings").Logger(),
	}
}

// RegisterRoutes registers all settings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.HandleListSettings)
		r.Get("/{key}", h.HandleGetSetting)
		r.Put("/{key}", h.HandlePutSetting)
		r.Delete("/{key}", h.HandleDeleteSetting)
	})
}

// HandleListSettings handles GET /api/settings - secret values are masked
func (h *Handler) HandleListSettings(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.All()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list settings")
		http.Error(w, "Failed to list settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, all)
}

// HandleGetSetting handles GET /api/settings/{key}
func (h *Handler) HandleGetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	value, err := h.service.Get(key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if value == nil {
		http.Error(w, "Setting not found", http.StatusNotFound)
		return
	}
	writeJSON(w, h.log, map[string]string{"key": key, "value": *value})
}

// HandlePutSetting handles PUT /api/settings/{key}
func (h *Handler) HandlePutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Set(key, body.Value); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, h.log, map[string]string{"key": key, "status": "saved"})
}

// HandleDeleteSetting handles DELETE /api/settings/{key}
func (h *Handler) HandleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(chi.URLParam(r, "key")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, settings.ErrInvalidKey) {
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
