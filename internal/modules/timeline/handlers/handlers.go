// Package handlers provides HTTP handlers for timeline reports.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"tradescope/internal/clients/marketcontext"
	"tradescope/internal/modules/session"
	"tradescope/internal/modules/timeline"
)

// Handler handles timeline report requests
type Handler struct {
	service *timeline.Service
	manager *session.Manager
	log     zerolog.Logger
}

// NewHandler creates a new timeline handler
func NewHandler(
	service *timeline.Service,
	manager *session.Manager,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		manager: manager,
		log:     log.With().Str("handler", "timeline").Logger(),
	}
}

func (h *Handler) currentSession(w http.ResponseWriter) *session.Session {
	sess := h.manager.Current()
	if sess == nil {
		h.writeError(w, http.StatusNotFound, "No dataset imported")
		return nil
	}
	return sess
}

// HandleTimelines handles GET /api/timelines
func (h *Handler) HandleTimelines(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": h.service.Timelines(sess.Trades),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleContext handles GET /api/timelines/{symbol}/context
// Joins the symbol's trades against the external indicator series.
func (h *Handler) HandleContext(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}

	symbol := chi.URLParam(r, "symbol")

	rows, err := h.service.Context(r.Context(), sess.Trades, symbol)
	if err != nil {
		if errors.Is(err, marketcontext.ErrNoToken) {
			h.writeError(w, http.StatusUnauthorized, "Market context API not authenticated")
			return
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Context analysis failed")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": rows,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
