// Package handlers provides HTTP handlers for the aggregation reports.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tradescope/internal/modules/analytics"
	"tradescope/internal/modules/session"
)

// Handler handles analytics report requests. Every report is computed
// fresh from the current session on each request.
type Handler struct {
	service *analytics.Service
	manager *session.Manager
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(
	service *analytics.Service,
	manager *session.Manager,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		manager: manager,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// currentSession resolves the installed session, writing a 404 when no
// dataset has been imported yet.
func (h *Handler) currentSession(w http.ResponseWriter) *session.Session {
	sess := h.manager.Current()
	if sess == nil {
		h.writeError(w, http.StatusNotFound, "No dataset imported")
		return nil
	}
	return sess
}

func (h *Handler) report(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleDayOfWeek handles GET /api/analytics/day-of-week
func (h *Handler) HandleDayOfWeek(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.DayOfWeek(sess.Trades))
}

// HandleTimeOfDay handles GET /api/analytics/time-of-day
func (h *Handler) HandleTimeOfDay(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.TimeOfDay(sess.Trades))
}

// HandleClusters handles GET /api/analytics/clusters
func (h *Handler) HandleClusters(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.Clusters(sess.Trades))
}

// HandleAfterResult handles GET /api/analytics/after-result
func (h *Handler) HandleAfterResult(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.AfterResult(sess.Trades))
}

// HandleSizeQuartiles handles GET /api/analytics/size-quartiles
func (h *Handler) HandleSizeQuartiles(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.SizeQuartiles(sess.Trades))
}

// HandleRMultiples handles GET /api/analytics/r-multiples
func (h *Handler) HandleRMultiples(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.RMultiples(sess.Trades))
}

// HandleEntryTriggers handles GET /api/analytics/entry-triggers
func (h *Handler) HandleEntryTriggers(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.ByEntryTrigger(sess.Trades))
}

// HandleMarketRegimes handles GET /api/analytics/market-regimes
func (h *Handler) HandleMarketRegimes(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.ByMarketRegime(sess.Trades))
}

// HandleInstrumentTypes handles GET /api/analytics/instrument-types
func (h *Handler) HandleInstrumentTypes(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.ByInstrumentType(sess.Trades))
}

// HandleExitQuality handles GET /api/analytics/exit-quality
func (h *Handler) HandleExitQuality(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.ExitQuality(sess.Trades))
}

// HandleTilt handles GET /api/analytics/tilt
func (h *Handler) HandleTilt(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.Tilt(sess.Trades))
}

// HandleRollingWinRate handles GET /api/analytics/rolling-win-rate
func (h *Handler) HandleRollingWinRate(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.RollingWinRate(sess.Trades))
}

// HandleStreaks handles GET /api/analytics/streaks
func (h *Handler) HandleStreaks(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.Streaks(sess.Trades))
}

// HandleRisk handles GET /api/analytics/risk
func (h *Handler) HandleRisk(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.Risk(sess.Trades))
}

// HandleDurations handles GET /api/analytics/durations
func (h *Handler) HandleDurations(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.DurationBuckets(sess.Trades))
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
