// Package handlers provides HTTP handlers for the summary reports.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tradescope/internal/modules/session"
	"tradescope/internal/modules/summary"
)

// Handler handles summary report requests
type Handler struct {
	service *summary.Service
	manager *session.Manager
	log     zerolog.Logger
}

// NewHandler creates a new summary handler
func NewHandler(
	service *summary.Service,
	manager *session.Manager,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		manager: manager,
		log:     log.With().Str("handler", "summary").Logger(),
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

func (h *Handler) report(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleOverview handles GET /api/summary/overview
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.Overview(sess.Trades))
}

// HandlePeriods handles GET /api/summary/periods?period=day|week|month|year
func (h *Handler) HandlePeriods(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}

	period, err := summary.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.report(w, h.service.Periods(sess.Trades, period))
}

// HandleMonthly handles GET /api/summary/monthly
// Returns the most recent twelve months, newest first.
func (h *Handler) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}
	h.report(w, h.service.Monthly(sess.Trades, 12))
}

// HandleDaily handles GET /api/summary/daily
// Returns the session's daily index, most recent day first.
func (h *Handler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}

	days := make([]map[string]interface{}, 0, len(sess.Daily))
	for _, date := range session.SortedDates(sess.Daily) {
		day := sess.Daily[date]
		days = append(days, map[string]interface{}{
			"date":         day.Date,
			"pnl":          day.PnL,
			"trade_count":  day.TradeCount,
			"wins":         day.Wins,
			"losses":       day.Losses,
			"win_rate_pct": day.WinRate(),
		})
	}

	h.report(w, days)
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
