// Package handlers provides HTTP handlers for symbol reports.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"tradescope/internal/domain"
	"tradescope/internal/modules/session"
	"tradescope/internal/modules/symbols"
)

// Handler handles symbol report requests
type Handler struct {
	service *symbols.Service
	manager *session.Manager
	log     zerolog.Logger
}

// NewHandler creates a new symbols handler
func NewHandler(
	service *symbols.Service,
	manager *session.Manager,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		manager: manager,
		log:     log.With().Str("handler", "symbols").Logger(),
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

// HandleList handles GET /api/symbols?top=N
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}

	top := 0
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		top = n
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": h.service.Top(sess.Trades, top),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDetail handles GET /api/symbols/{symbol}?sort=closeDate&order=desc
func (h *Handler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w)
	if sess == nil {
		return
	}

	symbol := chi.URLParam(r, "symbol")

	key, err := symbols.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	descending := r.URL.Query().Get("order") != "asc"

	stats, trades, ok := h.service.Detail(sess.Trades, symbol, key, descending)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Symbol not found in current dataset")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"stats":  stats,
			"trades": tradeRows(trades),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// tradeRows renders trades for the detail view.
func tradeRows(trades []domain.TradeRecord) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(trades))
	for _, trade := range trades {
		row := map[string]interface{}{
			"symbol":          trade.Symbol,
			"total_profit":    trade.TotalProfit,
			"position_size":   trade.PositionSizeUSD,
			"return_pct":      trade.ReturnPct,
			"holding_days":    trade.Days(),
			"win_loss":        string(trade.WinLoss),
			"instrument_type": trade.InstrumentType,
		}
		if trade.HasOpenTime() {
			row["open_time"] = trade.OpenTime.UTC().Format(time.RFC3339)
		}
		if trade.HasCloseTime() {
			row["close_time"] = trade.CloseTime.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return rows
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
