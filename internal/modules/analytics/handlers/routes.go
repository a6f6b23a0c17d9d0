package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analytics report routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/day-of-week", h.HandleDayOfWeek)
		r.Get("/time-of-day", h.HandleTimeOfDay)
		r.Get("/clusters", h.HandleClusters)
		r.Get("/after-result", h.HandleAfterResult)
		r.Get("/size-quartiles", h.HandleSizeQuartiles)
		r.Get("/r-multiples", h.HandleRMultiples)
		r.Get("/entry-triggers", h.HandleEntryTriggers)
		r.Get("/market-regimes", h.HandleMarketRegimes)
		r.Get("/instrument-types", h.HandleInstrumentTypes)
		r.Get("/exit-quality", h.HandleExitQuality)
		r.Get("/tilt", h.HandleTilt)
		r.Get("/rolling-win-rate", h.HandleRollingWinRate)
		r.Get("/streaks", h.HandleStreaks)
		r.Get("/risk", h.HandleRisk)
		r.Get("/durations", h.HandleDurations)
	})
}
