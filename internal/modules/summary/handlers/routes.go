package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all summary routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/summary", func(r chi.Router) {
		r.Get("/overview", h.HandleOverview)
		r.Get("/periods", h.HandlePeriods)
		r.Get("/monthly", h.HandleMonthly)
		r.Get("/daily", h.HandleDaily)
	})
}
