package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all timeline routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/timelines", func(r chi.Router) {
		r.Get("/", h.HandleTimelines)
		r.Get("/{symbol}/context", h.HandleContext)
	})
}
