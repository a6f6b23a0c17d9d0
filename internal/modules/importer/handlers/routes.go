package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all import/export routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/import", h.HandleImport)
	r.Get("/export", h.HandleExport)
	r.Get("/session", h.HandleSession)
}
