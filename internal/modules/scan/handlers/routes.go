package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all scan routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/scans", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/run", h.HandleRunAll)

		r.Route("/{name}", func(r chi.Router) {
			r.Post("/run", h.HandleRun)
			r.Get("/stream", h.HandleStream)
			r.Get("/results", h.HandleResults)
			r.Get("/results/{aggregate}", h.HandleResult)
		})
	})

	r.Post("/legs/preview", h.HandlePreviewLegs)
	r.Get("/contracts", h.HandleContracts)
}
