package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dsjohal14/tourstack/internal/libs/obs"
)

// NewRouter mounts every API route on a chi router
func NewRouter(h *Handler, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(obs.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// Routes
	r.Get("/health", h.HandleHealth)
	r.Get("/search", h.HandleSearch)
	r.Post("/search", h.HandleSearch)
	r.Get("/suggest", h.HandleSuggest)
	r.Post("/ingest", h.HandleIngest)

	r.Route("/api/{kind}", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{ref}", h.HandleGet)
		r.Put("/{ref}", h.HandleReplace)
		r.Delete("/{ref}", h.HandleDelete)
	})

	return r
}
