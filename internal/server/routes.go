package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) registerRoutes(metricsHandler http.Handler) {
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", metricsHandler)

	s.router.Route("/api/contacts/{subjectKey}/linkedin", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/history", s.handleHistory)
	})
}
