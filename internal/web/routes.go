package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-sorter/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	runsHandler := handlers.NewRunsHandler(s.jobManager, s.run)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Runs (long-running operations)
		r.Post("/runs", runsHandler.Start)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{jobId}", runsHandler.Status)
		r.Get("/runs/{jobId}/events", runsHandler.Events)
		r.Delete("/runs/{jobId}", runsHandler.Cancel)
	})
}
