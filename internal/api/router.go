package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/sensorhub-core/internal/metrics"
)

// welcomeMessage is served on / outside production mode.
const welcomeMessage = "Welcome to the sensorhub API. Use /api/devices, /api/data etc."

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Put("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
			})
		})

		r.Route("/data", func(r chi.Router) {
			r.Post("/", s.handleCreateReading)
			r.Get("/latest", s.handleLatestReadings)
			r.Get("/latest/{deviceId}", s.handleLatestReading)
			r.Get("/history/{deviceId}", s.handleReadingHistory)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeNotFound(w, "route not found: "+r.URL.Path)
		})
	})

	if s.serveStatic() {
		spa := newSPAHandler(s.serverCfg.StaticDir)
		r.NotFound(spa.ServeHTTP)
	} else {
		r.Get("/", s.handleWelcome)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeNotFound(w, "route not found: "+r.URL.Path)
		})
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, r.Method+" not allowed on "+r.URL.Path)
	})

	return r
}

// serveStatic reports whether the dashboard build is served from disk.
func (s *Server) serveStatic() bool {
	return s.serverCfg.IsProduction() && s.serverCfg.StaticDir != ""
}

// handleWelcome answers / with a plain-text pointer to the API.
func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write([]byte(welcomeMessage))
}
