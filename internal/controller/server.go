// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"net/http"
	"time"

	"prodplane/internal/controller/handlers"
	"prodplane/internal/controller/middleware"

	"golang.org/x/time/rate"
)

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(addr string, store handlers.StoreFactory, commander handlers.Commander, events handlers.EventSource, metricsHandler http.Handler) *Server {
	h := handlers.New(store, commander, events)
	rateMW := middleware.RateLimitMiddleware(rate.Limit(5), 10)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	// Read apis
	mux.HandleFunc("GET /dashboard", h.GetDashboard)
	mux.HandleFunc("GET /machines/{location}/{id}", h.GetMachine)
	mux.HandleFunc("GET /logs", h.GetLogs)
	mux.HandleFunc("GET /events", h.StreamEvents)

	// Operator commands
	// Rate limited per client so a misbehaving script cannot flood the
	// versioned update path.
	mux.Handle("POST /machines/{location}/{id}/start", rateMW(http.HandlerFunc(h.StartMachine)))
	mux.Handle("POST /machines/{location}/{id}/pause", rateMW(http.HandlerFunc(h.PauseMachine)))
	mux.Handle("POST /machines/{location}/{id}/stop", rateMW(http.HandlerFunc(h.StopMachine)))
	mux.Handle("POST /machines/{location}/{id}/rename", rateMW(http.HandlerFunc(h.RenameMachine)))
	mux.Handle("POST /jobs", rateMW(http.HandlerFunc(h.ScheduleJob)))

	return &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// No write timeout: /events streams until the client leaves.
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
