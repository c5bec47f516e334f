// Package httpapi serves the plain-HTTP operational surface alongside
// the gRPC listener: liveness/readiness checks and the Prometheus
// scrape endpoint. The readiness payload reports this process's
// registry size and kv-backend choice.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cuemby/statekeep/pkg/metrics"
	"github.com/cuemby/statekeep/pkg/registry"
)

// Server is the /health, /ready, /metrics HTTP listener.
type Server struct {
	registry *registry.Registry
	backend  string
	mux      *http.ServeMux
}

// New builds a Server reporting on reg and the active kv-backend name
// ("memfs" or "pebble").
func New(reg *registry.Registry, backend string) *Server {
	s := &Server{registry: reg, backend: backend, mux: http.NewServeMux()}

	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		metrics.HealthHandler()(w, r)
	})
	s.mux.HandleFunc("/ready", s.readyHandler)
	s.mux.Handle("/metrics", metrics.Handler())

	return s
}

// Handler returns the composed http.Handler, for embedding or testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP listener on addr. It blocks until the
// server stops or ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

type readyResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	AppsLoaded int      `json:"apps_loaded"`
	Backend   string    `json:"kv_backend"`
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{
		Status:     "ready",
		Timestamp:  time.Now(),
		AppsLoaded: len(s.registry.List()),
		Backend:    s.backend,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
