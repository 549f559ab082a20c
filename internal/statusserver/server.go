// Package statusserver serves mavrouter's health, metrics, and status
// endpoints, adapted from the teacher's web/server.go dashboard bootstrap
// (http.NewServeMux + a goroutine-owned *http.Server with graceful
// Shutdown) at much smaller scope: no auth, no camera streaming, no
// embedded static assets — just what SPEC_FULL.md §6.A asks for.
package statusserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusFunc returns a JSON-serializable snapshot of router state, such as
// per-interface connection counts and queue depths.
type StatusFunc func() interface{}

// Server is a minimal HTTP status/metrics endpoint.
type Server struct {
	httpServer *http.Server
	ready      atomic.Bool
}

// New builds a status server listening on addr. statusFn is called once
// per request to /status.
func New(addr string, statusFn StatusFunc) *Server {
	s := &Server{}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(statusFn())
	})
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start runs the server on its own goroutine.
func (s *Server) Start() {
	go func() {
		s.ready.Store(true)
		_ = s.httpServer.ListenAndServe()
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	return s.httpServer.Shutdown(ctx)
}
