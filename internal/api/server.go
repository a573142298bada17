// Package api serves the read-only HTTP status surface: process snapshots,
// the live config, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/psantana5/procwatch/internal/config"
	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/proc"
)

// Snapshot is the immutable state published to HTTP consumers. The event
// loop replaces it wholesale; handlers only ever read.
type Snapshot struct {
	Processes []proc.View    `json:"processes"`
	Config    *config.Config `json:"config"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Server exposes the status API. It never reaches into live supervisor
// state; it serves whatever snapshot was last published.
type Server struct {
	addr     string
	log      *logging.Logger
	snapshot atomic.Value // Snapshot
	srv      *http.Server
}

// NewServer creates a server listening on addr once Start is called.
// metricsHandler serves GET /metrics; pass nil to omit the endpoint.
func NewServer(addr string, log *logging.Logger, metricsHandler http.Handler) *Server {
	s := &Server{
		addr: addr,
		log:  log.WithComponent("api"),
	}
	s.snapshot.Store(Snapshot{})

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/api/processes", s.handleProcesses).Methods(http.MethodGet)
	r.HandleFunc("/api/config", s.handleConfig).Methods(http.MethodGet)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Publish replaces the served snapshot.
func (s *Server) Publish(snap Snapshot) {
	snap.UpdatedAt = time.Now()
	s.snapshot.Store(snap)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start serves in a background goroutine until Shutdown.
func (s *Server) Start() {
	go func() {
		s.log.Info("status API listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("status API failed: %v", err)
		}
	}()
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) current() Snapshot {
	return s.snapshot.Load().(Snapshot)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (s *Server) handleProcesses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.current().Processes)
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.current().Config)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
