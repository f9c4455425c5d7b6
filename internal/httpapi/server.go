// Package httpapi serves the HTTP surface of spec.md §6.6/§6.9: the
// push/pull sync endpoints internal/sync's Client talks to, a Prometheus
// /metrics endpoint, and a websocket live-tail of daemon notifications for
// the TUI. One *http.Server wrapped in a state-tracking struct with
// Start/Stop methods, serving a small JSON API rather than a rendered
// web UI since fukura has no browser-facing surface.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fukura-dev/fukura/internal/daemon"
	. "github.com/fukura-dev/fukura/internal/logging"
	"github.com/fukura-dev/fukura/internal/note"
	"github.com/fukura-dev/fukura/internal/repo"
)

// Options configures the HTTP API server.
type Options struct {
	Listen     string // e.g. ":7777"
	Token      string // bearer token required on /v1/notes; empty disables auth
	Dispatcher *daemon.Dispatcher
}

// Server is fukura's HTTP push/pull + metrics + tail endpoint.
type Server struct {
	server     *http.Server
	repo       *repo.Repository
	token      string
	dispatcher *daemon.Dispatcher
	upgrader   websocket.Upgrader

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
	lastError error
}

// NewServer builds a Server over r, serving at opts.Listen.
func NewServer(r *repo.Repository, opts Options) *Server {
	listen := opts.Listen
	if listen == "" {
		listen = ":7777"
	}

	s := &Server{
		repo:       r,
		token:      opts.Token,
		dispatcher: opts.Dispatcher,
		upgrader:   websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
	s.server = &http.Server{
		Addr:              listen,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/notes", s.authorize(s.handlePush))
	mux.HandleFunc("GET /v1/notes/{id}", s.authorize(s.handlePull))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/tail", s.handleTail)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		L_debug("httpapi: request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

func (s *Server) authorize(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if got == "" || got != s.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// handlePush accepts a pushed note record and stores it locally, spec.md
// §6.6's server side of "fukura sync push".
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var in repo.NoteRecord
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, fmt.Sprintf("decode note record: %v", err), http.StatusBadRequest)
		return
	}

	rec, err := s.repo.StoreNote(in.Note)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// handlePull returns the note matching the {id} path value, spec.md
// §6.6's server side of "fukura sync pull".
func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	resolved, err := s.repo.ResolveObjectID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	rec, err := s.repo.LoadNote(resolved)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if rec.Note.Privacy == note.PrivacyPrivate {
		http.Error(w, "note is private", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	var emptyErr *repo.ErrEmptyNote
	if errors.As(err, &emptyErr) {
		http.Error(w, emptyErr.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// handleTail upgrades to a websocket and streams daemon notifications, the
// transport internal/tui's live view reads from.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		http.Error(w, "notifications not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		L_warn("httpapi: websocket upgrade failed", "error", err)
		return
	}
	s.dispatcher.ServeTail(conn)
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	go func() {
		L_info("httpapi: server starting", "addr", s.server.Addr)
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			L_error("httpapi: server error", "error", err)
			s.mu.Lock()
			s.lastError = err
			s.running = false
			s.mu.Unlock()
		}
	}()

	s.running = true
	s.startedAt = time.Now()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	L_info("httpapi: server stopped")
	return nil
}
