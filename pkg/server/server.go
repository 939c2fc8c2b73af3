// Package server exposes a story over HTTP. Each session owns a controller,
// a headless map and a page; clients navigate with POST requests and poll
// the session snapshot.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vanderheijden86/storymap/pkg/controller"
	"github.com/vanderheijden86/storymap/pkg/debug"
	"github.com/vanderheijden86/storymap/pkg/loader"
)

// DefaultSessionTTL expires sessions idle for this long.
const DefaultSessionTTL = 30 * time.Minute

// Option configures a Server.
type Option func(*Server)

// WithSessionTTL sets the idle expiry. Zero disables expiry.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Server) { s.ttl = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server is the HTTP API server for a story.
type Server struct {
	router  chi.Router
	profile controller.Profile
	ttl     time.Duration
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	bundle   *loader.Bundle
	sessions map[string]*Session
}

// New creates the server for b.
func New(b *loader.Bundle, p controller.Profile, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		profile:  p,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		bundle:   b,
		sessions: make(map[string]*Session),
	}
	for _, o := range opts {
		o(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/story", s.handleStory)
		r.Get("/geojson", s.handleGeoJSON)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/next", s.handleNavigate(controller.Next))
			r.Post("/prev", s.handleNavigate(controller.Prev))
		})
	})

	s.router = r
}

// Bundle returns the story new sessions are created from.
func (s *Server) Bundle() *loader.Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle
}

// Replace swaps the story for new sessions. Existing sessions keep theirs.
func (s *Server) Replace(b *loader.Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundle = b
	debug.Log("server: story replaced (%d slides)", b.Story.Len())
}

func (s *Server) createSession(start int) (*Session, error) {
	b := s.Bundle()
	sess, err := newSession(s.ctx, b, s.profile, start, s.now())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	debug.Log("server: session %s created at slide %d", sess.ID, sess.c.Index())
	return sess, nil
}

func (s *Server) session(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = s.now()
	return sess, nil
}

func (s *Server) deleteSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.close()
	return nil
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap closes sessions idle longer than the TTL and returns how many.
func (s *Server) Reap() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	var stale []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
	for _, sess := range stale {
		sess.close()
	}
	if len(stale) > 0 {
		debug.Log("server: reaped %d idle sessions", len(stale))
	}
	return len(stale)
}

// Close ends every session.
func (s *Server) Close() {
	s.cancel()
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
	}
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	var reap <-chan time.Time
	if s.ttl > 0 {
		ticker := time.NewTicker(s.ttl / 2)
		defer ticker.Stop()
		reap = ticker.C
	}

	for {
		select {
		case err := <-errCh:
			s.Close()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-reap:
			s.Reap()
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := srv.Shutdown(shutdownCtx)
			s.Close()
			return err
		}
	}
}
