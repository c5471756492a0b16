// Package webui serves the analysis form, the report pages and a small JSON
// API over chi.
package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anatolykoptev/go_observe/internal/engine"
	"github.com/anatolykoptev/go_observe/internal/engine/observe"
)

const sessionCookie = "observe_session"

// Config configures the web server.
type Config struct {
	SessionTTL       time.Duration
	AnalyzeRateLimit int // requests per minute per IP on analyze routes; 0 = off
	Lang             string

	// Analyze and Cached default to the observe package.
	Analyze func(ctx context.Context, rawURL string) (*engine.Analysis, error)
	Cached  func(ctx context.Context, videoID string) (*engine.Analysis, bool)
}

// Server holds the router and session store.
type Server struct {
	cfg      Config
	sessions *Sessions
	router   chi.Router
}

// New builds the router. Close releases the session janitor.
func New(cfg Config) *Server {
	if cfg.Analyze == nil {
		cfg.Analyze = observe.AnalyzeTeachingVideo
	}
	if cfg.Cached == nil {
		cfg.Cached = observe.Cached
	}
	s := &Server{cfg: cfg, sessions: NewSessions(cfg.SessionTTL)}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Close stops background work.
func (s *Server) Close() { s.sessions.Close() }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(securityHeaders)
	r.Use(accessLog)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.Get("/", s.handleIndex)
	r.Post("/reset", s.handleResetForm)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.AnalyzeRateLimit > 0 {
			r.Use(RateLimit(RateLimitConfig{RequestLimit: s.cfg.AnalyzeRateLimit, WindowSize: time.Minute}))
		}
		r.Post("/analyze", s.handleAnalyzeForm)
		r.Post("/api/analyze", s.handleAnalyzeAPI)
	})

	r.Get("/api/resolve", s.handleResolve)
	r.Get("/api/state", s.handleState)
	r.Post("/api/reset", s.handleResetAPI)

	r.Get("/report/{videoID}", s.handleReport(false))
	r.Get("/report/{videoID}/print", s.handleReport(true))
	return r
}

// sessionID returns the caller's session id, issuing a cookie when missing.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
