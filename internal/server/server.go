package server

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/cors"

	"github.com/dukerupert/pawboard/internal/calendar"
	"github.com/dukerupert/pawboard/internal/handler"
	"github.com/dukerupert/pawboard/internal/metrics"
	"github.com/dukerupert/pawboard/internal/middleware"
	"github.com/dukerupert/pawboard/internal/store"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

type Options struct {
	// ClientDir holds the static web client. Empty disables static serving.
	ClientDir      string
	AllowedOrigins []string
}

type Server struct {
	store       store.Store
	authH       *handler.AuthHandler
	eventH      *handler.EventHandler
	householdH  *handler.HouseholdHandler
	rateLimiter *middleware.RateLimiter
	metrics     *metrics.Metrics
	opts        Options
	logger      *slog.Logger
}

func New(st store.Store, cal *calendar.Calendar, m *metrics.Metrics, opts Options, logger *slog.Logger) *Server {
	return &Server{
		store:       st,
		authH:       handler.NewAuthHandler(st, cal, m, logger.With("component", "auth")),
		eventH:      handler.NewEventHandler(st, cal, m, logger.With("component", "events")),
		householdH:  handler.NewHouseholdHandler(st, cal, m, logger.With("component", "household")),
		rateLimiter: middleware.NewRateLimiter(),
		metrics:     m,
		opts:        opts,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/register", s.rateLimited(s.authH.Register))
	mux.HandleFunc("POST /api/login", s.rateLimited(s.authH.Login))
	mux.HandleFunc("GET /health", handler.Health)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Member routes
	mux.Handle("GET /api/user", s.authed(s.authH.Me))
	mux.Handle("POST /api/dog", s.authed(s.householdH.UpdateDog))
	mux.Handle("POST /api/events", s.authed(s.eventH.Create))
	mux.Handle("DELETE /api/events/{id}", s.authed(s.eventH.Delete))
	mux.Handle("GET /api/scores", s.authed(s.eventH.Scores))
	mux.Handle("GET /api/today", s.authed(s.eventH.Today))
	mux.Handle("GET /api/history", s.authed(s.eventH.History))

	// Admin routes
	mux.Handle("POST /api/invite", s.admin(s.householdH.Invite))
	mux.Handle("POST /api/invite/reset", s.admin(s.householdH.ResetInvites))
	mux.Handle("POST /api/admin/reset-scores", s.admin(s.householdH.ResetScores))
	mux.Handle("POST /api/admin/clear-events", s.admin(s.householdH.ClearEvents))

	mux.HandleFunc("GET /api/", notFound)
	mux.Handle("GET /", s.static())

	c := cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})
	return middleware.RequestLogger(s.logger.With("component", "http"), s.metrics)(c(mux))
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(s.store, s.logger)(h)
}

func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(s.store, s.logger)(middleware.RequireAdmin(h))
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByIP, authRateLimit, authRateWindow)
	return rl(h).ServeHTTP
}

// static serves the web client. Paths that do not name a file fall back to
// index.html so client-side routes survive a reload.
func (s *Server) static() http.Handler {
	dir := s.opts.ClientDir
	if dir == "" {
		return http.HandlerFunc(notFound)
	}
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/") && r.URL.Path != "/" {
			if _, err := os.Stat(filepath.Join(name, "index.html")); err == nil {
				files.ServeHTTP(w, r)
				return
			}
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			notFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"not found"}` + "\n"))
}
