// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api serves the dashboard-facing HTTP surface: stream control, the
// live MJPEG feed, event listing and media file serving.
package api

import (
	"context"
	"iter"
	"net/http"
	"time"

	"github.com/ManuGH/pisentry/internal/log"
	"github.com/ManuGH/pisentry/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Coordinator is the camera surface the API consumes.
type Coordinator interface {
	StartStream(ctx context.Context) bool
	StopStream(ctx context.Context) bool
	StreamStatus() bool
	Frames(ctx context.Context) iter.Seq[[]byte]
}

// EventLister reads persisted video events.
type EventLister interface {
	ListEvents(ctx context.Context, q store.Query) ([]store.VideoEvent, error)
}

// Config holds the API server settings.
type Config struct {
	// APIToken protects all non-public routes. When empty the server is
	// fail-closed unless AuthAnonymous is set.
	APIToken      string
	AuthAnonymous bool

	VideosDir     string
	ThumbnailsDir string

	RateLimit       int
	RateLimitWindow time.Duration
}

// Server is the HTTP layer over the coordinator and event store.
type Server struct {
	cfg    Config
	cam    Coordinator
	events EventLister
	logger zerolog.Logger
}

// New constructs the API server.
func New(cfg Config, cam Coordinator, events EventLister) *Server {
	return &Server{
		cfg:    cfg,
		cam:    cam,
		events: events,
		logger: log.WithComponent("api"),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// Public surface.
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Everything else requires the operator token.
	r.Group(func(pr chi.Router) {
		pr.Use(s.authMiddleware)

		pr.Group(func(api chi.Router) {
			api.Use(httprate.Limit(
				s.cfg.RateLimit,
				s.cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
			api.Post("/api/v1/stream/start", s.handleStreamStart)
			api.Post("/api/v1/stream/stop", s.handleStreamStop)
			api.Get("/api/v1/stream/status", s.handleStreamStatus)
			api.Get("/api/v1/events", s.handleListEvents)
		})

		// The feed is long-lived and must not burn rate limit budget.
		pr.Get("/stream/mjpeg", s.handleVideoFeed)
		pr.Get("/media/videos/{name}", s.serveMedia(s.cfg.VideosDir))
		pr.Get("/media/thumbnails/{name}", s.serveMedia(s.cfg.ThumbnailsDir))
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", ww.Status()).
			Dur("duration", time.Since(started)).
			Msg("request")
	})
}
