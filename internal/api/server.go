package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/callscribe/internal/config"
	"github.com/snarg/callscribe/internal/database"
	"github.com/snarg/callscribe/internal/events"
	"github.com/snarg/callscribe/internal/metrics"
	"github.com/snarg/callscribe/internal/storage"
	"github.com/snarg/callscribe/internal/task"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, db *database.DB, store storage.AudioStore, runner *task.Runner, ev *events.Publisher, version string, startTime time.Time, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(metrics.InstrumentHandler)

	// Health and metrics, no auth
	health := NewHealthHandler(db, ev, runner, version, startTime)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Local-store audio is served unauthenticated so the diarization
	// provider can fetch recordings through PUBLIC_BASE_URL. Keys are
	// unguessable UUIDs.
	if local, ok := store.(*storage.LocalStore); ok {
		fs := http.StripPrefix("/audio/", http.FileServer(http.Dir(local.Dir())))
		r.Get("/audio/*", fs.ServeHTTP)
	}

	// Authenticated routes
	calls := NewCallsHandler(db, store, runner, cfg.STTLanguage, cfg.DiarizeNumSpeakers, log)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		calls.Routes(r)
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
