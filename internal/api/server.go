package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Gelzieny/tube-link-scribe/internal/auth"
	"github.com/Gelzieny/tube-link-scribe/internal/config"
	"github.com/Gelzieny/tube-link-scribe/internal/i18n"
	"github.com/Gelzieny/tube-link-scribe/internal/metrics"
	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
	"github.com/Gelzieny/tube-link-scribe/internal/transcribe"
)

// Options holds the dependencies of the HTTP server. MQTT, Worker, Processor
// and Events may be nil.
type Options struct {
	Config    *config.Config
	Service   *scribe.Service
	Verifier  *auth.Verifier
	Messages  *i18n.Catalog
	DB        Pinger
	MQTT      ConnStatus
	Worker    WorkerStatus
	Processor transcribe.Processor
	Events    EventSource
	Archive   string
	Version   string
	StartTime time.Time
	Log       zerolog.Logger
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// NewRouter builds the route tree without binding an address.
func NewRouter(opts Options) http.Handler {
	cfg := opts.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(CORSWithOrigins(cfg.CORSOrigins))
	r.Use(metrics.InstrumentHandler)
	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	// Prometheus scrape endpoint, optionally token protected
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.MetricsToken))
		r.Handle("/metrics", promhttp.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Health endpoint: no auth
		health := NewHealthHandler(opts.DB, opts.MQTT, opts.Worker, opts.Archive, opts.Version, opts.StartTime)
		r.Get("/health", health.ServeHTTP)

		// Session-authenticated client API
		r.Group(func(r chi.Router) {
			r.Use(RequireUser(opts.Verifier))
			NewTranscriptionsHandler(opts.Service, opts.Messages).Routes(r)
			NewProfileHandler(opts.Service, opts.Messages).Routes(r)
			NewEventsHandler(opts.Events).Routes(r)
		})
	})

	// Worker function endpoint; authenticates on its own to keep its error shape
	if opts.Processor != nil {
		r.Route("/functions/v1", NewFunctionsHandler(opts.Service, opts.Processor, opts.Verifier).Routes)
	}

	return r
}

func NewServer(opts Options) *Server {
	cfg := opts.Config
	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      NewRouter(opts),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: opts.Log,
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
