package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/windfall/phonoecho_service/internal/config"
	httphandler "github.com/windfall/phonoecho_service/internal/handler/http"
	"github.com/windfall/phonoecho_service/internal/middleware"
	"github.com/windfall/phonoecho_service/internal/observe"
)

// HTTPServer represents the HTTP server.
type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

// Routes groups the handlers mounted by NewHTTPServer. Metrics, Auth and
// WebSocket are optional.
type Routes struct {
	Health    *httphandler.HealthHandler
	Coaching  *httphandler.CoachingHandler
	Auth      *httphandler.AuthHandler
	Validator middleware.TokenValidator
	WebSocket http.Handler
	Metrics   http.Handler
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(
	cfg *config.Config,
	log zerolog.Logger,
	metrics *observe.Metrics,
	routes Routes,
) *HTTPServer {
	server := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      NewRouter(cfg, log, metrics, routes),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &HTTPServer{
		server: server,
		log:    log,
	}
}

// NewRouter builds the chi router serving the public API.
func NewRouter(cfg *config.Config, log zerolog.Logger, metrics *observe.Metrics, routes Routes) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log, metrics))
	r.Use(middleware.Recovery(log))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (public)
	r.Get("/health", routes.Health.Health)
	r.Get("/ready", routes.Health.Ready)
	r.Get("/live", routes.Health.Live)

	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}

	// WebSocket upgrades are not compressed.
	if routes.WebSocket != nil {
		r.With(middleware.Auth(routes.Validator)).Method(http.MethodGet, "/ws", routes.WebSocket)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Compress(5))

		if routes.Auth != nil {
			r.Post("/auth/token", routes.Auth.IssueToken)
		}

		// Protected endpoints (require JWT)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(routes.Validator))

			r.Route("/lessons/{lessonID}", func(r chi.Router) {
				r.Post("/attempts", routes.Coaching.SubmitAttempt)
				r.Post("/attempts/audio", routes.Coaching.SubmitAudio)
				r.Get("/progress", routes.Coaching.Progress)
				r.Get("/recordings", routes.Coaching.Recordings)
				r.Post("/reset", routes.Coaching.Reset)
			})

			r.Post("/feedback/prompt", routes.Coaching.Prompt)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
