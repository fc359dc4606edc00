package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/windfall/phonoecho_service/internal/bootstrap"
	"github.com/windfall/phonoecho_service/internal/config"
	grpchandler "github.com/windfall/phonoecho_service/internal/handler/grpc"
	"github.com/windfall/phonoecho_service/internal/handler/http"
	"github.com/windfall/phonoecho_service/internal/handler/ws"
	"github.com/windfall/phonoecho_service/internal/logger"
	"github.com/windfall/phonoecho_service/internal/observe"
	"github.com/windfall/phonoecho_service/internal/server"
	"github.com/windfall/phonoecho_service/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("env", cfg.Environment).Msg("Starting phonoecho_service")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	var (
		provider *observe.Provider
		metrics  *observe.Metrics
	)
	if cfg.MetricsEnabled {
		provider, err = observe.InitProvider()
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize metrics provider")
		} else {
			metrics, err = observe.NewMetrics(provider.MeterProvider())
			if err != nil {
				log.Error().Err(err).Msg("Failed to create metrics")
			}
		}
	}

	// Clients, repository and services
	app, err := bootstrap.Build(ctx, cfg, log, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer app.Close()

	authService := service.NewAuthService(cfg.JWTSecret, cfg.JWTTTL)
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set, every authenticated request will be rejected")
	}

	// Initialize handlers
	healthHandler := http.NewHealthHandler()
	for name, check := range app.Checks {
		healthHandler.AddCheck(name, check)
	}
	coachingHandler := http.NewCoachingHandler(log, app.Coaching, app.Speech)

	var authHandler *http.AuthHandler
	if cfg.IsDevelopment() {
		authHandler = http.NewAuthHandler(log, authService)
		log.Warn().Msg("Development token endpoint enabled at /api/v1/auth/token")
	}

	hub := server.NewWebSocketHub(log, cfg.CORSAllowedOrigins)
	go hub.Run(ctx)

	routes := server.Routes{
		Health:    healthHandler,
		Coaching:  coachingHandler,
		Auth:      authHandler,
		Validator: authService,
		WebSocket: hub.Handler(ctx, ws.NewHandler(log, app.Coaching)),
	}
	if provider != nil {
		routes.Metrics = provider.Handler()
	}

	// Initialize servers
	httpServer := server.NewHTTPServer(cfg, log, metrics, routes)

	grpcHealth := grpchandler.NewHandler(log, healthHandler)
	go grpcHealth.Watch(ctx, 15*time.Second)
	grpcServer := server.NewGRPCServer(cfg, log, grpcHealth)

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			log.Error().Err(err).Msg("gRPC server error")
			cancel()
		}
	}()

	log.Info().
		Str("http_addr", cfg.HTTPAddress()).
		Str("grpc_addr", cfg.GRPCAddress()).
		Str("storage", cfg.StorageBackend).
		Msg("Servers started")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down servers...")
	healthHandler.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	grpcServer.GracefulStop()
	cancel()

	if provider != nil {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics provider shutdown error")
		}
	}

	log.Info().Msg("Server stopped")
}
