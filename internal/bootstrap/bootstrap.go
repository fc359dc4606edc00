// Package bootstrap builds the clients, repository and services shared by
// the server and the captctl command from a Config.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/client"
	"github.com/windfall/phonoecho_service/internal/config"
	"github.com/windfall/phonoecho_service/internal/observe"
	"github.com/windfall/phonoecho_service/internal/repository"
	"github.com/windfall/phonoecho_service/internal/service"
)

const historyPrefix = "history"

// App holds the wired services and everything that must be closed with them.
type App struct {
	Feedback capt.FeedbackConfig
	Repo     repository.CoachingRepository
	AI       *service.AIService
	Speech   *service.SpeechService
	Coaching *service.CoachingService
	PubSub   *client.PubSubClient

	// Checks are the readiness probes of the external dependencies in use.
	Checks map[string]func(ctx context.Context) error

	closers []func()
}

// Close releases every client opened by Build, last opened first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Build wires the application for cfg. Optional integrations that fail to
// initialize are logged and skipped; a storage backend that cannot be
// reached is an error.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger, metrics *observe.Metrics) (*App, error) {
	app := &App{Checks: make(map[string]func(ctx context.Context) error)}

	feedback, err := config.LoadFeedbackConfig(cfg.FeedbackConfigPath)
	if err != nil {
		return nil, err
	}
	app.Feedback = feedback

	// Clean up whatever was opened if a later step fails.
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	repo, err := app.buildRepository(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	app.Repo = repo

	app.AI = buildAI(ctx, cfg, log, metrics, app)
	app.Speech = app.buildSpeech(ctx, cfg, log, metrics)

	var events service.EventPublisher
	if cfg.PubSubTopic != "" {
		ps, err := client.NewPubSubClient(ctx, cfg.GCPProjectID, cfg.PubSubTopic)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Pub/Sub client")
		} else {
			app.PubSub = ps
			app.onClose(ps.Close)
			events = ps
			log.Info().Str("topic", cfg.PubSubTopic).Msg("Pub/Sub attempt events enabled")
		}
	}

	app.Coaching = service.NewCoachingService(repo, feedback, app.AI, events, metrics, log)
	ok = true
	return app, nil
}

func (a *App) buildRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.CoachingRepository, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		log.Warn().Msg("Using in-memory storage; coaching history is lost on restart")
		return repository.NewInMemoryRepository(), nil

	case config.StorageFile:
		log.Info().Str("dir", cfg.HistoryDir).Msg("Using file storage")
		return repository.NewFileRepository(cfg.HistoryDir), nil

	case config.StoragePostgres:
		pg, err := client.NewPostgresClient(ctx, cfg.DatabaseURL, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres client: %w", err)
		}
		a.onClose(pg.Close)
		a.Checks["postgres"] = pg.Ping
		log.Info().Msg("Using Postgres storage")
		return repository.NewPostgresRepository(pg), nil

	case config.StorageRedis:
		rdb, err := client.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		a.onClose(func() { rdb.Close() })
		a.Checks["redis"] = rdb.Ping
		log.Info().Dur("ttl", cfg.RedisTTL).Msg("Using Redis storage")
		return repository.NewRedisRepository(rdb, cfg.RedisTTL), nil

	case config.StorageR2:
		cf, err := client.NewCloudflareClient(ctx,
			cfg.CloudflareAccessKeyID,
			cfg.CloudflareSecretKey,
			cfg.CloudflareR2Endpoint,
			cfg.CloudflareBucketName,
			cfg.CloudflarePublicURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Cloudflare client: %w", err)
		}
		log.Info().Str("bucket", cfg.CloudflareBucketName).Msg("Using Cloudflare R2 storage")
		return repository.NewObjectRepository(cf, historyPrefix), nil

	case config.StorageGCS:
		gcs, err := client.NewStorageClient(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
		}
		a.onClose(gcs.Close)
		log.Info().Str("bucket", cfg.GCSBucket).Msg("Using GCS storage")
		return repository.NewObjectRepository(gcs, historyPrefix), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func buildAI(ctx context.Context, cfg *config.Config, log zerolog.Logger, metrics *observe.Metrics, app *App) *service.AIService {
	ai := service.NewAIService(cfg.LLMProvider, cfg.FeedbackTimeout, metrics)

	if cfg.OpenAIAPIKey != "" {
		ai.Register(service.ProviderOpenAI, client.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL).WithModel(cfg.OpenAIModel))
	}

	if cfg.AzureOpenAIEndpoint != "" && cfg.AzureOpenAIKey != "" {
		ai.Register(service.ProviderAzure, client.NewAzureChatClient(
			cfg.AzureOpenAIEndpoint,
			cfg.AzureOpenAIKey,
			cfg.AzureOpenAIDeployment,
			cfg.AzureOpenAIAPIVersion,
		))
	}

	if cfg.GeminiSAPath != "" || cfg.GCPProjectID != "" {
		var (
			gemini *client.GeminiClient
			err    error
		)
		if cfg.GeminiSAPath != "" {
			gemini, err = client.NewGeminiClientWithServiceAccount(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.GeminiSAPath)
		} else {
			gemini, err = client.NewGeminiClient(ctx, cfg.GCPProjectID, cfg.GCPLocation)
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			ai.Register(service.ProviderGemini, gemini.WithModel(cfg.GeminiModel))
		}
	}

	if cfg.GeminiAPIKey != "" {
		lite, err := client.NewGeminiFlashLiteClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Gemini Flash Lite client")
		} else {
			app.onClose(lite.Close)
			ai.Register(service.ProviderGeminiLite, lite.WithModel(cfg.GeminiLiteModel))
		}
	}

	if ai.Configured() {
		log.Info().Strs("providers", ai.Providers()).Str("default", cfg.LLMProvider).Msg("LLM providers configured")
	} else {
		log.Warn().Msg("No LLM provider configured, feedback will use the structured format")
	}
	return ai
}

func (a *App) buildSpeech(ctx context.Context, cfg *config.Config, log zerolog.Logger, metrics *observe.Metrics) *service.SpeechService {
	var assessor service.PronunciationAssessor
	if cfg.SpeechConfigured() {
		assessor = client.NewAzureSpeechClient(cfg.AzureAISpeechKey, cfg.AzureServiceRegion)
	} else {
		log.Warn().Msg("Azure Speech configuration missing, audio uploads are disabled")
	}

	var archive service.AudioArchive
	if cfg.ArchiveAudio {
		switch {
		case cfg.R2Configured():
			cf, err := client.NewCloudflareClient(ctx,
				cfg.CloudflareAccessKeyID,
				cfg.CloudflareSecretKey,
				cfg.CloudflareR2Endpoint,
				cfg.CloudflareBucketName,
				cfg.CloudflarePublicURL,
			)
			if err != nil {
				log.Error().Err(err).Msg("Failed to initialize Cloudflare client for audio archive")
			} else {
				archive = cf
			}
		case cfg.GCSBucket != "":
			gcs, err := client.NewStorageClient(ctx, cfg.GCSBucket)
			if err != nil {
				log.Error().Err(err).Msg("Failed to initialize GCS client for audio archive")
			} else {
				a.onClose(gcs.Close)
				archive = gcs
			}
		default:
			log.Warn().Msg("ARCHIVE_AUDIO is set but no bucket is configured")
		}
	}

	return service.NewSpeechService(assessor, archive, cfg.AzureSpeechLanguage, metrics)
}
