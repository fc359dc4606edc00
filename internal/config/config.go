package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage backends for guidance cards and attempt summaries.
const (
	StorageFile     = "file"
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
	StorageR2       = "r2"
	StorageGCS      = "gcs"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Host     string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"SERVER_HTTP_PORT" default:"8080"`
	GRPCPort int    `envconfig:"SERVER_GRPC_PORT" default:"9090"`

	Environment string `envconfig:"SERVER_ENV" default:"development"`

	// Timeouts
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	FeedbackTimeout time.Duration `envconfig:"FEEDBACK_TIMEOUT" default:"20s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Auth
	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	// Feedback tuning (YAML overrides on top of the defaults)
	FeedbackConfigPath string `envconfig:"FEEDBACK_CONFIG_PATH"`

	// LLM providers
	LLMProvider   string `envconfig:"LLM_PROVIDER" default:"openai"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	GeminiSAPath string `envconfig:"GEMINI_SA_PATH"`
	GCPProjectID string `envconfig:"GCP_PROJECT_ID"`
	GCPLocation  string `envconfig:"GCP_LOCATION" default:"asia-southeast1"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GeminiLiteModel string `envconfig:"GEMINI_LITE_MODEL" default:"gemini-2.0-flash-lite"`

	AzureOpenAIEndpoint   string `envconfig:"AZURE_OPENAI_ENDPOINT"`
	AzureOpenAIKey        string `envconfig:"AZURE_OPENAI_KEY"`
	AzureOpenAIDeployment string `envconfig:"AZURE_OPENAI_DEPLOYMENT" default:"gpt-4o-mini"`
	AzureOpenAIAPIVersion string `envconfig:"AZURE_OPENAI_API_VERSION" default:"2024-08-01-preview"`

	// Azure AI Speech
	AzureAISpeechKey    string `envconfig:"AZURE_AI_SPEECH_KEY"`
	AzureServiceRegion  string `envconfig:"AZURE_SERVICE_REGION"`
	AzureSpeechLanguage string `envconfig:"AZURE_SPEECH_LANGUAGE" default:"en-US"`

	// Storage
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"file"`
	HistoryDir     string `envconfig:"HISTORY_DIR" default:"./data/history"`
	GCSBucket      string `envconfig:"GCS_BUCKET"`
	ArchiveAudio   bool   `envconfig:"ARCHIVE_AUDIO" default:"false"`

	// Redis
	RedisURL string        `envconfig:"REDIS_URL"`
	RedisTTL time.Duration `envconfig:"REDIS_TTL" default:"720h"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Cloudflare R2
	CloudflareAccessKeyID string `envconfig:"CLOUDFLARE_ACCESS_KEY_ID"`
	CloudflareSecretKey   string `envconfig:"CLOUDFLARE_SECRET_ACCESS_KEY"`
	CloudflareR2Endpoint  string `envconfig:"CLOUDFLARE_R2_ENDPOINT"`
	CloudflarePublicURL   string `envconfig:"CLOUDFLARE_PUBLIC_URL"`
	CloudflareBucketName  string `envconfig:"CLOUDFLARE_BUCKET_NAME"`

	// Pub/Sub attempt events
	PubSubTopic string `envconfig:"PUBSUB_TOPIC"`

	// Metrics
	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"true"`

	// CORS
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	CORSAllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,DELETE,OPTIONS"`
	CORSAllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Accept,Authorization,Content-Type,X-Request-ID"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that depend on each other.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageFile, StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("STORAGE_BACKEND=redis requires REDIS_URL")
		}
	case StorageR2:
		if c.CloudflareBucketName == "" || c.CloudflareR2Endpoint == "" {
			return fmt.Errorf("STORAGE_BACKEND=r2 requires CLOUDFLARE_BUCKET_NAME and CLOUDFLARE_R2_ENDPOINT")
		}
	case StorageGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("STORAGE_BACKEND=gcs requires GCS_BUCKET")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.PubSubTopic != "" && c.GCPProjectID == "" {
		return fmt.Errorf("PUBSUB_TOPIC requires GCP_PROJECT_ID")
	}
	return nil
}

// HTTPAddress returns the HTTP server address.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// GRPCAddress returns the gRPC server address.
func (c *Config) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SpeechConfigured reports whether audio can be sent to Azure for assessment.
func (c *Config) SpeechConfigured() bool {
	return c.AzureAISpeechKey != "" && c.AzureServiceRegion != ""
}

// R2Configured reports whether Cloudflare R2 credentials are present.
func (c *Config) R2Configured() bool {
	return c.CloudflareAccessKeyID != "" && c.CloudflareSecretKey != "" && c.CloudflareR2Endpoint != "" && c.CloudflareBucketName != ""
}
