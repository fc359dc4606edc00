package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/phonoecho_service/internal/capt"
)

func TestLoadFeedbackConfigDefaults(t *testing.T) {
	cfg, err := LoadFeedbackConfig("")
	require.NoError(t, err)
	assert.Equal(t, capt.DefaultFeedbackConfig(), cfg)
}

func TestLoadFeedbackConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feedback_language: en
max_guidance_phonemes: 4
phoneme_error_threshold: 65.5
error_type_priorities:
  Insertion: 4
score_labels:
  excellent: Outstanding
`), 0o600))

	cfg, err := LoadFeedbackConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.FeedbackLanguage)
	assert.Equal(t, 4, cfg.MaxGuidancePhonemes)
	assert.Equal(t, 65.5, cfg.PhonemeErrorThreshold)
	assert.Equal(t, 4, cfg.Priority(capt.ErrorTypeInsertion))
	assert.Equal(t, "Outstanding", cfg.ScoreLabel(99))
	assert.Equal(t, 3, cfg.MaxGuidanceWords)
}

func TestDecodeFeedbackConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "unknown key", body: "max_words: 3\n", wantErr: "decode feedback config"},
		{name: "wrong type", body: "max_attempt_errors: many\n", wantErr: "decode feedback config"},
		{name: "invalid result", body: "good_threshold: 99\n", wantErr: "invalid feedback config"},
		{name: "misspelled error type", body: "error_type_priorities:\n  Omision: 9\n", wantErr: `unknown error type "Omision"`},
		{name: "lowercase error type", body: "error_type_priorities:\n  omission: 9\n", wantErr: "unknown error type"},
		{name: "misspelled score band", body: "score_labels:\n  excelent: X\n", wantErr: `unknown score category "excelent"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFeedbackConfig(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeFeedbackConfigEmptyDocument(t *testing.T) {
	cfg, err := DecodeFeedbackConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, capt.DefaultFeedbackConfig(), cfg)
}

func TestLoadFeedbackConfigMissingFile(t *testing.T) {
	_, err := LoadFeedbackConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "file", cfg: Config{StorageBackend: StorageFile}},
		{name: "postgres without url", cfg: Config{StorageBackend: StoragePostgres}, wantErr: true},
		{name: "postgres", cfg: Config{StorageBackend: StoragePostgres, DatabaseURL: "postgres://localhost/capt"}},
		{name: "redis without url", cfg: Config{StorageBackend: StorageRedis}, wantErr: true},
		{name: "gcs", cfg: Config{StorageBackend: StorageGCS, GCSBucket: "lessons"}},
		{name: "r2 without bucket", cfg: Config{StorageBackend: StorageR2}, wantErr: true},
		{name: "unknown", cfg: Config{StorageBackend: "s3"}, wantErr: true},
		{name: "pubsub without project", cfg: Config{StorageBackend: StorageMemory, PubSubTopic: "attempts"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigAddresses(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", HTTPPort: 8080, GRPCPort: 9090}
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddress())
	assert.Equal(t, "127.0.0.1:9090", cfg.GRPCAddress())
}
