package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/phonoecho_service/internal/config"
	"github.com/windfall/phonoecho_service/internal/logger"
	"github.com/windfall/phonoecho_service/internal/repository"
)

func TestBuild_LocalBackends(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		want    interface{}
	}{
		{name: "memory", backend: config.StorageMemory, want: &repository.InMemoryRepository{}},
		{name: "file", backend: config.StorageFile, want: &repository.FileRepository{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				StorageBackend:      tt.backend,
				HistoryDir:          t.TempDir(),
				LLMProvider:         "openai",
				OpenAIAPIKey:        "sk-test",
				OpenAIModel:         "gpt-4o-mini",
				ArchiveAudio:        true,
				AzureSpeechLanguage: "en-US",
			}

			app, err := Build(context.Background(), cfg, logger.NewNop(), nil)
			require.NoError(t, err)
			defer app.Close()

			assert.IsType(t, tt.want, app.Repo)
			assert.Equal(t, []string{"openai"}, app.AI.Providers())
			assert.False(t, app.Speech.Configured())
			assert.Nil(t, app.PubSub)
			assert.Empty(t, app.Checks)
			assert.NotNil(t, app.Coaching)
		})
	}
}

func TestBuild_FeedbackConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feedback.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feedback_language: en\n"), 0o644))

	cfg := &config.Config{StorageBackend: config.StorageMemory, FeedbackConfigPath: path}
	app, err := Build(context.Background(), cfg, logger.NewNop(), nil)
	require.NoError(t, err)
	defer app.Close()
	assert.Equal(t, "en", app.Feedback.FeedbackLanguage)
	assert.Equal(t, "en", app.Coaching.FeedbackConfig().FeedbackLanguage)
	assert.False(t, app.AI.Configured())

	require.NoError(t, os.WriteFile(path, []byte("feedback_language: fr\n"), 0o644))
	_, err = Build(context.Background(), cfg, logger.NewNop(), nil)
	assert.Error(t, err)
}

func TestBuild_UnknownBackend(t *testing.T) {
	_, err := Build(context.Background(), &config.Config{StorageBackend: "s3"}, logger.NewNop(), nil)
	assert.Error(t, err)
}

func TestApp_CloseOrder(t *testing.T) {
	var order []int
	app := &App{}
	app.onClose(func() { order = append(order, 1) })
	app.onClose(func() { order = append(order, 2) })

	app.Close()
	app.Close()
	assert.Equal(t, []int{2, 1}, order)
}
