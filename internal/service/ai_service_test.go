package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/client"
	"github.com/windfall/phonoecho_service/internal/errors"
)

func TestAIService_Resolve(t *testing.T) {
	openai := &fakeProvider{reply: "from openai"}
	gemini := &fakeProvider{reply: "from gemini"}

	tests := []struct {
		name            string
		defaultProvider string
		provider        string
		want            string
		wantErr         bool
	}{
		{name: "explicit", defaultProvider: ProviderOpenAI, provider: ProviderGemini, want: "from gemini"},
		{name: "default", defaultProvider: ProviderGemini, want: "from gemini"},
		{name: "missing default falls back to first", defaultProvider: ProviderAzure, want: "from openai"},
		{name: "unknown provider", defaultProvider: ProviderOpenAI, provider: ProviderGeminiLite, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := NewAIService(tt.defaultProvider, 0, nil).
				Register(ProviderOpenAI, openai).
				Register(ProviderGemini, gemini)

			got, err := ai.Chat(context.Background(), "hi", tt.provider, client.ChatOptions{})
			if tt.wantErr {
				assert.True(t, errors.IsCode(err, errors.ErrAIService))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAIService_NotConfigured(t *testing.T) {
	var nilService *AIService
	_, err := nilService.Generator("")
	assert.True(t, errors.IsCode(err, errors.ErrAIService))
	assert.False(t, nilService.Configured())

	ai := NewAIService(ProviderOpenAI, 0, nil)
	assert.False(t, ai.Configured())
	_, err = ai.Chat(context.Background(), "hi", "", client.ChatOptions{})
	assert.True(t, errors.IsCode(err, errors.ErrAIService))
}

func TestAIService_ChatErrorIsWrapped(t *testing.T) {
	ai := NewAIService("", 0, nil).Register(ProviderAzure, &fakeProvider{err: fmt.Errorf("429")})

	_, err := ai.Chat(context.Background(), "hi", "", client.ChatOptions{})
	assert.True(t, errors.IsCode(err, errors.ErrAIService))
	assert.Contains(t, err.Error(), "azure chat failed")
}

type deadlineProvider struct {
	hasDeadline bool
}

func (d *deadlineProvider) Chat(ctx context.Context, message string, opts client.ChatOptions) (string, error) {
	_, d.hasDeadline = ctx.Deadline()
	return "ok", nil
}

func TestAIService_Timeout(t *testing.T) {
	p := &deadlineProvider{}
	ai := NewAIService("", 5*time.Second, nil).Register(ProviderOpenAI, p)

	_, err := ai.Chat(context.Background(), "hi", "", client.ChatOptions{})
	require.NoError(t, err)
	assert.True(t, p.hasDeadline)
}

func TestProviderGenerator_Options(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	ai := NewAIService("", 0, nil).Register(ProviderGeminiLite, p)

	gen, err := ai.Generator("")
	require.NoError(t, err)
	assert.Equal(t, ProviderGeminiLite, gen.Provider())

	_, err = gen.Generate(context.Background(), "prompt", capt.GenerateOptions{MaxTokens: 99, Temperature: 0.2, Language: "en"})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "prompt", capt.GenerateOptions{Language: "fr"})
	require.NoError(t, err)

	require.Len(t, p.opts, 2)
	assert.Equal(t, client.ChatOptions{SystemPrompt: systemPrompts["en"], MaxTokens: 99, Temperature: 0.2}, p.opts[0])
	assert.Equal(t, systemPrompts["en"], p.opts[1].SystemPrompt)
}

func TestAIService_Providers(t *testing.T) {
	ai := NewAIService("", 0, nil).
		Register(ProviderGemini, &fakeProvider{}).
		Register(ProviderOpenAI, &fakeProvider{}).
		Register(ProviderGemini, &fakeProvider{})

	assert.Equal(t, []string{ProviderGemini, ProviderOpenAI}, ai.Providers())
}
