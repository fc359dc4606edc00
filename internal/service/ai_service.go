package service

import (
	"context"
	"time"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/client"
	"github.com/windfall/phonoecho_service/internal/errors"
	"github.com/windfall/phonoecho_service/internal/observe"
)

// Provider names accepted by AIService.
const (
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderGeminiLite = "gemini-lite"
	ProviderAzure      = "azure"
)

// ChatProvider is a text completion backend.
type ChatProvider interface {
	Chat(ctx context.Context, message string, opts client.ChatOptions) (string, error)
}

// StreamingChatProvider is a ChatProvider that can stream its output.
type StreamingChatProvider interface {
	ChatProvider
	ChatStream(ctx context.Context, message string, opts client.ChatOptions, onChunk func(string) error) error
}

var systemPrompts = map[string]string{
	"ja": "あなたは英語の発音を指導する親切なコーチです。日本語で、短く具体的に答えてください。",
	"en": "You are a friendly English pronunciation coach. Answer briefly and concretely.",
}

// AIService routes completion requests to the configured providers.
type AIService struct {
	providers       map[string]ChatProvider
	order           []string
	defaultProvider string
	timeout         time.Duration
	metrics         *observe.Metrics
}

// NewAIService creates a new AI service. Requests without a provider go to
// defaultProvider, or to the first registered one when that is missing. A
// positive timeout bounds every call.
func NewAIService(defaultProvider string, timeout time.Duration, metrics *observe.Metrics) *AIService {
	return &AIService{
		providers:       make(map[string]ChatProvider),
		defaultProvider: defaultProvider,
		timeout:         timeout,
		metrics:         metrics,
	}
}

// Register adds a provider under name, replacing any earlier one.
func (s *AIService) Register(name string, p ChatProvider) *AIService {
	if _, ok := s.providers[name]; !ok {
		s.order = append(s.order, name)
	}
	s.providers[name] = p
	return s
}

// Providers returns the registered provider names in registration order.
func (s *AIService) Providers() []string {
	return append([]string(nil), s.order...)
}

// Configured reports whether any provider is registered.
func (s *AIService) Configured() bool {
	return s != nil && len(s.order) > 0
}

func (s *AIService) resolve(provider string) (string, ChatProvider, error) {
	if s == nil || len(s.order) == 0 {
		return "", nil, errors.New(errors.ErrAIService, "no AI provider configured")
	}
	if provider == "" {
		provider = s.defaultProvider
		if _, ok := s.providers[provider]; !ok {
			provider = s.order[0]
		}
	}
	p, ok := s.providers[provider]
	if !ok {
		return "", nil, errors.New(errors.ErrAIService, provider+" client not configured")
	}
	return provider, p, nil
}

func (s *AIService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// Chat sends a message to the named provider.
func (s *AIService) Chat(ctx context.Context, message, provider string, opts client.ChatOptions) (string, error) {
	name, p, err := s.resolve(provider)
	if err != nil {
		return "", err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	out, err := p.Chat(ctx, message, opts)
	s.metrics.RecordLLM(ctx, name, time.Since(start))
	if err != nil {
		return "", errors.Wrap(errors.ErrAIService, name+" chat failed", err)
	}
	return out, nil
}

// ChatStream streams a reply from the named provider. Providers that cannot
// stream deliver their whole reply as one chunk.
func (s *AIService) ChatStream(ctx context.Context, message, provider string, opts client.ChatOptions, onChunk func(string) error) error {
	name, p, err := s.resolve(provider)
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	defer func() { s.metrics.RecordLLM(ctx, name, time.Since(start)) }()

	if sp, ok := p.(StreamingChatProvider); ok {
		return sp.ChatStream(ctx, message, opts, onChunk)
	}
	out, err := p.Chat(ctx, message, opts)
	if err != nil {
		return errors.Wrap(errors.ErrAIService, name+" chat failed", err)
	}
	return onChunk(out)
}

// Generator returns a feedback generator bound to provider. It fails when the
// provider is not configured.
func (s *AIService) Generator(provider string) (*ProviderGenerator, error) {
	name, _, err := s.resolve(provider)
	if err != nil {
		return nil, err
	}
	return &ProviderGenerator{ai: s, provider: name}, nil
}

// ProviderGenerator adapts one AIService provider to capt.Generator and
// capt.StreamGenerator.
type ProviderGenerator struct {
	ai       *AIService
	provider string
}

var (
	_ capt.Generator       = (*ProviderGenerator)(nil)
	_ capt.StreamGenerator = (*ProviderGenerator)(nil)
)

// Provider returns the resolved provider name.
func (g *ProviderGenerator) Provider() string {
	return g.provider
}

func (g *ProviderGenerator) Generate(ctx context.Context, prompt string, opts capt.GenerateOptions) (string, error) {
	return g.ai.Chat(ctx, prompt, g.provider, chatOptions(opts))
}

func (g *ProviderGenerator) GenerateStream(ctx context.Context, prompt string, opts capt.GenerateOptions, onChunk func(string) error) error {
	return g.ai.ChatStream(ctx, prompt, g.provider, chatOptions(opts), onChunk)
}

func chatOptions(opts capt.GenerateOptions) client.ChatOptions {
	system, ok := systemPrompts[opts.Language]
	if !ok {
		system = systemPrompts["en"]
	}
	return client.ChatOptions{
		SystemPrompt: system,
		MaxTokens:    opts.MaxTokens,
		Temperature:  opts.Temperature,
	}
}
