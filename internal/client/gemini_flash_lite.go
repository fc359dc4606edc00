package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiFlashLiteClient talks to the Gemini API directly with an API key.
// It is the lightweight generator used when Vertex AI is not configured.
type GeminiFlashLiteClient struct {
	client *genai.Client
	model  string
}

// NewGeminiFlashLiteClient creates a client authenticated with apiKey.
func NewGeminiFlashLiteClient(ctx context.Context, apiKey string) (*GeminiFlashLiteClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini flash lite client: %w", err)
	}

	return &GeminiFlashLiteClient{
		client: client,
		model:  "gemini-2.0-flash-lite",
	}, nil
}

// WithModel sets the model to use.
func (c *GeminiFlashLiteClient) WithModel(model string) *GeminiFlashLiteClient {
	if model != "" {
		c.model = model
	}
	return c
}

// Close closes the client.
func (c *GeminiFlashLiteClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *GeminiFlashLiteClient) generativeModel(opts ChatOptions) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.model)
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		model.SetTemperature(float32(opts.Temperature))
	}
	if opts.SystemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(opts.SystemPrompt))
	}
	return model
}

// Chat sends a chat message and returns the response.
func (c *GeminiFlashLiteClient) Chat(ctx context.Context, message string, opts ChatOptions) (string, error) {
	resp, err := c.generativeModel(opts).GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// ChatStream streams chat responses.
func (c *GeminiFlashLiteClient) ChatStream(ctx context.Context, message string, opts ChatOptions, onChunk func(string) error) error {
	iter := c.generativeModel(opts).GenerateContentStream(ctx, genai.Text(message))

	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		if err := onChunk(responseText(resp)); err != nil {
			return err
		}
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
