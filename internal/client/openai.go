package client

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// ChatOptions tunes a single completion request. Zero values leave the
// provider defaults in place.
type ChatOptions struct {
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// OpenAIClient wraps the OpenAI API client.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI client. An empty baseURL uses the
// public API.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.GPT4oMini,
	}
}

// WithModel sets the model to use.
func (c *OpenAIClient) WithModel(model string) *OpenAIClient {
	if model != "" {
		c.model = model
	}
	return c
}

func (c *OpenAIClient) request(message string, opts ChatOptions) openai.ChatCompletionRequest {
	var msgs []openai.ChatCompletionMessage
	if opts.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: opts.SystemPrompt})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	}
}

// Chat sends a chat message and returns the response.
func (c *OpenAIClient) Chat(ctx context.Context, message string, opts ChatOptions) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(message, opts))
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// ChatStream streams chat responses.
func (c *OpenAIClient) ChatStream(ctx context.Context, message string, opts ChatOptions, onChunk func(string) error) error {
	req := c.request(message, opts)
	req.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if len(response.Choices) > 0 {
			if err := onChunk(response.Choices[0].Delta.Content); err != nil {
				return err
			}
		}
	}
}
