package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/windfall/phonoecho_service/internal/errors"
)

// AzureChatClient wraps the Azure OpenAI Chat Completions REST API.
type AzureChatClient struct {
	endpoint string // e.g. https://your-resource.openai.azure.com
	apiKey   string
	client   *http.Client
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

// NewAzureChatClient creates a new Azure OpenAI Chat Completions client.
// When endpoint is a bare resource URL, the deployment and API version are
// used to build the full completions path.
func NewAzureChatClient(endpoint, apiKey, deployment, apiVersion string) *AzureChatClient {
	if endpoint != "" && !strings.Contains(endpoint, "/chat/completions") {
		endpoint = fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			strings.TrimRight(endpoint, "/"), url.PathEscape(deployment), url.QueryEscape(apiVersion))
	}
	return &AzureChatClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Chat sends the message, with an optional system prompt, and returns the
// assistant's reply.
func (c *AzureChatClient) Chat(ctx context.Context, message string, opts ChatOptions) (string, error) {
	if c.apiKey == "" || c.endpoint == "" {
		return "", errors.New(errors.ErrAIService, "Azure OpenAI Chat credentials not configured")
	}

	reqBody := chatRequest{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if opts.SystemPrompt != "" {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "system", Content: opts.SystemPrompt})
	}
	reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "user", Content: message})

	bodyJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("azure openai chat api error %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from azure openai")
	}

	return result.Choices[0].Message.Content, nil
}
