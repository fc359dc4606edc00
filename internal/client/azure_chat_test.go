package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAzureChatClientEndpoint(t *testing.T) {
	c := NewAzureChatClient("https://res.openai.azure.com/", "k", "gpt-4o-mini", "2024-08-01-preview")
	assert.Equal(t, "https://res.openai.azure.com/openai/deployments/gpt-4o-mini/chat/completions?api-version=2024-08-01-preview", c.endpoint)

	full := "https://res.openai.azure.com/openai/deployments/x/chat/completions?api-version=1"
	assert.Equal(t, full, NewAzureChatClient(full, "k", "ignored", "ignored").endpoint)
}

func TestAzureChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 120, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(chatResponse{Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "ok"}}}})
	}))
	defer server.Close()

	c := NewAzureChatClient(server.URL+"/chat/completions", "secret", "", "")
	out, err := c.Chat(context.Background(), "prompt", ChatOptions{MaxTokens: 120})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestAzureChatErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer server.Close()

	_, err := NewAzureChatClient(server.URL+"/chat/completions", "secret", "", "").Chat(context.Background(), "p", ChatOptions{})
	assert.ErrorContains(t, err, "no choices")

	_, err = NewAzureChatClient("", "", "", "").Chat(context.Background(), "p", ChatOptions{})
	assert.Error(t, err)
}
