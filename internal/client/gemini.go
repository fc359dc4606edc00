package client

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/genai"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GeminiClient wraps the Google Vertex AI Gemini client.
type GeminiClient struct {
	client    *genai.Client
	model     string
	projectID string
	location  string
}

// NewGeminiClient creates a new Gemini client using Vertex AI and the
// application default credentials. When projectID is empty the project of
// the default credentials is used.
func NewGeminiClient(ctx context.Context, projectID, location string) (*GeminiClient, error) {
	if projectID == "" {
		creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
		projectID = creds.ProjectID
	}
	return newGeminiClient(ctx, projectID, location)
}

// NewGeminiClientWithServiceAccount creates a new Gemini client using a service account file.
func NewGeminiClientWithServiceAccount(ctx context.Context, projectID, location, serviceAccountPath string) (*GeminiClient, error) {
	data, err := os.ReadFile(serviceAccountPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials from file: %w", err)
	}
	if projectID == "" {
		projectID = creds.ProjectID
	}

	// Set the environment variable so the SDK can find the credentials
	if err := os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", serviceAccountPath); err != nil {
		return nil, fmt.Errorf("failed to set GOOGLE_APPLICATION_CREDENTIALS: %w", err)
	}
	return newGeminiClient(ctx, projectID, location)
}

func newGeminiClient(ctx context.Context, projectID, location string) (*GeminiClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("gemini project id not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, err
	}

	return &GeminiClient{
		client:    client,
		model:     "gemini-2.0-flash",
		projectID: projectID,
		location:  location,
	}, nil
}

// WithModel sets the model to use.
func (c *GeminiClient) WithModel(model string) *GeminiClient {
	if model != "" {
		c.model = model
	}
	return c
}

func geminiConfig(opts ChatOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if opts.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.SystemPrompt, genai.RoleUser)
	}
	return cfg
}

// Chat sends a chat message and returns the response.
func (c *GeminiClient) Chat(ctx context.Context, message string, opts ChatOptions) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(message), geminiConfig(opts))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// ChatStream streams chat responses.
func (c *GeminiClient) ChatStream(ctx context.Context, message string, opts ChatOptions, onChunk func(string) error) error {
	stream := c.client.Models.GenerateContentStream(ctx, c.model, genai.Text(message), geminiConfig(opts))

	for resp, err := range stream {
		if err != nil {
			return err
		}
		if err := onChunk(resp.Text()); err != nil {
			return err
		}
	}
	return nil
}
