package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient adapts the Anthropic Messages API.
type AnthropicClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
	maxRetries  int
}

func NewAnthropicClient(opts Options) (*AnthropicClient, error) {
	keyEnv := opts.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "ANTHROPIC_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", keyEnv)
	}
	baseURL := os.Getenv("ANTHROPIC_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &AnthropicClient{
		baseURL:     baseURL,
		apiKey:      key,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		client:      &http.Client{Timeout: opts.Timeout},
		maxRetries:  3,
	}, nil
}

// Name returns the provider identifier.
func (c *AnthropicClient) Name() string { return "anthropic" }

// Complete sends the prompt as a single user message and concatenates
// the text blocks of the response.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	payload, err := postWithRetry(ctx, c.client, c.maxRetries, c.baseURL+"/v1/messages", data, map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	var b strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
