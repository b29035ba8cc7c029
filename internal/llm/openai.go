package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// OpenAIClient adapts the OpenAI Chat Completions API. The endpoint can
// be overridden for OpenAI-compatible servers.
type OpenAIClient struct {
	baseURL         string
	apiKey          string
	model           string
	temperature     float64
	maxTokens       int
	reasoningEffort string
	client          *http.Client
	maxRetries      int
}

func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	keyEnv := opts.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", keyEnv)
	}
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		baseURL:         baseURL,
		apiKey:          key,
		model:           opts.Model,
		temperature:     opts.Temperature,
		maxTokens:       opts.MaxTokens,
		reasoningEffort: opts.ReasoningEffort,
		client:          &http.Client{Timeout: opts.Timeout},
		maxRetries:      3,
	}, nil
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string { return "openai" }

// Complete sends the prompt as a single user message and returns the
// first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	// The API caps output tokens; steer the model toward an answer
	// that fits so it is not cut off mid-sentence.
	safeWordLimit := c.maxTokens / 2
	finalPrompt := fmt.Sprintf(
		"%s\n\nNote: this request has an upper limit on output tokens. Keep your answer within approximately %d words.",
		prompt, safeWordLimit,
	)

	body := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": finalPrompt},
		},
		"temperature":           c.temperature,
		"max_completion_tokens": c.maxTokens,
	}
	if c.reasoningEffort != "" {
		body["reasoning_effort"] = c.reasoningEffort
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	payload, err := postWithRetry(ctx, c.client, c.maxRetries, c.baseURL+"/chat/completions", data, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return out.Choices[0].Message.Content, nil
}

// postWithRetry posts JSON with exponential backoff on 429/5xx,
// honoring Retry-After. Shared by the provider clients.
func postWithRetry(ctx context.Context, client *http.Client, maxRetries int, url string, body []byte, headers map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < maxRetries {
				time.Sleep(backoffDelay(attempt))
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := backoffDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("llm request failed: %s", resp.Status)
			if attempt < maxRetries {
				time.Sleep(delay)
				continue
			}
			return nil, lastErr
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				time.Sleep(backoffDelay(attempt))
				continue
			}
			return nil, lastErr
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("llm request failed: %s: %s", resp.Status, string(payload))
		}
		return payload, nil
	}
	return nil, lastErr
}

func backoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 250 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
