// Package llm provides clients for hosted language model providers and
// an environment-driven factory.
package llm

import (
	"fmt"
	"time"

	"medrag/internal/domain"
)

// Options configures a provider client.
type Options struct {
	Provider        string // openai | anthropic | dummy
	Model           string
	APIKeyEnv       string // env var holding the key; provider default when empty
	Temperature     float64
	MaxTokens       int
	ReasoningEffort string // openai only; omitted when empty
	Timeout         time.Duration
}

// NewClient builds the client selected by opts.Provider.
func NewClient(opts Options) (domain.LLMClient, error) {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	switch opts.Provider {
	case "dummy", "":
		return NewDummyClient(), nil
	case "openai":
		return NewOpenAIClient(opts)
	case "anthropic":
		return NewAnthropicClient(opts)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", opts.Provider)
	}
}
