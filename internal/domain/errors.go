package domain

import "errors"

// Error kinds used across the request path. Callers classify failures
// with errors.Is; the HTTP layer maps each kind to a status code.
var (
	// ErrInvalidInput marks a malformed query or question, rejected
	// before any retrieval work.
	ErrInvalidInput = errors.New("invalid input")

	// ErrArtifact marks a missing, corrupt or inconsistent index
	// artifact set. Queries fail fast instead of serving partial results.
	ErrArtifact = errors.New("index artifacts unavailable")

	// ErrProvider marks an embedding or LLM provider failure or timeout.
	// Retryable by the caller, never masked as an empty answer.
	ErrProvider = errors.New("provider request failed")
)
