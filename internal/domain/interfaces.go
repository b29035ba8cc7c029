package domain

import "context"

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into fixed-length unit vectors.
// Implementations call out to an embedding model, so Embed takes a
// context and accepts batches.
type Embedder interface {
	ModelID() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMClient produces a completion for a prompt.
type LLMClient interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}
