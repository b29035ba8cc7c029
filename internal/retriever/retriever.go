// Package retriever embeds queries and resolves nearest neighbors
// against a loaded index artifact set.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"medrag/internal/domain"
	"medrag/internal/vectorindex"
)

// Retriever executes dense retrieval. The embedder's model id must
// match the one recorded in the index manifest; a mismatch is a fatal
// configuration error, not a silent degrade.
type Retriever struct {
	store    *vectorindex.Store
	embedder domain.Embedder
	log      *slog.Logger
}

func New(store *vectorindex.Store, embedder domain.Embedder, logger *slog.Logger) (*Retriever, error) {
	if logger == nil {
		logger = slog.Default()
	}
	manifestModel := store.Manifest().EmbeddingModelID
	if embedder.ModelID() != manifestModel {
		return nil, fmt.Errorf("embedding model %q does not match index manifest model %q",
			embedder.ModelID(), manifestModel)
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		log:      logger.With("component", "retriever"),
	}, nil
}

// Retrieve returns up to k chunks sorted by descending similarity. If
// the index holds fewer than k vectors, all of them are returned.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrProvider, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for one query", domain.ErrProvider, len(vectors))
	}

	hits, err := r.store.Index().Search(vectors[0], k)
	if err != nil {
		return nil, err
	}

	results := make([]domain.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		rec, err := r.store.Resolve(h.Row)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.RetrievedChunk{Record: rec, Score: h.Score})
	}
	r.log.Debug("retrieved chunks", "query_len", len(query), "k", k, "results", len(results))
	return results, nil
}
