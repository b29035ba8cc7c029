// Package service orchestrates the online pipeline: retrieve, then
// generate a grounded answer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"medrag/internal/domain"
	"medrag/internal/generator"
	"medrag/internal/retriever"
	"medrag/internal/vectorindex"
)

// MaxQueryLen bounds accepted query and question strings.
const MaxQueryLen = 1000

// Service answers questions over the loaded index. The store is
// read-only for the process lifetime, so concurrent requests share it
// without locking.
type Service struct {
	store     *vectorindex.Store
	retriever *retriever.Retriever
	generator *generator.Generator
	topK      int
	log       *slog.Logger
}

func New(store *vectorindex.Store, r *retriever.Retriever, g *generator.Generator, topK int, logger *slog.Logger) *Service {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		retriever: r,
		generator: g,
		topK:      topK,
		log:       logger.With("component", "service"),
	}
}

// TopKDefault returns the default retrieval depth.
func (s *Service) TopKDefault() int { return s.topK }

// Store exposes the loaded artifact set for the metadata endpoint.
func (s *Service) Store() *vectorindex.Store { return s.store }

// Retrieve returns the top-k chunks for a query. k <= 0 selects the
// configured default.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	if err := validateText(query, "query"); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.topK
	}
	return s.retriever.Retrieve(ctx, query, k)
}

// Answer runs the full pipeline for a question.
func (s *Service) Answer(ctx context.Context, question string) (domain.AnswerWithCitations, error) {
	if err := validateText(question, "question"); err != nil {
		return domain.AnswerWithCitations{}, err
	}

	s.log.Info("processing question", "len", len(question))
	chunks, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		return domain.AnswerWithCitations{}, err
	}
	s.log.Info("retrieved context", "chunks", len(chunks))

	answer, err := s.generator.Generate(ctx, question, chunks)
	if err != nil {
		return domain.AnswerWithCitations{}, err
	}
	s.log.Info("generated answer", "citations", len(answer.Citations))
	return answer, nil
}

func validateText(text, field string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, field)
	}
	if len(text) > MaxQueryLen {
		return fmt.Errorf("%w: %s exceeds %d characters", domain.ErrInvalidInput, field, MaxQueryLen)
	}
	return nil
}
