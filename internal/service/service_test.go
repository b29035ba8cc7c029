package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
	"medrag/internal/generator"
	"medrag/internal/llm"
	"medrag/internal/retriever"
	"medrag/internal/vectorindex"
)

type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) ModelID() string { return "stub-model" }
func (s *stubEmbedder) Dimension() int  { return 3 }

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := s.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = []float32{1, 0, 0}
		}
	}
	return out, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	records := []domain.ChunkRecord{
		{ChunkID: "PMC1:0:0", PMCID: "PMC1", SectionTitle: "TITLE_ABSTRACT", Text: "tau aggregation drives tangles"},
		{ChunkID: "PMC2:0:0", PMCID: "PMC2", SectionTitle: "Results", Text: "amyloid beta accumulates"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
	}
	_, err := vectorindex.Build(dir, records, vectors, vectorindex.BuildParams{EmbeddingModelID: "stub-model"})
	require.NoError(t, err)
	store, err := vectorindex.Open(dir)
	require.NoError(t, err)

	emb := &stubEmbedder{vectors: map[string][]float32{
		"what about amyloid?": {0, 1, 0},
	}}
	r, err := retriever.New(store, emb, nil)
	require.NoError(t, err)
	g := generator.New(llm.NewDummyClient(), 12000, nil)
	return New(store, r, g, 5, nil)
}

func TestRetrieveUsesDefaultK(t *testing.T) {
	svc := newTestService(t)

	results, err := svc.Retrieve(context.Background(), "what about amyloid?", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2, "default k caps at index size")
	assert.Equal(t, "PMC2:0:0", results[0].Record.ChunkID)
}

func TestRetrieveExplicitK(t *testing.T) {
	svc := newTestService(t)

	results, err := svc.Retrieve(context.Background(), "what about amyloid?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "PMC2:0:0", results[0].Record.ChunkID)
}

func TestAnswerCitesRetrievedChunks(t *testing.T) {
	svc := newTestService(t)

	answer, err := svc.Answer(context.Background(), "what about amyloid?")
	require.NoError(t, err)
	assert.NotEmpty(t, answer.Answer)
	require.NotEmpty(t, answer.Citations)

	retrieved := map[string]bool{"PMC1:0:0": true, "PMC2:0:0": true}
	for _, c := range answer.Citations {
		assert.True(t, retrieved[c.ChunkID], "citation %s must come from the retrieved set", c.ChunkID)
	}
	assert.Len(t, answer.ContextUsed, len(answer.Citations))
}

func TestValidationRejectsBadInput(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Retrieve(context.Background(), "", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Retrieve(context.Background(), "  \t ", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Answer(context.Background(), strings.Repeat("a", MaxQueryLen+1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
