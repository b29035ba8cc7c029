// Package generator assembles grounded prompts from retrieved chunks
// and turns LLM completions into cited answers.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"medrag/internal/domain"
)

const noContextAnswer = "I found no relevant documents to answer your question."

const promptTemplate = `You are an expert biomedical literature assistant.
Answer the user's question using ONLY the provided context below.
If the context does not contain enough information to answer, say "I don't know based on the provided context."
Cite the context chunks you use by their ID, e.g. [1], [2].
Every factual statement must be cited.

Context:
%s

Question: %s

Answer:`

// Generator builds a bounded-length prompt from retrieved chunks and
// asks the configured LLM for an answer.
type Generator struct {
	client          domain.LLMClient
	maxContextChars int
	log             *slog.Logger
}

func New(client domain.LLMClient, maxContextChars int, logger *slog.Logger) *Generator {
	if maxContextChars <= 0 {
		maxContextChars = 12000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:          client,
		maxContextChars: maxContextChars,
		log:             logger.With("component", "generator"),
	}
}

// Generate answers the question from the given chunks, which must be
// sorted by descending score. Citations cover exactly the chunks whose
// text made it into the prompt; when the context budget forces
// truncation, the lowest-scoring chunks are dropped first.
func (g *Generator) Generate(ctx context.Context, question string, chunks []domain.RetrievedChunk) (domain.AnswerWithCitations, error) {
	if len(chunks) == 0 {
		return domain.AnswerWithCitations{
			Answer:      noContextAnswer,
			Citations:   []domain.Citation{},
			ContextUsed: []domain.RetrievedChunk{},
		}, nil
	}

	included := g.fitToBudget(chunks)
	prompt := buildPrompt(question, included)

	answer, err := g.client.Complete(ctx, prompt)
	if err != nil {
		return domain.AnswerWithCitations{}, fmt.Errorf("%w: %s: %v", domain.ErrProvider, g.client.Name(), err)
	}

	citations := make([]domain.Citation, len(included))
	for i, c := range included {
		citations[i] = domain.Citation{
			ChunkID: c.Record.ChunkID,
			PMCID:   c.Record.PMCID,
			Snippet: snippet(c.Record.Text, 50),
		}
	}

	return domain.AnswerWithCitations{
		Answer:      strings.TrimSpace(answer),
		Citations:   citations,
		ContextUsed: included,
	}, nil
}

// fitToBudget keeps the highest-scoring prefix whose formatted context
// fits maxContextChars. At least one chunk is always kept; a single
// oversized chunk gets its text truncated instead.
func (g *Generator) fitToBudget(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	var included []domain.RetrievedChunk
	used := 0
	for i, c := range chunks {
		entry := len(formatChunk(i+1, c))
		if used+entry > g.maxContextChars {
			if len(included) == 0 {
				c.Record.Text = truncateRunes(c.Record.Text, g.maxContextChars)
				included = append(included, c)
			}
			break
		}
		used += entry
		included = append(included, c)
	}
	if len(included) < len(chunks) {
		g.log.Debug("context truncated", "kept", len(included), "retrieved", len(chunks))
	}
	return included
}

func buildPrompt(question string, chunks []domain.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = formatChunk(i+1, c)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(parts, "\n\n"), question)
}

func formatChunk(n int, c domain.RetrievedChunk) string {
	return fmt.Sprintf("[%d] (%s, %s): %s", n, c.Record.PMCID, c.Record.SectionTitle, c.Record.Text)
}

func snippet(text string, maxRunes int) string {
	r := []rune(text)
	if len(r) <= maxRunes {
		return text
	}
	return string(r[:maxRunes]) + "..."
}

func truncateRunes(text string, maxRunes int) string {
	r := []rune(text)
	if len(r) <= maxRunes {
		return text
	}
	return string(r[:maxRunes])
}
