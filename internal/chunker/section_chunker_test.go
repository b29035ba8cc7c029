package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
)

func wordsText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func testDoc(sections ...domain.Section) domain.Document {
	return domain.Document{ID: "PMC1", Sections: sections}
}

func TestNewSectionChunkerValidation(t *testing.T) {
	_, err := NewSectionChunker(0, 0, 1)
	assert.Error(t, err)

	_, err = NewSectionChunker(100, 100, 1)
	assert.Error(t, err, "overlap equal to chunk size must be rejected")

	_, err = NewSectionChunker(100, -1, 1)
	assert.Error(t, err)

	c, err := NewSectionChunker(100, 20, 0)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestChunkShortSectionYieldsOneChunk(t *testing.T) {
	c, err := NewSectionChunker(300, 50, 1)
	require.NoError(t, err)

	doc := testDoc(domain.Section{Title: "Intro", Type: domain.SectionBody, Paragraphs: []string{"just a few words here"}})
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "PMC1:0:0", chunks[0].ID)
	assert.Equal(t, "just a few words here", chunks[0].Text)
	assert.Equal(t, "Intro", chunks[0].SectionTitle)
}

func TestChunkLongSectionWindows(t *testing.T) {
	c, err := NewSectionChunker(300, 50, 1)
	require.NoError(t, err)

	doc := testDoc(domain.Section{Title: "Results", Type: domain.SectionBody, Paragraphs: []string{wordsText(700)}})
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	// step 250: windows [0,300) [250,550) [500,700)
	require.Len(t, chunks, 3)
	assert.Equal(t, "PMC1:0:0", chunks[0].ID)
	assert.Equal(t, "PMC1:0:1", chunks[1].ID)
	assert.Equal(t, "PMC1:0:2", chunks[2].ID)
	assert.Equal(t, 0, chunks[0].WordOffset)
	assert.Equal(t, 250, chunks[1].WordOffset)
	assert.Equal(t, 500, chunks[2].WordOffset)
	assert.Len(t, strings.Fields(chunks[0].Text), 300)
	assert.Len(t, strings.Fields(chunks[2].Text), 200)
}

func TestAdjacentChunksShareOverlap(t *testing.T) {
	c, err := NewSectionChunker(100, 25, 1)
	require.NoError(t, err)

	doc := testDoc(domain.Section{Title: "Body", Type: domain.SectionBody, Paragraphs: []string{wordsText(380)}})
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 0; i < len(chunks)-1; i++ {
		prev := strings.Fields(chunks[i].Text)
		next := strings.Fields(chunks[i+1].Text)
		tail := strings.Join(prev[len(prev)-25:], " ")
		head := strings.Join(next[:25], " ")
		assert.Equal(t, tail, head, "chunks %d and %d must share the overlap window", i, i+1)
		assert.NotEmpty(t, tail)
	}
}

func TestChunkLongParagraphSplitsMidParagraph(t *testing.T) {
	c, err := NewSectionChunker(100, 10, 1)
	require.NoError(t, err)

	// single paragraph longer than the window
	doc := testDoc(domain.Section{Title: "Discussion", Type: domain.SectionBody, Paragraphs: []string{wordsText(250)}})
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
}

func TestChunkDeterminism(t *testing.T) {
	c, err := NewSectionChunker(120, 30, 1)
	require.NoError(t, err)

	doc := testDoc(
		domain.Section{Title: "TITLE_ABSTRACT", Type: domain.SectionTitleAbstract, Paragraphs: []string{"TITLE: a study", "ABSTRACT: " + wordsText(200)}},
		domain.Section{Title: "Methods", Type: domain.SectionBody, Paragraphs: []string{wordsText(300), wordsText(50)}},
	)

	first, err := c.Chunk(doc)
	require.NoError(t, err)
	second, err := c.Chunk(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second, "chunking must be deterministic")
}

func TestChunkSectionBoundariesRespected(t *testing.T) {
	c, err := NewSectionChunker(300, 50, 1)
	require.NoError(t, err)

	doc := testDoc(
		domain.Section{Title: "A", Type: domain.SectionBody, Paragraphs: []string{wordsText(40)}},
		domain.Section{Title: "B", Type: domain.SectionBody, Paragraphs: []string{wordsText(40)}},
	)
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].SectionIndex)
	assert.Equal(t, 1, chunks[1].SectionIndex)
	assert.Equal(t, 0, chunks[1].Index, "chunk index restarts per section")
}

func TestChunkEmptyDocumentID(t *testing.T) {
	c, err := NewSectionChunker(100, 10, 1)
	require.NoError(t, err)
	_, err = c.Chunk(domain.Document{})
	assert.Error(t, err)
}

func TestChunkSectionBelowMinWords(t *testing.T) {
	c, err := NewSectionChunker(100, 10, 5)
	require.NoError(t, err)

	doc := testDoc(domain.Section{Title: "Tiny", Type: domain.SectionBody, Paragraphs: []string{"too short"}})
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
