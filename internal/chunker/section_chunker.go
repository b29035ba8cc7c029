// Package chunker splits documents into overlapping, section-aware chunks.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"medrag/internal/domain"
)

// SectionChunker splits each section into word windows with overlap.
// Chunk boundaries never cross a section break; a paragraph longer than
// the window is split mid-paragraph with the same overlap.
type SectionChunker struct {
	chunkSizeWords int
	overlapWords   int
	minWords       int
}

func NewSectionChunker(chunkSizeWords, overlapWords, minWords int) (*SectionChunker, error) {
	if chunkSizeWords <= 0 {
		return nil, errors.New("chunk size must be > 0")
	}
	if overlapWords < 0 || overlapWords >= chunkSizeWords {
		return nil, errors.New("overlap must satisfy 0 <= overlap < chunk size")
	}
	if minWords <= 0 {
		minWords = 1
	}
	return &SectionChunker{
		chunkSizeWords: chunkSizeWords,
		overlapWords:   overlapWords,
		minWords:       minWords,
	}, nil
}

// Chunk produces the ordered chunk sequence for a document. Ids are
// deterministic: "<docID>:<sectionIdx>:<chunkIdx>".
func (c *SectionChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if document.ID == "" {
		return nil, errors.New("document has no id")
	}
	var chunks []domain.Chunk
	for secIdx, sec := range document.Sections {
		text := strings.Join(sec.Paragraphs, "\n")
		spans := c.splitWords(text)
		for i, span := range spans {
			chunks = append(chunks, domain.Chunk{
				ID:           fmt.Sprintf("%s:%d:%d", document.ID, secIdx, i),
				DocumentID:   document.ID,
				SectionIndex: secIdx,
				SectionTitle: sec.Title,
				SectionType:  sec.Type,
				Index:        i,
				WordOffset:   span.offset,
				Text:         span.text,
			})
		}
	}
	return chunks, nil
}

type wordSpan struct {
	offset int
	text   string
}

// splitWords windows the section text by word count. A section shorter
// than the window still yields exactly one chunk; sections below the
// minimum word count yield none.
func (c *SectionChunker) splitWords(text string) []wordSpan {
	words := strings.Fields(text)
	if len(words) < c.minWords {
		return nil
	}
	if len(words) <= c.chunkSizeWords {
		return []wordSpan{{offset: 0, text: strings.Join(words, " ")}}
	}

	var spans []wordSpan
	step := c.chunkSizeWords - c.overlapWords
	for start := 0; start < len(words); start += step {
		end := start + c.chunkSizeWords
		if end > len(words) {
			end = len(words)
		}
		if end-start < c.minWords {
			break
		}
		spans = append(spans, wordSpan{
			offset: start,
			text:   strings.Join(words[start:end], " "),
		})
		if end == len(words) {
			break
		}
	}
	return spans
}
