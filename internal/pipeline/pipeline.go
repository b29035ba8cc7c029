// Package pipeline implements the offline indexing phase: documents ->
// chunk records -> embeddings -> index artifact set.
package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"medrag/internal/domain"
	"medrag/internal/vectorindex"
)

// RecordFromChunk carries document provenance onto a chunk record.
// RowID is assigned later, when the record is written into an artifact set.
func RecordFromChunk(doc domain.Document, ch domain.Chunk) domain.ChunkRecord {
	return domain.ChunkRecord{
		ChunkID:      ch.ID,
		PMCID:        doc.ID,
		PMID:         doc.PMID,
		SectionIndex: ch.SectionIndex,
		SectionTitle: ch.SectionTitle,
		ChunkIndex:   ch.Index,
		Text:         ch.Text,
		Journal:      doc.Journal,
		DOI:          doc.DOI,
		Year:         doc.Year,
		Month:        doc.Month,
		SourceXML:    doc.Source,
	}
}

// ChunksMeta is written next to the chunks file to record how it was built.
type ChunksMeta struct {
	Timestamp      string `json:"timestamp"`
	NumDocuments   int    `json:"num_documents"`
	NumChunks      int    `json:"num_chunks"`
	ChunkSizeWords int    `json:"chunk_size_words"`
	OverlapWords   int    `json:"overlap_words"`
	MinWords       int    `json:"min_words"`
}

// BuildChunks chunks every document and writes one JSON record per line
// to outPath, plus a meta file describing the run.
func BuildChunks(docs []domain.Document, c domain.Chunker, outPath string, meta ChunksMeta, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(docs) == 0 {
		return 0, errors.New("build chunks: no documents")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, err
	}
	fh, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriter(fh)

	written := 0
	for _, doc := range docs {
		chunks, err := c.Chunk(doc)
		if err != nil {
			_ = fh.Close()
			return 0, fmt.Errorf("chunk %s: %w", doc.ID, err)
		}
		for _, ch := range chunks {
			line, err := json.Marshal(RecordFromChunk(doc, ch))
			if err != nil {
				_ = fh.Close()
				return 0, err
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				_ = fh.Close()
				return 0, err
			}
			written++
		}
	}
	if err := w.Flush(); err != nil {
		_ = fh.Close()
		return 0, err
	}
	if err := fh.Close(); err != nil {
		return 0, err
	}
	logger.Info("wrote chunks", "path", outPath, "documents", len(docs), "chunks", written)

	meta.Timestamp = time.Now().Format(time.RFC3339)
	meta.NumDocuments = len(docs)
	meta.NumChunks = written
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return written, err
	}
	metaPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".meta.json"
	if err := os.WriteFile(metaPath, metaData, 0o644); err != nil {
		return written, err
	}
	return written, nil
}

// LoadChunkRecords reads a chunks JSONL file. Records without text are
// an error, not a skip: the index must cover every chunk.
func LoadChunkRecords(path string) ([]domain.ChunkRecord, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var records []domain.ChunkRecord
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Bytes()
		if len(text) == 0 {
			continue
		}
		var rec domain.ChunkRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("invalid chunk record at line %d: %w", line, err)
		}
		if rec.Text == "" {
			return nil, fmt.Errorf("chunk record at line %d has no text", line)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// IndexParams configures BuildIndex.
type IndexParams struct {
	ChunkSizeWords    int
	ChunkOverlapWords int
	SourceChunksPath  string
	Force             bool
}

// BuildIndex embeds every chunk and writes the artifact set. An
// existing index is only overwritten with Force.
func BuildIndex(ctx context.Context, records []domain.ChunkRecord, embedder domain.Embedder, dir string, params IndexParams, logger *slog.Logger) (*vectorindex.Manifest, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(records) == 0 {
		return nil, errors.New("build index: no chunk records")
	}
	paths := vectorindex.Paths{Dir: dir}
	if !params.Force {
		if _, err := os.Stat(paths.Index()); err == nil {
			return nil, fmt.Errorf("index already exists in %s, use force to overwrite", dir)
		}
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	logger.Info("embedding chunks", "count", len(texts), "model", embedder.ModelID())
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(records) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(records))
	}

	logger.Info("building index", "dim", len(vectors[0]))
	manifest, err := vectorindex.Build(dir, records, vectors, vectorindex.BuildParams{
		EmbeddingModelID:  embedder.ModelID(),
		ChunkSizeWords:    params.ChunkSizeWords,
		ChunkOverlapWords: params.ChunkOverlapWords,
		SourceChunksPath:  params.SourceChunksPath,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("artifacts saved", "dir", dir, "chunks", manifest.NumChunks)
	return manifest, nil
}
