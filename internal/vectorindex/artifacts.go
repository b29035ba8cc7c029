package vectorindex

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"medrag/internal/domain"
)

// Artifact file names within an index directory.
const (
	IndexFile    = "vectors.idx"
	LookupFile   = "lookup.jsonl"
	ManifestFile = "manifest.json"
)

// Manifest records how an artifact set was built. Counts, dimension and
// checksums must match the other two files or the set is unloadable.
type Manifest struct {
	CreatedAt         time.Time `json:"created_at"`
	Metric            string    `json:"metric"`
	EmbeddingModelID  string    `json:"embedding_model_id"`
	EmbeddingDim      int       `json:"embedding_dim"`
	NumChunks         int       `json:"num_chunks"`
	ChunkSizeWords    int       `json:"chunk_size_words"`
	ChunkOverlapWords int       `json:"chunk_overlap_words"`
	SourceChunksPath  string    `json:"source_chunks_path,omitempty"`
	IndexSHA256       string    `json:"index_sha256"`
	LookupSHA256      string    `json:"lookup_sha256"`
}

// Paths locates the three artifact files under a directory.
type Paths struct {
	Dir string
}

func (p Paths) Index() string    { return filepath.Join(p.Dir, IndexFile) }
func (p Paths) Lookup() string   { return filepath.Join(p.Dir, LookupFile) }
func (p Paths) Manifest() string { return filepath.Join(p.Dir, ManifestFile) }

// BuildParams are the inputs recorded into the manifest.
type BuildParams struct {
	EmbeddingModelID  string
	ChunkSizeWords    int
	ChunkOverlapWords int
	SourceChunksPath  string
}

// Build writes the co-versioned artifact set for an ordered sequence of
// (record, vector) pairs. It fails rather than truncating when a vector
// is missing or dimensions disagree. Given the same records and model
// id, the lookup table content is reproduced byte for byte.
func Build(dir string, records []domain.ChunkRecord, vectors [][]float32, params BuildParams) (*Manifest, error) {
	if len(records) == 0 {
		return nil, errors.New("build index: no chunks")
	}
	if len(records) != len(vectors) {
		return nil, fmt.Errorf("build index: %d chunks but %d vectors", len(records), len(vectors))
	}
	if params.EmbeddingModelID == "" {
		return nil, errors.New("build index: embedding model id is empty")
	}
	dim := len(vectors[0])
	ix, err := NewFlatIndex(dim)
	if err != nil {
		return nil, err
	}
	if err := ix.Add(vectors); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := Paths{Dir: dir}

	if err := writeIndexFile(paths.Index(), ix); err != nil {
		return nil, err
	}
	if err := writeLookupFile(paths.Lookup(), records); err != nil {
		return nil, err
	}

	indexSum, err := fileSHA256(paths.Index())
	if err != nil {
		return nil, err
	}
	lookupSum, err := fileSHA256(paths.Lookup())
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		CreatedAt:         time.Now().UTC(),
		Metric:            "cosine",
		EmbeddingModelID:  params.EmbeddingModelID,
		EmbeddingDim:      dim,
		NumChunks:         len(records),
		ChunkSizeWords:    params.ChunkSizeWords,
		ChunkOverlapWords: params.ChunkOverlapWords,
		SourceChunksPath:  params.SourceChunksPath,
		IndexSHA256:       indexSum,
		LookupSHA256:      lookupSum,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(paths.Manifest(), data, 0o644); err != nil {
		return nil, err
	}
	return manifest, nil
}

func writeIndexFile(path string, ix *FlatIndex) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ix.WriteTo(fh); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

func writeLookupFile(path string, records []domain.ChunkRecord) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(fh)
	for i := range records {
		rec := records[i]
		rec.RowID = i // row order is the contract with the index
		line, err := json.Marshal(rec)
		if err != nil {
			_ = fh.Close()
			return err
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			_ = fh.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

func fileSHA256(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Store holds a loaded, read-only artifact set. All fields are
// immutable after Open, so concurrent queries need no locking.
type Store struct {
	paths    Paths
	index    *FlatIndex
	lookup   []domain.ChunkRecord
	manifest Manifest
}

// Open loads and validates the artifact set under dir. Any missing
// file, checksum mismatch or count/dimension inconsistency makes the
// whole set unloadable.
func Open(dir string) (*Store, error) {
	paths := Paths{Dir: dir}

	manifest, err := readManifest(paths.Manifest())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArtifact, err)
	}

	if err := verifyChecksum(paths.Index(), manifest.IndexSHA256); err != nil {
		return nil, fmt.Errorf("%w: index file: %v", domain.ErrArtifact, err)
	}
	if err := verifyChecksum(paths.Lookup(), manifest.LookupSHA256); err != nil {
		return nil, fmt.Errorf("%w: lookup file: %v", domain.ErrArtifact, err)
	}

	ix, err := readIndexFile(paths.Index())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArtifact, err)
	}
	lookup, err := readLookupFile(paths.Lookup())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArtifact, err)
	}

	if ix.Len() != len(lookup) {
		return nil, fmt.Errorf("%w: index has %d vectors but lookup has %d records",
			domain.ErrArtifact, ix.Len(), len(lookup))
	}
	if manifest.NumChunks != ix.Len() {
		return nil, fmt.Errorf("%w: manifest declares %d chunks but index has %d",
			domain.ErrArtifact, manifest.NumChunks, ix.Len())
	}
	if manifest.EmbeddingDim != ix.Dimension() {
		return nil, fmt.Errorf("%w: manifest declares dimension %d but index has %d",
			domain.ErrArtifact, manifest.EmbeddingDim, ix.Dimension())
	}
	for i, rec := range lookup {
		if rec.RowID != i {
			return nil, fmt.Errorf("%w: lookup row %d has row_id %d", domain.ErrArtifact, i, rec.RowID)
		}
	}

	return &Store{paths: paths, index: ix, lookup: lookup, manifest: *manifest}, nil
}

// Index returns the loaded vector index.
func (s *Store) Index() *FlatIndex { return s.index }

// Manifest returns the parsed build manifest.
func (s *Store) Manifest() Manifest { return s.manifest }

// Len returns the number of indexed chunks.
func (s *Store) Len() int { return s.index.Len() }

// Resolve maps an index row to its chunk record.
func (s *Store) Resolve(row int) (domain.ChunkRecord, error) {
	if row < 0 || row >= len(s.lookup) {
		return domain.ChunkRecord{}, fmt.Errorf("%w: row %d out of range", domain.ErrArtifact, row)
	}
	return s.lookup[row], nil
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

func verifyChecksum(path, want string) error {
	got, err := fileSHA256(path)
	if err != nil {
		return err
	}
	if want != "" && got != want {
		return errors.New("checksum mismatch")
	}
	return nil
}

func readIndexFile(path string) (*FlatIndex, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return ReadIndex(fh)
}

func readLookupFile(path string) ([]domain.ChunkRecord, error) {
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
			return nil, fmt.Errorf("invalid lookup record at line %d: %w", line, err)
		}
		if rec.Text == "" {
			return nil, fmt.Errorf("lookup record at line %d missing text", line)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// FileInfo describes one artifact file for the metadata endpoint.
type FileInfo struct {
	Path      string  `json:"path"`
	Exists    bool    `json:"exists"`
	Bytes     int64   `json:"bytes,omitempty"`
	MTimeUnix float64 `json:"mtime_unix,omitempty"`
}

// StatFile reports presence and size of an artifact file.
func StatFile(path string) FileInfo {
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{Path: path, Exists: false}
	}
	return FileInfo{
		Path:      path,
		Exists:    true,
		Bytes:     st.Size(),
		MTimeUnix: float64(st.ModTime().UnixNano()) / 1e9,
	}
}
