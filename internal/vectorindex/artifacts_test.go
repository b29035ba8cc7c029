package vectorindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
)

func sampleRecords() []domain.ChunkRecord {
	return []domain.ChunkRecord{
		{ChunkID: "PMC1:0:0", PMCID: "PMC1", SectionTitle: "TITLE_ABSTRACT", Text: "first chunk text"},
		{ChunkID: "PMC1:1:0", PMCID: "PMC1", SectionTitle: "Methods", Text: "second chunk text"},
		{ChunkID: "PMC2:0:0", PMCID: "PMC2", SectionTitle: "TITLE_ABSTRACT", Text: "third chunk text"},
	}
}

func sampleVectors() [][]float32 {
	return [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

func buildSample(t *testing.T, dir string) *Manifest {
	t.Helper()
	m, err := Build(dir, sampleRecords(), sampleVectors(), BuildParams{
		EmbeddingModelID:  "test-model",
		ChunkSizeWords:    300,
		ChunkOverlapWords: 50,
	})
	require.NoError(t, err)
	return m
}

func TestBuildAndOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	manifest := buildSample(t, dir)

	assert.Equal(t, "cosine", manifest.Metric)
	assert.Equal(t, 3, manifest.EmbeddingDim)
	assert.Equal(t, 3, manifest.NumChunks)
	assert.NotEmpty(t, manifest.IndexSHA256)
	assert.NotEmpty(t, manifest.LookupSHA256)

	store, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, "test-model", store.Manifest().EmbeddingModelID)

	// row order is the contract: search row i, resolve record i
	hits, err := store.Index().Search([]float32{0, 1, 0}, 1)
	require.NoError(t, err)
	rec, err := store.Resolve(hits[0].Row)
	require.NoError(t, err)
	assert.Equal(t, "PMC1:1:0", rec.ChunkID)
	assert.Equal(t, 1, rec.RowID)
}

func TestBuildLookupIsReproducible(t *testing.T) {
	first := buildSample(t, t.TempDir())
	second := buildSample(t, t.TempDir())
	assert.Equal(t, first.LookupSHA256, second.LookupSHA256)
	assert.Equal(t, first.IndexSHA256, second.IndexSHA256)
}

func TestBuildRejectsInconsistentInputs(t *testing.T) {
	dir := t.TempDir()

	_, err := Build(dir, nil, nil, BuildParams{EmbeddingModelID: "m"})
	assert.Error(t, err)

	_, err = Build(dir, sampleRecords(), sampleVectors()[:2], BuildParams{EmbeddingModelID: "m"})
	assert.Error(t, err, "missing vector must fail the build")

	bad := sampleVectors()
	bad[1] = []float32{1, 0}
	_, err = Build(dir, sampleRecords(), bad, BuildParams{EmbeddingModelID: "m"})
	assert.Error(t, err, "dimension mismatch must fail the build")

	_, err = Build(dir, sampleRecords(), sampleVectors(), BuildParams{})
	assert.Error(t, err, "empty model id must fail the build")
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrArtifact)
}

func TestOpenDetectsTamperedLookup(t *testing.T) {
	dir := t.TempDir()
	buildSample(t, dir)

	path := filepath.Join(dir, LookupFile)
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = fh.WriteString(`{"row_id":3,"chunk_id":"extra","text":"x"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	_, err = Open(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrArtifact)
}

func TestOpenDetectsTamperedIndex(t *testing.T) {
	dir := t.TempDir()
	buildSample(t, dir)

	path := filepath.Join(dir, IndexFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Open(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrArtifact)
}

func TestOpenDetectsMissingFile(t *testing.T) {
	dir := t.TempDir()
	buildSample(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, IndexFile)))

	_, err := Open(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrArtifact)
}

func TestResolveOutOfRange(t *testing.T) {
	dir := t.TempDir()
	buildSample(t, dir)
	store, err := Open(dir)
	require.NoError(t, err)

	_, err = store.Resolve(-1)
	assert.Error(t, err)
	_, err = store.Resolve(3)
	assert.Error(t, err)
}

func TestStatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")

	info := StatFile(path)
	assert.False(t, info.Exists)

	require.NoError(t, os.WriteFile(path, []byte("abcd"), 0o644))
	info = StatFile(path)
	assert.True(t, info.Exists)
	assert.Equal(t, int64(4), info.Bytes)
	assert.Greater(t, info.MTimeUnix, 0.0)
}
