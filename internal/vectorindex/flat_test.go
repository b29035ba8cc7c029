package vectorindex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatIndexSearchTopOne(t *testing.T) {
	ix, err := NewFlatIndex(3)
	require.NoError(t, err)
	require.NoError(t, ix.Add([][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}))

	hits, err := ix.Search([]float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Row)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestFlatIndexSearchOrderAndClamp(t *testing.T) {
	ix, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, ix.Add([][]float32{
		{1, 0},
		{0.6, 0.8},
		{0, 1},
	}))

	hits, err := ix.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3, "k larger than the index returns all rows")
	assert.Equal(t, 0, hits[0].Row)
	assert.Equal(t, 1, hits[1].Row)
	assert.Equal(t, 2, hits[2].Row)
	for i := 0; i < len(hits)-1; i++ {
		assert.GreaterOrEqual(t, hits[i].Score, hits[i+1].Score)
	}
}

func TestFlatIndexAddRejectsBadVectors(t *testing.T) {
	ix, err := NewFlatIndex(3)
	require.NoError(t, err)

	assert.Error(t, ix.Add([][]float32{nil}))
	assert.Error(t, ix.Add([][]float32{{1, 0}}))
	assert.Equal(t, 0, ix.Len(), "failed add must not append rows")
}

func TestFlatIndexSearchValidation(t *testing.T) {
	ix, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, ix.Add([][]float32{{1, 0}}))

	_, err = ix.Search([]float32{1, 0, 0}, 1)
	assert.Error(t, err)

	_, err = ix.Search([]float32{1, 0}, 0)
	assert.Error(t, err)
}

func TestFlatIndexWriteReadRoundTrip(t *testing.T) {
	ix, err := NewFlatIndex(4)
	require.NoError(t, err)
	vectors := [][]float32{
		{0.5, 0.5, 0.5, 0.5},
		{1, 0, 0, 0},
		{0, 0, 0.6, 0.8},
	}
	require.NoError(t, ix.Add(vectors))

	var buf bytes.Buffer
	require.NoError(t, ix.WriteTo(&buf))

	got, err := ReadIndex(&buf)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Dimension())
	assert.Equal(t, 3, got.Len())
	assert.Equal(t, vectors, got.vectors)
}

func TestReadIndexRejectsGarbage(t *testing.T) {
	_, err := ReadIndex(bytes.NewReader([]byte("not an index at all")))
	assert.Error(t, err)

	_, err = ReadIndex(bytes.NewReader(nil))
	assert.Error(t, err)
}
