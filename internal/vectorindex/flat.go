// Package vectorindex provides a flat exact inner-product index over
// unit vectors, persisted together with a chunk lookup table and a
// build manifest as a co-versioned artifact set.
package vectorindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

var indexMagic = [4]byte{'M', 'R', 'F', 'I'}

const indexFormatVersion = 1

// FlatIndex stores vectors in row order and searches them exhaustively
// by inner product. Vectors are assumed unit-normalized, so the score
// is cosine similarity. The index is immutable once loaded and safe for
// concurrent reads.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &FlatIndex{dim: dim}, nil
}

// Dimension returns the vector dimension.
func (ix *FlatIndex) Dimension() int { return ix.dim }

// Len returns the number of indexed vectors.
func (ix *FlatIndex) Len() int { return len(ix.vectors) }

// Add appends vectors in order. Rows keep their insertion order so row
// i maps to lookup record i.
func (ix *FlatIndex) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if v == nil {
			return errors.New("nil vector")
		}
		if len(v) != ix.dim {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v), ix.dim)
		}
	}
	ix.vectors = append(ix.vectors, vectors...)
	return nil
}

// Hit is one nearest-neighbor result.
type Hit struct {
	Row   int
	Score float64
}

// Search returns the k rows with the highest inner product against the
// query, in descending score order. If fewer than k vectors are
// indexed, all rows are returned.
func (ix *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), ix.dim)
	}
	if k <= 0 {
		return nil, errors.New("k must be positive")
	}
	hits := make([]Hit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = Hit{Row: i, Score: dot(v, query)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// WriteTo serializes the index: magic, version, dimension, count, then
// float32 rows little-endian.
func (ix *FlatIndex) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(indexMagic[:]); err != nil {
		return err
	}
	header := []uint32{indexFormatVersion, uint32(ix.dim), uint32(len(ix.vectors))}
	for _, h := range header {
		if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	for _, v := range ix.vectors {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadIndex deserializes an index written by WriteTo.
func ReadIndex(r io.Reader) (*FlatIndex, error) {
	br := bufio.NewReader(r)
	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}
	if magic != indexMagic {
		return nil, errors.New("not a vector index file")
	}
	var version, dim, count uint32
	for _, p := range []*uint32{&version, &dim, &count} {
		if err := binary.Read(br, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("read index header: %w", err)
		}
	}
	if version != indexFormatVersion {
		return nil, fmt.Errorf("unsupported index format version %d", version)
	}
	ix, err := NewFlatIndex(int(dim))
	if err != nil {
		return nil, err
	}
	ix.vectors = make([][]float32, count)
	for i := range ix.vectors {
		v := make([]float32, dim)
		if err := binary.Read(br, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("read index row %d: %w", i, err)
		}
		ix.vectors[i] = v
	}
	return ix, nil
}
