package vectorindex

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmptyVector       = errors.New("empty vector")
)

// FlatL2 is an exact nearest-neighbour index using squared Euclidean
// distance. Ties keep insertion order.
type FlatL2 struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
}

// NewFlatL2 creates an index. A zero dim is fixed by the first added vector.
func NewFlatL2(dim int) *FlatL2 {
	return &FlatL2{dim: dim}
}

// Add appends vectors; their IDs are their insertion positions.
func (ix *FlatL2) Add(vectors ...[]float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dim
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("vector %d: %w", i, ErrEmptyVector)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("vector %d has %d dimensions, want %d: %w", i, len(v), dim, ErrDimensionMismatch)
		}
	}
	ix.dim = dim
	for _, v := range vectors {
		ix.vectors = append(ix.vectors, slices.Clone(v))
	}
	return nil
}

func (ix *FlatL2) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

type hit struct {
	id   int
	dist float32
}

// Search returns the IDs of the k nearest vectors, nearest first.
func (ix *FlatL2) Search(query []float32, k int) ([]int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if k <= 0 || len(ix.vectors) == 0 {
		return []int{}, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query has %d dimensions, want %d: %w", len(query), ix.dim, ErrDimensionMismatch)
	}

	hits := make([]hit, len(ix.vectors))
	for id, v := range ix.vectors {
		hits[id] = hit{id: id, dist: squaredL2(query, v)}
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		}
		return 0
	})

	k = min(k, len(hits))
	ids := make([]int, k)
	for i := range ids {
		ids[i] = hits[i].id
	}
	return ids, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
