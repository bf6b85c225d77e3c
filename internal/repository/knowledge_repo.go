package repository

import "context"

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// VectorIndex answers nearest-neighbour queries over the added vectors.
// IDs are positions in insertion order.
type VectorIndex interface {
	Add(vectors ...[]float32) error
	// Search returns up to k IDs ranked from nearest to farthest.
	Search(query []float32, k int) ([]int, error)
	Len() int
}

// Completer is the hosted language model.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
	Name() string
}
