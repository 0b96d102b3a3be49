package search

import (
	"context"

	"github.com/stylo/wardrobe/domain/repository"
)

// Embedding is a persisted vector for one catalog item.
type Embedding struct {
	itemID string
	vector []float64
}

// NewEmbedding creates a new Embedding.
func NewEmbedding(itemID string, vector []float64) Embedding {
	v := make([]float64, len(vector))
	copy(v, vector)
	return Embedding{itemID: itemID, vector: v}
}

// ItemID returns the catalog item ID this embedding belongs to.
func (e Embedding) ItemID() string { return e.itemID }

// Vector returns the embedding's float components.
func (e Embedding) Vector() []float64 {
	v := make([]float64, len(e.vector))
	copy(v, e.vector)
	return v
}

// EmbeddingStore defines persistence operations for catalog item vector
// embeddings.
type EmbeddingStore interface {
	// SaveAll persists pre-computed embeddings, upserting by item ID.
	SaveAll(ctx context.Context, embeddings []Embedding) error

	// Find returns embeddings matching the given options (owner/slot
	// filters, item ID lists). Embeddings are not scored here; callers
	// compute similarity themselves via CosineSimilarity/TopKSimilar.
	Find(ctx context.Context, options ...repository.Option) ([]Embedding, error)

	// Exists checks whether any row matches the given options.
	Exists(ctx context.Context, options ...repository.Option) (bool, error)

	// ItemIDs returns catalog item IDs matching the given options.
	ItemIDs(ctx context.Context, options ...repository.Option) ([]string, error)

	// DeleteBy removes embeddings matching the given options.
	DeleteBy(ctx context.Context, options ...repository.Option) error
}
