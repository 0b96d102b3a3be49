package catalog

import (
	"context"

	"github.com/stylo/wardrobe/domain/repository"
)

// Store is the read-only collaborator the core consumes for catalog data.
// Item lifecycle (create/update/delete) belongs to an external system
// (see SPEC_FULL.md §1 Out-of-scope); the core only lists and fetches.
type Store interface {
	// FindByOwner returns every item owned by ownerID, optionally
	// narrowed by options (e.g. repository.WithSlot, WithHasEmbedding).
	FindByOwner(ctx context.Context, ownerID string, options ...repository.Option) ([]Item, error)

	// Get fetches a single item by ID, scoped to ownerID so a caller can
	// never read another owner's item by guessing an ID.
	Get(ctx context.Context, ownerID, itemID string) (Item, error)

	// Count returns the number of items owned by ownerID.
	Count(ctx context.Context, ownerID string) (int, error)
}
