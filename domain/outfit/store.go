package outfit

import "context"

// SavedStore is the read-only collaborator for a user's saved outfits
// (SPEC_FULL.md §12). Creation/update happens outside the core.
type SavedStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]Saved, error)
	Get(ctx context.Context, ownerID, id string) (Saved, error)
}
