// Package outfit holds the shapes the selector (C6) and LLM delegate (C7)
// both produce, and the read-only SavedOutfit collaborator.
package outfit

import (
	"sort"
	"strings"
	"time"

	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/intent"
)

// Outfit binds at most one item per slot plus a score and rationale.
type Outfit struct {
	Slots     map[catalog.Slot]catalog.Item
	Score     float64
	Rationale string
}

// HasRequiredSlots reports whether top, bottom, and footwear are all
// filled, the minimum a valid Outfit must satisfy.
func (o Outfit) HasRequiredSlots() bool {
	for _, s := range catalog.RequiredSlots {
		if _, ok := o.Slots[s]; !ok {
			return false
		}
	}
	return true
}

// Items returns the outfit's items in a stable slot order.
func (o Outfit) Items() []catalog.Item {
	order := []catalog.Slot{
		catalog.SlotTop, catalog.SlotBottom, catalog.SlotFootwear,
		catalog.SlotLayer, catalog.SlotOnePiece, catalog.SlotAccessories,
	}
	items := make([]catalog.Item, 0, len(o.Slots))
	for _, s := range order {
		if it, ok := o.Slots[s]; ok {
			items = append(items, it)
		}
	}
	return items
}

// DedupKey returns a sorted-multiset key of the outfit's item IDs, used by
// the assembler to avoid emitting the same combination twice.
func (o Outfit) DedupKey() string {
	ids := make([]string, 0, len(o.Slots))
	for _, it := range o.Items() {
		ids = append(ids, it.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// SuggestionResult is the full response for one suggestion request.
type SuggestionResult struct {
	Intent  intent.Label
	Outfits []Outfit
}

// Saved is a previously saved outfit, owned by a user. The core only
// reads these (SPEC_FULL.md §12); creation/update is an external
// collaborator's responsibility.
type Saved struct {
	ID        string
	OwnerID   string
	Name      string
	Items     map[catalog.Slot]string // slot -> item ID
	Pinned    bool
	CreatedAt time.Time
}
