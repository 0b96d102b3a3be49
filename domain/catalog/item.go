// Package catalog holds the CatalogItem aggregate: the clothing items a
// user owns, grouped by slot.
package catalog

import (
	"strings"
	"time"
)

// Slot is the role an item plays inside an outfit. Each item belongs to
// exactly one slot.
type Slot string

// Slot values. "shoes" is accepted on read and normalized to Footwear;
// only Footwear is ever written back.
const (
	SlotTop         Slot = "top"
	SlotBottom      Slot = "bottom"
	SlotFootwear    Slot = "footwear"
	SlotLayer       Slot = "layer"
	SlotOnePiece    Slot = "one-piece"
	SlotAccessories Slot = "accessories"
	SlotUnknown     Slot = ""
)

// NormalizeSlot folds legacy/alternate spellings onto the canonical set.
func NormalizeSlot(raw string) Slot {
	switch Slot(raw) {
	case SlotTop, SlotBottom, SlotFootwear, SlotLayer, SlotOnePiece, SlotAccessories:
		return Slot(raw)
	case "shoes", "shoe":
		return SlotFootwear
	default:
		return SlotUnknown
	}
}

// RequiredSlots is the set of slots every emitted Outfit must fill.
var RequiredSlots = []Slot{SlotTop, SlotBottom, SlotFootwear}

// Item is a single piece of clothing owned by a user.
type Item struct {
	ID          string
	OwnerID     string
	Slot        Slot
	Type        string
	Color       string
	ImageRef    string
	Description string
	Embedding   []float64
	UpdatedAt   time.Time
}

// HasEmbedding reports whether the item carries a stored vector.
func (i Item) HasEmbedding() bool {
	return len(i.Embedding) > 0
}

// NameText is the lowercased "type + description" text the rule engine
// matches prefer/avoid tokens against and the embedder encodes for
// semantic scoring.
func (i Item) NameText() string {
	return strings.ToLower(i.Type + " " + i.Description)
}
