// Package rules holds the per-intent, per-slot prefer/avoid token tables
// and bias magnitudes the rule-based selector (C6) scores candidates
// with. Magnitudes are preserved here as configuration constants rather
// than re-derived (SPEC_FULL.md §9, resolved open question).
package rules

import (
	"strings"

	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/intent"
)

// SlotTokens is a soft prefer/avoid token list for one (intent, slot) pair.
type SlotTokens struct {
	Prefer []string
	Avoid  []string
}

// HardTokens is a hard prefer/avoid token list for one (intent, slot)
// pair. Hard-avoid items are removed unless doing so would empty the
// slot's pool; hard-prefer items float to the top.
type HardTokens struct {
	Avoid  []string
	Prefer []string
}

// biasMagnitude returns the soft bonus/penalty applied per matched token
// for an intent. Stricter occasions (business, formal, beach) get a
// larger bias than permissive ones.
func biasMagnitude(label intent.Label) float64 {
	switch label {
	case intent.Business, intent.Formal, intent.Beach:
		return 0.35
	case intent.Workout, intent.Hiking:
		return 0.18
	case intent.Party:
		return 0.12
	default:
		return 0.08
	}
}

// soft holds the per-intent, per-slot soft token tables.
var soft = map[intent.Label]map[catalog.Slot]SlotTokens{
	intent.Business: {
		catalog.SlotTop:      {Prefer: []string{"dress shirt", "button-down", "blouse", "blazer"}},
		catalog.SlotBottom:   {Prefer: []string{"chinos", "dress pants", "trousers", "pencil skirt"}},
		catalog.SlotFootwear: {Prefer: []string{"loafers", "oxford", "derby", "heels", "boots"}},
	},
	intent.Formal: {
		catalog.SlotTop:      {Prefer: []string{"dress shirt", "blouse", "blazer", "gown"}},
		catalog.SlotBottom:   {Prefer: []string{"dress pants", "formal skirt", "trousers"}},
		catalog.SlotFootwear: {Prefer: []string{"heels", "oxford", "derby"}},
	},
	intent.Beach: {
		catalog.SlotTop:      {Prefer: []string{"tank", "t-shirt", "linen shirt"}},
		catalog.SlotFootwear: {Prefer: []string{"sandals", "slides", "flip-flops"}},
	},
	intent.Hiking: {
		catalog.SlotFootwear: {Prefer: []string{"hiking boots", "trail shoes", "boots"}},
		catalog.SlotBottom:   {Avoid: []string{"shorts"}},
	},
	intent.Workout: {
		catalog.SlotTop:      {Prefer: []string{"athletic", "tank", "performance"}},
		catalog.SlotBottom:   {Prefer: []string{"shorts", "leggings", "joggers"}},
		catalog.SlotFootwear: {Prefer: []string{"sneakers", "running"}},
	},
	intent.Party: {
		catalog.SlotTop: {Avoid: []string{"hoodie"}},
	},
	intent.Casual: {
		catalog.SlotTop:      {Prefer: []string{"t-shirt", "polo", "sweater"}},
		catalog.SlotBottom:   {Prefer: []string{"jeans", "chinos"}},
		catalog.SlotFootwear: {Prefer: []string{"sneakers", "boots"}},
	},
}

// hard holds the per-intent, per-slot hard token tables.
var hard = map[intent.Label]map[catalog.Slot]HardTokens{
	intent.Business: {
		catalog.SlotTop:      {Avoid: []string{"tee", "t-shirt", "hoodie"}},
		catalog.SlotBottom:   {Avoid: []string{"shorts", "joggers", "sweatpants"}},
		catalog.SlotFootwear: {Avoid: []string{"athletic", "running", "sneaker"}},
		catalog.SlotLayer:    {Avoid: []string{"fleece"}},
	},
	intent.Formal: {
		catalog.SlotTop:      {Avoid: []string{"tee", "t-shirt", "hoodie"}},
		catalog.SlotBottom:   {Avoid: []string{"shorts", "joggers", "sweatpants"}},
		catalog.SlotFootwear: {Avoid: []string{"athletic", "running", "sneaker"}},
		catalog.SlotLayer:    {Avoid: []string{"fleece"}},
	},
	intent.Beach: {
		catalog.SlotFootwear: {
			Avoid:  []string{"dress shoe", "lace-up", "oxford", "boot", "loafer", "heel"},
			Prefer: []string{"sandals", "slides", "flip-flops"},
		},
		catalog.SlotLayer: {Avoid: []string{"suede", "wool", "fleece", "blazer", "sweater", "heavy"}},
	},
	intent.Hiking: {
		catalog.SlotFootwear: {Prefer: []string{"hiking boots", "trail shoes"}},
	},
	intent.Workout: {
		catalog.SlotTop:    {Avoid: []string{"dress shirt"}},
		catalog.SlotBottom: {Avoid: []string{"jeans", "chinos"}},
	},
}

// Bias returns the soft prefer/avoid bias for nameText under label/slot,
// scaled by the intent's bias magnitude.
func Bias(label intent.Label, slot catalog.Slot, nameText string) float64 {
	bySlot, ok := soft[label]
	if !ok {
		return 0
	}
	tokens, ok := bySlot[slot]
	if !ok {
		return 0
	}
	magnitude := biasMagnitude(label)
	var total float64
	for _, t := range tokens.Prefer {
		if strings.Contains(nameText, t) {
			total += magnitude
		}
	}
	for _, t := range tokens.Avoid {
		if strings.Contains(nameText, t) {
			total -= magnitude
		}
	}
	return total
}

// OutfitBias returns the outfit-level intent bias term added in C6's
// total-score formula, independent of any single slot.
func OutfitBias(label intent.Label) float64 {
	switch label {
	case intent.Business, intent.Formal:
		return 0.05
	case intent.Beach, intent.Hiking, intent.Workout:
		return 0.03
	default:
		return 0
	}
}

// HardFilter returns the items kept after applying the hard-avoid list for
// (label, slot), with hard-prefer matches moved to the front. Graceful
// degradation: if removing all hard-avoid matches would empty the pool,
// the avoid list is suppressed instead.
func HardFilter(label intent.Label, slot catalog.Slot, items []catalog.Item) []catalog.Item {
	bySlot, ok := hard[label]
	if !ok {
		return items
	}
	tokens, ok := bySlot[slot]
	if !ok {
		return items
	}

	kept := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if matchesAny(it.NameText(), tokens.Avoid) {
			continue
		}
		kept = append(kept, it)
	}
	if len(kept) == 0 {
		kept = items
	}

	if len(tokens.Prefer) == 0 {
		return kept
	}
	preferred := make([]catalog.Item, 0, len(kept))
	rest := make([]catalog.Item, 0, len(kept))
	for _, it := range kept {
		if matchesAny(it.NameText(), tokens.Prefer) {
			preferred = append(preferred, it)
		} else {
			rest = append(rest, it)
		}
	}
	return append(preferred, rest...)
}

func matchesAny(nameText string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(nameText, t) {
			return true
		}
	}
	return false
}

// Rationale synthesizes a short sentence for a rule-engine outfit,
// templated from the matched intent and the outfit's dominant items.
// Supplemented from the STYLO precursor's selector.py, which templates a
// rationale rather than leaving it empty for non-LLM outfits
// (SPEC_FULL.md §12).
func Rationale(label intent.Label, items []catalog.Item) string {
	if len(items) == 0 {
		return "A simple everyday outfit."
	}
	var parts []string
	for _, it := range items {
		if it.Type != "" {
			parts = append(parts, strings.ToLower(it.Type))
		}
	}
	joined := strings.Join(parts, ", ")
	switch label {
	case intent.None:
		return "A versatile combination: " + joined + "."
	default:
		return "A " + string(label) + "-appropriate combination: " + joined + "."
	}
}
