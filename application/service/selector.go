package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/intent"
	"github.com/stylo/wardrobe/domain/outfit"
	"github.com/stylo/wardrobe/domain/palette"
	"github.com/stylo/wardrobe/domain/rules"
	"github.com/stylo/wardrobe/domain/search"
)

// assemblySteps bounds the greedy assembly walk (SPEC_FULL.md §4.4: i =
// 0..9).
const assemblySteps = 10

// optionalSlots are filled when acceptable but never block assembly.
var optionalSlots = []catalog.Slot{catalog.SlotLayer, catalog.SlotAccessories}

// Selector is C6: assembles up to k outfits from a candidate set using
// per-intent prefer/avoid rules, hard filters, color harmony, and
// semantic fit to the query.
type Selector struct {
	embedder search.Embedder
	logger   *slog.Logger
}

// NewSelector creates a new rule-based Selector.
func NewSelector(embedder search.Embedder, logger *slog.Logger) *Selector {
	return &Selector{embedder: embedder, logger: logger}
}

// slotPool is a scored, filtered, ranked candidate list for one slot.
type slotPool struct {
	slot  catalog.Slot
	items []catalog.Item
}

// Select returns up to k outfits for (queryText, candidates, label).
func (s *Selector) Select(ctx context.Context, queryText string, candidates []catalog.Item, label intent.Label, k int) []outfit.Outfit {
	if k <= 0 || k > 3 {
		k = 3
	}
	if len(candidates) == 0 {
		return nil
	}

	queryVec := s.embedSafe(ctx, queryText)
	intentVec := s.embedSafe(ctx, string(label))

	bySlot := make(map[catalog.Slot][]catalog.Item)
	for _, it := range candidates {
		slot := catalog.NormalizeSlot(string(it.Slot))
		bySlot[slot] = append(bySlot[slot], it)
	}

	pools := make(map[catalog.Slot]slotPool, len(bySlot))
	for slot, items := range bySlot {
		pools[slot] = s.rankSlot(ctx, slot, items, queryVec, intentVec, label)
	}

	for _, required := range catalog.RequiredSlots {
		if len(pools[required].items) == 0 {
			return nil
		}
	}

	assembled := s.assemble(pools, label)
	s.score(ctx, assembled, queryVec, label)

	sort.SliceStable(assembled, func(i, j int) bool {
		return assembled[i].Score > assembled[j].Score
	})
	if len(assembled) > k {
		assembled = assembled[:k]
	}
	return assembled
}

func (s *Selector) embedSafe(ctx context.Context, text string) []float64 {
	if s.embedder == nil || text == "" {
		return nil
	}
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil || len(vectors) == 0 {
		if err != nil {
			s.logger.Warn("selector: embed failed", slog.String("error", err.Error()))
		}
		return nil
	}
	return vectors[0]
}

// rankSlot applies the hard filter, scores each remaining item, then sorts
// the pool by score (descending, ties by item ID). The hard-prefer order
// that rules.HardFilter returns is not kept: a hard-prefer match ranks
// first only when it also has the highest score.
func (s *Selector) rankSlot(ctx context.Context, slot catalog.Slot, items []catalog.Item, queryVec, intentVec []float64, label intent.Label) slotPool {
	filtered := rules.HardFilter(label, slot, items)

	type scoredItem struct {
		item  catalog.Item
		score float64
	}
	scored := make([]scoredItem, 0, len(filtered))
	for _, it := range filtered {
		nameVec := s.embedSafe(ctx, it.NameText())
		raw := 0.6*search.CosineSimilarity(queryVec, nameVec) + 0.4*search.CosineSimilarity(intentVec, nameVec)
		total := raw + rules.Bias(label, slot, it.NameText())
		scored = append(scored, scoredItem{item: it, score: total})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].item.ID < scored[j].item.ID
	})

	ranked := make([]catalog.Item, len(scored))
	for i, si := range scored {
		ranked[i] = si.item
	}
	return slotPool{slot: slot, items: ranked}
}

// assemble walks i = 0..assemblySteps-1, choosing position min(i,
// pool_size-1) in each required slot's ranked pool, filling optional
// slots from the top of their pools, and deduplicating by the outfit's
// sorted item-ID multiset.
func (s *Selector) assemble(pools map[catalog.Slot]slotPool, label intent.Label) []outfit.Outfit {
	seen := make(map[string]struct{})
	var outfits []outfit.Outfit

	for i := 0; i < assemblySteps; i++ {
		slots := make(map[catalog.Slot]catalog.Item, len(catalog.RequiredSlots)+len(optionalSlots))
		ok := true
		for _, required := range catalog.RequiredSlots {
			pool := pools[required].items
			if len(pool) == 0 {
				ok = false
				break
			}
			idx := i
			if idx >= len(pool) {
				idx = len(pool) - 1
			}
			slots[required] = pool[idx]
		}
		if !ok {
			break
		}

		for _, opt := range optionalSlots {
			pool := pools[opt].items
			if len(pool) == 0 {
				continue
			}
			slots[opt] = pool[0]
		}

		o := outfit.Outfit{Slots: slots, Rationale: rules.Rationale(label, itemsOf(slots))}
		key := o.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		outfits = append(outfits, o)
	}

	return outfits
}

func itemsOf(slots map[catalog.Slot]catalog.Item) []catalog.Item {
	items := make([]catalog.Item, 0, len(slots))
	for _, it := range slots {
		items = append(items, it)
	}
	return items
}

// score computes the outfit-level total: 0.4*color_score + 0.6*
// semantic_score + intent_bias(label), scaled to [0, 100] for the
// external response contract.
func (s *Selector) score(ctx context.Context, outfits []outfit.Outfit, queryVec []float64, label intent.Label) {
	for i := range outfits {
		items := outfits[i].Items()

		colors := make([]string, 0, len(items))
		for _, it := range items {
			if it.Color != "" {
				colors = append(colors, it.Color)
			}
		}
		colorScore := palette.Harmony(colors)

		var semanticSum float64
		var semanticCount int
		for _, it := range items {
			nameVec := s.embedSafe(ctx, it.NameText())
			if nameVec == nil {
				continue
			}
			semanticSum += search.CosineSimilarity(queryVec, nameVec)
			semanticCount++
		}
		semanticScore := 0.0
		if semanticCount > 0 {
			semanticScore = semanticSum / float64(semanticCount)
		}

		total := 0.4*colorScore + 0.6*semanticScore + rules.OutfitBias(label)
		if total < 0 {
			total = 0
		}
		if total > 1 {
			total = 1
		}
		outfits[i].Score = total * 100
	}
}
