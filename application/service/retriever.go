package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/search"
)

func clipInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// thresholdsFor returns (perSlot, minPerSlot, minTotal) for a catalog of
// size n, per the four bands of SPEC_FULL.md §4.3.
func thresholdsFor(n int) (perSlot, minPerSlot, minTotal int) {
	switch {
	case n < 20:
		perSlot = n
		minPerSlot = 1
		minTotal = maxInt(3, n/2)
	case n < 100:
		perSlot = clipInt(n/10, 10, 15)
		minPerSlot = maxInt(2, perSlot/3)
		minTotal = maxInt(8, n/5)
	case n < 500:
		perSlot = clipInt(n/20, 15, 25)
		minPerSlot = maxInt(3, perSlot/4)
		minTotal = maxInt(12, n/10)
	default:
		perSlot = clipInt(n/30, 20, 30)
		minPerSlot = maxInt(5, perSlot/3)
		minTotal = maxInt(15, n/15)
	}
	return
}

// Retriever is C4: it narrows a user's catalog down to a query-relevant
// candidate set via adaptive per-slot thresholds over cosine similarity.
type Retriever struct {
	catalog  catalog.Store
	vectors  search.EmbeddingStore
	embedder search.Embedder
	worker   *EmbeddingWorker // may be nil; enqueues missing embeddings best-effort
	logger   *slog.Logger
}

// NewRetriever creates a new Retriever.
func NewRetriever(catalogStore catalog.Store, vectors search.EmbeddingStore, embedder search.Embedder, worker *EmbeddingWorker, logger *slog.Logger) *Retriever {
	return &Retriever{catalog: catalogStore, vectors: vectors, embedder: embedder, worker: worker, logger: logger}
}

// Retrieve returns the candidate items for ownerID, ranked against
// queryVector and intentVector. intentVector may be nil, in which case scoring uses query similarity
// alone (SPEC_FULL.md §4.3 step 7).
func (r *Retriever) Retrieve(ctx context.Context, ownerID string, queryVector, intentVector []float64) ([]catalog.Item, error) {
	items, err := r.catalog.FindByOwner(ctx, ownerID)
	if err != nil {
		// A catalog that cannot be loaded leaves nothing to fall back to,
		// so the error is returned to the caller (the orchestrator).
		r.logger.Warn("retriever: catalog load failed", slog.String("error", err.Error()))
		return nil, err
	}

	n := len(items)
	if n == 0 {
		return nil, nil
	}

	perSlot, minPerSlot, minTotal := thresholdsFor(n)
	if n < minTotal {
		return items, nil
	}

	embeddings := make([]search.Embedding, 0, n)
	byID := make(map[string]catalog.Item, n)
	var missing []catalog.Item
	for _, it := range items {
		byID[it.ID] = it
		if it.HasEmbedding() {
			embeddings = append(embeddings, search.NewEmbedding(it.ID, it.Embedding))
		} else {
			missing = append(missing, it)
		}
	}

	// Items with no stored vector are embedded on the fly via C1 so they
	// are still usable for this request's ranking; persistence of the
	// computed vector is handed off to C2 via the worker rather than
	// written synchronously here. Anything that still has no vector after
	// this (embedder unconfigured or the call itself fails) contributes
	// score 0, via scored's zero-value default.
	if len(missing) > 0 {
		embeddings = append(embeddings, r.embedMissing(ctx, missing)...)
		r.enqueueMissing(missing)
	}

	if len(embeddings) == 0 {
		// No vectors at all: full scan.
		return items, nil
	}

	scored := make(map[string]float64, len(embeddings))
	for _, e := range embeddings {
		qScore := search.CosineSimilarity(queryVector, e.Vector())
		if intentVector != nil {
			iScore := search.CosineSimilarity(intentVector, e.Vector())
			scored[e.ItemID()] = 0.7*qScore + 0.3*iScore
		} else {
			scored[e.ItemID()] = qScore
		}
	}

	bySlot := make(map[catalog.Slot][]catalog.Item)
	for _, it := range items {
		s := catalog.NormalizeSlot(string(it.Slot))
		bySlot[s] = append(bySlot[s], it)
	}

	var candidates []catalog.Item
	for slot, slotItems := range bySlot {
		sort.SliceStable(slotItems, func(i, j int) bool {
			si, sj := scored[slotItems[i].ID], scored[slotItems[j].ID]
			if si != sj {
				return si > sj
			}
			return slotItems[i].ID < slotItems[j].ID
		})
		limit := perSlot
		if limit > len(slotItems) {
			limit = len(slotItems)
		}
		candidates = append(candidates, slotItems[:limit]...)
		bySlot[slot] = slotItems[:limit]
	}

	if !meetsMinimums(bySlot, minPerSlot, minTotal) {
		return items, nil
	}

	return candidates, nil
}

func meetsMinimums(bySlot map[catalog.Slot][]catalog.Item, minPerSlot, minTotal int) bool {
	total := 0
	for _, s := range catalog.RequiredSlots {
		if len(bySlot[s]) < minPerSlot {
			return false
		}
	}
	for _, items := range bySlot {
		total += len(items)
	}
	return total >= minTotal
}

// embedMissing batch-computes vectors for items lacking a stored embedding
// (SPEC_FULL.md §4.3 step 6) so they can still be scored this request.
// Returns an Embedding per item the embedder succeeded on; items it fails
// on are simply absent, leaving them to score 0 downstream.
func (r *Retriever) embedMissing(ctx context.Context, items []catalog.Item) []search.Embedding {
	if r.embedder == nil {
		return nil
	}
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.NameText()
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		r.logger.Warn("retriever: on-the-fly embedding failed, scoring as 0", slog.String("error", err.Error()))
		return nil
	}
	out := make([]search.Embedding, 0, len(vectors))
	for i, it := range items {
		if i >= len(vectors) || vectors[i] == nil {
			continue
		}
		out = append(out, search.NewEmbedding(it.ID, vectors[i]))
	}
	return out
}

func (r *Retriever) enqueueMissing(items []catalog.Item) {
	if r.worker == nil {
		return
	}
	for _, it := range items {
		r.worker.Enqueue(it.ID)
	}
}
