package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/repository"
	"github.com/stylo/wardrobe/domain/search"
	domainservice "github.com/stylo/wardrobe/domain/service"
)

// newEmbeddingService wires store/embedder into a real domain EmbeddingService,
// for tests exercising collaborators (worker, retriever) that need a
// functioning Index rather than a mock of it.
func newEmbeddingService(t *testing.T, store search.EmbeddingStore, embedder search.Embedder) *domainservice.EmbeddingService {
	t.Helper()
	svc, err := domainservice.NewEmbedding(store, embedder, search.DefaultTokenBudget(), 1)
	require.NoError(t, err)
	return svc
}

var errItemNotFound = errors.New("item not found")

// fakeEmbedder returns a deterministic vector per distinct text, so tests
// can assert on similarity without depending on a real model.
type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
	capacity int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: make(map[string][]float64), capacity: 100}
}

func (f *fakeEmbedder) with(text string, vector []float64) *fakeEmbedder {
	f.vectors[text] = vector
	return f
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float64{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Capacity() int { return f.capacity }

// fakeCatalogStore implements catalog.Store entirely in memory.
type fakeCatalogStore struct {
	items map[string][]catalog.Item
	err   error
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{items: make(map[string][]catalog.Item)}
}

func (f *fakeCatalogStore) FindByOwner(_ context.Context, ownerID string, _ ...repository.Option) ([]catalog.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[ownerID], nil
}

func (f *fakeCatalogStore) Get(_ context.Context, ownerID, itemID string) (catalog.Item, error) {
	for _, it := range f.items[ownerID] {
		if it.ID == itemID {
			return it, nil
		}
	}
	return catalog.Item{}, errItemNotFound
}

func (f *fakeCatalogStore) Count(_ context.Context, ownerID string) (int, error) {
	return len(f.items[ownerID]), nil
}

// fakeEmbeddingStore implements search.EmbeddingStore entirely in memory.
type fakeEmbeddingStore struct {
	byItemID map[string]search.Embedding
}

func newFakeEmbeddingStore() *fakeEmbeddingStore {
	return &fakeEmbeddingStore{byItemID: make(map[string]search.Embedding)}
}

func (f *fakeEmbeddingStore) SaveAll(_ context.Context, embeddings []search.Embedding) error {
	for _, e := range embeddings {
		f.byItemID[e.ItemID()] = e
	}
	return nil
}

func (f *fakeEmbeddingStore) Find(_ context.Context, options ...repository.Option) ([]search.Embedding, error) {
	q := repository.Build(options...)
	ids := search.ItemIDsFrom(q)
	if len(ids) == 0 {
		var all []search.Embedding
		for _, e := range f.byItemID {
			all = append(all, e)
		}
		return all, nil
	}
	var result []search.Embedding
	for _, id := range ids {
		if e, ok := f.byItemID[id]; ok {
			result = append(result, e)
		}
	}
	return result, nil
}

func (f *fakeEmbeddingStore) Exists(_ context.Context, _ ...repository.Option) (bool, error) {
	return len(f.byItemID) > 0, nil
}

func (f *fakeEmbeddingStore) ItemIDs(_ context.Context, _ ...repository.Option) ([]string, error) {
	ids := make([]string, 0, len(f.byItemID))
	for id := range f.byItemID {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeEmbeddingStore) DeleteBy(_ context.Context, _ ...repository.Option) error {
	return nil
}
