package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stylo/wardrobe/domain/repository"
	"github.com/stylo/wardrobe/domain/search"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeEmbedder struct {
	calls [][]string
	errAt int // batch index at which to return an error; -1 = never
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, texts)
	if f.errAt >= 0 && idx == f.errAt {
		return nil, fmt.Errorf("embed error at batch %d", idx)
	}
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

func (f *fakeEmbedder) Capacity() int { return 100 }

type fakeEmbeddingStore struct {
	saved    [][]search.Embedding
	existing map[string]search.Embedding
	saveErr  int // SaveAll call index at which to return an error; -1 = never
}

func (f *fakeEmbeddingStore) SaveAll(_ context.Context, embeddings []search.Embedding) error {
	idx := len(f.saved)
	f.saved = append(f.saved, embeddings)
	if f.saveErr >= 0 && idx == f.saveErr {
		return fmt.Errorf("save error at call %d", idx)
	}
	for _, e := range embeddings {
		f.existing[e.ItemID()] = e
	}
	return nil
}

func (f *fakeEmbeddingStore) Find(_ context.Context, options ...repository.Option) ([]search.Embedding, error) {
	q := repository.Build(options...)
	ids := search.ItemIDsFrom(q)
	var result []search.Embedding
	for _, id := range ids {
		if e, ok := f.existing[id]; ok {
			result = append(result, e)
		}
	}
	return result, nil
}

func (f *fakeEmbeddingStore) Exists(_ context.Context, _ ...repository.Option) (bool, error) {
	return len(f.existing) > 0, nil
}

func (f *fakeEmbeddingStore) ItemIDs(_ context.Context, _ ...repository.Option) ([]string, error) {
	ids := make([]string, 0, len(f.existing))
	for id := range f.existing {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeEmbeddingStore) DeleteBy(_ context.Context, _ ...repository.Option) error {
	return nil
}

// --- helpers ---

func testBudget() search.TokenBudget {
	// Large char budget so existing count-based tests are unaffected by
	// truncation; batching is still capped at 10 texts/batch internally.
	b, _ := search.NewTokenBudget(1000000)
	return b
}

func newDocs(n int, text string) []search.Document {
	documents := make([]search.Document, n)
	for i := range documents {
		documents[i] = search.NewDocument(fmt.Sprintf("id-%d", i), text)
	}
	return documents
}

// --- tests ---

func TestEmbeddingService_Index_EmptyRequest(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: -1}
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	err = svc.Index(context.Background(), search.NewIndexRequest(nil))
	require.NoError(t, err)
	require.Empty(t, embedder.calls)
	require.Empty(t, store.saved)
}

func TestEmbeddingService_Index_SingleBatch(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: -1}
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	documents := newDocs(5, "some text")

	err = svc.Index(context.Background(), search.NewIndexRequest(documents))
	require.NoError(t, err)

	require.Len(t, embedder.calls, 1, "5 short docs fit in one batch")
	require.Len(t, store.saved, 1, "1 SaveAll call")
	require.Len(t, store.saved[0], 5)
}

func TestEmbeddingService_Index_MultipleBatches(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: -1}
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	// maxTextsPerBatch caps a batch at 10 texts regardless of char budget.
	documents := newDocs(25, strings.Repeat("a", 10))

	err = svc.Index(context.Background(), search.NewIndexRequest(documents))
	require.NoError(t, err)

	require.Len(t, embedder.calls, 3, "25 docs at 10/batch = 3 batches")
	require.Len(t, embedder.calls[0], 10)
	require.Len(t, embedder.calls[1], 10)
	require.Len(t, embedder.calls[2], 5)

	require.Len(t, store.saved, 3, "3 SaveAll calls")
}

func TestEmbeddingService_Index_ProgressCallback(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: -1}
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	documents := newDocs(25, strings.Repeat("a", 10))

	type call struct {
		completed int
		total     int
	}
	var calls []call

	err = svc.Index(context.Background(), search.NewIndexRequest(documents),
		search.WithProgress(func(completed, total int) {
			calls = append(calls, call{completed, total})
		}),
	)
	require.NoError(t, err)

	require.Equal(t, []call{
		{10, 25},
		{20, 25},
		{25, 25},
	}, calls)
}

func TestEmbeddingService_Index_Deduplication(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{
		existing: map[string]search.Embedding{
			"id-0": search.NewEmbedding("id-0", []float64{1, 2, 3}),
			"id-2": search.NewEmbedding("id-2", []float64{4, 5, 6}),
		},
		saveErr: -1,
	}
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	documents := []search.Document{
		search.NewDocument("id-0", "already exists"),
		search.NewDocument("id-1", "new doc"),
		search.NewDocument("id-2", "already exists"),
		search.NewDocument("id-3", "new doc"),
	}

	err = svc.Index(context.Background(), search.NewIndexRequest(documents))
	require.NoError(t, err)

	require.Len(t, embedder.calls, 1)
	require.Len(t, embedder.calls[0], 2, "only 2 new documents embedded")
}

func TestEmbeddingService_Index_EmbedErrorMidBatch(t *testing.T) {
	embedder := &fakeEmbedder{errAt: 1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: -1}
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	documents := newDocs(15, "x")

	err = svc.Index(context.Background(), search.NewIndexRequest(documents))
	require.Error(t, err)
	require.Contains(t, err.Error(), "embed batch")
	require.Contains(t, err.Error(), "1 of 2 embedding batches failed")

	require.Len(t, embedder.calls, 2, "both batches attempted; the second one fails")
	require.Len(t, store.saved, 1, "only the first batch saved")
}

func TestEmbeddingService_Index_SaveErrorMidBatch(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: 0}

	documents := newDocs(15, "x")
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	err = svc.Index(context.Background(), search.NewIndexRequest(documents))
	require.Error(t, err)
	require.Contains(t, err.Error(), "save batch")
	require.Contains(t, err.Error(), "1 of 2 embedding batches failed")

	require.Len(t, embedder.calls, 2, "both batches embedded")
	require.Len(t, store.saved, 2, "both save attempts made")
}

func TestEmbeddingService_Index_BatchErrorCallback(t *testing.T) {
	embedder := &fakeEmbedder{errAt: 1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: -1}
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	documents := newDocs(15, "x")

	type batchErrCall struct {
		start int
		end   int
		err   string
	}
	var errCalls []batchErrCall

	err = svc.Index(context.Background(), search.NewIndexRequest(documents),
		search.WithBatchError(func(batchStart, batchEnd int, err error) {
			errCalls = append(errCalls, batchErrCall{batchStart, batchEnd, err.Error()})
		}),
	)
	require.Error(t, err)

	require.Len(t, errCalls, 1, "batch error callback called once for the failed batch")
	require.Equal(t, 10, errCalls[0].start)
	require.Equal(t, 15, errCalls[0].end)
	require.Contains(t, errCalls[0].err, "embed error at batch 1")
}

func TestEmbeddingService_Index_InvalidDocumentsFiltered(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: -1}
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	documents := []search.Document{
		search.NewDocument("", "empty id"),
		search.NewDocument("id-1", "   "),
		search.NewDocument("id-2", "valid text"),
	}

	err = svc.Index(context.Background(), search.NewIndexRequest(documents))
	require.NoError(t, err)

	require.Len(t, embedder.calls, 1)
	require.Len(t, embedder.calls[0], 1, "only 1 valid document")
}

func TestEmbeddingService_Index_TruncatesLargeTexts(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: -1}

	budget, err := search.NewTokenBudget(20)
	require.NoError(t, err)

	svc, err := NewEmbedding(store, embedder, budget, 1)
	require.NoError(t, err)

	documents := []search.Document{
		search.NewDocument("id-0", "short"),
		search.NewDocument("id-1", strings.Repeat("x", 50)),
	}

	err = svc.Index(context.Background(), search.NewIndexRequest(documents))
	require.NoError(t, err)

	// "short" (5 chars) fits alone. The 50-char text is truncated to 20.
	// Both exceed 20 together so they split into separate batches.
	require.Len(t, embedder.calls, 2)
	require.Equal(t, "short", embedder.calls[0][0])
	require.Len(t, embedder.calls[1][0], 20, "text truncated to maxChars")
}

func TestEmbeddingService_Index_ParallelBatches(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: -1}
	svc, err := NewEmbedding(store, embedder, testBudget(), 3)
	require.NoError(t, err)

	documents := newDocs(25, strings.Repeat("a", 10))

	err = svc.Index(context.Background(), search.NewIndexRequest(documents))
	require.NoError(t, err)

	require.Len(t, embedder.calls, 3)
	require.Len(t, store.saved, 3)

	total := 0
	for _, batch := range store.saved {
		total += len(batch)
	}
	require.Equal(t, 25, total)
}

func TestEmbeddingService_Embed(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: -1}
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	vec, err := svc.Embed(context.Background(), "casual friday")
	require.NoError(t, err)
	require.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestEmbeddingService_Embed_EmptyText(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{existing: map[string]search.Embedding{}, saveErr: -1}
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestEmbeddingService_Exists(t *testing.T) {
	embedder := &fakeEmbedder{errAt: -1}
	store := &fakeEmbeddingStore{
		existing: map[string]search.Embedding{"id-0": search.NewEmbedding("id-0", []float64{1})},
		saveErr:  -1,
	}
	svc, err := NewEmbedding(store, embedder, testBudget(), 1)
	require.NoError(t, err)

	ok, err := svc.Exists(context.Background(), search.WithItemID("id-0"))
	require.NoError(t, err)
	require.True(t, ok)
}
