package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/stylo/wardrobe/domain/repository"
	"github.com/stylo/wardrobe/domain/search"
)

// Embedding provides domain logic for computing and persisting catalog
// item embeddings.
type Embedding interface {
	// Index embeds and persists any documents not already stored,
	// skipping items that already have an embedding.
	Index(ctx context.Context, request search.IndexRequest, opts ...search.IndexOption) error

	// Embed computes the embedding for a single piece of query text
	// without persisting it.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Exists checks whether any row matches the given options.
	Exists(ctx context.Context, options ...repository.Option) (bool, error)
}

// EmbeddingService implements C2's embedding persistence: it deduplicates
// against existing rows, batches remaining documents within a token
// budget, embeds each batch, and commits each batch's vectors in one
// SaveAll call. It underlies both the background worker's micro-batches
// and the administrative batch-refresh operation.
type EmbeddingService struct {
	store       search.EmbeddingStore
	embedder    search.Embedder
	budget      search.TokenBudget
	parallelism int
}

// NewEmbedding creates a new embedding service. The budget controls text
// truncation and adaptive batching. Parallelism controls how many batches
// are dispatched concurrently; values <= 0 are clamped to 1.
func NewEmbedding(store search.EmbeddingStore, embedder search.Embedder, budget search.TokenBudget, parallelism int) (*EmbeddingService, error) {
	if store == nil {
		return nil, fmt.Errorf("NewEmbedding: nil store")
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	return &EmbeddingService{
		store:       store,
		embedder:    embedder,
		budget:      budget,
		parallelism: parallelism,
	}, nil
}

// Index indexes documents: validate -> deduplicate against store -> batch
// embed -> batch save, one transaction per batch via store.SaveAll.
func (s *EmbeddingService) Index(ctx context.Context, request search.IndexRequest, opts ...search.IndexOption) error {
	cfg := search.NewIndexConfig(opts...)

	documents := request.Documents()
	if len(documents) == 0 {
		return nil
	}

	valid := make([]search.Document, 0, len(documents))
	for _, doc := range documents {
		if doc.ItemID() != "" && strings.TrimSpace(doc.Text()) != "" {
			valid = append(valid, doc)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	ids := make([]string, len(valid))
	for i, doc := range valid {
		ids[i] = doc.ItemID()
	}

	found, err := s.store.Find(ctx, search.WithItemIDs(ids))
	if err != nil {
		return fmt.Errorf("check existing: %w", err)
	}

	existing := make(map[string]struct{}, len(found))
	for _, emb := range found {
		existing[emb.ItemID()] = struct{}{}
	}

	var toEmbed []search.Document
	for _, doc := range valid {
		if _, ok := existing[doc.ItemID()]; !ok {
			toEmbed = append(toEmbed, doc)
		}
	}
	if len(toEmbed) == 0 {
		return nil
	}

	if s.embedder == nil {
		return fmt.Errorf("Index: nil embedder")
	}

	batches := s.budget.Batches(toEmbed)
	total := len(toEmbed)

	offsets := make([]int, len(batches))
	off := 0
	for i, batch := range batches {
		offsets[i] = off
		off += len(batch)
	}

	var (
		mu          sync.Mutex
		batchErrors []error
		completed   int
	)

	sem := make(chan struct{}, s.parallelism)
	var wg sync.WaitGroup

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, batch []search.Document) {
			defer wg.Done()
			defer func() { <-sem }()

			start := offsets[idx]
			end := start + len(batch)

			texts := make([]string, len(batch))
			for j, doc := range batch {
				texts[j] = s.budget.Truncate(doc.Text())
			}

			vectors, err := s.embedder.Embed(ctx, texts)
			if err != nil {
				batchErr := fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
				mu.Lock()
				batchErrors = append(batchErrors, batchErr)
				mu.Unlock()
				if cfg.BatchError() != nil {
					cfg.BatchError()(start, end, err)
				}
				return
			}

			if len(vectors) != len(batch) {
				batchErr := fmt.Errorf("embed batch [%d:%d]: count mismatch: got %d, expected %d", start, end, len(vectors), len(batch))
				mu.Lock()
				batchErrors = append(batchErrors, batchErr)
				mu.Unlock()
				if cfg.BatchError() != nil {
					cfg.BatchError()(start, end, fmt.Errorf("count mismatch: got %d, expected %d", len(vectors), len(batch)))
				}
				return
			}

			embeddings := make([]search.Embedding, len(batch))
			for j, doc := range batch {
				embeddings[j] = search.NewEmbedding(doc.ItemID(), vectors[j])
			}

			if err := s.store.SaveAll(ctx, embeddings); err != nil {
				batchErr := fmt.Errorf("save batch [%d:%d]: %w", start, end, err)
				mu.Lock()
				batchErrors = append(batchErrors, batchErr)
				mu.Unlock()
				if cfg.BatchError() != nil {
					cfg.BatchError()(start, end, err)
				}
				return
			}

			mu.Lock()
			completed += len(batch)
			if cfg.Progress() != nil {
				cfg.Progress()(completed, total)
			}
			mu.Unlock()
		}(i, batch)
	}

	wg.Wait()

	if len(batchErrors) > 0 {
		return fmt.Errorf("%d of %d embedding batches failed: %w", len(batchErrors), len(batches), errors.Join(batchErrors...))
	}

	return nil
}

// Embed computes the embedding for a single piece of text without
// persisting it. Used by the Retriever and Selector to embed query text,
// intent labels, and candidate item descriptions on the fly.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuery
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("Embed: nil embedder")
	}

	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}

// Exists checks whether any row matches the given options.
func (s *EmbeddingService) Exists(ctx context.Context, options ...repository.Option) (bool, error) {
	return s.store.Exists(ctx, options...)
}
