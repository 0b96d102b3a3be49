package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/search"
	domainservice "github.com/stylo/wardrobe/domain/service"
)

// EmbeddingJob is a best-effort, in-memory queue entry: an item awaiting
// an embedding refresh. Loss on crash is acceptable (SPEC_FULL.md §3) —
// the Retriever re-enqueues on the next stored-vector miss.
type EmbeddingJob struct {
	ItemID     string
	EnqueuedAt time.Time
}

// TextForEmbedding loads the text to embed for one item. Supplied by the
// caller so the worker does not need its own catalog dependency beyond
// this single lookup.
type TextForEmbedding func(ctx context.Context, itemID string) (ownerID, text string, ok bool, err error)

// EmbeddingWorker drains its queue up to batchSize items or batchWindow
// elapsed, whichever comes first, then embeds and persists the batch in
// one EmbeddingService.Index call. Mirrors the teacher's supervised
// background-goroutine shape (Start/Stop with context cancellation, a
// WaitGroup, slog logging, panic recovery around each batch) adapted to
// a channel-fed batching policy instead of DB polling.
type EmbeddingWorker struct {
	queue       chan EmbeddingJob
	lookup      TextForEmbedding
	embedder    *domainservice.EmbeddingService
	logger      *slog.Logger
	batchSize   int
	batchWindow time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex

	dropped int64
}

// NewEmbeddingWorker creates a worker with the given queue capacity and
// batching knobs. batchSize/batchWindow default to 10/2s per
// SPEC_FULL.md §4.2 if <= 0.
func NewEmbeddingWorker(capacity int, lookup TextForEmbedding, embedder *domainservice.EmbeddingService, logger *slog.Logger, batchSize int, batchWindow time.Duration) *EmbeddingWorker {
	if capacity <= 0 {
		capacity = 1000
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if batchWindow <= 0 {
		batchWindow = 2 * time.Second
	}
	return &EmbeddingWorker{
		queue:       make(chan EmbeddingJob, capacity),
		lookup:      lookup,
		embedder:    embedder,
		logger:      logger,
		batchSize:   batchSize,
		batchWindow: batchWindow,
	}
}

// Enqueue is non-blocking and best-effort: if the queue is full, the new
// job is dropped with a warning log rather than blocking the caller
// (catalog item create/update path).
func (w *EmbeddingWorker) Enqueue(itemID string) {
	job := EmbeddingJob{ItemID: itemID, EnqueuedAt: time.Now()}
	select {
	case w.queue <- job:
	default:
		w.mu.Lock()
		w.dropped++
		w.mu.Unlock()
		w.logger.Warn("embedding queue full, dropping job", slog.String("item_id", itemID))
	}
}

// Dropped returns the number of jobs dropped due to a full queue.
func (w *EmbeddingWorker) Dropped() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Start begins draining the queue in a background goroutine.
func (w *EmbeddingWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	w.logger.Info("embedding worker started",
		slog.Int("batch_size", w.batchSize),
		slog.Duration("batch_window", w.batchWindow),
	)
}

// Stop gracefully shuts down the worker, waiting for the in-flight batch
// to finish.
func (w *EmbeddingWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	w.logger.Info("embedding worker stopped")
}

func (w *EmbeddingWorker) run(ctx context.Context) {
	for {
		batch, ok := w.drainBatch(ctx)
		if !ok {
			return
		}
		if len(batch) == 0 {
			continue
		}
		w.processBatch(ctx, batch)
	}
}

// drainBatch collects up to batchSize jobs or blocks until batchWindow
// elapses since the first job arrived, whichever is first.
func (w *EmbeddingWorker) drainBatch(ctx context.Context) ([]EmbeddingJob, bool) {
	var batch []EmbeddingJob

	select {
	case <-ctx.Done():
		return nil, false
	case job := <-w.queue:
		batch = append(batch, job)
	}

	deadline := time.NewTimer(w.batchWindow)
	defer deadline.Stop()

	for len(batch) < w.batchSize {
		select {
		case <-ctx.Done():
			return batch, true
		case job := <-w.queue:
			batch = append(batch, job)
		case <-deadline.C:
			return batch, true
		}
	}
	return batch, true
}

// processBatch coalesces duplicate item IDs within the window (only the
// freshest enqueue for a given item matters), looks up current text, and
// embeds+persists in one Index call.
func (w *EmbeddingWorker) processBatch(ctx context.Context, batch []EmbeddingJob) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("embedding batch panicked", slog.Any("recover", r))
		}
	}()

	seen := make(map[string]struct{}, len(batch))
	var docs []search.Document
	for i := len(batch) - 1; i >= 0; i-- {
		job := batch[i]
		if _, dup := seen[job.ItemID]; dup {
			continue
		}
		seen[job.ItemID] = struct{}{}

		_, text, ok, err := w.lookup(ctx, job.ItemID)
		if err != nil {
			w.logger.Error("embedding worker: lookup failed",
				slog.String("item_id", job.ItemID), slog.String("error", err.Error()))
			continue
		}
		if !ok {
			continue
		}
		docs = append(docs, search.NewDocument(job.ItemID, text))
	}

	if len(docs) == 0 {
		return
	}

	if err := w.embedder.Index(ctx, search.NewIndexRequest(docs)); err != nil {
		w.logger.Error("embedding batch failed",
			slog.Int("batch_size", len(docs)), slog.String("error", err.Error()))
		return
	}

	w.logger.Debug("embedding batch persisted", slog.Int("count", len(docs)))
}

// RefreshMissing is the administrative batch-refresh operation (C2): it
// embeds and persists every item lacking a vector in micro-batches, one
// commit per batch, without blocking request traffic. Supplemented from
// the STYLO precursor's internal refresh route, exposed here as a plain
// function callable from a CLI subcommand (SPEC_FULL.md §12).
func RefreshMissing(ctx context.Context, items []catalog.Item, embedder *domainservice.EmbeddingService) (int, error) {
	var docs []search.Document
	for _, it := range items {
		if it.HasEmbedding() {
			continue
		}
		docs = append(docs, search.NewDocument(it.ID, it.NameText()))
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := embedder.Index(ctx, search.NewIndexRequest(docs)); err != nil {
		return 0, fmt.Errorf("refresh missing embeddings: %w", err)
	}
	return len(docs), nil
}
