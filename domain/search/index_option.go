package search

// ProgressFunc reports embedding progress as (completed, total) documents.
type ProgressFunc func(completed, total int)

// BatchErrorFunc reports a failed embedding batch by its offsets into the
// original document slice.
type BatchErrorFunc func(start, end int, err error)

// IndexOption configures an EmbeddingService.Index call.
type IndexOption func(*IndexConfig)

// IndexConfig holds optional callbacks for an indexing run.
type IndexConfig struct {
	progress   ProgressFunc
	batchError BatchErrorFunc
}

// NewIndexConfig builds an IndexConfig from options.
func NewIndexConfig(opts ...IndexOption) IndexConfig {
	var cfg IndexConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Progress returns the configured progress callback, or nil.
func (c IndexConfig) Progress() ProgressFunc { return c.progress }

// BatchError returns the configured batch-error callback, or nil.
func (c IndexConfig) BatchError() BatchErrorFunc { return c.batchError }

// WithProgress sets a callback invoked after each successful batch.
func WithProgress(fn ProgressFunc) IndexOption {
	return func(c *IndexConfig) { c.progress = fn }
}

// WithBatchError sets a callback invoked when a batch fails.
func WithBatchError(fn BatchErrorFunc) IndexOption {
	return func(c *IndexConfig) { c.batchError = fn }
}
