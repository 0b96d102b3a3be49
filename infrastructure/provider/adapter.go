package provider

import "context"

// capacityAware lets the adapter expose a provider's native batch limit
// through search.Embedder.Capacity() when a provider declares one.
type capacityAware interface {
	Capacity() int
}

const defaultCapacity = 96

// SearchEmbedder adapts a provider.Embedder to domain/search.Embedder, the
// domain-facing port C1/C4/C5/C6 depend on. Providers speak in
// EmbeddingRequest/EmbeddingResponse value types; the domain speaks in plain
// [][]float64, so this is the one place that translates between them.
type SearchEmbedder struct {
	embedder Embedder
}

// NewSearchEmbedder wraps embedder for use as a domain/search.Embedder.
func NewSearchEmbedder(embedder Embedder) *SearchEmbedder {
	return &SearchEmbedder{embedder: embedder}
}

// Embed converts texts into vectors via the wrapped provider.
func (a *SearchEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := a.embedder.Embed(ctx, NewEmbeddingRequest(texts))
	if err != nil {
		return nil, err
	}
	return resp.Embeddings(), nil
}

// Capacity reports the provider's native batch limit, or defaultCapacity if
// the provider doesn't declare one (e.g. GenAIProvider, OpenAIProvider, which
// already internally chunk).
func (a *SearchEmbedder) Capacity() int {
	if c, ok := a.embedder.(capacityAware); ok {
		return c.Capacity()
	}
	return defaultCapacity
}
