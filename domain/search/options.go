package search

import "github.com/stylo/wardrobe/domain/repository"

// WithItemID filters by a single catalog item ID.
func WithItemID(id string) repository.Option {
	return repository.WithCondition("item_id", id)
}

// WithItemIDs filters by multiple catalog item IDs.
func WithItemIDs(ids []string) repository.Option {
	return repository.WithConditionIn("item_id", ids)
}

// WithOwnerID filters embeddings by the owning user.
func WithOwnerID(ownerID string) repository.Option {
	return repository.WithCondition("owner_id", ownerID)
}

// WithEmbedding passes a pre-computed embedding vector through options, for
// stores that can push similarity search down to the database.
func WithEmbedding(embedding []float64) repository.Option {
	return repository.WithParam("embedding", embedding)
}

// WithQuery passes a search query string through options.
func WithQuery(query string) repository.Option {
	return repository.WithParam("search_query", query)
}

// EmbeddingFrom extracts the embedding vector from a built query.
func EmbeddingFrom(q repository.Query) ([]float64, bool) {
	v, ok := q.Param("embedding")
	if !ok {
		return nil, false
	}
	emb, ok := v.([]float64)
	return emb, ok
}

// QueryFrom extracts the search query text from a built query.
func QueryFrom(q repository.Query) (string, bool) {
	v, ok := q.Param("search_query")
	if !ok {
		return "", false
	}
	text, ok := v.(string)
	return text, ok
}

// ItemIDsFrom extracts the catalog item IDs from conditions on a built
// query.
func ItemIDsFrom(q repository.Query) []string {
	for _, cond := range q.Conditions() {
		if cond.Field() == "item_id" && cond.In() {
			if ids, ok := cond.Value().([]string); ok {
				return ids
			}
		}
	}
	return nil
}
