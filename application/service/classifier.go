package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/stylo/wardrobe/domain/intent"
	"github.com/stylo/wardrobe/domain/search"
)

// IntentClassifier is C5: zero-shot classification of query text against
// a fixed label set, via mean cosine similarity to hand-written seed
// phrases embedded once and cached for the process lifetime.
type IntentClassifier struct {
	embedder search.Embedder
	logger   *slog.Logger

	once     sync.Once
	seedVecs map[intent.Label][][]float64
	seedErr  error
}

// NewIntentClassifier creates a new classifier over embedder.
func NewIntentClassifier(embedder search.Embedder, logger *slog.Logger) *IntentClassifier {
	return &IntentClassifier{embedder: embedder, logger: logger}
}

func (c *IntentClassifier) ensureSeeds(ctx context.Context) error {
	c.once.Do(func() {
		c.seedVecs = make(map[intent.Label][][]float64, len(intent.All))
		for _, label := range intent.All {
			phrases := intent.SeedPhrases[label]
			vectors, err := c.embedder.Embed(ctx, phrases)
			if err != nil {
				c.seedErr = err
				return
			}
			c.seedVecs[label] = vectors
		}
	})
	return c.seedErr
}

// Classify returns the best-matching label and the full ranked score set.
// On any failure it degrades to intent.Default rather than erroring
// (SPEC_FULL.md §4.5).
func (c *IntentClassifier) Classify(ctx context.Context, queryText string) intent.Result {
	fallback := intent.Result{Label: intent.Default, Scores: map[intent.Label]float64{}}

	if c.embedder == nil {
		return fallback
	}
	if err := c.ensureSeeds(ctx); err != nil {
		c.logger.Warn("intent classifier: seed embedding failed, defaulting", slog.String("error", err.Error()))
		return fallback
	}

	queryVecs, err := c.embedder.Embed(ctx, []string{queryText})
	if err != nil || len(queryVecs) == 0 {
		c.logger.Warn("intent classifier: query embedding failed, defaulting")
		return fallback
	}
	queryVec := queryVecs[0]

	scores := make(map[intent.Label]float64, len(intent.All))
	var best intent.Label
	bestScore := -2.0
	for _, label := range intent.All {
		vectors := c.seedVecs[label]
		if len(vectors) == 0 {
			continue
		}
		var sum float64
		for _, v := range vectors {
			sum += search.CosineSimilarity(queryVec, v)
		}
		mean := sum / float64(len(vectors))
		scores[label] = mean
		if mean > bestScore {
			bestScore = mean
			best = label
		}
	}

	if best == "" {
		return fallback
	}
	return intent.Result{Label: best, Scores: scores}
}

// EmbedLabel embeds an intent label's display text, used by the Retriever
// and Selector to compute an intent-similarity boost.
func (c *IntentClassifier) EmbedLabel(ctx context.Context, label intent.Label) ([]float64, error) {
	if c.embedder == nil {
		return nil, nil
	}
	vectors, err := c.embedder.Embed(ctx, []string{string(label)})
	if err != nil || len(vectors) == 0 {
		return nil, err
	}
	return vectors[0], nil
}
