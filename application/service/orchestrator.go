package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stylo/wardrobe/domain/apperr"
	"github.com/stylo/wardrobe/domain/outfit"
	"github.com/stylo/wardrobe/domain/search"
)

// DefaultOutfitCount is the number of outfits a caller should resolve an
// unspecified limit to before calling Suggest. Suggest itself requires
// limit to already be in [1,3]; it has no "unspecified" sentinel value of
// its own, since a plain int can't distinguish "not given" from "given 0".
const DefaultOutfitCount = 3

// Orchestrator is C8: the single state machine a suggestion request runs
// through (SPEC_FULL.md §4.7). It owns the only read and the only write of
// the suggestion cache.
type Orchestrator struct {
	cache      SuggestionCache
	retriever  *Retriever
	classifier *IntentClassifier
	selector   *Selector
	delegate   *LLMDelegate
	embedder   search.Embedder
	logger     *slog.Logger
}

// NewOrchestrator wires C3-C7 into the request state machine.
func NewOrchestrator(cache SuggestionCache, retriever *Retriever, classifier *IntentClassifier, selector *Selector, delegate *LLMDelegate, embedder search.Embedder, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cache:      cache,
		retriever:  retriever,
		classifier: classifier,
		selector:   selector,
		delegate:   delegate,
		embedder:   embedder,
		logger:     logger,
	}
}

// Suggest runs RECV -> CACHE_LOOKUP -> CLASSIFY_INTENT -> LOAD_CANDIDATES ->
// LLM_ATTEMPT? -> RULE_ASSEMBLE -> CACHE_STORE -> RESPOND.
func (o *Orchestrator) Suggest(ctx context.Context, ownerID, queryText string, limit int) (outfit.SuggestionResult, error) {
	if strings.TrimSpace(queryText) == "" {
		return outfit.SuggestionResult{}, apperr.ErrInvalidInput
	}
	if limit < 1 || limit > 3 {
		return outfit.SuggestionResult{}, apperr.ErrInvalidInput
	}

	// CACHE_LOOKUP: must run before any database query (SPEC_FULL.md §4.7).
	if cached, hit := o.cache.Get(ctx, ownerID, queryText); hit {
		return cached, nil
	}

	label := o.classifier.Classify(ctx, queryText)
	intentVec, err := o.classifier.EmbedLabel(ctx, label.Label)
	if err != nil {
		o.logger.Warn("orchestrator: intent embedding failed, continuing without intent vector", slog.String("error", err.Error()))
		intentVec = nil
	}

	queryVec := o.embedSafe(ctx, queryText)

	// LOAD_CANDIDATES (C4): falls back to full catalog on error internally;
	// only a hard storage failure propagates here.
	candidates, err := o.retriever.Retrieve(ctx, ownerID, queryVec, intentVec)
	if err != nil {
		return outfit.SuggestionResult{}, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if len(candidates) == 0 {
		return outfit.SuggestionResult{Intent: label.Label}, nil
	}

	var outfits []outfit.Outfit
	if o.delegate != nil && o.delegate.Configured() {
		if proposed, ok := o.delegate.Propose(ctx, queryText, label, candidates, limit); ok {
			outfits = proposed
		}
	}

	if len(outfits) == 0 {
		// CLASSIFY_INTENT already ran above; RULE_ASSEMBLE (C6).
		outfits = o.selector.Select(ctx, queryText, candidates, label.Label, limit)
	}

	result := outfit.SuggestionResult{Intent: label.Label, Outfits: outfits}
	if len(outfits) > 0 {
		o.cache.Set(ctx, ownerID, queryText, result, DefaultSuggestionTTL)
	}
	return result, nil
}

// InvalidateCatalog drops cached suggestions for ownerID, called whenever an
// external collaborator reports a catalog mutation (SPEC_FULL.md §4
// External Interfaces: "observe create/update/delete events ... invalidate
// the suggestion cache").
func (o *Orchestrator) InvalidateCatalog(ctx context.Context, ownerID string) {
	o.cache.InvalidateOwner(ctx, ownerID)
}

// EnqueueRefresh forwards a changed item's ID to the embedding worker, best
// effort, so catalog mutations eventually get fresh vectors without blocking
// the mutation itself.
func (o *Orchestrator) EnqueueRefresh(worker *EmbeddingWorker, itemID string) {
	if worker == nil {
		return
	}
	worker.Enqueue(itemID)
}

func (o *Orchestrator) embedSafe(ctx context.Context, text string) []float64 {
	if o.embedder == nil {
		return nil
	}
	vectors, err := o.embedder.Embed(ctx, []string{text})
	if err != nil || len(vectors) == 0 {
		if err != nil {
			o.logger.Warn("orchestrator: query embedding failed, degrading to empty vector", slog.String("error", err.Error()))
		}
		return nil
	}
	return vectors[0]
}
