// Package v1 holds the v2 HTTP surface's route handlers. The package name
// stays v1 to match the teacher's versioned-router convention even though
// the route prefix itself is /v2 (SPEC_FULL.md §6).
package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	wardrobe "github.com/stylo/wardrobe"
	"github.com/stylo/wardrobe/application/service"
	"github.com/stylo/wardrobe/domain/apperr"
	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/outfit"
	"github.com/stylo/wardrobe/infrastructure/api/middleware"
	"github.com/stylo/wardrobe/infrastructure/api/v1/dto"
)

// SuggestionsRouter handles POST /v2/suggestions, the system's single
// external operation (SPEC_FULL.md §6, §4.7 Orchestrator).
type SuggestionsRouter struct {
	client *wardrobe.Client
	logger *slog.Logger
}

// NewSuggestionsRouter creates a new SuggestionsRouter.
func NewSuggestionsRouter(client *wardrobe.Client) *SuggestionsRouter {
	return &SuggestionsRouter{client: client, logger: client.Logger()}
}

// Routes returns the chi router for the suggestions endpoint.
func (r *SuggestionsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", r.Suggest)
	return router
}

// Suggest handles POST /v2/suggestions.
func (r *SuggestionsRouter) Suggest(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	ownerID := middleware.OwnerIDFromContext(ctx)
	if ownerID == "" {
		middleware.WriteError(w, req, apperr.ErrUnauthenticated, r.logger)
		return
	}

	var body dto.SuggestionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err), r.logger)
		return
	}

	// An absent limit resolves to the default here, upstream of Suggest,
	// since Suggest itself rejects anything outside [1,3] rather than
	// clamping (SPEC_FULL.md §7: limit out of range is a client error).
	limit := service.DefaultOutfitCount
	if body.Limit != nil {
		limit = *body.Limit
	}

	result, err := r.client.Orchestrator().Suggest(ctx, ownerID, body.Text, limit)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildSuggestionResponse(result))
}

func buildSuggestionResponse(result outfit.SuggestionResult) dto.SuggestionResponse {
	outfits := make([]dto.Outfit, len(result.Outfits))
	for i, o := range result.Outfits {
		outfits[i] = dto.Outfit{
			Top:         itemOrNil(o.Slots, catalog.SlotTop),
			Bottom:      itemOrNil(o.Slots, catalog.SlotBottom),
			Footwear:    itemOrNil(o.Slots, catalog.SlotFootwear),
			Outerwear:   itemOrNil(o.Slots, catalog.SlotLayer),
			Accessories: itemOrNil(o.Slots, catalog.SlotAccessories),
			Score:       o.Score,
			Rationale:   o.Rationale,
		}
	}
	return dto.SuggestionResponse{
		Intent:  string(result.Intent),
		Outfits: outfits,
	}
}

func itemOrNil(slots map[catalog.Slot]catalog.Item, slot catalog.Slot) *dto.CatalogItem {
	item, ok := slots[slot]
	if !ok {
		return nil
	}
	return &dto.CatalogItem{
		ID:       item.ID,
		Name:     item.Type,
		Category: string(slot),
		Color:    item.Color,
		ImageURL: item.ImageRef,
	}
}
