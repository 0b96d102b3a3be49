// Package dto holds the wire-format request/response shapes for the v2 API,
// kept separate from the domain types they're built from.
package dto

// SuggestionRequest is the body of POST /v2/suggestions (SPEC_FULL.md §6).
type SuggestionRequest struct {
	Text  string `json:"text"`
	Limit *int   `json:"limit,omitempty"`
}

// CatalogItem is one slot's filled item in a suggested outfit, or omitted
// (null) if the slot went unfilled.
type CatalogItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Color    string `json:"color,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Outfit is one proposed combination of items plus its score and rationale.
type Outfit struct {
	Top         *CatalogItem `json:"top"`
	Bottom      *CatalogItem `json:"bottom"`
	Footwear    *CatalogItem `json:"footwear"`
	Outerwear   *CatalogItem `json:"outerwear"`
	Accessories *CatalogItem `json:"accessories"`
	Score       float64      `json:"score"`
	Rationale   string       `json:"rationale"`
}

// SuggestionResponse is the body returned by POST /v2/suggestions.
type SuggestionResponse struct {
	Intent  string   `json:"intent"`
	Outfits []Outfit `json:"outfits"`
}
