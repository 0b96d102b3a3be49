package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/intent"
	"github.com/stylo/wardrobe/domain/outfit"
	"github.com/stylo/wardrobe/infrastructure/provider"
)

// candidatesPerRequiredSlot and candidatesPerOptionalSlot bound the per-slot
// projection handed to the LLM (SPEC_FULL.md §4.6: default 5 per required
// slot, up to 5 each for accessories/layer, ~20 items total).
const (
	candidatesPerRequiredSlot = 5
	candidatesPerOptionalSlot = 5
	descriptionPreviewChars   = 100
)

// LLMDelegate is C7: an optional generative-model collaborator that drafts
// outfits as structured JSON from a compact candidate projection, before C6
// ever runs.
type LLMDelegate struct {
	generator provider.TextGenerator
	logger    *slog.Logger
}

// NewLLMDelegate creates a delegate over generator. generator may be nil, in
// which case Propose always returns (nil, false) and C8 falls through to
// C5+C6 unconditionally.
func NewLLMDelegate(generator provider.TextGenerator, logger *slog.Logger) *LLMDelegate {
	return &LLMDelegate{generator: generator, logger: logger}
}

// Configured reports whether a generative model is wired in.
func (d *LLMDelegate) Configured() bool { return d.generator != nil }

type llmCandidate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slot        string `json:"slot"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

type llmOutfit struct {
	Top         string `json:"top"`
	Bottom      string `json:"bottom"`
	Footwear    string `json:"footwear"`
	Layer       string `json:"layer,omitempty"`
	Accessories string `json:"accessories,omitempty"`
	Rationale   string `json:"rationale,omitempty"`
}

type llmResponse struct {
	Intent   string      `json:"intent"`
	ItemType string      `json:"item_type,omitempty"`
	Outfits  []llmOutfit `json:"outfits"`
}

// Propose asks the configured model for up to k outfits drawn from
// candidates. Returns (nil, false) whenever the model is unconfigured, the
// call fails, or the response doesn't validate — callers always have a safe
// fallback to C5+C6.
func (d *LLMDelegate) Propose(ctx context.Context, queryText string, label intent.Result, candidates []catalog.Item, k int) ([]outfit.Outfit, bool) {
	if d.generator == nil {
		return nil, false
	}

	projected, byID := projectCandidates(candidates)
	prompt := buildPrompt(queryText, label, projected)

	req := provider.NewChatCompletionRequest([]provider.Message{
		provider.SystemMessage("You are a wardrobe stylist. Respond with JSON only, matching the schema exactly. Never invent an id that wasn't given to you."),
		provider.UserMessage(prompt),
	}).WithTemperature(0.4).WithMaxTokens(1024)

	resp, err := d.generator.ChatCompletion(ctx, req)
	if err != nil {
		d.logger.Warn("llm delegate: chat completion failed, falling back", slog.String("error", err.Error()))
		return nil, false
	}

	parsed, ok := parseLLMResponse(resp.Content())
	if !ok {
		d.logger.Warn("llm delegate: response did not parse as JSON, falling back")
		return nil, false
	}

	outfits := validateAndBuild(parsed, byID, label.Label)
	if len(outfits) == 0 {
		d.logger.Warn("llm delegate: no outfit in response validated, falling back")
		return nil, false
	}
	if k > 0 && len(outfits) > k {
		outfits = outfits[:k]
	}
	return outfits, true
}

// projectCandidates bounds each slot's candidate list and returns both the
// ordered projection (for the prompt) and an id->item lookup (for validation).
func projectCandidates(candidates []catalog.Item) ([]llmCandidate, map[string]catalog.Item) {
	bySlot := make(map[catalog.Slot][]catalog.Item)
	for _, it := range candidates {
		slot := catalog.NormalizeSlot(string(it.Slot))
		bySlot[slot] = append(bySlot[slot], it)
	}

	limitFor := func(slot catalog.Slot) int {
		for _, required := range catalog.RequiredSlots {
			if slot == required {
				return candidatesPerRequiredSlot
			}
		}
		return candidatesPerOptionalSlot
	}

	var projected []llmCandidate
	byID := make(map[string]catalog.Item)
	for slot, items := range bySlot {
		limit := limitFor(slot)
		if limit > len(items) {
			limit = len(items)
		}
		for _, it := range items[:limit] {
			byID[it.ID] = it
			desc := it.Description
			if len(desc) > descriptionPreviewChars {
				desc = desc[:descriptionPreviewChars]
			}
			projected = append(projected, llmCandidate{
				ID:          it.ID,
				Name:        it.Type,
				Slot:        string(slot),
				Color:       it.Color,
				Description: desc,
			})
		}
	}
	return projected, byID
}

func buildPrompt(queryText string, label intent.Result, projected []llmCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User request: %q\n", queryText)
	fmt.Fprintf(&b, "Classified intent: %s\n\n", label.Label)
	b.WriteString("Candidate items (choose only from these ids):\n")
	for _, c := range projected {
		fmt.Fprintf(&b, "- id=%s slot=%s name=%q color=%q desc=%q\n", c.ID, c.Slot, c.Name, c.Color, c.Description)
	}
	b.WriteString("\nReturn JSON only, matching exactly:\n")
	b.WriteString(`{"intent": "...", "item_type": "...", "outfits": [{"top": "<id>", "bottom": "<id>", "footwear": "<id>", "layer": "<id>", "accessories": "<id>", "rationale": "..."}]}`)
	b.WriteString("\nOmit layer/accessories/item_type if none fit. Propose up to 3 outfits.")
	return b.String()
}

// parseLLMResponse parses tolerantly: a direct parse first, then the first
// balanced {...} block found in the text (SPEC_FULL.md §4.6).
func parseLLMResponse(raw string) (llmResponse, bool) {
	var resp llmResponse
	if err := json.Unmarshal([]byte(raw), &resp); err == nil {
		return resp, true
	}

	block, ok := firstBalancedObject(raw)
	if !ok {
		return llmResponse{}, false
	}
	if err := json.Unmarshal([]byte(block), &resp); err != nil {
		return llmResponse{}, false
	}
	return resp, true
}

func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			continue
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// validateAndBuild rejects ids not present in byID and requires at least one
// outfit to have all of top/bottom/footwear (SPEC_FULL.md §4.6).
func validateAndBuild(parsed llmResponse, byID map[string]catalog.Item, label intent.Label) []outfit.Outfit {
	var outfits []outfit.Outfit
	for _, o := range parsed.Outfits {
		slots := make(map[catalog.Slot]catalog.Item)
		ids := map[catalog.Slot]string{
			catalog.SlotTop:         o.Top,
			catalog.SlotBottom:      o.Bottom,
			catalog.SlotFootwear:    o.Footwear,
			catalog.SlotLayer:       o.Layer,
			catalog.SlotAccessories: o.Accessories,
		}

		valid := true
		for slot, id := range ids {
			if id == "" {
				continue
			}
			item, ok := byID[id]
			if !ok {
				valid = false
				break
			}
			slots[slot] = item
		}
		if !valid {
			continue
		}

		required := outfit.Outfit{Slots: slots}
		if !required.HasRequiredSlots() {
			continue
		}

		rationale := o.Rationale
		if rationale == "" {
			rationale = fmt.Sprintf("A model-curated %s outfit.", label)
		}
		// A model-curated outfit that passes validation is treated as a full
		// match; there's no partial-credit scoring for LLM proposals the way
		// there is for rule-assembled ones (SPEC_FULL.md §8 scenario 5).
		outfits = append(outfits, outfit.Outfit{Slots: slots, Rationale: rationale, Score: 100})
	}
	return outfits
}
