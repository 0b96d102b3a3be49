package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const genaiBatchMax = 100

// GenAIProvider implements FullProvider over Google's Gemini API: chat
// completion for the LLM delegate (C7), embeddings as a fallback path for C1
// when no local hugot model is configured.
type GenAIProvider struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
	dimensions     int32
	maxRetries     int
	initialDelay   time.Duration
	backoffFactor  float64
}

// GenAIOption is a functional option for GenAIProvider.
type GenAIOption func(*GenAIProvider)

// WithGenAIChatModel sets the chat completion model.
func WithGenAIChatModel(model string) GenAIOption {
	return func(p *GenAIProvider) { p.chatModel = model }
}

// WithGenAIEmbeddingModel sets the embedding model.
func WithGenAIEmbeddingModel(model string) GenAIOption {
	return func(p *GenAIProvider) { p.embeddingModel = model }
}

// WithGenAIDimensions sets the requested embedding output dimensionality.
func WithGenAIDimensions(n int32) GenAIOption {
	return func(p *GenAIProvider) { p.dimensions = n }
}

// WithGenAIMaxRetries sets the maximum retry count.
func WithGenAIMaxRetries(n int) GenAIOption {
	return func(p *GenAIProvider) { p.maxRetries = n }
}

// NewGenAIProvider creates a new Gemini-backed provider.
func NewGenAIProvider(ctx context.Context, apiKey string, opts ...GenAIOption) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("genai: API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai: failed to create client: %w", err)
	}

	p := &GenAIProvider{
		client:         client,
		chatModel:      "gemini-2.0-flash",
		embeddingModel: "gemini-embedding-001",
		dimensions:     768,
		maxRetries:     3,
		initialDelay:   2 * time.Second,
		backoffFactor:  2.0,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// SupportsTextGeneration always returns true.
func (p *GenAIProvider) SupportsTextGeneration() bool { return true }

// SupportsEmbedding always returns true.
func (p *GenAIProvider) SupportsEmbedding() bool { return true }

// Close is a no-op; the genai client holds no long-lived connection to release.
func (p *GenAIProvider) Close() error { return nil }

// ChatCompletion generates a text completion, used by the LLM delegate
// (SPEC_FULL.md §4.6) to draft candidate outfits as structured JSON.
func (p *GenAIProvider) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	var contents []*genai.Content
	var systemInstruction *genai.Content
	for _, m := range req.Messages() {
		switch m.Role() {
		case "system":
			systemInstruction = genai.NewContentFromText(m.Content(), genai.RoleUser)
		default:
			contents = append(contents, genai.NewContentFromText(m.Content(), genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{SystemInstruction: systemInstruction}
	if req.MaxTokens() > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens())
	}
	if req.Temperature() > 0 {
		t := float32(req.Temperature())
		cfg.Temperature = &t
	}

	var result *genai.GenerateContentResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		result, callErr = p.client.Models.GenerateContent(ctx, p.chatModel, contents, cfg)
		return callErr
	})
	if err != nil {
		return ChatCompletionResponse{}, p.wrapError("chat_completion", err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return ChatCompletionResponse{}, NewProviderError("chat_completion", 0, "no candidates in response", nil)
	}

	text := result.Text()
	finish := ""
	if c := result.Candidates[0]; c.FinishReason != "" {
		finish = string(c.FinishReason)
	}

	var usage Usage
	if result.UsageMetadata != nil {
		usage = NewUsage(
			int(result.UsageMetadata.PromptTokenCount),
			int(result.UsageMetadata.CandidatesTokenCount),
			int(result.UsageMetadata.TotalTokenCount),
		)
	}

	return NewChatCompletionResponse(text, finish, usage), nil
}

// Embed generates embeddings, chunking into batches of genaiBatchMax per the
// API's per-request limit.
func (p *GenAIProvider) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	texts := req.Texts()
	if len(texts) == 0 {
		return NewEmbeddingResponse([][]float64{}, NewUsage(0, 0, 0)), nil
	}

	embeddings := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += genaiBatchMax {
		end := start + genaiBatchMax
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return EmbeddingResponse{}, err
		}
		embeddings = append(embeddings, batch...)
	}
	return NewEmbeddingResponse(embeddings, NewUsage(0, 0, 0)), nil
}

func (p *GenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	dims := p.dimensions
	var result *genai.EmbedContentResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		result, callErr = p.client.Models.EmbedContent(ctx, p.embeddingModel, contents, &genai.EmbedContentConfig{
			OutputDimensionality: &dims,
		})
		return callErr
	})
	if err != nil {
		return nil, p.wrapError("embedding", err)
	}
	if result == nil {
		return nil, NewProviderError("embedding", 0, "no embeddings returned", nil)
	}

	out := make([][]float64, len(result.Embeddings))
	for i, e := range result.Embeddings {
		vec := make([]float64, len(e.Values))
		for j, v := range e.Values {
			vec[j] = float64(v)
		}
		out[i] = vec
	}
	return out, nil
}

// withRetry retries only on rate-limit errors (SPEC_FULL.md §4.6: 429 only),
// base delay doubling, up to maxRetries retries after the first call.
func (p *GenAIProvider) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isGenAIRateLimited(lastErr) {
			return lastErr
		}
		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * p.backoffFactor)
			}
		}
	}
	return fmt.Errorf("genai: max retries exceeded: %w", lastErr)
}

func isGenAIRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429
	}
	return false
}

func (p *GenAIProvider) wrapError(operation string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(operation, apiErr.Code, apiErr.Message, err)
	}
	return NewProviderError(operation, 0, err.Error(), err)
}

var (
	_ FullProvider  = (*GenAIProvider)(nil)
	_ TextGenerator = (*GenAIProvider)(nil)
	_ Embedder      = (*GenAIProvider)(nil)
)
