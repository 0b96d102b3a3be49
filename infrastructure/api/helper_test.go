package api_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	wardrobe "github.com/stylo/wardrobe"
	"github.com/stylo/wardrobe/infrastructure/provider"
	"github.com/stylo/wardrobe/internal/config"
)

// stubEmbedder returns a fixed-length zero-ish vector per input text, so
// tests never depend on the built-in hugot model being downloaded.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	vectors := make([][]float64, len(req.Texts()))
	for i, text := range req.Texts() {
		v := make([]float64, 8)
		for j := range v {
			v[j] = float64(len(text)+j) / 100
		}
		vectors[i] = v
	}
	return provider.NewEmbeddingResponse(vectors, provider.NewUsage(0, 0, 0)), nil
}

func newSuggestionsTestClient(t *testing.T, apiKeys []string) *wardrobe.Client {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "wardrobe.db")
	cfg := config.NewAppConfigWithOptions(
		config.WithDataDir(t.TempDir()),
		config.WithDBURL(fmt.Sprintf("sqlite:///%s", dbPath)),
		config.WithAPIKeys(apiKeys),
		config.WithSkipProviderValidation(true),
	)

	client, err := wardrobe.New(cfg, wardrobe.WithEmbeddingProvider(stubEmbedder{}))
	if err != nil {
		t.Fatalf("wardrobe.New: %v", err)
	}
	return client
}
