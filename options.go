package wardrobe

import (
	"io"
	"log/slog"

	"github.com/stylo/wardrobe/application/service"
	"github.com/stylo/wardrobe/infrastructure/provider"
)

// clientConfig holds construction-time overrides that sit outside
// config.AppConfig: concrete provider instances and test seams. Everything
// environment/deployment-shaped (database URL, cache backend, API keys,
// endpoints) lives on AppConfig instead, passed directly to New.
type clientConfig struct {
	logger            *slog.Logger
	embeddingProvider provider.Embedder
	textProvider      provider.TextGenerator
	cache             service.SuggestionCache
	closers           []io.Closer
}

func newClientConfig() *clientConfig {
	return &clientConfig{}
}

// Option configures Client construction.
type Option func(*clientConfig)

// WithLogger sets a custom logger. Defaults to config.DefaultLogger().
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WithEmbeddingProvider overrides C1's embedding provider, bypassing the
// AppConfig-driven selection between the built-in hugot model, OpenAI, and
// Gemini. Mainly for tests.
func WithEmbeddingProvider(p provider.Embedder) Option {
	return func(c *clientConfig) { c.embeddingProvider = p }
}

// WithTextProvider overrides C7's generative-model provider.
func WithTextProvider(p provider.TextGenerator) Option {
	return func(c *clientConfig) { c.textProvider = p }
}

// WithSuggestionCache overrides C3's cache backend, bypassing the
// AppConfig.Cache() backend-URL selection.
func WithSuggestionCache(cache service.SuggestionCache) Option {
	return func(c *clientConfig) { c.cache = cache }
}

// WithCloser registers an additional resource to be closed on Client.Close.
func WithCloser(closer io.Closer) Option {
	return func(c *clientConfig) { c.closers = append(c.closers, closer) }
}
