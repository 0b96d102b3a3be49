// Package wardrobe provides a library for turning a user's wardrobe
// catalog and a free-text occasion query into scored outfit suggestions.
//
// It embeds catalog items (C1/C2), retrieves a query-relevant candidate
// set (C4), classifies query intent (C5), optionally drafts outfits via a
// generative model (C7), falls back to rule-based assembly (C6), and
// caches the result (C3) — all behind one entry point.
//
// Basic usage:
//
//	cfg := config.NewAppConfigWithOptions(
//	    config.WithDBURL("sqlite:///./data/wardrobe.db"),
//	    config.WithAPIKeys([]string{"owner-token"}),
//	)
//	client, err := wardrobe.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Orchestrator().Suggest(ctx, "owner-token", "brunch with friends", 3)
package wardrobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/stylo/wardrobe/application/service"
	"github.com/stylo/wardrobe/domain/search"
	domainservice "github.com/stylo/wardrobe/domain/service"
	"github.com/stylo/wardrobe/infrastructure/persistence"
	"github.com/stylo/wardrobe/infrastructure/provider"
	"github.com/stylo/wardrobe/internal/config"
	"github.com/stylo/wardrobe/internal/database"
)

// ErrClientClosed indicates the client has already been closed.
var ErrClientClosed = errors.New("wardrobe: client is closed")

// Client is the main entry point for the wardrobe library. The background
// embedding worker starts automatically on creation.
type Client struct {
	db database.Database

	catalogStore *persistence.CatalogStore
	outfitStore  *persistence.SavedOutfitStore

	embedding    *domainservice.EmbeddingService
	worker       *service.EmbeddingWorker
	retriever    *service.Retriever
	classifier   *service.IntentClassifier
	selector     *service.Selector
	delegate     *service.LLMDelegate
	cache        service.SuggestionCache
	orchestrator *service.Orchestrator

	hugotEmbedding *provider.HugotEmbedding
	closers        []io.Closer

	logger  *slog.Logger
	apiKeys []string
	closed  atomic.Bool
}

// New creates a new Client from cfg, opening the database, running
// migrations, wiring C1-C8, and starting the background embedding worker.
func New(cfg config.AppConfig, opts ...Option) (*Client, error) {
	cc := newClientConfig()
	for _, opt := range opts {
		opt(cc)
	}

	logger := cc.logger
	if logger == nil {
		logger = config.DefaultLogger()
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("prepare data directory: %w", err)
	}

	ctx := context.Background()

	db, err := database.NewDatabase(ctx, cfg.DBURL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := persistence.PreMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("pre migrate: %w", err), errClose)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}
	if err := persistence.ValidateSchema(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("validate schema: %w", err), errClose)
	}

	catalogStore := persistence.NewCatalogStore(db)
	outfitStore := persistence.NewSavedOutfitStore(db)

	var embeddingStore search.EmbeddingStore
	if db.IsPostgres() {
		embeddingStore = persistence.NewPgEmbeddingStore(db)
	} else {
		embeddingStore = persistence.NewSQLiteEmbeddingStore(db)
	}

	closers := append([]io.Closer{}, cc.closers...)

	// Outbound provider HTTP responses are cached to disk when configured,
	// so repeated calls during development don't re-hit paid APIs.
	var httpClient *http.Client
	if dir := cfg.HTTPCacheDir(); dir != "" {
		transport, err := provider.NewCachingTransport(dir, nil)
		if err != nil {
			errClose := db.Close()
			return nil, errors.Join(fmt.Errorf("create caching transport: %w", err), errClose)
		}
		closers = append(closers, transport)
		httpClient = &http.Client{Transport: transport}
	}

	hugotEmbedding, embeddingProvider, err := resolveEmbeddingProvider(cfg, cc, logger, httpClient)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}

	textProvider, err := resolveTextProvider(ctx, cfg, cc, httpClient)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}

	domainEmbedder := provider.NewSearchEmbedder(embeddingProvider)

	embeddingSvc, err := domainservice.NewEmbedding(embeddingStore, domainEmbedder, search.DefaultTokenBudget(), 1)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("create embedding service: %w", err), errClose)
	}

	lookup := func(ctx context.Context, itemID string) (string, string, bool, error) {
		item, err := catalogStore.GetByID(ctx, itemID)
		if err != nil {
			return "", "", false, err
		}
		return item.OwnerID, item.NameText(), true, nil
	}
	worker := service.NewEmbeddingWorker(0, lookup, embeddingSvc, logger, cfg.EmbeddingBatchSize(), cfg.EmbeddingBatchTimeout())

	retriever := service.NewRetriever(catalogStore, embeddingStore, domainEmbedder, worker, logger)
	classifier := service.NewIntentClassifier(domainEmbedder, logger)
	selector := service.NewSelector(domainEmbedder, logger)
	delegate := service.NewLLMDelegate(textProvider, logger)

	cache := cc.cache
	if cache == nil {
		cache, err = resolveCache(cfg, logger)
		if err != nil {
			errClose := db.Close()
			return nil, errors.Join(err, errClose)
		}
	}

	orchestrator := service.NewOrchestrator(cache, retriever, classifier, selector, delegate, domainEmbedder, logger)

	client := &Client{
		db:             db,
		catalogStore:   catalogStore,
		outfitStore:    outfitStore,
		embedding:      embeddingSvc,
		worker:         worker,
		retriever:      retriever,
		classifier:     classifier,
		selector:       selector,
		delegate:       delegate,
		cache:          cache,
		orchestrator:   orchestrator,
		hugotEmbedding: hugotEmbedding,
		closers:        closers,
		logger:         logger,
		apiKeys:        cfg.APIKeys(),
	}

	worker.Start(ctx)

	return client, nil
}

// Close releases all resources and stops the background worker.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.worker.Stop()

	if c.hugotEmbedding != nil {
		if err := c.hugotEmbedding.Close(); err != nil {
			c.logger.Error("failed to close hugot embedding", slog.Any("error", err))
		}
	}

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("wardrobe client closed")
	return nil
}

// Orchestrator returns C8, the single state machine a suggestion request
// runs through. This is the HTTP API's only entry point into the domain.
func (c *Client) Orchestrator() *service.Orchestrator { return c.orchestrator }

// CatalogStore returns the catalog persistence layer, for callers (e.g. a
// future catalog-management surface, or the embedding worker's lookup)
// that need direct item access outside a suggestion request.
func (c *Client) CatalogStore() *persistence.CatalogStore { return c.catalogStore }

// OutfitStore returns the saved-outfit persistence layer.
func (c *Client) OutfitStore() *persistence.SavedOutfitStore { return c.outfitStore }

// EmbeddingWorker returns the background embedding worker, so a catalog
// mutation path outside this package can enqueue refreshes.
func (c *Client) EmbeddingWorker() *service.EmbeddingWorker { return c.worker }

// Embedding returns C2's embedding service, for administrative batch
// refresh (service.RefreshMissing) outside the request path.
func (c *Client) Embedding() *domainservice.EmbeddingService { return c.embedding }

// APIKeys returns the configured bearer tokens accepted at the HTTP edge.
func (c *Client) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// resolveEmbeddingProvider picks C1's embedding backend: an explicit
// override, then a configured external endpoint, then the built-in local
// model as the zero-config default.
func resolveEmbeddingProvider(cfg config.AppConfig, cc *clientConfig, logger *slog.Logger, httpClient *http.Client) (*provider.HugotEmbedding, provider.Embedder, error) {
	if cc.embeddingProvider != nil {
		return nil, cc.embeddingProvider, nil
	}

	if ep := cfg.EmbeddingEndpoint(); ep != nil && ep.IsConfigured() {
		p := provider.NewOpenAIProviderFromConfig(provider.OpenAIConfig{
			APIKey:         ep.APIKey(),
			BaseURL:        ep.BaseURL(),
			EmbeddingModel: ep.Model(),
			Timeout:        ep.Timeout(),
			MaxRetries:     ep.MaxRetries(),
			InitialDelay:   ep.InitialDelay(),
			BackoffFactor:  ep.BackoffFactor(),
			HTTPClient:     httpClient,
		})
		return nil, p, nil
	}

	modelDir := filepath.Join(cfg.DataDir(), "models")
	hugotEmbedding := provider.NewHugotEmbedding(modelDir)
	if hugotEmbedding.Available() {
		logger.Info("built-in embedding provider enabled", slog.String("model_dir", modelDir))
		return hugotEmbedding, hugotEmbedding, nil
	}

	if cfg.SkipProviderValidation() {
		return nil, hugotEmbedding, nil
	}
	return nil, nil, fmt.Errorf("no embedding model found in %s and no embedding endpoint configured — place a model directory containing tokenizer.json there, set EMBEDDING_ENDPOINT_*, or configure WithEmbeddingProvider", modelDir)
}

// resolveTextProvider picks C7's generative-model backend, per SPEC_FULL.md
// §4.6: Gemini when configured, an OpenAI-compatible LLM endpoint
// otherwise, or nil (C7 disabled, C8 always falls back to C5+C6).
func resolveTextProvider(ctx context.Context, cfg config.AppConfig, cc *clientConfig, httpClient *http.Client) (provider.TextGenerator, error) {
	if cc.textProvider != nil {
		return cc.textProvider, nil
	}

	if cfg.LLMDelegateEnabled() {
		opts := []provider.GenAIOption{}
		if le := cfg.LLMEndpoint(); le != nil && le.Model() != "" {
			opts = append(opts, provider.WithGenAIChatModel(le.Model()))
		}
		p, err := provider.NewGenAIProvider(ctx, cfg.GeminiAPIKey(), opts...)
		if err != nil {
			return nil, fmt.Errorf("create gemini provider: %w", err)
		}
		return p, nil
	}

	if le := cfg.LLMEndpoint(); le != nil && le.IsConfigured() {
		return provider.NewOpenAIProviderFromConfig(provider.OpenAIConfig{
			APIKey:        le.APIKey(),
			BaseURL:       le.BaseURL(),
			ChatModel:     le.Model(),
			Timeout:       le.Timeout(),
			MaxRetries:    le.MaxRetries(),
			InitialDelay:  le.InitialDelay(),
			BackoffFactor: le.BackoffFactor(),
			HTTPClient:    httpClient,
		}), nil
	}

	return nil, nil
}

// resolveCache picks C3's cache backend: Redis when a backend URL is
// configured and answers a ping at startup, the in-process go-cache
// fallback otherwise.
func resolveCache(cfg config.AppConfig, logger *slog.Logger) (service.SuggestionCache, error) {
	cacheCfg := cfg.Cache()
	if url := cacheCfg.BackendURL(); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse cache backend url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("cache backend unreachable, using in-process cache", slog.String("error", err.Error()))
			_ = client.Close()
			return service.NewInProcessCache(cacheCfg.TTL(), logger), nil
		}
		return service.NewRedisCache(client, logger), nil
	}
	return service.NewInProcessCache(cacheCfg.TTL(), logger), nil
}
