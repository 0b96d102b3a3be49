// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultLogLevel              = "INFO"
	DefaultWorkerCount           = 1
	DefaultSearchLimit           = 10
	DefaultEndpointParallelTasks = 1
	DefaultEndpointTimeout       = 60 * time.Second
	DefaultEndpointMaxRetries    = 5
	DefaultEndpointInitialDelay  = 2 * time.Second
	DefaultEndpointBackoffFactor = 2.0
	DefaultEndpointMaxTokens     = 4000
	DefaultEndpointMaxBatchChars = 16000
	DefaultEmbeddingBatchSize    = 32
	DefaultEmbeddingBatchTimeout = 2 * time.Second
	DefaultCacheTTL              = 10 * time.Minute
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures an AI service endpoint (embedding provider or LLM
// delegate). Shared by C1's embedding providers and C7's LLM delegate.
type Endpoint struct {
	baseURL          string
	model            string
	apiKey           string
	numParallelTasks int
	socketPath       string
	timeout          time.Duration
	maxRetries       int
	initialDelay     time.Duration
	backoffFactor    float64
	extraParams      map[string]any
	maxTokens        int
	maxBatchChars    int
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		numParallelTasks: DefaultEndpointParallelTasks,
		timeout:          DefaultEndpointTimeout,
		maxRetries:       DefaultEndpointMaxRetries,
		initialDelay:     DefaultEndpointInitialDelay,
		backoffFactor:    DefaultEndpointBackoffFactor,
		maxTokens:        DefaultEndpointMaxTokens,
		maxBatchChars:    DefaultEndpointMaxBatchChars,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// NumParallelTasks returns the number of parallel tasks.
func (e Endpoint) NumParallelTasks() int { return e.numParallelTasks }

// SocketPath returns the Unix socket path.
func (e Endpoint) SocketPath() string { return e.socketPath }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// ExtraParams returns additional provider-specific parameters.
func (e Endpoint) ExtraParams() map[string]any {
	if e.extraParams == nil {
		return nil
	}
	result := make(map[string]any, len(e.extraParams))
	for k, v := range e.extraParams {
		result[k] = v
	}
	return result
}

// MaxTokens returns the maximum token limit.
func (e Endpoint) MaxTokens() int { return e.maxTokens }

// MaxBatchChars returns the maximum total characters per embedding batch.
func (e Endpoint) MaxBatchChars() int { return e.maxBatchChars }

// IsConfigured returns true if the endpoint has required configuration.
func (e Endpoint) IsConfigured() bool {
	return e.model != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithNumParallelTasks sets the parallel task count.
func WithNumParallelTasks(n int) EndpointOption {
	return func(e *Endpoint) { e.numParallelTasks = n }
}

// WithSocketPath sets the Unix socket path.
func WithSocketPath(path string) EndpointOption {
	return func(e *Endpoint) { e.socketPath = path }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// WithExtraParams sets extra provider parameters.
func WithExtraParams(params map[string]any) EndpointOption {
	return func(e *Endpoint) {
		if params != nil {
			e.extraParams = make(map[string]any, len(params))
			for k, v := range params {
				e.extraParams[k] = v
			}
		}
	}
}

// WithMaxTokens sets the maximum token limit.
func WithMaxTokens(n int) EndpointOption {
	return func(e *Endpoint) { e.maxTokens = n }
}

// WithMaxBatchChars sets the maximum total characters per embedding batch.
func WithMaxBatchChars(n int) EndpointOption {
	return func(e *Endpoint) { e.maxBatchChars = n }
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// CacheConfig configures the suggestion cache backend (C3).
type CacheConfig struct {
	backendURL string
	ttl        time.Duration
}

// NewCacheConfig creates a new CacheConfig with defaults.
func NewCacheConfig() CacheConfig {
	return CacheConfig{ttl: DefaultCacheTTL}
}

// BackendURL returns the cache backend URL (e.g. a redis:// DSN). Empty
// means the in-process go-cache fallback.
func (c CacheConfig) BackendURL() string { return c.backendURL }

// TTL returns the suggestion cache entry lifetime.
func (c CacheConfig) TTL() time.Duration { return c.ttl }

// WithBackendURL returns a new config with the specified backend URL.
func (c CacheConfig) WithBackendURL(url string) CacheConfig {
	c.backendURL = url
	return c
}

// WithTTL returns a new config with the specified TTL.
func (c CacheConfig) WithTTL(d time.Duration) CacheConfig {
	c.ttl = d
	return c
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host                   string
	port                   int
	dataDir                string
	dbURL                  string
	logLevel               string
	logFormat              LogFormat
	disableTelemetry       bool
	skipProviderValidation bool
	ragEnabled             bool
	embeddingEndpoint      *Endpoint
	llmEndpoint            *Endpoint
	geminiAPIKey           string
	embeddingBatchSize     int
	embeddingBatchTimeout  time.Duration
	corsOrigins            []string
	cache                  CacheConfig
	apiKeys                []string
	workerCount            int
	searchLimit            int
	httpCacheDir           string
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wardrobe"
	}
	return filepath.Join(home, ".wardrobe")
}

// DefaultLogger returns the default slog logger for library consumers.
func DefaultLogger() *slog.Logger {
	return slog.Default()
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:                  DefaultHost,
		port:                  DefaultPort,
		dataDir:               dataDir,
		dbURL:                 "sqlite:///" + filepath.Join(dataDir, "wardrobe.db"),
		logLevel:              DefaultLogLevel,
		logFormat:             LogFormatPretty,
		disableTelemetry:      false,
		ragEnabled:            true,
		embeddingBatchSize:    DefaultEmbeddingBatchSize,
		embeddingBatchTimeout: DefaultEmbeddingBatchTimeout,
		corsOrigins:           []string{},
		cache:                 NewCacheConfig(),
		apiKeys:               []string{},
		workerCount:           DefaultWorkerCount,
		searchLimit:           DefaultSearchLimit,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// DisableTelemetry returns whether telemetry is disabled.
func (c AppConfig) DisableTelemetry() bool { return c.disableTelemetry }

// SkipProviderValidation returns whether to skip provider validation at startup.
// This is intended for testing only.
func (c AppConfig) SkipProviderValidation() bool { return c.skipProviderValidation }

// RAGEnabled reports whether C4's retriever narrows the catalog before
// selection. When false, the orchestrator hands the selector the full
// owned catalog directly.
func (c AppConfig) RAGEnabled() bool { return c.ragEnabled }

// EmbeddingEndpoint returns the embedding endpoint config (C1).
func (c AppConfig) EmbeddingEndpoint() *Endpoint { return c.embeddingEndpoint }

// LLMEndpoint returns the LLM delegate endpoint config (C7).
func (c AppConfig) LLMEndpoint() *Endpoint { return c.llmEndpoint }

// GeminiAPIKey returns the configured Gemini API key. An empty value means
// C7 is disabled and the orchestrator always falls back to C5+C6.
func (c AppConfig) GeminiAPIKey() string { return c.geminiAPIKey }

// LLMDelegateEnabled reports whether C7 has credentials to run.
func (c AppConfig) LLMDelegateEnabled() bool { return c.geminiAPIKey != "" }

// EmbeddingBatchSize returns the worker's per-batch item count (C2).
func (c AppConfig) EmbeddingBatchSize() int { return c.embeddingBatchSize }

// EmbeddingBatchTimeout returns how long the worker waits to fill a batch
// before flushing a partial one (C2).
func (c AppConfig) EmbeddingBatchTimeout() time.Duration { return c.embeddingBatchTimeout }

// CORSOrigins returns the allowed CORS origins for the HTTP edge. Observed
// only at the transport boundary — never by the domain/application layers.
func (c AppConfig) CORSOrigins() []string {
	origins := make([]string, len(c.corsOrigins))
	copy(origins, c.corsOrigins)
	return origins
}

// Cache returns the suggestion cache config (C3).
func (c AppConfig) Cache() CacheConfig { return c.cache }

// APIKeys returns the configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// WorkerCount returns the number of background embedding workers.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// SearchLimit returns the default retrieval result limit (C4).
func (c AppConfig) SearchLimit() int { return c.searchLimit }

// HTTPCacheDir returns the directory used to cache outbound provider HTTP
// responses to disk, or "" to disable that cache.
func (c AppConfig) HTTPCacheDir() string { return c.httpCacheDir }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		if c.dbURL == "" || strings.Contains(c.dbURL, "wardrobe.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "wardrobe.db")
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithDisableTelemetry sets telemetry state.
func WithDisableTelemetry(disabled bool) AppConfigOption {
	return func(c *AppConfig) { c.disableTelemetry = disabled }
}

// WithSkipProviderValidation sets whether to skip provider validation.
// WARNING: For testing only.
func WithSkipProviderValidation(skip bool) AppConfigOption {
	return func(c *AppConfig) { c.skipProviderValidation = skip }
}

// WithRAGEnabled sets whether C4's retriever runs.
func WithRAGEnabled(enabled bool) AppConfigOption {
	return func(c *AppConfig) { c.ragEnabled = enabled }
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = &e }
}

// WithLLMEndpoint sets the LLM delegate endpoint.
func WithLLMEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.llmEndpoint = &e }
}

// WithGeminiAPIKey sets the Gemini API key.
func WithGeminiAPIKey(key string) AppConfigOption {
	return func(c *AppConfig) { c.geminiAPIKey = key }
}

// WithEmbeddingBatchSize sets the worker's per-batch item count.
func WithEmbeddingBatchSize(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.embeddingBatchSize = n
		}
	}
}

// WithEmbeddingBatchTimeout sets how long the worker waits to fill a batch.
func WithEmbeddingBatchTimeout(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d > 0 {
			c.embeddingBatchTimeout = d
		}
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) AppConfigOption {
	return func(c *AppConfig) {
		c.corsOrigins = make([]string, len(origins))
		copy(c.corsOrigins, origins)
	}
}

// WithCacheConfig sets the cache config.
func WithCacheConfig(cc CacheConfig) AppConfigOption {
	return func(c *AppConfig) { c.cache = cc }
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithWorkerCount sets the number of background workers.
func WithWorkerCount(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithSearchLimit sets the default retrieval result limit.
func WithSearchLimit(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

// WithHTTPCacheDir sets the outbound provider HTTP response cache directory.
func WithHTTPCacheDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.httpCacheDir = dir }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
// This copies all fields from the receiver and then applies the options,
// making it safe to use when adding new fields to AppConfig.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Sensitive values like API keys are masked or shown as counts.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.Bool("rag_enabled", c.ragEnabled),
		slog.String("embedding_model", c.endpointModel(c.embeddingEndpoint)),
		slog.String("llm_model", c.endpointModel(c.llmEndpoint)),
		slog.Bool("llm_delegate_enabled", c.LLMDelegateEnabled()),
		slog.Int("embedding_batch_size", c.embeddingBatchSize),
		slog.Duration("embedding_batch_timeout", c.embeddingBatchTimeout),
		slog.Int("cors_origins_count", len(c.corsOrigins)),
		slog.String("cache_backend", c.maskedCacheURL()),
		slog.Int("api_keys_count", len(c.apiKeys)),
		slog.Bool("skip_provider_validation", c.skipProviderValidation),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if len(c.dbURL) >= 7 && c.dbURL[:7] == "sqlite:" {
		return c.dbURL
	}
	return "postgres://***@***"
}

func (c AppConfig) maskedCacheURL() string {
	if c.cache.backendURL == "" {
		return "(in-process)"
	}
	return "configured"
}

func (c AppConfig) endpointModel(e *Endpoint) string {
	if e == nil {
		return "(not configured)"
	}
	return e.Model()
}

// ParseAPIKeys parses a comma-separated string of API keys.
func ParseAPIKeys(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}

// ParseCORSOrigins parses a comma-separated string of CORS origins.
func ParseCORSOrigins(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
