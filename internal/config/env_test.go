package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "", cfg.DataDir)
	assert.Equal(t, "", cfg.DBURL)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "pretty", cfg.LogFormat)
	assert.False(t, cfg.DisableTelemetry)
	assert.True(t, cfg.RAGEnabled)
	assert.Equal(t, "", cfg.APIKeys)
	assert.Equal(t, "", cfg.GeminiAPIKey)
	assert.Equal(t, 32, cfg.EmbeddingBatchSize)
	assert.Equal(t, 2.0, cfg.EmbeddingBatchTimeout)
	assert.Equal(t, "", cfg.CORSOrigins)
	assert.Equal(t, "", cfg.CacheBackendURL)
	assert.Equal(t, 600.0, cfg.CacheTTL)
	assert.Equal(t, 1, cfg.WorkerCount)
	assert.Equal(t, 10, cfg.SearchLimit)
}

func TestEnvDefaults_MatchConfigDefaults(t *testing.T) {
	// This test verifies that struct tag defaults in env.go match the
	// constants in config.go. Go's struct tag defaults must be literals, so
	// this test ensures they stay in sync.
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host, "Host struct tag default should match DefaultHost")
	assert.Equal(t, DefaultPort, cfg.Port, "Port struct tag default should match DefaultPort")
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel, "LogLevel struct tag default should match DefaultLogLevel")
	assert.Equal(t, DefaultWorkerCount, cfg.WorkerCount, "WorkerCount struct tag default should match DefaultWorkerCount")
	assert.Equal(t, DefaultSearchLimit, cfg.SearchLimit, "SearchLimit struct tag default should match DefaultSearchLimit")
	assert.Equal(t, DefaultEmbeddingBatchSize, cfg.EmbeddingBatchSize, "EmbeddingBatchSize struct tag default should match DefaultEmbeddingBatchSize")
	assert.Equal(t, DefaultEmbeddingBatchTimeout.Seconds(), cfg.EmbeddingBatchTimeout, "EmbeddingBatchTimeout struct tag default should match DefaultEmbeddingBatchTimeout")
	assert.Equal(t, DefaultCacheTTL.Seconds(), cfg.CacheTTL, "CacheTTL struct tag default should match DefaultCacheTTL")

	assert.Equal(t, DefaultEndpointParallelTasks, cfg.EmbeddingEndpoint.NumParallelTasks, "NumParallelTasks struct tag default should match DefaultEndpointParallelTasks")
	assert.Equal(t, DefaultEndpointTimeout.Seconds(), cfg.EmbeddingEndpoint.Timeout, "Timeout struct tag default should match DefaultEndpointTimeout")
	assert.Equal(t, DefaultEndpointMaxRetries, cfg.EmbeddingEndpoint.MaxRetries, "MaxRetries struct tag default should match DefaultEndpointMaxRetries")
	assert.Equal(t, DefaultEndpointInitialDelay.Seconds(), cfg.EmbeddingEndpoint.InitialDelay, "InitialDelay struct tag default should match DefaultEndpointInitialDelay")
	assert.Equal(t, DefaultEndpointBackoffFactor, cfg.EmbeddingEndpoint.BackoffFactor, "BackoffFactor struct tag default should match DefaultEndpointBackoffFactor")
	assert.Equal(t, DefaultEndpointMaxTokens, cfg.EmbeddingEndpoint.MaxTokens, "MaxTokens struct tag default should match DefaultEndpointMaxTokens")
}

func TestLoadFromEnv_OverrideValues(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_DIR", "/custom/data")
	t.Setenv("DB_URL", "postgres://localhost/wardrobe")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DISABLE_TELEMETRY", "true")
	t.Setenv("API_KEYS", "key1,key2,key3")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/custom/data", cfg.DataDir)
	assert.Equal(t, "postgres://localhost/wardrobe", cfg.DBURL)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.DisableTelemetry)
	assert.Equal(t, "key1,key2,key3", cfg.APIKeys)
}

func TestLoadFromEnv_EmbeddingEndpoint(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EMBEDDING_ENDPOINT_BASE_URL", "https://api.openai.com/v1")
	t.Setenv("EMBEDDING_ENDPOINT_MODEL", "text-embedding-3-small")
	t.Setenv("EMBEDDING_ENDPOINT_API_KEY", "sk-test-key")
	t.Setenv("EMBEDDING_ENDPOINT_NUM_PARALLEL_TASKS", "5")
	t.Setenv("EMBEDDING_ENDPOINT_TIMEOUT", "120")
	t.Setenv("EMBEDDING_ENDPOINT_MAX_RETRIES", "3")
	t.Setenv("EMBEDDING_ENDPOINT_INITIAL_DELAY", "1.5")
	t.Setenv("EMBEDDING_ENDPOINT_BACKOFF_FACTOR", "1.5")
	t.Setenv("EMBEDDING_ENDPOINT_MAX_TOKENS", "8000")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.EmbeddingEndpoint.IsConfigured())
	assert.Equal(t, "https://api.openai.com/v1", cfg.EmbeddingEndpoint.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingEndpoint.Model)
	assert.Equal(t, "sk-test-key", cfg.EmbeddingEndpoint.APIKey)
	assert.Equal(t, 5, cfg.EmbeddingEndpoint.NumParallelTasks)
	assert.Equal(t, 120.0, cfg.EmbeddingEndpoint.Timeout)
	assert.Equal(t, 3, cfg.EmbeddingEndpoint.MaxRetries)
	assert.Equal(t, 1.5, cfg.EmbeddingEndpoint.InitialDelay)
	assert.Equal(t, 1.5, cfg.EmbeddingEndpoint.BackoffFactor)
	assert.Equal(t, 8000, cfg.EmbeddingEndpoint.MaxTokens)
}

func TestLoadFromEnv_LLMEndpoint(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("LLM_ENDPOINT_BASE_URL", "https://api.openai.com/v1")
	t.Setenv("LLM_ENDPOINT_MODEL", "gpt-4o-mini")
	t.Setenv("LLM_ENDPOINT_API_KEY", "sk-llm-key")
	t.Setenv("LLM_ENDPOINT_SOCKET_PATH", "/tmp/llm.sock")
	t.Setenv("LLM_ENDPOINT_EXTRA_PARAMS", `{"temperature": 0.7, "top_p": 0.9}`)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.LLMEndpoint.IsConfigured())
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLMEndpoint.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMEndpoint.Model)
	assert.Equal(t, "sk-llm-key", cfg.LLMEndpoint.APIKey)
	assert.Equal(t, "/tmp/llm.sock", cfg.LLMEndpoint.SocketPath)
	assert.Equal(t, `{"temperature": 0.7, "top_p": 0.9}`, cfg.LLMEndpoint.ExtraParams)
}

func TestLoadFromEnv_RAGAndGemini(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("RAG_ENABLED", "false")
	t.Setenv("GEMINI_API_KEY", "gemini-secret")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.RAGEnabled)
	assert.Equal(t, "gemini-secret", cfg.GeminiAPIKey)
}

func TestLoadFromEnv_EmbeddingBatching(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EMBEDDING_BATCH_SIZE", "64")
	t.Setenv("EMBEDDING_BATCH_TIMEOUT", "5.0")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.EmbeddingBatchSize)
	assert.Equal(t, 5.0, cfg.EmbeddingBatchTimeout)
}

func TestLoadFromEnv_CORSOrigins(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("CORS_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://a.example.com,https://b.example.com", cfg.CORSOrigins)
}

func TestLoadFromEnv_Cache(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("CACHE_BACKEND_URL", "redis://localhost:6379/0")
	t.Setenv("CACHE_TTL", "120")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "redis://localhost:6379/0", cfg.CacheBackendURL)
	assert.Equal(t, 120.0, cfg.CacheTTL)
}

func TestLoadFromEnv_WorkerCountAndSearchLimit(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("SEARCH_LIMIT", "25")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 25, cfg.SearchLimit)
}

func TestEnvConfig_ToAppConfig(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("DATA_DIR", "/test/data")
	t.Setenv("DB_URL", "postgres://test/db")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DISABLE_TELEMETRY", "true")
	t.Setenv("API_KEYS", "key1,key2")
	t.Setenv("EMBEDDING_ENDPOINT_MODEL", "text-embedding-3-small")
	t.Setenv("LLM_ENDPOINT_MODEL", "gpt-4o-mini")
	t.Setenv("GEMINI_API_KEY", "gemini-secret")
	t.Setenv("RAG_ENABLED", "false")
	t.Setenv("CORS_ORIGINS", "https://app.example.com")
	t.Setenv("CACHE_BACKEND_URL", "redis://localhost:6379/0")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)

	cfg := envCfg.ToAppConfig()

	assert.Equal(t, "/test/data", cfg.DataDir())
	assert.Equal(t, "postgres://test/db", cfg.DBURL())
	assert.Equal(t, "DEBUG", cfg.LogLevel())
	assert.Equal(t, LogFormatJSON, cfg.LogFormat())
	assert.True(t, cfg.DisableTelemetry())
	assert.Equal(t, []string{"key1", "key2"}, cfg.APIKeys())
	assert.NotNil(t, cfg.EmbeddingEndpoint())
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingEndpoint().Model())
	assert.NotNil(t, cfg.LLMEndpoint())
	assert.Equal(t, "gpt-4o-mini", cfg.LLMEndpoint().Model())
	assert.True(t, cfg.LLMDelegateEnabled())
	assert.False(t, cfg.RAGEnabled())
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORSOrigins())
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache().BackendURL())
}

func TestEndpointEnv_ToEndpoint(t *testing.T) {
	env := EndpointEnv{
		BaseURL:          "https://api.example.com",
		Model:            "test-model",
		APIKey:           "test-key",
		NumParallelTasks: 5,
		SocketPath:       "/tmp/socket",
		Timeout:          120,
		MaxRetries:       3,
		InitialDelay:     1.5,
		BackoffFactor:    1.5,
		ExtraParams:      `{"key": "value"}`,
		MaxTokens:        8000,
	}

	endpoint := env.ToEndpoint()

	assert.Equal(t, "https://api.example.com", endpoint.BaseURL())
	assert.Equal(t, "test-model", endpoint.Model())
	assert.Equal(t, "test-key", endpoint.APIKey())
	assert.Equal(t, 5, endpoint.NumParallelTasks())
	assert.Equal(t, "/tmp/socket", endpoint.SocketPath())
	assert.Equal(t, 120*time.Second, endpoint.Timeout())
	assert.Equal(t, 3, endpoint.MaxRetries())
	assert.Equal(t, time.Duration(1.5*float64(time.Second)), endpoint.InitialDelay())
	assert.Equal(t, 1.5, endpoint.BackoffFactor())
	assert.Equal(t, map[string]any{"key": "value"}, endpoint.ExtraParams())
	assert.Equal(t, 8000, endpoint.MaxTokens())
}

func TestParseLogFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected LogFormat
	}{
		{"json", LogFormatJSON},
		{"JSON", LogFormatJSON},
		{"pretty", LogFormatPretty},
		{"PRETTY", LogFormatPretty},
		{"", LogFormatPretty},
		{"invalid", LogFormatPretty},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseLogFormat(tc.input))
		})
	}
}

func TestParseExtraParams(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]any
	}{
		{
			name:     "valid json",
			input:    `{"temperature": 0.7, "top_p": 0.9}`,
			expected: map[string]any{"temperature": 0.7, "top_p": 0.9},
		},
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "invalid json",
			input:    "not json",
			expected: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := parseExtraParams(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	content := `DATA_DIR=/from/dotenv
LOG_LEVEL=DEBUG
API_KEYS=key1,key2
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	err = LoadDotEnv(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/from/dotenv", os.Getenv("DATA_DIR"))
	assert.Equal(t, "DEBUG", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "key1,key2", os.Getenv("API_KEYS"))
}

func TestLoadDotEnv_NonExistent(t *testing.T) {
	clearEnvVars(t)

	err := LoadDotEnv("/nonexistent/.env")
	assert.NoError(t, err)
}

func TestMustLoadDotEnv_NonExistent(t *testing.T) {
	clearEnvVars(t)

	err := MustLoadDotEnv("/nonexistent/.env")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	content := `DATA_DIR=/config/data
LOG_LEVEL=WARN
EMBEDDING_ENDPOINT_MODEL=test-embedding
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/config/data", cfg.DataDir())
	assert.Equal(t, "WARN", cfg.LogLevel())
	assert.NotNil(t, cfg.EmbeddingEndpoint())
	assert.Equal(t, "test-embedding", cfg.EmbeddingEndpoint().Model())
}

func TestLoadDotEnvFromFiles(t *testing.T) {
	tmpDir := t.TempDir()

	env1 := filepath.Join(tmpDir, ".env")
	err := os.WriteFile(env1, []byte("KEY1=value1\nKEY2=value2\n"), 0o644)
	require.NoError(t, err)

	env2 := filepath.Join(tmpDir, ".env.local")
	err = os.WriteFile(env2, []byte("KEY2=override\nKEY3=value3\n"), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	// godotenv.Load does NOT override existing values so KEY2 keeps its
	// value from env1.
	err = LoadDotEnvFromFiles(env1, env2)
	require.NoError(t, err)

	assert.Equal(t, "value1", os.Getenv("KEY1"))
	assert.Equal(t, "value2", os.Getenv("KEY2"))
	assert.Equal(t, "value3", os.Getenv("KEY3"))
}

func TestOverloadDotEnvFromFiles(t *testing.T) {
	tmpDir := t.TempDir()

	env1 := filepath.Join(tmpDir, ".env")
	err := os.WriteFile(env1, []byte("KEY1=value1\nKEY2=value2\n"), 0o644)
	require.NoError(t, err)

	env2 := filepath.Join(tmpDir, ".env.local")
	err = os.WriteFile(env2, []byte("KEY2=override\nKEY3=value3\n"), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	err = OverloadDotEnvFromFiles(env1, env2)
	require.NoError(t, err)

	assert.Equal(t, "value1", os.Getenv("KEY1"))
	assert.Equal(t, "override", os.Getenv("KEY2"))
	assert.Equal(t, "value3", os.Getenv("KEY3"))
}

// clearEnvVars unsets all config-related environment variables.
func clearEnvVars(t *testing.T) {
	t.Helper()

	vars := []string{
		"HOST",
		"PORT",
		"DATA_DIR",
		"DB_URL",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"DISABLE_TELEMETRY",
		"SKIP_PROVIDER_VALIDATION",
		"RAG_ENABLED",
		"API_KEYS",
		"EMBEDDING_ENDPOINT_BASE_URL",
		"EMBEDDING_ENDPOINT_MODEL",
		"EMBEDDING_ENDPOINT_API_KEY",
		"EMBEDDING_ENDPOINT_NUM_PARALLEL_TASKS",
		"EMBEDDING_ENDPOINT_SOCKET_PATH",
		"EMBEDDING_ENDPOINT_TIMEOUT",
		"EMBEDDING_ENDPOINT_MAX_RETRIES",
		"EMBEDDING_ENDPOINT_INITIAL_DELAY",
		"EMBEDDING_ENDPOINT_BACKOFF_FACTOR",
		"EMBEDDING_ENDPOINT_EXTRA_PARAMS",
		"EMBEDDING_ENDPOINT_MAX_TOKENS",
		"LLM_ENDPOINT_BASE_URL",
		"LLM_ENDPOINT_MODEL",
		"LLM_ENDPOINT_API_KEY",
		"LLM_ENDPOINT_NUM_PARALLEL_TASKS",
		"LLM_ENDPOINT_SOCKET_PATH",
		"LLM_ENDPOINT_TIMEOUT",
		"LLM_ENDPOINT_MAX_RETRIES",
		"LLM_ENDPOINT_INITIAL_DELAY",
		"LLM_ENDPOINT_BACKOFF_FACTOR",
		"LLM_ENDPOINT_EXTRA_PARAMS",
		"LLM_ENDPOINT_MAX_TOKENS",
		"GEMINI_API_KEY",
		"EMBEDDING_BATCH_SIZE",
		"EMBEDDING_BATCH_TIMEOUT",
		"CORS_ORIGINS",
		"CACHE_BACKEND_URL",
		"CACHE_TTL",
		"WORKER_COUNT",
		"SEARCH_LIMIT",
		"HTTP_CACHE_DIR",
		"KEY1",
		"KEY2",
		"KEY3",
	}

	for _, v := range vars {
		_ = os.Unsetenv(v)
	}
}
