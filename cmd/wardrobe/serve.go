package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	wardrobe "github.com/stylo/wardrobe"
	"github.com/stylo/wardrobe/infrastructure/api"
	apimiddleware "github.com/stylo/wardrobe/infrastructure/api/middleware"
	"github.com/stylo/wardrobe/internal/config"
	"github.com/stylo/wardrobe/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                         Server host to bind to (default: 0.0.0.0)
  PORT                         Server port to listen on (default: 8080)
  DATA_DIR                     Data directory (default: ~/.wardrobe)
  DB_URL                       Database URL (default: sqlite:///{data_dir}/wardrobe.db)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)
  DISABLE_TELEMETRY            Disable telemetry (default: false)
  API_KEYS                     Comma-separated list of valid owner API keys
  CORS_ORIGINS                 Comma-separated list of allowed CORS origins
  HTTP_CACHE_DIR               Directory used to cache outbound provider HTTP responses

  EMBEDDING_ENDPOINT_*         C1 embedding provider, OpenAI-compatible
    BASE_URL                   Base URL (e.g., https://api.openai.com/v1)
    MODEL                      Model identifier (e.g., text-embedding-3-small)
    API_KEY                    API key for authentication
    TIMEOUT                    Request timeout in seconds (default: 60)
    MAX_RETRIES                Retry attempts (default: 5)

  LLM_ENDPOINT_*               C7 text generation provider, OpenAI-compatible
    (same fields as EMBEDDING_ENDPOINT)

  GEMINI_API_KEY                C7 text generation via Gemini, preferred over LLM_ENDPOINT when set

  CACHE_BACKEND_URL             C3 suggestion cache backend (redis://...); in-process otherwise
  CACHE_TTL                     C3 suggestion cache TTL in seconds (default: 300)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	cfg = applyServeOverrides(cfg, host, port)

	addr := cfg.Addr()

	logger := log.NewLogger(cfg)
	slogger := logger.Slog()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting wardrobe", attrs...)

	client, err := wardrobe.New(cfg, wardrobe.WithLogger(slogger))
	if err != nil {
		return fmt.Errorf("create wardrobe client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close wardrobe client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewAPIServer(client, cfg.CORSOrigins())
	router := apiServer.Router()

	// Apply custom middleware (MUST be done before MountRoutes).
	router.Use(chimiddleware.RequestID)
	router.Use(apimiddleware.Logging(slogger))

	apiServer.MountRoutes()

	router.Get("/health", healthHandler)
	router.Get("/healthz", healthHandler)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"name":"wardrobe","version":"%s"}`, version)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	server := api.NewServer(addr, slogger)
	server.Router().Mount("/", router)

	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		cancel()
		if err := server.Shutdown(ctx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	slogger.Info("starting server", slog.String("addr", addr))
	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
