package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	wardrobe "github.com/stylo/wardrobe"
	"github.com/stylo/wardrobe/application/service"
	"github.com/stylo/wardrobe/internal/log"
)

// refreshMissingCmd backfills embeddings for catalog items that were written
// before the background worker ran or whose embedding job was dropped
// (SPEC_FULL.md §12). It is an administrative operation, not an HTTP route:
// it scans across all owners, which the request path never needs to do.
func refreshMissingCmd() *cobra.Command {
	var (
		envFile string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "refresh-missing",
		Short: "Backfill embeddings for catalog items missing them",
		Long:  `Finds every catalog item, across all owners, that has no stored embedding and re-embeds it through C1/C2. Use this after a bulk import or to recover from a worker outage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefreshMissing(envFile, limit)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of items to refresh (0 means no limit)")

	return cmd
}

func runRefreshMissing(envFile string, limit int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	logger := log.NewLogger(cfg)
	slogger := logger.Slog()

	client, err := wardrobe.New(cfg, wardrobe.WithLogger(slogger))
	if err != nil {
		return fmt.Errorf("create wardrobe client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close wardrobe client", slog.Any("error", err))
		}
	}()

	ctx := context.Background()

	items, err := client.CatalogStore().FindMissingEmbeddings(ctx, limit)
	if err != nil {
		return fmt.Errorf("find items missing embeddings: %w", err)
	}

	if len(items) == 0 {
		slogger.Info("no items missing embeddings")
		return nil
	}

	refreshed, err := service.RefreshMissing(ctx, items, client.Embedding())
	if err != nil {
		return fmt.Errorf("refresh missing embeddings: %w", err)
	}

	slogger.Info("refreshed embeddings", slog.Int("scanned", len(items)), slog.Int("refreshed", refreshed))
	return nil
}
