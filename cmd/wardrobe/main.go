// Package main is the entry point for the wardrobe CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stylo/wardrobe/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wardrobe",
		Short: "Wardrobe outfit suggestion server",
		Long:  `Wardrobe turns a catalog of clothing items and a free-text occasion query into scored outfit suggestions, combining retrieval, intent classification, rule-based assembly, and an optional LLM delegate.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(refreshMissingCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
