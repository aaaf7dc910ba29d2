// Package cmd implements the hearing command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KeikaK/llmbroadhearing/internal/config"
	"github.com/KeikaK/llmbroadhearing/internal/logger"
	"github.com/KeikaK/llmbroadhearing/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "hearing",
	Short: "LLM hearing service",
	Long: `hearing runs an interview chat service backed by an OpenAI-compatible model.

Templates seed the conversation, replies are streamed one character at a
time, and finished hearings are saved and summarized.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig reads the configuration and configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Configure(cfg.LogLevel, cfg.LogPretty)
	return cfg, nil
}

// openStore opens the configured storage backend.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendSQLite:
		return store.NewSQLiteStore(cfg.DatabaseURL)
	default:
		return store.NewFileStore(cfg.DataDir)
	}
}
