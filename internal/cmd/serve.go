package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KeikaK/llmbroadhearing/internal/adapter/llm"
	"github.com/KeikaK/llmbroadhearing/internal/logger"
	"github.com/KeikaK/llmbroadhearing/internal/metrics"
	"github.com/KeikaK/llmbroadhearing/internal/policy"
	"github.com/KeikaK/llmbroadhearing/internal/service"
	httpserver "github.com/KeikaK/llmbroadhearing/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

var (
	servePort    int
	serveDataDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hearing HTTP server",
	Long: `Start the HTTP server: the template and session API, the streaming chat
endpoints (plain text and WebSocket) and /metrics.

Flags override the environment.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (overrides HTTP_PORT)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "data directory (overrides DATA_DIR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.HTTPPort = servePort
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = serveDataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Component("serve")
	log.Info().
		Int("port", cfg.HTTPPort).
		Str("store", cfg.StoreBackend).
		Str("data_dir", cfg.DataDir).
		Str("llm_base_url", cfg.LLMBaseURL).
		Str("mode", cfg.Mode).
		Msg("starting hearing service")

	// Initialize store
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	// Initialize policy engine
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	policyEngine, err := policy.LoadEngine(ctx, cfg.ModelPolicyFile)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	// Initialize service
	m := metrics.NewMetrics()
	llmClient := llm.NewLLMClient(cfg.Mode, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	svc := service.New(st, llmClient, cfg, policyEngine, m)

	e := httpserver.NewServer(cfg, svc, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("failed to shutdown http server gracefully")
		}
		if err := svc.Wait(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("pending summaries abandoned")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("hearing service stopped")
	return nil
}
