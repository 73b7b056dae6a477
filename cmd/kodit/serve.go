package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kodit-ai/kodit"
	"github.com/kodit-ai/kodit/infrastructure/api"
	"github.com/kodit-ai/kodit/internal/config"
	"github.com/kodit-ai/kodit/internal/log"
)

const shutdownGrace = 10 * time.Second

func serveCmd() *cobra.Command {
	var (
		envFile    string
		configFile string
		host       string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and MCP server",
		Long: `Start the HTTP API and MCP server.

Configuration is loaded in increasing precedence: defaults, the YAML config
file, the .env file, environment variables, command line flags.

Environment variables:
  HOST                      Bind host (default: 0.0.0.0)
  PORT                      Listen port (default: 8080)
  DATA_DIR                  Data directory (default: ~/.kodit)
  DB_URL                    sqlite:///path or postgres://... (default: sqlite in DATA_DIR)
  LOG_LEVEL                 DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                pretty, json (default: pretty)
  API_TOKENS                Comma-separated bearer tokens; empty runs open
  WORKER_COUNT              Queue worker count (default: 1)
  SYNC_INTERVAL_SECONDS     Periodic re-index interval, 0 disables (default: 1800)

  EMBEDDING_ENDPOINT_*      OpenAI-compatible embedding service
    BASE_URL, MODEL, API_KEY, TIMEOUT, MAX_RETRIES, MAX_BATCH_CHARS
  ENRICHMENT_ENDPOINT_*     OpenAI-compatible enrichment service
    (same fields as EMBEDDING_ENDPOINT)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), envFile, configFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&configFile, "config", "", "Path to YAML config file")
	cmd.Flags().StringVar(&host, "host", "", "Bind host (overrides HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides PORT)")

	return cmd
}

func runServe(ctx context.Context, envFile, configFile, host string, port int) error {
	cfg, err := loadConfig(envFile, configFile)
	if err != nil {
		return err
	}
	var overrides []config.Option
	if host != "" {
		overrides = append(overrides, config.WithHost(host))
	}
	if port != 0 {
		overrides = append(overrides, config.WithPort(port))
	}
	cfg = cfg.Apply(overrides...)

	logger := log.Configure(cfg.LogLevel(), cfg.LogFormat())
	logger.LogAttrs(ctx, slog.LevelInfo, "starting kodit",
		append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)...)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := kodit.New(ctx, kodit.WithConfig(cfg), kodit.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close app", slog.Any("error", err))
		}
	}()
	app.Start(ctx)

	server := api.NewAPIServer(app.Repositories, app.Search, app.Queue, app.Statuses, cfg.APITokens(), version, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(cfg.Addr())
	}()
	logger.Info("server listening", slog.String("addr", cfg.Addr()))

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
