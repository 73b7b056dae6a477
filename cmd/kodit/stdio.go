package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kodit-ai/kodit"
	"github.com/kodit-ai/kodit/internal/log"
	"github.com/kodit-ai/kodit/internal/mcp"
)

func stdioCmd() *cobra.Command {
	var (
		envFile    string
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start the MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

AI assistants use this to retrieve relevant code snippets from the local
index. Configuration is loaded the same way as for serve.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStdio(cmd.Context(), envFile, configFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&configFile, "config", "", "Path to YAML config file")

	return cmd
}

func runStdio(ctx context.Context, envFile, configFile string) error {
	cfg, err := loadConfig(envFile, configFile)
	if err != nil {
		return err
	}

	// Stdout carries the MCP protocol, so logs go to stderr.
	logger := log.New(os.Stderr, log.ParseFormat(cfg.LogFormat()), log.ParseLevel(cfg.LogLevel()))
	slog.SetDefault(logger)

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

	logger.Info("mcp server on stdio", slog.String("version", version))
	return mcp.NewServer(app.Search, version, logger).ServeStdio()
}
