// Package main provides the alexandria binary entry point.
// Alexandria is a personal knowledge base service: it ingests web
// resources, analyzes them with an LLM, and keeps derived artifacts
// consistent through an event-driven hook system.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ram-tewari/neo-alexandria-sub001/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "alexandria"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Personal knowledge base service",
		Long: `Alexandria ingests web resources into a personal knowledge base.

It provides:
- Content fetching, extraction, and archival
- LLM-backed summarization, tagging, and classification
- Event-driven consistency hooks that keep embeddings, search
  indices, and caches aligned with source data

Resources and background tasks flow through NATS JetStream.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion service",
		Long: `Serve consumes ingestion requests from NATS JetStream and exposes
metrics and health endpoints over HTTP. Requires a NATS connection.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(logLevel)
			cfg, err := loadConfig(configPath, logger)
			if err != nil {
				return err
			}
			return runServe(cfg, logger)
		},
	})

	ingestCmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "Ingest a single URL and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(logLevel)
			cfg, err := loadConfig(configPath, logger)
			if err != nil {
				return err
			}
			title, _ := cmd.Flags().GetString("title")
			return runIngest(cfg, logger, args[0], title)
		},
	}
	ingestCmd.Flags().String("title", "", "Initial resource title")
	cmd.AddCommand(ingestCmd)

	return cmd
}

// setupLogger configures the process-wide slog default.
func setupLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads from an explicit file, or falls back to the layered
// loader (defaults, user config, project config).
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	return config.NewLoader(logger).Load()
}
