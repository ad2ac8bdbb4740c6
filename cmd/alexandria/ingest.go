package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/ram-tewari/neo-alexandria-sub001/config"
)

// runIngest registers and ingests a single URL, then exits. Works
// without NATS: storage falls back to memory and task dispatches are
// logged.
func runIngest(cfg *config.Config, logger *slog.Logger, url, title string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.close()

	res, created, err := a.resources.Register(ctx, url, title, "cli")
	if err != nil {
		return fmt.Errorf("register resource: %w", err)
	}
	if !created {
		logger.Info("resource already registered", "resource_id", res.ID)
	}

	if err := a.orchestrator.Run(ctx, res.ID); err != nil {
		return fmt.Errorf("ingest %s: %w", url, err)
	}

	final, err := a.store.GetByID(ctx, res.ID)
	if err != nil {
		return fmt.Errorf("load ingested resource: %w", err)
	}

	fmt.Printf("Ingested %s\n", url)
	fmt.Printf("  id:             %s\n", final.ID)
	fmt.Printf("  title:          %s\n", final.Title)
	fmt.Printf("  classification: %s\n", final.Classification)
	if len(final.Tags) > 0 {
		fmt.Printf("  tags:           %v\n", final.Tags)
	}
	if final.Summary != "" {
		fmt.Printf("  summary:        %s\n", final.Summary)
	}
	if final.ArchivePath != "" {
		fmt.Printf("  archive:        %s\n", final.ArchivePath)
	}
	return nil
}
