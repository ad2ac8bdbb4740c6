package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ram-tewari/neo-alexandria-sub001/config"
)

const (
	// IngestStreamName is the JetStream stream carrying ingestion
	// requests.
	IngestStreamName = "ALEXANDRIA_INGEST"
	ingestSubject    = "ingest.request"
	ingestConsumer   = "alexandria-ingester"
)

// IngestRequest is the wire form of one ingestion request.
type IngestRequest struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Source string `json:"source,omitempty"`
}

// runServe consumes ingestion requests from JetStream and serves
// metrics and health endpoints until interrupted.
func runServe(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.close()

	consumeCtx, err := startIngestConsumer(ctx, a)
	if err != nil {
		return err
	}
	defer consumeCtx.Stop()

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: newHTTPHandler(a),
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("Alexandria ready", "version", Version)

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	logger.Info("Alexandria shutdown complete")
	return nil
}

// startIngestConsumer ensures the request stream exists and starts a
// durable consumer running ingestions.
func startIngestConsumer(ctx context.Context, a *app) (jetstream.ConsumeContext, error) {
	_, err := a.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     IngestStreamName,
		Subjects: []string{ingestSubject},
		MaxAge:   24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure ingest stream: %w", err)
	}

	consumer, err := a.js.CreateOrUpdateConsumer(ctx, IngestStreamName, jetstream.ConsumerConfig{
		Durable:       ingestConsumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    3,
		AckWait:       5 * time.Minute,
		FilterSubject: ingestSubject,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure ingest consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		handleIngestRequest(ctx, a, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("start ingest consumer: %w", err)
	}

	a.logger.Info("Ingest consumer started", "stream", IngestStreamName, "subject", ingestSubject)
	return consumeCtx, nil
}

// handleIngestRequest registers the resource if needed and runs one
// ingestion. Malformed requests are terminated, transient failures are
// left for redelivery.
func handleIngestRequest(ctx context.Context, a *app, msg jetstream.Msg) {
	var req IngestRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		a.logger.Error("malformed ingest request", "error", err)
		_ = msg.TermWithReason("malformed request")
		return
	}
	if req.URL == "" {
		a.logger.Error("ingest request missing url")
		_ = msg.TermWithReason("missing url")
		return
	}
	if req.Source == "" {
		req.Source = "queue"
	}

	res, _, err := a.resources.Register(ctx, req.URL, req.Title, req.Source)
	if err != nil {
		a.logger.Error("register resource failed", "url", req.URL, "error", err)
		_ = msg.Nak()
		return
	}

	if err := a.orchestrator.Run(ctx, res.ID); err != nil {
		a.logger.Error("ingestion run failed", "resource_id", res.ID, "error", err)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}

// newHTTPHandler serves metrics and health endpoints.
func newHTTPHandler(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if a.nc != nil && !a.nc.IsConnected() {
			http.Error(w, "nats disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
