package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ram-tewari/neo-alexandria-sub001/ai"
	"github.com/ram-tewari/neo-alexandria-sub001/config"
	"github.com/ram-tewari/neo-alexandria-sub001/event"
	"github.com/ram-tewari/neo-alexandria-sub001/hooks"
	"github.com/ram-tewari/neo-alexandria-sub001/ingest"
	"github.com/ram-tewari/neo-alexandria-sub001/resource"
	"github.com/ram-tewari/neo-alexandria-sub001/vocabulary"
)

// app wires the service components from configuration: event bus,
// resource store, consistency hooks, and the ingestion orchestrator.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	bus          *event.Bus
	store        resource.Store
	resources    *resource.Service
	orchestrator *ingest.Orchestrator

	nc *nats.Conn
	js jetstream.JetStream
}

// newApp builds the component graph. With requireNATS false and no
// configured NATS URL, storage is in-memory and task dispatches are
// logged instead of queued.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, requireNATS bool) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	// Environment variable override takes precedence
	if envURL := os.Getenv("ALEXANDRIA_NATS_URL"); envURL != "" {
		cfg.NATS.URL = envURL
	}

	a.bus = event.NewBus(
		event.WithHistoryCapacity(cfg.Events.HistoryCapacity),
		event.WithLogger(logger),
		event.WithMetrics(event.NewMetrics(a.registry)),
	)

	if cfg.NATS.URL != "" {
		if err := a.connectNATS(cfg.NATS.URL); err != nil {
			return nil, err
		}
	} else if requireNATS {
		return nil, fmt.Errorf("nats.url is required (set it in config or ALEXANDRIA_NATS_URL)")
	}

	switch cfg.Storage.Backend {
	case "nats":
		if a.js == nil {
			return nil, fmt.Errorf("storage.backend nats requires a NATS connection")
		}
		store, err := resource.NewKVStore(ctx, a.js)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create resource store: %w", err)
		}
		a.store = store
	default:
		a.store = resource.NewMemoryStore()
	}

	var dispatcher hooks.Dispatcher
	if a.js != nil {
		d, err := hooks.NewNATSDispatcher(ctx, a.js)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create task dispatcher: %w", err)
		}
		dispatcher = d
	} else {
		dispatcher = hooks.NewLogDispatcher(logger)
	}
	hooks.New(dispatcher, logger).RegisterAll(a.bus)

	a.resources = resource.NewService(a.store, a.bus, logger)

	aiClient := ai.NewClient(ai.Config{
		Endpoint:    cfg.Model.Endpoint,
		APIKey:      cfg.Model.APIKey,
		ChatModel:   cfg.Model.ChatModel,
		EmbedModel:  cfg.Model.EmbedModel,
		Temperature: cfg.Model.Temperature,
		Timeout:     cfg.Model.Timeout,
	}, logger)

	a.orchestrator = ingest.NewOrchestrator(ingest.Config{
		Bus:      a.bus,
		Sessions: ingest.StoreSessions(a.store),
		Fetcher: ingest.NewHTTPFetcher(ingest.HTTPFetcherConfig{
			Timeout:        cfg.Ingest.Timeout,
			UserAgent:      cfg.Ingest.UserAgent,
			MaxContentSize: cfg.Ingest.MaxContentSize,
			AllowHTTP:      cfg.Ingest.AllowHTTP,
		}),
		Extractor:  ingest.NewReadabilityExtractor(),
		Analyzer:   aiClient,
		Normalizer: vocabulary.NewNormalizer(),
		Archiver:   ingest.NewFileArchiver(cfg.Ingest.ArchiveRoot),
		Embedder:   aiClient,
		Logger:     logger,
		Metrics:    ingest.NewMetrics(a.registry),
	})

	return a, nil
}

// connectNATS dials the server and prepares JetStream access.
func (a *app) connectNATS(url string) error {
	a.logger.Info("Connecting to NATS", "url", url)
	nc, err := nats.Connect(url,
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or set nats.url to point to your NATS server.`, err, url)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return fmt.Errorf("create JetStream context: %w", err)
	}

	a.nc = nc
	a.js = js
	a.logger.Info("Connected to NATS", "url", url)
	return nil
}

// close releases external connections.
func (a *app) close() {
	if a.nc != nil {
		a.nc.Close()
		a.nc = nil
	}
}
