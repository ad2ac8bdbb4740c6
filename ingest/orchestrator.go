package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ram-tewari/neo-alexandria-sub001/ai"
	"github.com/ram-tewari/neo-alexandria-sub001/event"
	"github.com/ram-tewari/neo-alexandria-sub001/resource"
)

// Analyzer produces summary, tags, and classification for extracted
// text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*ai.Analysis, error)
}

// Embedder produces a dense embedding for text. An empty vector means
// the backend was unavailable; it is not an error.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Normalizer folds free-form terms into the controlled vocabulary.
type Normalizer interface {
	Normalize(terms []string) []string
}

// stepError tags a pipeline failure with the step that produced it, so
// ingestion.failed can report a stable error type.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// failStep wraps an error with its pipeline step name.
func failStep(step string, err error) error {
	return &stepError{step: step, err: err}
}

// Orchestrator runs the ingestion pipeline for one resource at a time,
// transitioning its status and emitting milestone events. It never
// updates derived artifacts (embeddings, search indices, caches,
// quality scores) directly: consistency hooks react to the emitted
// events instead.
type Orchestrator struct {
	bus        *event.Bus
	sessions   SessionFactory
	fetcher    Fetcher
	extractor  Extractor
	analyzer   Analyzer
	normalizer Normalizer
	archiver   Archiver
	embedder   Embedder
	logger     *slog.Logger
	metrics    *Metrics
}

// Config wires an Orchestrator's collaborators.
type Config struct {
	Bus        *event.Bus
	Sessions   SessionFactory
	Fetcher    Fetcher
	Extractor  Extractor
	Analyzer   Analyzer
	Normalizer Normalizer
	Archiver   Archiver
	Embedder   Embedder
	Logger     *slog.Logger
	Metrics    *Metrics
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		bus:        cfg.Bus,
		sessions:   cfg.Sessions,
		fetcher:    cfg.Fetcher,
		extractor:  cfg.Extractor,
		analyzer:   cfg.Analyzer,
		normalizer: cfg.Normalizer,
		archiver:   cfg.Archiver,
		embedder:   cfg.Embedder,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Run executes one ingestion for the resource. The run owns its work
// session and releases it unconditionally. A missing resource is a
// silent no-op, not a failure; any pipeline error transitions the
// resource to failed, emits ingestion.failed, and is returned to the
// caller for queue-level logging.
func (o *Orchestrator) Run(ctx context.Context, resourceID string) error {
	session, err := o.sessions(ctx)
	if err != nil {
		return fmt.Errorf("open work session: %w", err)
	}

	if o.metrics != nil {
		o.metrics.activeIngestions.Inc()
	}
	defer func() {
		if o.metrics != nil {
			o.metrics.activeIngestions.Dec()
		}
		if err := session.Close(); err != nil {
			o.logger.Warn("closing work session failed", "resource_id", resourceID, "error", err)
		}
	}()

	startedAt := time.Now()
	started := o.bus.Emit(ctx, event.IngestionStarted, map[string]any{
		"resource_id": resourceID,
		"started_at":  startedAt.Format(time.RFC3339),
	}, event.PriorityNormal)

	store := session.Resources()

	res, err := store.GetByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			// The started event stays unpaired on purpose: callers are
			// expected to have validated existence, and a vanished
			// resource is not worth a failure record.
			o.logger.Debug("resource vanished before ingestion, skipping",
				"resource_id", resourceID,
				"correlation_id", started.CorrelationID)
			return nil
		}
		return fmt.Errorf("load resource: %w", err)
	}

	res.IngestionStatus = resource.StatusProcessing
	res.IngestionError = ""
	res.IngestionStartedAt = &startedAt
	res.IngestionCompletedAt = nil
	if err := store.Update(ctx, res); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	o.logger.Info("ingestion started",
		"resource_id", resourceID,
		"url", res.URL,
		"correlation_id", started.CorrelationID)

	if err := o.pipeline(ctx, store, res); err != nil {
		o.recordFailure(ctx, store, res, err, startedAt)
		return err
	}

	duration := time.Since(startedAt)
	o.bus.Emit(ctx, event.IngestionCompleted, map[string]any{
		"resource_id":      resourceID,
		"duration_seconds": duration.Seconds(),
		"success":          true,
		"completed_at":     time.Now().Format(time.RFC3339),
	}, event.PriorityNormal)

	if o.metrics != nil {
		o.metrics.runs.WithLabelValues("completed").Inc()
	}
	o.logger.Info("ingestion completed",
		"resource_id", resourceID,
		"duration", duration)
	return nil
}

// pipeline runs the content steps and persists the outcome, including
// the completed transition, in one final update.
func (o *Orchestrator) pipeline(ctx context.Context, store resource.Store, res *resource.Resource) error {
	fetched, err := o.fetcher.Fetch(ctx, res.URL)
	if err != nil {
		return failStep("fetch", err)
	}

	extraction, err := o.extractor.Extract(fetched)
	if err != nil {
		return failStep("extract", err)
	}

	analysis, err := o.analyzer.Analyze(ctx, extraction.BodyText)
	if err != nil {
		return failStep("analyze", err)
	}

	tags := o.normalizer.Normalize(analysis.Tags)

	archivePath, err := o.archiver.Archive(ctx, ArchiveRequest{
		URL:        res.URL,
		RawContent: fetched.Body,
		Text:       extraction.BodyText,
		Metadata: map[string]any{
			"title":          extraction.Title,
			"content_type":   fetched.ContentType,
			"classification": analysis.Classification,
		},
	})
	if err != nil {
		return failStep("archive", err)
	}

	embedding, err := o.embedder.Embed(ctx, extraction.BodyText)
	if err != nil {
		return failStep("embed", err)
	}

	if extraction.Title != "" {
		res.Title = extraction.Title
	}
	res.Summary = analysis.Summary
	res.Tags = tags
	res.Classification = analysis.Classification
	res.BodyText = extraction.BodyText
	res.ArchivePath = archivePath
	res.ContentHash = contentHash(fetched.Body)
	res.Embedding = embedding

	completedAt := time.Now()
	res.IngestionStatus = resource.StatusCompleted
	res.IngestionCompletedAt = &completedAt

	if err := store.Update(ctx, res); err != nil {
		return failStep("persist", err)
	}

	o.emitExtractions(ctx, res, extraction)
	return nil
}

// emitExtractions publishes citation and author events when the
// extraction produced any, so the graph and author hooks have work.
func (o *Orchestrator) emitExtractions(ctx context.Context, res *resource.Resource, extraction *Extraction) {
	if citations := extractCitations(extraction.BodyText, res.URL); len(citations) > 0 {
		o.bus.Emit(ctx, event.CitationsExtracted, map[string]any{
			"resource_id": res.ID,
			"citations":   citations,
		}, event.PriorityNormal)
	}

	if len(extraction.Authors) > 0 {
		o.bus.Emit(ctx, event.AuthorsExtracted, map[string]any{
			"resource_id": res.ID,
			"authors":     extraction.Authors,
		}, event.PriorityNormal)
	}
}

// recordFailure transitions the resource to failed, persists the error,
// and emits ingestion.failed. Persistence errors here are logged, not
// returned: the pipeline error is the one that matters.
func (o *Orchestrator) recordFailure(ctx context.Context, store resource.Store, res *resource.Resource, runErr error, startedAt time.Time) {
	failedAt := time.Now()

	res.IngestionStatus = resource.StatusFailed
	res.IngestionError = runErr.Error()
	res.IngestionCompletedAt = &failedAt
	if err := store.Update(ctx, res); err != nil {
		o.logger.Error("persisting failed ingestion state failed",
			"resource_id", res.ID, "error", err)
	}

	var step *stepError
	errorType := "unknown"
	if errors.As(runErr, &step) {
		errorType = step.step
	}

	o.bus.Emit(ctx, event.IngestionFailed, map[string]any{
		"resource_id":      res.ID,
		"error":            runErr.Error(),
		"error_type":       errorType,
		"duration_seconds": failedAt.Sub(startedAt).Seconds(),
		"success":          false,
		"failed_at":        failedAt.Format(time.RFC3339),
	}, event.PriorityHigh)

	if o.metrics != nil {
		o.metrics.runs.WithLabelValues("failed").Inc()
	}
	o.logger.Error("ingestion failed",
		"resource_id", res.ID,
		"step", errorType,
		"error", runErr)
}
