// Package worker runs queued analysis jobs: analyze, store, export the
// report and publish the completion event.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
	"github.com/JakeFAU/baseline-analyzer/internal/hash/sha256"
	"github.com/JakeFAU/baseline-analyzer/internal/metrics"
	"github.com/JakeFAU/baseline-analyzer/internal/report"
)

const tracerName = "github.com/JakeFAU/baseline-analyzer/internal/worker"

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (baseline.AnalysisResult, error)
}

// Config controls Worker behavior.
type Config struct {
	ReportPrefix     string
	ReportType       report.Type
	ReportFormat     report.Format
	Topic            string
	JobTimeout       time.Duration
	MaxRetries       int
	RetryBackoffBase time.Duration
}

// Worker consumes queue items and executes the analysis pipeline.
type Worker struct {
	queue     baseline.Queue
	store     baseline.AnalysisStore
	analyzer  Analyzer
	blobStore baseline.BlobStore
	publisher baseline.Publisher
	hasher    baseline.Hasher
	clock     baseline.Clock
	reports   *report.Generator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. blobStore and publisher may be nil to skip report
// export and event publication.
func New(
	queue baseline.Queue,
	store baseline.AnalysisStore,
	analyzer Analyzer,
	blobStore baseline.BlobStore,
	publisher baseline.Publisher,
	hasher baseline.Hasher,
	clock baseline.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	metrics.Init()
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = sha256.New()
	}
	if cfg.ReportType == "" {
		cfg.ReportType = report.TypeDetailed
	}
	if cfg.ReportFormat == "" {
		cfg.ReportFormat = report.FormatJSON
	}
	if cfg.RetryBackoffBase <= 0 {
		cfg.RetryBackoffBase = 500 * time.Millisecond
	}
	return &Worker{
		queue:     queue,
		store:     store,
		analyzer:  analyzer,
		blobStore: blobStore,
		publisher: publisher,
		hasher:    hasher,
		clock:     clock,
		reports:   report.NewGenerator(clock),
		cfg:       cfg,
		logger:    logger.Named("worker"),
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			if !w.sleep(ctx, w.cfg.RetryBackoffBase) {
				return
			}
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item baseline.QueueItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "analysis.job")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", item.JobID), attribute.String("job.url", item.URL))
	logger := w.logger.With(zap.String("job_id", item.JobID), zap.String("url", item.URL))

	job, err := w.store.GetJob(ctx, item.JobID)
	if err != nil {
		logger.Error("load job failed", zap.Error(err))
		metrics.ObserveJob(string(baseline.JobStatusFailed))
		return
	}
	if job.Status.IsTerminal() {
		logger.Warn("job already finished", zap.String("status", string(job.Status)))
		return
	}

	started := w.now()
	job.Status = baseline.JobStatusRunning
	job.Started = &started
	if err := w.store.UpdateJob(ctx, job); err != nil {
		logger.Error("update job status failed", zap.Error(err))
		return
	}

	jobCtx := ctx
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}

	uri, err := w.run(jobCtx, item, logger)
	finished := w.now()
	job.Finished = &finished
	job.ReportURI = uri
	if err != nil {
		job.Status = baseline.JobStatusFailed
		job.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		logger.Error("job failed", zap.Error(err))
	} else {
		job.Status = baseline.JobStatusSucceeded
		logger.Info("job succeeded", zap.String("report_uri", uri), zap.Duration("duration", finished.Sub(started)))
	}
	metrics.ObserveJob(string(job.Status))

	// Record the outcome even when ctx is done.
	if err := w.store.UpdateJob(context.WithoutCancel(ctx), job); err != nil {
		logger.Error("final job status update failed", zap.Error(err))
	}
}

// run executes the pipeline and returns the exported report URI, if any.
func (w *Worker) run(ctx context.Context, item baseline.QueueItem, logger *zap.Logger) (string, error) {
	var result baseline.AnalysisResult
	err := w.retry(ctx, logger, "analyze", func() error {
		var err error
		result, err = w.analyzer.Analyze(ctx, item.URL)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	result.ID = item.JobID

	if err := w.retry(ctx, logger, "save", func() error {
		if err := w.store.SaveAnalysis(ctx, result); err != nil {
			return fmt.Errorf("save analysis: %w", err)
		}
		return nil
	}); err != nil {
		return "", err
	}

	uri, err := w.exportReport(ctx, result)
	if err != nil {
		return "", err
	}
	if err := w.publishCompleted(ctx, result, item.JobID, uri); err != nil {
		return uri, err
	}
	return uri, nil
}

func (w *Worker) exportReport(ctx context.Context, result baseline.AnalysisResult) (string, error) {
	if w.blobStore == nil {
		return "", nil
	}
	doc, err := w.reports.Render(result, w.cfg.ReportType, w.cfg.ReportFormat)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	hash, err := w.hasher.Hash(doc.Body)
	if err != nil {
		return "", fmt.Errorf("hash report: %w", err)
	}
	uri, err := w.blobStore.PutObject(ctx, w.reportPath(result.ID, hash, doc.Filename), doc.ContentType, bytes.NewReader(doc.Body))
	if err != nil {
		return "", fmt.Errorf("put report: %w", err)
	}
	return uri, nil
}

func (w *Worker) publishCompleted(ctx context.Context, result baseline.AnalysisResult, jobID, uri string) error {
	if w.cfg.Topic == "" || w.publisher == nil {
		return nil
	}
	event := baseline.CompletedEvent(result, jobID, uri, w.now())
	id, err := w.publisher.Publish(ctx, w.cfg.Topic, event)
	if err != nil {
		return fmt.Errorf("publish completion: %w", err)
	}
	w.logger.Info("analysis published",
		zap.String("analysis_id", result.ID),
		zap.String("message_id", id),
		zap.Int("score", result.Overall.Score),
	)
	return nil
}

func (w *Worker) reportPath(analysisID, hash, filename string) string {
	ext := filename[strings.LastIndex(filename, ".")+1:]
	name := fmt.Sprintf("%s/%s.%s", analysisID, hash[:min(len(hash), 16)], ext)
	prefix := strings.Trim(w.cfg.ReportPrefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// retry runs fn up to MaxRetries extra times with exponential backoff.
// Invalid input is never retried.
func (w *Worker) retry(ctx context.Context, logger *zap.Logger, op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, baseline.ErrInvalidInput) || attempt >= w.cfg.MaxRetries || ctx.Err() != nil {
			return err
		}
		backoff := w.cfg.RetryBackoffBase << attempt
		logger.Warn("retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if !w.sleep(ctx, backoff) {
			return err
		}
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (w *Worker) now() time.Time {
	if w.clock == nil {
		return time.Now().UTC()
	}
	return w.clock.Now()
}
