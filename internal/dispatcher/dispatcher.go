// Package dispatcher accepts asynchronous analysis jobs and fans queue work
// out to a pool of workers.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
	"github.com/JakeFAU/baseline-analyzer/internal/worker"
)

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue   baseline.Queue
	store   baseline.AnalysisStore
	ids     baseline.IDGenerator
	clock   baseline.Clock
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(
	queue baseline.Queue,
	store baseline.AnalysisStore,
	ids baseline.IDGenerator,
	clock baseline.Clock,
	workers []*worker.Worker,
) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		store:   store,
		ids:     ids,
		clock:   clock,
		workers: workers,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Submit validates rawURL, records a queued job and enqueues it.
func (d *Dispatcher) Submit(ctx context.Context, rawURL string) (baseline.Job, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := baseline.ValidateTargetURL(rawURL); err != nil {
		return baseline.Job{}, err
	}
	id, err := d.ids.NewID()
	if err != nil {
		return baseline.Job{}, fmt.Errorf("job id: %w", err)
	}
	job := baseline.Job{
		ID:        id,
		URL:       rawURL,
		Status:    baseline.JobStatusQueued,
		Submitted: d.now(),
	}
	if err := d.store.CreateJob(ctx, job); err != nil {
		return baseline.Job{}, fmt.Errorf("create job: %w", err)
	}
	item := baseline.QueueItem{JobID: id, URL: rawURL, Submitted: job.Submitted.Unix()}
	if err := d.Enqueue(ctx, item); err != nil {
		job.Status = baseline.JobStatusFailed
		job.Error = err.Error()
		if uerr := d.store.UpdateJob(context.WithoutCancel(ctx), job); uerr != nil {
			return baseline.Job{}, fmt.Errorf("%w (mark failed: %v)", err, uerr)
		}
		return baseline.Job{}, err
	}
	return job, nil
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, item baseline.QueueItem) error {
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

func (d *Dispatcher) now() time.Time {
	if d.clock == nil {
		return time.Now().UTC()
	}
	return d.clock.Now()
}
