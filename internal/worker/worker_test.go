package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
	"github.com/JakeFAU/baseline-analyzer/internal/clock/system"
	pubmemory "github.com/JakeFAU/baseline-analyzer/internal/publisher/memory"
	queuememory "github.com/JakeFAU/baseline-analyzer/internal/queue/memory"
	"github.com/JakeFAU/baseline-analyzer/internal/storage/memory"
)

var submitted = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	queue     *queuememory.Queue
	store     *memory.AnalysisStore
	blobs     *memory.BlobStore
	publisher *pubmemory.Publisher
	clock     *system.Fixed
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		queue:     queuememory.NewQueue(4),
		store:     memory.NewAnalysisStore(),
		blobs:     memory.NewBlobStore(),
		publisher: pubmemory.New(),
		clock:     system.NewFixed(submitted),
	}
}

func (h *harness) submit(t *testing.T, id, url string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.CreateJob(ctx, baseline.Job{
		ID: id, URL: url, Status: baseline.JobStatusQueued, Submitted: submitted,
	}))
	require.NoError(t, h.queue.Enqueue(ctx, baseline.QueueItem{JobID: id, URL: url, Submitted: submitted.Unix()}))
}

func (h *harness) status(id string) baseline.JobStatus {
	job, err := h.store.GetJob(context.Background(), id)
	if err != nil {
		return ""
	}
	return job.Status
}

func TestWorker_ProcessJob_SuccessFlow(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t)
	h.submit(t, "job-success", "https://example.com")
	analyzer := &fakeAnalyzer{result: sampleResult("https://example.com")}

	w := New(h.queue, h.store, analyzer, h.blobs, h.publisher, &fakeHasher{hash: "abc123"}, h.clock,
		Config{ReportPrefix: "/reports/", Topic: "analyses"}, zap.NewNop())
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return h.status("job-success") == baseline.JobStatusSucceeded
	}, time.Second, 10*time.Millisecond)

	job, err := h.store.GetJob(ctx, "job-success")
	require.NoError(t, err)
	require.NotNil(t, job.Started)
	require.NotNil(t, job.Finished)
	require.Empty(t, job.Error)
	require.Equal(t, "memory://reports/job-success/abc123.json", job.ReportURI)

	stored, err := h.store.GetAnalysis(ctx, "job-success")
	require.NoError(t, err)
	require.Equal(t, "job-success", stored.ID)
	require.Equal(t, 72, stored.Overall.Score)

	body, ok := h.blobs.Object("reports/job-success/abc123.json")
	require.True(t, ok)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &doc))
	require.Contains(t, doc, "metadata")

	events := h.publisher.Completed()
	require.Len(t, events, 1)
	require.Equal(t, "job-success", events[0].AnalysisID)
	require.Equal(t, "job-success", events[0].JobID)
	require.Equal(t, job.ReportURI, events[0].ReportURI)
	require.Equal(t, "analyses", h.publisher.Messages()[0].Topic)
	require.True(t, events[0].CompletedAt.Equal(submitted))
}

func TestWorker_ProcessJob_MarkdownReportWithoutPublisher(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t)
	h.submit(t, "job-md", "https://example.com")

	w := New(h.queue, h.store, &fakeAnalyzer{result: sampleResult("https://example.com")}, h.blobs, nil, nil, h.clock,
		Config{ReportType: "executive", ReportFormat: "markdown"}, zap.NewNop())
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return h.status("job-md") == baseline.JobStatusSucceeded
	}, time.Second, 10*time.Millisecond)

	job, err := h.store.GetJob(ctx, "job-md")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(job.ReportURI, "memory://job-md/"))
	require.True(t, strings.HasSuffix(job.ReportURI, ".md"))
	body, ok := h.blobs.Object(strings.TrimPrefix(job.ReportURI, "memory://"))
	require.True(t, ok)
	require.Contains(t, string(body), "# Executive Summary")
}

func TestWorker_ProcessJob_PublishFailureMarksJobFailed(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t)
	h.submit(t, "job-publish-fail", "https://example.com")
	publisher := &failingPublisher{err: errors.New("pub failure")}

	w := New(h.queue, h.store, &fakeAnalyzer{result: sampleResult("https://example.com")}, h.blobs, publisher,
		&fakeHasher{hash: "deadbeef"}, h.clock, Config{Topic: "analyses"}, zap.NewNop())
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return h.status("job-publish-fail") == baseline.JobStatusFailed
	}, time.Second, 10*time.Millisecond)

	job, err := h.store.GetJob(ctx, "job-publish-fail")
	require.NoError(t, err)
	require.Contains(t, job.Error, "publish completion: pub failure")
	require.Equal(t, "memory://job-publish-fail/deadbeef.json", job.ReportURI)
	_, err = h.store.GetAnalysis(ctx, "job-publish-fail")
	require.NoError(t, err, "analysis is stored before publication")
}

func TestWorker_RetryLogic(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t)
	h.submit(t, "job-retry", "https://example.com")
	// Fails 2 times, succeeds on 3rd attempt
	analyzer := &fakeAnalyzer{result: sampleResult("https://example.com"), fails: 2}

	w := New(h.queue, h.store, analyzer, nil, nil, nil, h.clock,
		Config{MaxRetries: 3, RetryBackoffBase: time.Millisecond}, zap.NewNop())
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return h.status("job-retry") == baseline.JobStatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 3, analyzer.callCount())
}

func TestWorker_RetryExhausted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t)
	h.submit(t, "job-retry-fail", "https://example.com")
	// Fails 5 times, max retries is 3
	analyzer := &fakeAnalyzer{result: sampleResult("https://example.com"), fails: 5}

	w := New(h.queue, h.store, analyzer, nil, nil, nil, h.clock,
		Config{MaxRetries: 3, RetryBackoffBase: time.Millisecond}, zap.NewNop())
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return h.status("job-retry-fail") == baseline.JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	// Initial attempt + 3 retries = 4 attempts
	require.Equal(t, 4, analyzer.callCount())
	_, err := h.store.GetAnalysis(ctx, "job-retry-fail")
	require.ErrorIs(t, err, baseline.ErrNotFound)
}

func TestWorker_InvalidInputNotRetried(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t)
	h.submit(t, "job-invalid", "ftp://example.com")
	analyzer := &fakeAnalyzer{err: baseline.InvalidInput(baseline.InvalidURLMessage)}

	w := New(h.queue, h.store, analyzer, nil, nil, nil, h.clock,
		Config{MaxRetries: 3, RetryBackoffBase: time.Millisecond}, zap.NewNop())
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return h.status("job-invalid") == baseline.JobStatusFailed
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, analyzer.callCount())
}

func TestWorker_SkipsFinishedJobs(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t)
	require.NoError(t, h.store.CreateJob(ctx, baseline.Job{ID: "done", URL: "https://example.com", Status: baseline.JobStatusSucceeded}))
	require.NoError(t, h.queue.Enqueue(ctx, baseline.QueueItem{JobID: "done", URL: "https://example.com"}))
	h.submit(t, "next", "https://example.com")
	analyzer := &fakeAnalyzer{result: sampleResult("https://example.com")}

	w := New(h.queue, h.store, analyzer, nil, nil, nil, h.clock, Config{}, zap.NewNop())
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return h.status("next") == baseline.JobStatusSucceeded
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, analyzer.callCount())
}

func TestWorkerReportPath(t *testing.T) {
	t.Parallel()

	w := New(nil, nil, nil, nil, nil, nil, nil, Config{ReportPrefix: "/reports/"}, zap.NewNop())
	if got := w.reportPath("a-1", "0123456789abcdef0123", "baseline-report-a-1-detailed.json"); got != "reports/a-1/0123456789abcdef.json" {
		t.Fatalf("unexpected report path: %s", got)
	}
	w.cfg.ReportPrefix = ""
	if got := w.reportPath("a-1", "beef", "x.md"); got != "a-1/beef.md" {
		t.Fatalf("unexpected fallback report path: %s", got)
	}
}

// --- fakes ---

func sampleResult(url string) baseline.AnalysisResult {
	score := func(c baseline.Category, s int) baseline.CategoryScore {
		return baseline.CategoryScore{Category: c, Score: s, Grade: baseline.Grade(s), CrawlerScore: s, Issues: []string{}}
	}
	return baseline.AnalysisResult{
		ID:            "analyzer-id",
		URL:           url,
		Timestamp:     submitted,
		Performance:   score(baseline.CategoryPerformance, 70),
		SEO:           score(baseline.CategorySEO, 80),
		Accessibility: score(baseline.CategoryAccessibility, 75),
		Security:      score(baseline.CategorySecurity, 90),
		ModernWeb:     score(baseline.CategoryModernWeb, 60),
		Overall: baseline.Overall{
			Score: 72, CategoryScore: 75, Grade: "C", Compliance: baseline.CompliancePoor, Badge: baseline.BadgeFor(75),
		},
	}
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	fails  int
	result baseline.AnalysisResult
	err    error
}

func (a *fakeAnalyzer) Analyze(_ context.Context, _ string) (baseline.AnalysisResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return baseline.AnalysisResult{}, a.err
	}
	if a.calls <= a.fails {
		return baseline.AnalysisResult{}, fmt.Errorf("transient error %d", a.calls)
	}
	return a.result, nil
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type failingPublisher struct {
	err error
}

func (p *failingPublisher) Publish(context.Context, string, any) (string, error) {
	return "", p.err
}

type fakeHasher struct {
	hash string
}

func (h *fakeHasher) Hash([]byte) (string, error) {
	return h.hash, nil
}
