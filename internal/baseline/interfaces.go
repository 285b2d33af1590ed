package baseline

import (
	"context"
	"io"
	"net/http"
	"time"
)

// FetchResponse is the raw outcome of one successful page fetch.
type FetchResponse struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Protocol   string
	FetchedAt  time.Time
}

// Fetcher performs a single bounded HTTP GET. Failures are *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// AssetFetcher retrieves the text body of a stylesheet or script.
type AssetFetcher interface {
	FetchAsset(ctx context.Context, url string) ([]byte, error)
}

// Auditor wraps the external page-audit tool.
type Auditor interface {
	Audit(ctx context.Context, url string) (AuditReport, error)
}

// JobStatus tracks an asynchronous analysis.
type JobStatus string

// Job statuses.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transitions happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job is an asynchronous analysis request.
type Job struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	Status    JobStatus  `json:"status"`
	Submitted time.Time  `json:"submitted"`
	Started   *time.Time `json:"started,omitempty"`
	Finished  *time.Time `json:"finished,omitempty"`
	Error     string     `json:"error,omitempty"`
	ReportURI string     `json:"reportUri,omitempty"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	URL       string
	Attempt   int
	Submitted int64
}

// AnalysisStore persists analyses and asynchronous jobs.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, result AnalysisResult) error
	GetAnalysis(ctx context.Context, id string) (AnalysisResult, error)
	ListAnalyses(ctx context.Context, limit int) ([]AnalysisSummary, error)
	CreateJob(ctx context.Context, job Job) error
	UpdateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, id string) (Job, error)
}

// BlobStore writes exported reports and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Queue provides enqueue/dequeue semantics for analysis jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces analysis IDs.
type IDGenerator interface {
	NewID() (string, error)
}
