package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// AnalysisStore keeps analyses and jobs in process memory. Results are lost
// on restart.
type AnalysisStore struct {
	mu       sync.RWMutex
	analyses map[string]baseline.AnalysisResult
	jobs     map[string]baseline.Job
}

// NewAnalysisStore constructs an empty store.
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{
		analyses: make(map[string]baseline.AnalysisResult),
		jobs:     make(map[string]baseline.Job),
	}
}

// SaveAnalysis inserts or replaces result by id.
func (s *AnalysisStore) SaveAnalysis(_ context.Context, result baseline.AnalysisResult) error {
	if result.ID == "" {
		return fmt.Errorf("analysis id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[result.ID] = result
	return nil
}

// GetAnalysis returns the stored result or baseline.ErrNotFound.
func (s *AnalysisStore) GetAnalysis(_ context.Context, id string) (baseline.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.analyses[id]
	if !ok {
		return baseline.AnalysisResult{}, baseline.ErrNotFound
	}
	return result, nil
}

// ListAnalyses returns up to limit summaries, newest first. A non-positive
// limit returns everything.
func (s *AnalysisStore) ListAnalyses(_ context.Context, limit int) ([]baseline.AnalysisSummary, error) {
	s.mu.RLock()
	out := make([]baseline.AnalysisSummary, 0, len(s.analyses))
	for _, r := range s.analyses {
		out = append(out, r.Summary())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateJob stores a new job. Ids must be unique.
func (s *AnalysisStore) CreateJob(_ context.Context, job baseline.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJob replaces an existing job.
func (s *AnalysisStore) UpdateJob(_ context.Context, job baseline.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s: %w", job.ID, baseline.ErrNotFound)
	}
	s.jobs[job.ID] = job
	return nil
}

// GetJob fetches a job by id.
func (s *AnalysisStore) GetJob(_ context.Context, id string) (baseline.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return baseline.Job{}, baseline.ErrNotFound
	}
	return job, nil
}
