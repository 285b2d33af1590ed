// Package postgres persists analyses and jobs in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Default table names.
const (
	DefaultAnalysesTable = "analyses"
	DefaultJobsTable     = "analysis_jobs"
)

// Config controls the connection pool and table names.
type Config struct {
	DSN             string
	AnalysesTable   string
	JobsTable       string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// AnalysisStore implements baseline.AnalysisStore. Results are stored as
// jsonb next to the columns the listing needs.
type AnalysisStore struct {
	pool     Pool
	analyses string
	jobs     string
}

// NewAnalysisStore connects a pool using cfg.
func NewAnalysisStore(ctx context.Context, cfg Config) (*AnalysisStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewAnalysisStoreWithPool(pool, cfg.AnalysesTable, cfg.JobsTable)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewAnalysisStoreWithPool builds a store from an existing pool.
func NewAnalysisStoreWithPool(pool Pool, analysesTable, jobsTable string) (*AnalysisStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if analysesTable == "" {
		analysesTable = DefaultAnalysesTable
	}
	if jobsTable == "" {
		jobsTable = DefaultJobsTable
	}
	for _, name := range []string{analysesTable, jobsTable} {
		if !validTableName.MatchString(name) {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	return &AnalysisStore{pool: pool, analyses: analysesTable, jobs: jobsTable}, nil
}

// Ping checks the database is reachable.
func (s *AnalysisStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *AnalysisStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the tables when they do not exist.
func (s *AnalysisStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	analyzed_at TIMESTAMPTZ NOT NULL,
	score       INTEGER NOT NULL,
	grade       TEXT NOT NULL,
	compliance  TEXT NOT NULL,
	limited     BOOLEAN NOT NULL DEFAULT FALSE,
	result      JSONB NOT NULL
)`, s.analyses),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_analyzed_at_idx ON %s (analyzed_at DESC)`, s.analyses, s.analyses),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL,
	status       TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	started_at   TIMESTAMPTZ,
	finished_at  TIMESTAMPTZ,
	error        TEXT NOT NULL DEFAULT '',
	report_uri   TEXT NOT NULL DEFAULT ''
)`, s.jobs),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveAnalysis upserts result by id.
func (s *AnalysisStore) SaveAnalysis(ctx context.Context, result baseline.AnalysisResult) error {
	if result.ID == "" {
		return fmt.Errorf("analysis id is required")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, url, analyzed_at, score, grade, compliance, limited, result)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
	url = EXCLUDED.url,
	analyzed_at = EXCLUDED.analyzed_at,
	score = EXCLUDED.score,
	grade = EXCLUDED.grade,
	compliance = EXCLUDED.compliance,
	limited = EXCLUDED.limited,
	result = EXCLUDED.result`, s.analyses)

	_, err = s.pool.Exec(ctx, query,
		result.ID,
		result.URL,
		result.Timestamp,
		result.Overall.Score,
		result.Overall.Grade,
		result.Overall.Compliance,
		result.Limited,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// GetAnalysis loads one result.
func (s *AnalysisStore) GetAnalysis(ctx context.Context, id string) (baseline.AnalysisResult, error) {
	query := fmt.Sprintf(`SELECT result FROM %s WHERE id = $1`, s.analyses)
	var payload []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return baseline.AnalysisResult{}, baseline.ErrNotFound
		}
		return baseline.AnalysisResult{}, fmt.Errorf("select analysis: %w", err)
	}
	var result baseline.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return baseline.AnalysisResult{}, fmt.Errorf("decode analysis %s: %w", id, err)
	}
	return result, nil
}

// ListAnalyses returns up to limit summaries, newest first.
func (s *AnalysisStore) ListAnalyses(ctx context.Context, limit int) ([]baseline.AnalysisSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
SELECT id, url, analyzed_at, score, grade, compliance, limited
FROM %s
ORDER BY analyzed_at DESC, id DESC
LIMIT $1`, s.analyses)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := []baseline.AnalysisSummary{}
	for rows.Next() {
		var sum baseline.AnalysisSummary
		if err := rows.Scan(&sum.ID, &sum.URL, &sum.Timestamp, &sum.Score, &sum.Grade, &sum.Compliance, &sum.Limited); err != nil {
			return nil, fmt.Errorf("scan analysis summary: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

// CreateJob inserts a queued job.
func (s *AnalysisStore) CreateJob(ctx context.Context, job baseline.Job) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, url, status, submitted_at, started_at, finished_at, error, report_uri)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, s.jobs)
	_, err := s.pool.Exec(ctx, query,
		job.ID, job.URL, string(job.Status), job.Submitted, job.Started, job.Finished, job.Error, job.ReportURI)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJob writes the mutable job fields.
func (s *AnalysisStore) UpdateJob(ctx context.Context, job baseline.Job) error {
	query := fmt.Sprintf(`
UPDATE %s
SET status = $1, started_at = $2, finished_at = $3, error = $4, report_uri = $5
WHERE id = $6`, s.jobs)
	tag, err := s.pool.Exec(ctx, query,
		string(job.Status), job.Started, job.Finished, job.Error, job.ReportURI, job.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", job.ID, baseline.ErrNotFound)
	}
	return nil
}

// GetJob loads one job.
func (s *AnalysisStore) GetJob(ctx context.Context, id string) (baseline.Job, error) {
	query := fmt.Sprintf(`
SELECT id, url, status, submitted_at, started_at, finished_at, error, report_uri
FROM %s WHERE id = $1`, s.jobs)

	var (
		job               baseline.Job
		status            string
		started, finished pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.URL, &status, &job.Submitted, &started, &finished, &job.Error, &job.ReportURI)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return baseline.Job{}, baseline.ErrNotFound
		}
		return baseline.Job{}, fmt.Errorf("select job: %w", err)
	}
	job.Status = baseline.JobStatus(status)
	job.Started = timePtr(started)
	job.Finished = timePtr(finished)
	return job, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}
