package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

func newMockStore(t *testing.T) (*AnalysisStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewAnalysisStoreWithPool(mock, "", "")
	require.NoError(t, err)
	return store, mock
}

func sampleAnalysis() baseline.AnalysisResult {
	r := baseline.AnalysisResult{
		ID:        "0190a7c4-analysis",
		URL:       "https://example.com",
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}
	r.Overall = baseline.Overall{Score: 82, CategoryScore: 84, Grade: "B+", Compliance: baseline.ComplianceGood}
	r.Security.Score = 70
	return r
}

func TestNewAnalysisStoreWithPoolValidatesTables(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewAnalysisStoreWithPool(nil, "", "")
	require.Error(t, err)
	_, err = NewAnalysisStoreWithPool(mock, "analyses; DROP TABLE x", "")
	require.Error(t, err)
	store, err := NewAnalysisStoreWithPool(mock, "", "")
	require.NoError(t, err)
	require.Equal(t, DefaultAnalysesTable, store.analyses)
	require.Equal(t, DefaultJobsTable, store.jobs)
}

func TestSaveAnalysisUpserts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	r := sampleAnalysis()

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(r.ID, r.URL, r.Timestamp, 82, "B+", baseline.ComplianceGood, false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveAnalysis(context.Background(), r))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAnalysisRequiresID(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	require.Error(t, store.SaveAnalysis(context.Background(), baseline.AnalysisResult{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAnalysis(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	r := sampleAnalysis()
	payload, err := json.Marshal(r)
	require.NoError(t, err)

	query := regexp.QuoteMeta("SELECT result FROM analyses WHERE id = $1")
	mock.ExpectQuery(query).WithArgs(r.ID).
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(payload))
	mock.ExpectQuery(query).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	got, err := store.GetAnalysis(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, r.URL, got.URL)
	require.Equal(t, 82, got.Overall.Score)
	require.Equal(t, 70, got.Security.Score)

	_, err = store.GetAnalysis(context.Background(), "missing")
	require.ErrorIs(t, err, baseline.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAnalyses(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	newer := time.Unix(1700003600, 0).UTC()
	older := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT id, url, analyzed_at").WithArgs(100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "analyzed_at", "score", "grade", "compliance", "limited"}).
			AddRow("b", "https://b.example", newer, 40, "F", baseline.ComplianceLimited, true).
			AddRow("a", "https://a.example", older, 90, "A", baseline.ComplianceExcellent, false))

	list, err := store.ListAnalyses(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b", list[0].ID)
	require.True(t, list[0].Limited)
	require.Equal(t, 90, list[1].Score)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAnalysesQueryError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, url, analyzed_at").WithArgs(5).WillReturnError(errors.New("boom"))

	_, err := store.ListAnalyses(context.Background(), 5)
	require.ErrorContains(t, err, "boom")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobLifecycle(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	ctx := context.Background()
	submitted := time.Unix(1700000000, 0).UTC()
	started := submitted.Add(time.Second)
	job := baseline.Job{ID: "job-1", URL: "https://example.com", Status: baseline.JobStatusQueued, Submitted: submitted}

	mock.ExpectExec("INSERT INTO analysis_jobs").
		WithArgs(job.ID, job.URL, "queued", submitted, job.Started, job.Finished, "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.CreateJob(ctx, job))

	job.Status = baseline.JobStatusRunning
	job.Started = &started
	mock.ExpectExec("UPDATE analysis_jobs").
		WithArgs("running", job.Started, job.Finished, "", "", job.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.UpdateJob(ctx, job))

	mock.ExpectExec("UPDATE analysis_jobs").
		WithArgs("running", job.Started, job.Finished, "", "", "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ghost := job
	ghost.ID = "ghost"
	require.ErrorIs(t, store.UpdateJob(ctx, ghost), baseline.ErrNotFound)

	mock.ExpectQuery("SELECT id, url, status, submitted_at").WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "status", "submitted_at", "started_at", "finished_at", "error", "report_uri"}).
			AddRow("job-1", "https://example.com", "running", submitted, started, nil, "", ""))
	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, baseline.JobStatusRunning, got.Status)
	require.NotNil(t, got.Started)
	require.True(t, got.Started.Equal(started))
	require.Nil(t, got.Finished)

	mock.ExpectQuery("SELECT id, url, status, submitted_at").WithArgs("nope").WillReturnError(pgx.ErrNoRows)
	_, err = store.GetJob(ctx, "nope")
	require.ErrorIs(t, err, baseline.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS analyses").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS analyses_analyzed_at_idx").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS analysis_jobs").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewAnalysisStoreWithPool(mock, "", "")
	require.NoError(t, err)

	mock.ExpectPing()
	require.NoError(t, store.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	require.ErrorContains(t, store.Ping(context.Background()), "ping postgres: connection refused")
	require.NoError(t, mock.ExpectationsWereMet())
}
