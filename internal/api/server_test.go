package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/baseline-analyzer/internal/analyzer"
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
	"github.com/JakeFAU/baseline-analyzer/internal/clock/system"
	"github.com/JakeFAU/baseline-analyzer/internal/config"
	"github.com/JakeFAU/baseline-analyzer/internal/dispatcher"
	"github.com/JakeFAU/baseline-analyzer/internal/features"
	queueMemory "github.com/JakeFAU/baseline-analyzer/internal/queue/memory"
	"github.com/JakeFAU/baseline-analyzer/internal/storage/memory"
)

var analyzedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeoutSeconds: 5, CORSOrigins: []string{"https://app.example.com"}},
	}
}

type testEnv struct {
	server   *Server
	store    *memory.AnalysisStore
	queue    *queueMemory.Queue
	analyzer *fakeAnalyzer
}

func newTestEnv(t *testing.T, cfg config.Config, opts ...Option) *testEnv {
	t.Helper()
	store := memory.NewAnalysisStore()
	q := queueMemory.NewQueue(4)
	fa := &fakeAnalyzer{}
	dispatch := dispatcher.New(q, store, &fakeIDGen{ids: []string{"job-1", "job-2"}}, system.NewFixed(analyzedAt), nil)
	catalog := features.NewCatalog(map[string]features.Feature{
		"grid":    {Name: "Grid", Spec: "https://drafts.csswg.org/css-grid/", Status: features.Status{Baseline: features.BaselineHigh, HighDate: "2020-01-01"}},
		"dialog":  {Name: "Dialog", Spec: "https://html.spec.whatwg.org/#the-dialog-element", Status: features.Status{Baseline: features.BaselineHigh, HighDate: "2025-03-01"}},
		"popover": {Name: "Popover", Spec: "https://html.spec.whatwg.org/#popover", Status: features.Status{Baseline: features.BaselineLow, LowDate: "2024-04-16"}},
	})
	opts = append([]Option{WithJobs(dispatch), WithCatalog(catalog), WithClock(system.NewFixed(analyzedAt))}, opts...)
	return &testEnv{
		server:   NewServer(fa, store, cfg, zap.NewNop(), opts...),
		store:    store,
		queue:    q,
		analyzer: fa,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func storedResult(id, url string) baseline.AnalysisResult {
	return baseline.AnalysisResult{
		ID:        id,
		URL:       url,
		Timestamp: analyzedAt,
		Overall: baseline.Overall{
			Score: 80, CategoryScore: 86, Grade: "B", Compliance: baseline.ComplianceGood, Badge: baseline.BadgeFor(86),
		},
		Recommendations: []baseline.Recommendation{},
	}
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_ReadyzReportsFailedChecks(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), WithReadinessCheck("postgres", func(context.Context) error {
		return errors.New("connection refused")
	}))
	rec := env.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "connection refused")

	env = newTestEnv(t, testConfig(), WithReadinessCheck("postgres", func(context.Context) error { return nil }))
	rec = env.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MetricsExposed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.do(t, http.MethodGet, "/healthz", "")
	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_RequestIDPropagated(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	rec := env.do(t, http.MethodGet, "/healthz", "", "X-Request-ID", "req-123")
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestServer_AnalyzeStoresResult(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.analyzer.result = storedResult("a-1", "https://example.com")

	rec := env.do(t, http.MethodPost, "/v1/analyze", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got baseline.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "a-1", got.ID)
	require.Equal(t, 80, got.Overall.Score)

	stored, err := env.store.GetAnalysis(context.Background(), "a-1")
	require.NoError(t, err)
	require.Equal(t, "https://example.com", stored.URL)
}

func TestServer_AnalyzeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		err    error
		status int
		want   string
	}{
		{name: "invalid JSON", body: "{invalid", status: http.StatusBadRequest, want: "invalid JSON"},
		{name: "missing url", body: `{}`, status: http.StatusBadRequest, want: "URL is required"},
		{
			name:   "invalid url",
			body:   `{"url":"example.com"}`,
			err:    baseline.InvalidInput(baseline.InvalidURLMessage),
			status: http.StatusBadRequest,
			want:   baseline.InvalidURLMessage,
		},
		{
			name:   "internal failure",
			body:   `{"url":"https://example.com"}`,
			err:    errors.New("disk on fire"),
			status: http.StatusInternalServerError,
			want:   "Failed to analyze website",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, testConfig())
			env.analyzer.err = tt.err
			rec := env.do(t, http.MethodPost, "/v1/analyze", tt.body)
			require.Equal(t, tt.status, rec.Code)
			require.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestServer_BulkStoresSuccesses(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	ok := storedResult("bulk-1", "https://a.example")
	env.analyzer.bulk = analyzer.BulkResult{
		Results: []analyzer.BulkItem{
			{URL: "https://a.example", Success: true, Analysis: &ok},
			{URL: "nope", Error: baseline.InvalidURLMessage},
		},
		Summary: analyzer.BulkSummary{Total: 2, Successful: 1, Failed: 1},
	}

	rec := env.do(t, http.MethodPost, "/v1/analyze/bulk", `{"urls":["https://a.example","nope"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"successful":1`)

	summaries, err := env.store.ListAnalyses(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "bulk-1", summaries[0].ID)
}

func TestServer_BulkTooMany(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.analyzer.err = baseline.InvalidInput("Maximum 10 URLs allowed per bulk analysis")
	rec := env.do(t, http.MethodPost, "/v1/analyze/bulk", `{"urls":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Maximum 10 URLs")
}

func TestServer_Compare(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.analyzer.comparison = analyzer.Comparison{
		Sites:   []analyzer.SiteScores{{URL: "https://a.example", Overall: 90}, {URL: "https://b.example", Overall: 70}},
		Best:    analyzer.SiteScores{URL: "https://a.example", Overall: 90},
		Ranking: []string{"https://a.example", "https://b.example"},
	}
	rec := env.do(t, http.MethodPost, "/v1/compare", `{"urls":["https://a.example","https://b.example"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got analyzer.Comparison
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "https://a.example", got.Best.URL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, env.analyzer.lastURLs())
}

func TestServer_SubmitAnalysisQueuesJob(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	rec := env.do(t, http.MethodPost, "/v1/analyses", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "/v1/analyses/job-1", rec.Header().Get("Location"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "job-1", body["analysis_id"])
	require.Equal(t, "queued", body["status"])

	item, err := env.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "job-1", item.JobID)

	rec = env.do(t, http.MethodGet, "/v1/analyses/job-1", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"queued"`)
}

func TestServer_SubmitAnalysisInvalidURL(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	rec := env.do(t, http.MethodPost, "/v1/analyses", `{"url":"ftp://example.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), baseline.InvalidURLMessage)
}

func TestServer_GetAnalysisETag(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	require.NoError(t, env.store.SaveAnalysis(context.Background(), storedResult("a-1", "https://example.com")))

	rec := env.do(t, http.MethodGet, "/v1/analyses/a-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `"`) && len(etag) == 66, etag)

	rec = env.do(t, http.MethodGet, "/v1/analyses/a-1", "", "If-None-Match", etag)
	require.Equal(t, http.StatusNotModified, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestServer_GetAnalysisFailedJob(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	require.NoError(t, env.store.CreateJob(context.Background(), baseline.Job{
		ID: "job-9", URL: "https://example.com", Status: baseline.JobStatusFailed, Error: "analyze: boom",
	}))
	rec := env.do(t, http.MethodGet, "/v1/analyses/job-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "analyze: boom")
}

func TestServer_GetAnalysisNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	for _, path := range []string{"/v1/analyses/missing", "/v1/analyses/missing/report", "/v1/analyses/missing/badge"} {
		rec := env.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestServer_ListAnalyses(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	older := storedResult("a-old", "https://old.example")
	older.Timestamp = analyzedAt.Add(-time.Hour)
	require.NoError(t, env.store.SaveAnalysis(ctx, older))
	require.NoError(t, env.store.SaveAnalysis(ctx, storedResult("a-new", "https://new.example")))

	rec := env.do(t, http.MethodGet, "/v1/analyses?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Analyses []baseline.AnalysisSummary `json:"analyses"`
		Count    int                        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	require.Equal(t, "a-new", body.Analyses[0].ID)

	rec = env.do(t, http.MethodGet, "/v1/analyses?limit=zero", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Report(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	require.NoError(t, env.store.SaveAnalysis(context.Background(), storedResult("a-1", "https://example.com")))

	rec := env.do(t, http.MethodGet, "/v1/analyses/a-1/report?type=executive&format=markdown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "baseline-report-a-1-executive.md")
	require.Contains(t, rec.Body.String(), "# Executive Summary")

	rec = env.do(t, http.MethodGet, "/v1/analyses/a-1/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), `"generatedAt": "2025-03-01T09:00:00Z"`)

	rec = env.do(t, http.MethodGet, "/v1/analyses/a-1/report?format=pdf", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Unknown report format")
}

func TestServer_Badge(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	require.NoError(t, env.store.SaveAnalysis(context.Background(), storedResult("a-1", "https://example.com")))

	rec := env.do(t, http.MethodGet, "/v1/analyses/a-1/badge", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body badgeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 86, body.Score)
	require.Equal(t, "gold", body.Badge.Level)
}

func TestServer_Features(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	rec := env.do(t, http.MethodGet, "/v1/features", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body catalogSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 3, body.Total)
	require.Len(t, body.Partitions, 2)
	require.Equal(t, 1, body.Partitions[0].Count)
	require.Equal(t, "grid", body.Partitions[0].Features[0].ID)
	require.Equal(t, 2, body.Partitions[1].Count)
	require.Equal(t, 2, body.Categories[baseline.FeatureHTML])
}

func TestServer_APIKeyRequired(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKey: "secret"}
	env := newTestEnv(t, cfg)

	rec := env.do(t, http.MethodGet, "/v1/features", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/features", "", "X-API-Key", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code, "probes stay open")
}

func TestServer_CORSPreflight(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	rec := env.do(t, http.MethodOptions, "/v1/analyze", "",
		"Origin", "https://app.example.com",
		"Access-Control-Request-Method", http.MethodPost,
	)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(t, http.MethodGet, "/healthz", "", "Origin", "https://evil.example")
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.analyzer.panics = true
	rec := env.do(t, http.MethodPost, "/v1/analyze", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}

func TestServer_AsyncDisabled(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeAnalyzer{}, memory.NewAnalysisStore(), testConfig(), zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader(`{"url":"https://example.com"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// --- fakes ---

type fakeAnalyzer struct {
	mu         sync.Mutex
	result     baseline.AnalysisResult
	bulk       analyzer.BulkResult
	comparison analyzer.Comparison
	err        error
	panics     bool
	urls       []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, url string) (baseline.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("analyzer exploded")
	}
	f.urls = []string{url}
	if f.err != nil {
		return baseline.AnalysisResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeAnalyzer) Bulk(_ context.Context, urls []string) (analyzer.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = urls
	if f.err != nil {
		return analyzer.BulkResult{}, f.err
	}
	return f.bulk, nil
}

func (f *fakeAnalyzer) Compare(_ context.Context, urls []string) (analyzer.Comparison, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = urls
	if f.err != nil {
		return analyzer.Comparison{}, f.err
	}
	return f.comparison, nil
}

func (f *fakeAnalyzer) lastURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.urls
}

type fakeIDGen struct {
	mu  sync.Mutex
	ids []string
}

func (g *fakeIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		return "", errors.New("no ids left")
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id, nil
}
