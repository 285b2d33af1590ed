package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/baseline-analyzer/internal/evaluate"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	require.Equal(t, 3, cfg.Crawler.MaxPages)
	require.Equal(t, "WebBaseline Pro Bot 1.0", cfg.Probe.UserAgent)
	require.Equal(t, 15*time.Second, cfg.ProbeTimeout())
	require.Equal(t, "none", cfg.Audit.Provider)
	require.Equal(t, 10, cfg.Analysis.BulkMax)
	require.Equal(t, BackendMemory, cfg.Storage.Backend)
	require.Equal(t, BackendNone, cfg.Storage.Reports.Backend)
	require.Equal(t, evaluate.DefaultRubric(), cfg.Rubric)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 30
  cors_origins: ["https://app.example.com"]
auth:
  enabled: true
  api_key: secret
crawler:
  max_pages: 5
  user_agent: real-agent
  rate_per_second: 0.5
audit:
  provider: headless
  headless:
    max_parallel: 2
analysis:
  workers: 6
  report_format: md
rubric:
  security:
    https: 50
  cutoffs:
    performance: 70
storage:
  backend: postgres
  postgres:
    dsn: postgres://localhost/baseline
  reports:
    backend: gcs
    bucket: reports-bucket
pubsub:
  enabled: true
  project_id: demo
logging:
  development: true
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout())
	require.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "secret", cfg.Auth.APIKey)
	require.Equal(t, 5, cfg.Crawler.MaxPages)
	require.Equal(t, "real-agent", cfg.Crawler.UserAgent)
	require.InDelta(t, 0.5, cfg.Crawler.RatePerSecond, 1e-9)
	require.Equal(t, 2, cfg.Audit.Headless.MaxParallel)
	require.Equal(t, 6, cfg.Analysis.Workers)
	require.Equal(t, 50, cfg.Rubric.Security.HTTPS)
	require.Equal(t, 70, cfg.Rubric.Cutoffs.Performance)
	require.Equal(t, 15, cfg.Rubric.Security.HSTS, "unset rubric weights keep their defaults")
	require.Equal(t, "analyses", cfg.Storage.Postgres.AnalysesTable)
	require.Equal(t, "reports-bucket", cfg.Storage.Reports.Bucket)
	require.Equal(t, "baseline-analyses", cfg.PubSub.Topic)
	require.True(t, cfg.Logging.Development)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BASELINE_SERVER_PORT", "7070")
	t.Setenv("BASELINE_AUDIT_PROVIDER", "pagespeed")
	t.Setenv("BASELINE_AUDIT_API_KEY", "psi-key")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "pagespeed", cfg.Audit.Provider)
	require.Equal(t, "psi-key", cfg.Audit.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "invalid max pages", mutate: func(c *Config) { c.Crawler.MaxPages = 0 }, want: "crawler.max_pages"},
		{name: "invalid crawl timeout", mutate: func(c *Config) { c.Crawler.TimeoutSeconds = 0 }, want: "crawler.timeout_seconds"},
		{name: "auth missing api key", mutate: func(c *Config) { c.Auth.Enabled = true }, want: "auth.api_key"},
		{name: "unknown audit provider", mutate: func(c *Config) { c.Audit.Provider = "lighthouse-cli" }, want: "audit.provider"},
		{
			name: "headless missing max parallel",
			mutate: func(c *Config) {
				c.Audit.Provider = "headless"
				c.Audit.Headless.MaxParallel = 0
			},
			want: "audit.headless.max_parallel",
		},
		{name: "postgres missing dsn", mutate: func(c *Config) { c.Storage.Backend = BackendPostgres }, want: "storage.postgres.dsn"},
		{name: "gcs missing bucket", mutate: func(c *Config) { c.Storage.Reports.Backend = BackendGCS }, want: "storage.reports.bucket"},
		{name: "local missing base dir", mutate: func(c *Config) { c.Storage.Reports.Backend = BackendLocal }, want: "storage.reports.base_dir"},
		{name: "unknown report format", mutate: func(c *Config) { c.Analysis.ReportFormat = "pdf" }, want: "analysis.report_format"},
		{name: "pubsub missing project", mutate: func(c *Config) { c.PubSub.Enabled = true }, want: "pubsub.project_id"},
		{name: "no workers", mutate: func(c *Config) { c.Analysis.Workers = 0 }, want: "analysis.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
