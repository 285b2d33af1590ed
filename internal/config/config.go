// Package config loads and validates analyzer configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/baseline-analyzer/internal/audit"
	"github.com/JakeFAU/baseline-analyzer/internal/evaluate"
	"github.com/JakeFAU/baseline-analyzer/internal/logging"
	"github.com/JakeFAU/baseline-analyzer/internal/report"
)

// EnvPrefix prefixes every environment override, e.g. BASELINE_SERVER_PORT.
const EnvPrefix = "BASELINE"

// Storage and export backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendNone     = "none"
	BackendLocal    = "local"
	BackendGCS      = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Crawler  CrawlerConfig   `mapstructure:"crawler"`
	Probe    ProbeConfig     `mapstructure:"probe"`
	Rubric   evaluate.Rubric `mapstructure:"rubric"`
	Features FeaturesConfig  `mapstructure:"features"`
	Audit    AuditConfig     `mapstructure:"audit"`
	Analysis AnalysisConfig  `mapstructure:"analysis"`
	Storage  StorageConfig   `mapstructure:"storage"`
	PubSub   PubSubConfig    `mapstructure:"pubsub"`
	Logging  logging.Config  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int      `mapstructure:"port"`
	RequestTimeoutSeconds  int      `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds"`
	CORSOrigins            []string `mapstructure:"cors_origins"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs site crawls.
type CrawlerConfig struct {
	MaxPages         int     `mapstructure:"max_pages"`
	UserAgent        string  `mapstructure:"user_agent"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	MaxRedirects     int     `mapstructure:"max_redirects"`
	FetchAssets      bool    `mapstructure:"fetch_assets"`
	MaxAssets        int     `mapstructure:"max_assets"`
	AssetMaxBytes    int     `mapstructure:"asset_max_bytes"`
	AssetConcurrency int     `mapstructure:"asset_concurrency"`
	RatePerSecond    float64 `mapstructure:"rate_per_second"`
	Burst            int     `mapstructure:"burst"`
}

// ProbeConfig governs the reachability check of the degraded path.
type ProbeConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRedirects   int    `mapstructure:"max_redirects"`
}

// FeaturesConfig locates the feature catalog. Empty uses the embedded one.
type FeaturesConfig struct {
	CatalogPath string `mapstructure:"catalog_path"`
}

// AuditConfig selects the external audit provider.
type AuditConfig struct {
	Provider       string         `mapstructure:"provider"`
	APIKey         string         `mapstructure:"api_key"`
	Endpoint       string         `mapstructure:"endpoint"`
	TimeoutSeconds int            `mapstructure:"timeout_seconds"`
	Strategy       string         `mapstructure:"strategy"`
	Headless       HeadlessConfig `mapstructure:"headless"`
}

// HeadlessConfig configures the chromedp auditor.
type HeadlessConfig struct {
	MaxParallel   int `mapstructure:"max_parallel"`
	NavTimeoutSec int `mapstructure:"nav_timeout_seconds"`
}

// AnalysisConfig bounds bulk work and the asynchronous job pool.
type AnalysisConfig struct {
	BulkMax            int    `mapstructure:"bulk_max"`
	CompareMax         int    `mapstructure:"compare_max"`
	CompareConcurrency int    `mapstructure:"compare_concurrency"`
	Workers            int    `mapstructure:"workers"`
	QueueDepth         int    `mapstructure:"queue_depth"`
	JobTimeoutSeconds  int    `mapstructure:"job_timeout_seconds"`
	MaxRetries         int    `mapstructure:"max_retries"`
	ReportType         string `mapstructure:"report_type"`
	ReportFormat       string `mapstructure:"report_format"`
}

// StorageConfig selects analysis persistence and report export.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Reports  ReportsConfig  `mapstructure:"reports"`
}

// PostgresConfig controls access to the relational database.
type PostgresConfig struct {
	DSN                    string `mapstructure:"dsn"`
	AnalysesTable          string `mapstructure:"analyses_table"`
	JobsTable              string `mapstructure:"jobs_table"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMinutes int    `mapstructure:"max_conn_lifetime_minutes"`
}

// ReportsConfig selects where exported reports are written.
type ReportsConfig struct {
	Backend      string `mapstructure:"backend"`
	Bucket       string `mapstructure:"bucket"`
	BaseDir      string `mapstructure:"base_dir"`
	Prefix       string `mapstructure:"prefix"`
	CacheControl string `mapstructure:"cache_control"`
}

// PubSubConfig holds metadata for completion notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{Rubric: evaluate.DefaultRubric()}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("crawler.max_pages", 3)
	v.SetDefault("crawler.user_agent", "WebBaseline Pro Crawler 1.0")
	v.SetDefault("crawler.timeout_seconds", 10)
	v.SetDefault("crawler.max_redirects", 3)
	v.SetDefault("crawler.fetch_assets", true)
	v.SetDefault("crawler.max_assets", 10)
	v.SetDefault("crawler.asset_max_bytes", 512*1024)
	v.SetDefault("crawler.asset_concurrency", 4)
	v.SetDefault("crawler.rate_per_second", 2.0)
	v.SetDefault("crawler.burst", 2)
	v.SetDefault("probe.user_agent", "WebBaseline Pro Bot 1.0")
	v.SetDefault("probe.timeout_seconds", 15)
	v.SetDefault("probe.max_redirects", 5)
	v.SetDefault("features.catalog_path", "")
	v.SetDefault("audit.provider", audit.ProviderNone)
	v.SetDefault("audit.api_key", "")
	v.SetDefault("audit.endpoint", "")
	v.SetDefault("audit.timeout_seconds", 60)
	v.SetDefault("audit.strategy", "desktop")
	v.SetDefault("audit.headless.max_parallel", 1)
	v.SetDefault("audit.headless.nav_timeout_seconds", 30)
	v.SetDefault("analysis.bulk_max", 10)
	v.SetDefault("analysis.compare_max", 10)
	v.SetDefault("analysis.compare_concurrency", 4)
	v.SetDefault("analysis.workers", 2)
	v.SetDefault("analysis.queue_depth", 64)
	v.SetDefault("analysis.job_timeout_seconds", 180)
	v.SetDefault("analysis.max_retries", 1)
	v.SetDefault("analysis.report_type", string(report.TypeDetailed))
	v.SetDefault("analysis.report_format", string(report.FormatJSON))
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.analyses_table", "analyses")
	v.SetDefault("storage.postgres.jobs_table", "analysis_jobs")
	v.SetDefault("storage.postgres.max_conns", 8)
	v.SetDefault("storage.postgres.max_conn_lifetime_minutes", 30)
	v.SetDefault("storage.reports.backend", BackendNone)
	v.SetDefault("storage.reports.bucket", "")
	v.SetDefault("storage.reports.base_dir", "")
	v.SetDefault("storage.reports.prefix", "reports")
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "baseline-analyses")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, errors.New("server.port must be > 0"))
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("server.request_timeout_seconds must be > 0"))
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		errs = append(errs, errors.New("auth.api_key must be set when auth is enabled"))
	}
	if c.Crawler.MaxPages <= 0 {
		errs = append(errs, errors.New("crawler.max_pages must be > 0"))
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("crawler.timeout_seconds must be > 0"))
	}
	if c.Probe.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("probe.timeout_seconds must be > 0"))
	}
	switch c.Audit.Provider {
	case audit.ProviderNone, audit.ProviderPageSpeed:
	case audit.ProviderHeadless:
		if c.Audit.Headless.MaxParallel <= 0 {
			errs = append(errs, errors.New("audit.headless.max_parallel must be > 0 when the headless auditor is enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("audit.provider %q is not one of none, pagespeed, headless", c.Audit.Provider))
	}
	if c.Analysis.Workers <= 0 {
		errs = append(errs, errors.New("analysis.workers must be > 0"))
	}
	if c.Analysis.QueueDepth <= 0 {
		errs = append(errs, errors.New("analysis.queue_depth must be > 0"))
	}
	if _, err := report.ParseType(c.Analysis.ReportType); err != nil {
		errs = append(errs, fmt.Errorf("analysis.report_type: %w", err))
	}
	if _, err := report.ParseFormat(c.Analysis.ReportFormat); err != nil {
		errs = append(errs, fmt.Errorf("analysis.report_format: %w", err))
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, errors.New("storage.postgres.dsn must be set for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of memory, postgres", c.Storage.Backend))
	}
	switch c.Storage.Reports.Backend {
	case BackendNone, BackendMemory:
	case BackendLocal:
		if c.Storage.Reports.BaseDir == "" {
			errs = append(errs, errors.New("storage.reports.base_dir must be set for the local backend"))
		}
	case BackendGCS:
		if c.Storage.Reports.Bucket == "" {
			errs = append(errs, errors.New("storage.reports.bucket must be set for the gcs backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.reports.backend %q is not one of none, memory, local, gcs", c.Storage.Reports.Backend))
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.Topic == "") {
		errs = append(errs, errors.New("pubsub.project_id and pubsub.topic must be set when pubsub is enabled"))
	}
	return errors.Join(errs...)
}

// RequestTimeout is the per-request HTTP budget.
func (c Config) RequestTimeout() time.Duration {
	return seconds(c.Server.RequestTimeoutSeconds)
}

// ShutdownTimeout bounds graceful shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return seconds(c.Server.ShutdownTimeoutSeconds)
}

// CrawlTimeout is the per-fetch budget of the crawler.
func (c Config) CrawlTimeout() time.Duration {
	return seconds(c.Crawler.TimeoutSeconds)
}

// ProbeTimeout is the budget of the degraded-path reachability check.
func (c Config) ProbeTimeout() time.Duration {
	return seconds(c.Probe.TimeoutSeconds)
}

// AuditTimeout is the budget of one external audit.
func (c Config) AuditTimeout() time.Duration {
	return seconds(c.Audit.TimeoutSeconds)
}

// JobTimeout bounds one asynchronous analysis.
func (c Config) JobTimeout() time.Duration {
	return seconds(c.Analysis.JobTimeoutSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
