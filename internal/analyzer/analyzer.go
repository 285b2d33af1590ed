// Package analyzer orchestrates one analysis: crawl, audit, evaluate, match
// features, merge and rank recommendations.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/baseline-analyzer/internal/audit"
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
	"github.com/JakeFAU/baseline-analyzer/internal/evaluate"
	"github.com/JakeFAU/baseline-analyzer/internal/features"
	"github.com/JakeFAU/baseline-analyzer/internal/metrics"
)

// Defaults for Config.
const (
	DefaultMaxPages           = 3
	DefaultBulkMax            = 10
	DefaultCompareMax         = 10
	DefaultCompareConcurrency = 4
)

// Crawler walks a site.
type Crawler interface {
	Crawl(ctx context.Context, entryURL string, maxPages int) (baseline.CrawlResult, error)
}

// Prober checks reachability when the crawl produced nothing.
type Prober interface {
	Probe(ctx context.Context, rawURL string) baseline.SiteInfo
}

// Config bounds an Analyzer.
type Config struct {
	MaxPages           int
	BulkMax            int
	CompareMax         int
	CompareConcurrency int
	AuditProvider      string
}

func (c Config) withDefaults() Config {
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.BulkMax <= 0 {
		c.BulkMax = DefaultBulkMax
	}
	if c.CompareMax <= 0 {
		c.CompareMax = DefaultCompareMax
	}
	if c.CompareConcurrency <= 0 {
		c.CompareConcurrency = DefaultCompareConcurrency
	}
	if c.AuditProvider == "" {
		c.AuditProvider = audit.ProviderNone
	}
	return c
}

// Analyzer is safe for concurrent use once built.
type Analyzer struct {
	cfg        Config
	crawler    Crawler
	auditor    baseline.Auditor
	evaluators []evaluate.Evaluator
	matcher    *features.Matcher
	prober     Prober
	ids        baseline.IDGenerator
	clock      baseline.Clock
	logger     *zap.Logger
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithAuditor sets the external audit tool.
func WithAuditor(a baseline.Auditor) Option {
	return func(an *Analyzer) { an.auditor = a }
}

// WithRubric replaces the default evaluator weights.
func WithRubric(r evaluate.Rubric) Option {
	return func(an *Analyzer) { an.evaluators = evaluate.All(r) }
}

// WithMatcher sets the feature matcher.
func WithMatcher(m *features.Matcher) Option {
	return func(an *Analyzer) { an.matcher = m }
}

// WithProber sets the reachability prober used on the degraded path.
func WithProber(p Prober) Option {
	return func(an *Analyzer) { an.prober = p }
}

// WithIDGenerator sets the analysis id source.
func WithIDGenerator(g baseline.IDGenerator) Option {
	return func(an *Analyzer) { an.ids = g }
}

// WithClock sets the time source.
func WithClock(c baseline.Clock) Option {
	return func(an *Analyzer) { an.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(an *Analyzer) {
		if l != nil {
			an.logger = l.Named("analyzer")
		}
	}
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// New builds an Analyzer around crawler.
func New(cfg Config, crawler Crawler, opts ...Option) *Analyzer {
	metrics.Init()
	a := &Analyzer{
		cfg:        cfg.withDefaults(),
		crawler:    crawler,
		auditor:    audit.Disabled{},
		evaluators: evaluate.All(evaluate.DefaultRubric()),
		matcher:    features.NewMatcher(nil),
		clock:      wallClock{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the full pipeline for rawURL. Only invalid input and
// cancellation are returned as errors; crawl and audit failures degrade the
// result instead.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (baseline.AnalysisResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := baseline.ValidateTargetURL(rawURL); err != nil {
		return baseline.AnalysisResult{}, err
	}
	start := time.Now()
	logger := a.logger.With(zap.String("url", rawURL))

	result := baseline.AnalysisResult{URL: rawURL, Timestamp: a.clock.Now().UTC()}
	id, err := a.newID()
	if err != nil {
		return baseline.AnalysisResult{}, err
	}
	result.ID = id

	crawl, err := a.crawler.Crawl(ctx, rawURL, a.cfg.MaxPages)
	if err != nil {
		if errors.Is(err, baseline.ErrInvalidInput) {
			return baseline.AnalysisResult{}, err
		}
		logger.Warn("crawl failed", zap.Error(err))
		crawl = baseline.CrawlResult{EntryURL: rawURL}
	}
	if cerr := ctx.Err(); cerr != nil {
		return baseline.AnalysisResult{}, fmt.Errorf("analyze %s: %w", rawURL, cerr)
	}

	if crawl.Empty() {
		logger.Warn("crawl returned no pages, using limited analysis", zap.Int("crawl_errors", len(crawl.Errors)))
		a.degrade(ctx, &result, crawl)
		metrics.ObserveAnalysis("limited", result.Overall.Score, time.Since(start))
		return result, nil
	}

	report := a.audit(ctx, rawURL, logger)
	scores := evaluate.Run(a.evaluators, crawl)
	for _, cat := range baseline.Categories() {
		*result.Category(cat) = merge(scores[cat], report.ForCategory(cat))
	}
	result.Audit = &baseline.AuditSummary{
		Source:   report.Source,
		Fallback: report.Fallback,
		Score:    report.Overall,
		Grade:    report.Grade,
	}

	entry, _ := crawl.Entry()
	result.Site = baseline.SiteInfo{
		Reachable:      true,
		StatusCode:     entry.StatusCode,
		ResponseTimeMs: entry.LoadTimeMs,
		Title:          entry.Title,
	}

	var featureScore *int
	if !a.matcher.Empty() {
		fr := a.matcher.Match(crawl)
		result.Features = &fr
		featureScore = &fr.Score
	}
	result.Overall = overall(result.CategoryScores(), featureScore)
	result.Recommendations = Recommend(result)
	result.Technical = technical(crawl)

	logger.Info("analysis complete",
		zap.String("analysis_id", result.ID),
		zap.Int("score", result.Overall.Score),
		zap.String("grade", result.Overall.Grade),
		zap.Bool("audit_fallback", report.Fallback),
	)
	metrics.ObserveAnalysis("complete", result.Overall.Score, time.Since(start))
	return result, nil
}

func (a *Analyzer) newID() (string, error) {
	if a.ids == nil {
		return "", nil
	}
	id, err := a.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate analysis id: %w", err)
	}
	return id, nil
}

// audit runs the external tool and substitutes the fallback report on error.
func (a *Analyzer) audit(ctx context.Context, rawURL string, logger *zap.Logger) baseline.AuditReport {
	report, err := a.auditor.Audit(ctx, rawURL)
	if err != nil {
		if !errors.Is(err, audit.ErrDisabled) {
			logger.Warn("audit failed, using fallback scores", zap.Error(err))
		}
		metrics.ObserveAuditFallback(a.cfg.AuditProvider)
		return audit.Fallback()
	}
	return report
}

// merge averages the crawler score with the audit score of the same
// category. Categories the audit did not measure keep the crawler score.
func merge(score baseline.CategoryScore, ac *baseline.AuditCategory) baseline.CategoryScore {
	score.CrawlerScore = score.Score
	if ac == nil {
		return score
	}
	auditScore := ac.Score
	score.AuditScore = &auditScore
	score.Audit = ac
	score.Score = baseline.Clamp(baseline.RoundDiv(float64(score.CrawlerScore+auditScore), 2))
	score.Grade = baseline.Grade(score.Score)

	if d, ok := score.Details.(evaluate.PerformanceDetails); ok {
		if v := ac.Metrics["fid"]; v != "" && v != audit.NotAvailable {
			d.FID = v
		}
		if v := ac.Metrics["cls"]; v != "" && v != audit.NotAvailable {
			d.CLS = v
		}
		score.Details = d
	}
	return score
}

// overall combines the five category scores with the optional feature score.
func overall(scores []baseline.CategoryScore, featureScore *int) baseline.Overall {
	sum := 0
	for _, s := range scores {
		sum += s.Score
	}
	mean := 0.0
	if len(scores) > 0 {
		mean = float64(sum) / float64(len(scores))
	}
	categoryScore := baseline.Round(mean)
	score := categoryScore
	if featureScore != nil {
		score = baseline.Round((mean + float64(*featureScore)) / 2)
	}
	return baseline.Overall{
		Score:         score,
		CategoryScore: categoryScore,
		Grade:         baseline.Grade(score),
		Compliance:    baseline.Compliance(score),
		Badge:         baseline.BadgeFor(categoryScore),
	}
}

func technical(crawl baseline.CrawlResult) baseline.TechnicalDetails {
	t := baseline.TechnicalDetails{
		PagesCrawled:     len(crawl.Pages),
		HeadingStructure: map[string]int{},
		Errors:           crawl.Errors,
	}
	if t.Errors == nil {
		t.Errors = []baseline.FetchFailure{}
	}
	entry, ok := crawl.Entry()
	if !ok {
		return t
	}
	t.TotalLinks = len(entry.Links)
	for _, l := range entry.Links {
		if l.IsExternal {
			t.ExternalLinks++
		} else {
			t.InternalLinks++
		}
	}
	for _, h := range entry.Headings {
		t.HeadingStructure[fmt.Sprintf("h%d", h.Level)]++
	}
	t.Scripts = len(entry.Scripts)
	t.Stylesheets = len(entry.Stylesheets)
	t.Images = len(entry.Images)
	return t
}

// Badge returns the certification badge of a stored analysis.
func Badge(result baseline.AnalysisResult) baseline.Badge {
	return baseline.BadgeFor(result.Overall.CategoryScore)
}
