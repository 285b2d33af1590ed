// Package crawler walks a site from its entry URL, following same-origin links
// depth-first until a page budget is spent, and returns the extracted facts of
// every page it fetched.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
	"github.com/JakeFAU/baseline-analyzer/internal/extract"
	"github.com/JakeFAU/baseline-analyzer/internal/metrics"
)

// DefaultMaxPages bounds a crawl when neither the caller nor Config sets a budget.
const DefaultMaxPages = 3

// Config holds crawl limits.
type Config struct {
	MaxPages         int
	FetchAssets      bool
	MaxAssets        int
	AssetConcurrency int
}

// Limiter gates every page fetch.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Crawler performs sequential same-origin crawls.
type Crawler struct {
	cfg     Config
	fetcher baseline.Fetcher
	assets  baseline.AssetFetcher
	limiter Limiter
	logger  *zap.Logger
	now     func() time.Time
}

// Option customizes a Crawler.
type Option func(*Crawler)

// WithAssetFetcher enables stylesheet and script hydration.
func WithAssetFetcher(f baseline.AssetFetcher) Option {
	return func(c *Crawler) { c.assets = f }
}

// WithLimiter sets the per-host rate limiter.
func WithLimiter(l Limiter) Option {
	return func(c *Crawler) { c.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l.Named("crawler")
		}
	}
}

// New builds a Crawler around fetcher.
func New(cfg Config, fetcher baseline.Fetcher, opts ...Option) *Crawler {
	metrics.Init()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.MaxAssets <= 0 {
		cfg.MaxAssets = 10
	}
	if cfg.AssetConcurrency <= 0 {
		cfg.AssetConcurrency = 4
	}
	c := &Crawler{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl fetches at most maxPages pages starting at entryURL. A non-positive
// maxPages uses the configured default. Only links on the entry URL's origin
// are followed, even when the entry page redirects elsewhere. Fetch failures
// are recorded on the result and never returned; only a malformed entry URL
// is an error.
func (c *Crawler) Crawl(ctx context.Context, entryURL string, maxPages int) (baseline.CrawlResult, error) {
	if err := baseline.ValidateTargetURL(entryURL); err != nil {
		return baseline.CrawlResult{}, err
	}
	if maxPages <= 0 {
		maxPages = c.cfg.MaxPages
	}
	origin, err := baseline.Origin(entryURL)
	if err != nil {
		return baseline.CrawlResult{}, baseline.InvalidInput(baseline.InvalidURLMessage)
	}

	start := c.now()
	state := &crawlState{
		crawler:  c,
		maxPages: maxPages,
		origin:   origin,
		visited:  make(map[string]bool),
		result: baseline.CrawlResult{
			EntryURL: entryURL,
			Pages:    []baseline.PageFacts{},
			Errors:   []baseline.FetchFailure{},
		},
	}
	state.visit(ctx, entryURL)
	state.result.Duration = c.now().Sub(start)

	c.logger.Info("crawl finished",
		zap.String("url", entryURL),
		zap.Int("pages", len(state.result.Pages)),
		zap.Int("errors", len(state.result.Errors)),
		zap.Duration("duration", state.result.Duration),
	)
	return state.result, nil
}

type crawlState struct {
	crawler  *Crawler
	maxPages int
	attempts int
	origin   string
	visited  map[string]bool
	result   baseline.CrawlResult
}

func (s *crawlState) visit(ctx context.Context, rawURL string) {
	if s.attempts >= s.maxPages || ctx.Err() != nil {
		return
	}
	key, err := baseline.NormalizeURL(rawURL)
	if err != nil || s.visited[key] {
		return
	}
	s.visited[key] = true
	s.attempts++

	page, ok := s.fetchPage(ctx, rawURL)
	if !ok {
		return
	}
	// A redirect onto a page already crawled adds nothing new.
	if final, err := baseline.NormalizeURL(page.FinalURL); err == nil && final != key {
		if s.visited[final] {
			return
		}
		s.visited[final] = true
	}
	s.result.Pages = append(s.result.Pages, page)

	base, err := url.Parse(page.FinalURL)
	if err != nil {
		return
	}
	for _, link := range page.Links {
		next, ok := baseline.ResolveSameOrigin(base, link.Href)
		if !ok {
			continue
		}
		if origin, err := baseline.Origin(next); err != nil || origin != s.origin {
			continue
		}
		s.visit(ctx, next)
	}
}

func (s *crawlState) fetchPage(ctx context.Context, rawURL string) (baseline.PageFacts, bool) {
	c := s.crawler
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, rawURL); err != nil {
			s.fail(rawURL, err)
			return baseline.PageFacts{}, false
		}
	}

	resp, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		s.fail(rawURL, err)
		return baseline.PageFacts{}, false
	}
	page, err := extract.Page(resp)
	if err != nil {
		s.fail(rawURL, err)
		return baseline.PageFacts{}, false
	}
	metrics.ObserveCrawl(rawURL, "success", len(resp.Body))

	if c.cfg.FetchAssets && c.assets != nil {
		c.hydrate(ctx, &page)
	}
	return page, true
}

func (s *crawlState) fail(rawURL string, err error) {
	c := s.crawler
	failure := baseline.FetchFailure{URL: rawURL, Error: err.Error(), Timestamp: c.now().UTC()}
	var fe *baseline.FetchError
	if errors.As(err, &fe) {
		failure = fe.Failure()
	}
	s.result.Errors = append(s.result.Errors, failure)
	metrics.ObserveCrawl(rawURL, "error", 0)
	c.logger.Warn("page fetch failed", zap.String("url", rawURL), zap.Error(err))
}

// hydrate fills the Content of same-origin external stylesheets and scripts.
// Failures leave Content empty.
func (c *Crawler) hydrate(ctx context.Context, page *baseline.PageFacts) {
	origin, err := baseline.Origin(page.FinalURL)
	if err != nil {
		return
	}
	sameOrigin := func(raw string) bool {
		o, err := baseline.Origin(raw)
		return err == nil && o == origin
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.AssetConcurrency)
	budget := c.cfg.MaxAssets

	for i := range page.Stylesheets {
		if budget == 0 {
			break
		}
		sheet := &page.Stylesheets[i]
		if !sameOrigin(sheet.Href) {
			continue
		}
		budget--
		g.Go(func() error {
			body, err := c.assets.FetchAsset(gctx, sheet.Href)
			if err != nil {
				c.logger.Debug("stylesheet fetch failed", zap.String("url", sheet.Href), zap.Error(err))
				return nil
			}
			sheet.Content = string(body)
			return nil
		})
	}
	for i := range page.Scripts {
		if budget == 0 {
			break
		}
		script := &page.Scripts[i]
		if script.IsInline() || !sameOrigin(script.Src) {
			continue
		}
		budget--
		g.Go(func() error {
			body, err := c.assets.FetchAsset(gctx, script.Src)
			if err != nil {
				c.logger.Debug("script fetch failed", zap.String("url", script.Src), zap.Error(err))
				return nil
			}
			script.Content = string(body)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Debug("asset hydration", zap.Error(fmt.Errorf("wait: %w", err)))
	}
}
