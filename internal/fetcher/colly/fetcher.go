// Package collyfetcher implements baseline.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultUserAgent     = "WebBaseline Pro Crawler 1.0"
	DefaultTimeout       = 10 * time.Second
	DefaultMaxRedirects  = 3
	DefaultAssetMaxBytes = 512 * 1024
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	Timeout       time.Duration
	MaxRedirects  int
	AssetMaxBytes int
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.AssetMaxBytes <= 0 {
		c.AssetMaxBytes = DefaultAssetMaxBytes
	}
	return c
}

// Fetcher implements baseline.Fetcher and baseline.AssetFetcher with a
// Colly collector. The base collector owns the shared HTTP client; every
// call works on a clone so callbacks never leak between requests.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	now           func() time.Time
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	cfg = cfg.withDefaults()

	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true
	c.WithTransport(&metaTransport{base: newHTTPTransport()})
	c.SetRequestTimeout(cfg.Timeout)
	maxRedirects := cfg.MaxRedirects
	c.SetRedirectHandler(func(_ *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	})

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		now:           time.Now,
	}
}

// Fetch executes a single HTTP GET. Any failure, including a non-2xx final
// status, is returned as *baseline.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (baseline.FetchResponse, error) {
	var (
		result   baseline.FetchResponse
		fetchErr error
	)
	start := f.now()
	collector := f.buildCollector(ctx, 0)
	f.configureCollectorHooks(collector, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, rawURL, &fetchErr); err != nil {
		return baseline.FetchResponse{}, f.failure(rawURL, 0, err)
	}
	if result.StatusCode < http.StatusOK || result.StatusCode >= http.StatusMultipleChoices {
		return baseline.FetchResponse{}, f.failure(rawURL, result.StatusCode, nil)
	}
	result.URL = rawURL
	if result.FinalURL == "" {
		result.FinalURL = rawURL
	}
	result.FetchedAt = start.UTC()
	return result, nil
}

// FetchAsset fetches a stylesheet or script body, truncated to AssetMaxBytes.
func (f *Fetcher) FetchAsset(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := f.fetchWithLimit(ctx, rawURL, f.cfg.AssetMaxBytes)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (f *Fetcher) fetchWithLimit(ctx context.Context, rawURL string, maxBytes int) (baseline.FetchResponse, error) {
	var (
		result   baseline.FetchResponse
		fetchErr error
	)
	collector := f.buildCollector(ctx, maxBytes)
	f.configureCollectorHooks(collector, f.now(), &result, &fetchErr)
	if err := f.runCollector(ctx, collector, rawURL, &fetchErr); err != nil {
		return baseline.FetchResponse{}, f.failure(rawURL, 0, err)
	}
	if result.StatusCode < http.StatusOK || result.StatusCode >= http.StatusMultipleChoices {
		return baseline.FetchResponse{}, f.failure(rawURL, result.StatusCode, nil)
	}
	return result, nil
}

func (f *Fetcher) buildCollector(ctx context.Context, maxBytes int) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.Context = ctx
	if maxBytes > 0 {
		collector.MaxBodySize = maxBytes
	}
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *baseline.FetchResponse,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		meta := takeMeta(r.Headers)
		*result = baseline.FetchResponse{
			FinalURL:   meta.finalURL,
			StatusCode: r.StatusCode,
			Headers:    meta.headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   f.now().Sub(start),
			Protocol:   meta.protocol,
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func (f *Fetcher) failure(rawURL string, status int, err error) *baseline.FetchError {
	fe := &baseline.FetchError{
		URL:        rawURL,
		StatusCode: status,
		Timestamp:  f.now().UTC(),
		Err:        err,
	}
	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		fe.Message = "request timed out"
	case err != nil:
		fe.Message = err.Error()
	default:
		fe.Message = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
	}
	return fe
}
