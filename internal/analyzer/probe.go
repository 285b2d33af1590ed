package analyzer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
	"github.com/JakeFAU/baseline-analyzer/internal/extract"
)

// Probe defaults.
const (
	DefaultProbeTimeout      = 15 * time.Second
	DefaultProbeUserAgent    = "WebBaseline Pro Bot 1.0"
	DefaultProbeMaxRedirects = 5
	maxTitleRunes            = 200
	unknownTitle             = "Unknown"
)

// FetchProber probes reachability with a single fetch.
type FetchProber struct {
	fetcher baseline.Fetcher
	timeout time.Duration
	logger  *zap.Logger
}

// NewFetchProber wraps fetcher. The fetcher carries the probe's user agent
// and redirect cap; timeout bounds the whole probe.
func NewFetchProber(fetcher baseline.Fetcher, timeout time.Duration, logger *zap.Logger) *FetchProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FetchProber{fetcher: fetcher, timeout: timeout, logger: logger.Named("probe")}
}

// Probe fetches rawURL once. On failure the response time is the timeout.
func (p *FetchProber) Probe(ctx context.Context, rawURL string) baseline.SiteInfo {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		info := baseline.SiteInfo{ResponseTimeMs: p.timeout.Milliseconds(), Title: unknownTitle, Error: err.Error()}
		var fe *baseline.FetchError
		if errors.As(err, &fe) {
			info.StatusCode = fe.StatusCode
			info.Error = fe.Message
		}
		p.logger.Info("site unreachable", zap.String("url", rawURL), zap.Error(err))
		return info
	}

	title := extract.Title(resp.Body)
	if title == "" {
		title = unknownTitle
	}
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	return baseline.SiteInfo{
		Reachable:      resp.StatusCode == http.StatusOK,
		StatusCode:     resp.StatusCode,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Title:          title,
	}
}
