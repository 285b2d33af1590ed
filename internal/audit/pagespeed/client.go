// Package pagespeed runs audits through the PageSpeed Insights v5 API.
package pagespeed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	psi "google.golang.org/api/pagespeedonline/v5"

	"github.com/JakeFAU/baseline-analyzer/internal/audit"
	"github.com/JakeFAU/baseline-analyzer/internal/audit/lighthouse"
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

var categories = []string{"PERFORMANCE", "ACCESSIBILITY", "BEST_PRACTICES", "SEO"}

// Config controls the client. An empty Endpoint uses the public API.
type Config struct {
	Endpoint string
	APIKey   string
	Strategy string
	Timeout  time.Duration
}

// Client is a baseline.Auditor backed by PageSpeed Insights.
type Client struct {
	cfg    Config
	svc    *psi.Service
	logger *zap.Logger
}

// New builds a client. Extra options are passed to the API service, after
// the endpoint and credentials derived from cfg.
func New(ctx context.Context, cfg Config, logger *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	cfg.Strategy = strings.ToUpper(cfg.Strategy)
	if cfg.Strategy == "" {
		cfg.Strategy = "DESKTOP"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var base []option.ClientOption
	if cfg.Endpoint != "" {
		base = append(base, option.WithEndpoint(strings.TrimSuffix(cfg.Endpoint, "/")+"/"))
	}
	if cfg.APIKey != "" {
		base = append(base, option.WithAPIKey(cfg.APIKey))
	} else {
		base = append(base, option.WithoutAuthentication())
	}
	svc, err := psi.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create pagespeed service: %w", err)
	}
	return &Client{cfg: cfg, svc: svc, logger: logger.Named("pagespeed")}, nil
}

// Audit requests a run for target and converts the embedded Lighthouse result.
func (c *Client) Audit(ctx context.Context, target string) (baseline.AuditReport, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.svc.Pagespeedapi.Runpagespeed(target).
		Strategy(c.cfg.Strategy).
		Category(categories...).
		Context(ctx).
		Do()
	if err != nil {
		return baseline.AuditReport{}, fmt.Errorf("pagespeed request: %w", err)
	}
	if resp.LighthouseResult == nil {
		return baseline.AuditReport{}, errors.New("pagespeed response has no lighthouse result")
	}

	raw, err := resp.LighthouseResult.MarshalJSON()
	if err != nil {
		return baseline.AuditReport{}, fmt.Errorf("encode lighthouse result: %w", err)
	}
	report, err := lighthouse.Parse(raw, audit.ProviderPageSpeed)
	if err != nil {
		return baseline.AuditReport{}, err
	}
	c.logger.Debug("audit complete",
		zap.String("url", target),
		zap.Int("overall", report.Overall),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}
