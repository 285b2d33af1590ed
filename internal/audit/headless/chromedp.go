// Package headless measures page performance in headless Chrome.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/baseline-analyzer/internal/audit"
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Config controls the headless auditor.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
}

// Auditor implements baseline.Auditor with chromedp. It reports the
// performance category only.
type Auditor struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// New creates an auditor backed by a shared Chrome allocator.
func New(cfg Config, logger *zap.Logger) (*Auditor, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1350, 940),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Auditor{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger.Named("headless"),
	}, nil
}

// Close shuts down the browser allocator.
func (a *Auditor) Close() {
	a.allocCancel()
}

// Audit loads target in a fresh tab and scores its navigation timings.
func (a *Auditor) Audit(ctx context.Context, target string) (baseline.AuditReport, error) {
	if err := a.acquire(ctx); err != nil {
		return baseline.AuditReport{}, err
	}
	defer a.release()

	taskCtx, taskCancel := chromedp.NewContext(a.allocator)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, a.navTimeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	meta := &documentMeta{}
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	var timings Timings
	actions := []chromedp.Action{
		a.networkSetupAction(),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(timingScript, &timings, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return baseline.AuditReport{}, fmt.Errorf("chromedp run: %w", err)
	}
	if status := meta.statusCode(); status >= http.StatusBadRequest {
		return baseline.AuditReport{}, fmt.Errorf("document status %d", status)
	}

	report := baseline.AuditReport{
		Source: audit.ProviderHeadless,
		Performance: &baseline.AuditCategory{
			Score:   Score(timings),
			Metrics: timings.Metrics(),
		},
	}
	report.ComputeOverall()
	a.logger.Debug("audit complete",
		zap.String("url", target),
		zap.Int("score", report.Performance.Score),
		zap.Float64("lcp_ms", timings.LCP),
	)
	return report, nil
}

func (a *Auditor) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := network.SetCacheDisabled(true).Do(ctx); err != nil {
			return fmt.Errorf("disable cache: %w", err)
		}
		if a.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(a.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (a *Auditor) acquire(ctx context.Context) error {
	if a.limiter == nil {
		return nil
	}
	select {
	case a.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (a *Auditor) release() {
	if a.limiter == nil {
		return
	}
	select {
	case <-a.limiter:
	default:
	}
}

func (a *Auditor) navTimeout() time.Duration {
	if a.cfg.NavigationTimeout > 0 {
		return a.cfg.NavigationTimeout
	}
	return 45 * time.Second
}

// documentMeta records the main document response.
type documentMeta struct {
	mu     sync.RWMutex
	status int
}

func (m *documentMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	m.mu.Lock()
	m.status = int(event.Response.Status)
	m.mu.Unlock()
}

func (m *documentMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}

func (m *documentMeta) statusCode() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
