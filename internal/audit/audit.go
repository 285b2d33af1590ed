// Package audit provides the external page-audit collaborators and the
// substitute scores used when no audit is available.
package audit

import (
	"context"
	"errors"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Provider names.
const (
	ProviderNone      = "none"
	ProviderPageSpeed = "pagespeed"
	ProviderHeadless  = "headless"
	SourceFallback    = "fallback"
)

// NotAvailable is the display value of metrics the audit did not produce.
const NotAvailable = "N/A"

// MetricKeys are the performance metrics carried on every audit report.
var MetricKeys = []string{"fcp", "lcp", "fid", "cls", "si", "tti"}

// ErrDisabled is returned by Disabled.
var ErrDisabled = errors.New("audit provider disabled")

// Disabled is an Auditor that never runs, forcing the fallback scores.
type Disabled struct{}

// Audit always fails with ErrDisabled.
func (Disabled) Audit(context.Context, string) (baseline.AuditReport, error) {
	return baseline.AuditReport{}, ErrDisabled
}

// EmptyMetrics returns every metric key mapped to NotAvailable.
func EmptyMetrics() map[string]string {
	m := make(map[string]string, len(MetricKeys))
	for _, k := range MetricKeys {
		m[k] = NotAvailable
	}
	return m
}

// Fallback returns the fixed report substituted when the audit fails.
func Fallback() baseline.AuditReport {
	return baseline.AuditReport{
		Source:        SourceFallback,
		Fallback:      true,
		Performance:   &baseline.AuditCategory{Score: 70, Metrics: EmptyMetrics()},
		Accessibility: &baseline.AuditCategory{Score: 75},
		SEO:           &baseline.AuditCategory{Score: 80},
		BestPractices: &baseline.AuditCategory{Score: 85},
		Overall:       77,
		Grade:         "B",
	}
}
