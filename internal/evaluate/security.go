package evaluate

import (
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// SecurityDetails are the sub-metrics behind a security score.
type SecurityDetails struct {
	HTTPS               bool `json:"https"`
	MixedContent        bool `json:"mixedContent"`
	HSTS                bool `json:"hsts"`
	CSP                 bool `json:"csp"`
	XFrameOptions       bool `json:"xFrameOptions"`
	XContentTypeOptions bool `json:"xContentTypeOptions"`
	FormsTotal          int  `json:"formsTotal"`
	FormsSecure         int  `json:"formsSecure"`
}

// Security scores transport security and protective headers.
type Security struct {
	Weights SecurityWeights
	Cutoff  int
}

// Category implements Evaluator.
func (Security) Category() baseline.Category { return baseline.CategorySecurity }

// Evaluate implements Evaluator.
func (e Security) Evaluate(crawl baseline.CrawlResult) baseline.CategoryScore {
	page, ok := crawl.Entry()
	if !ok {
		return noData(baseline.CategorySecurity)
	}

	var t tally
	https := page.IsHTTPS()
	if !https {
		t.fail(e.Weights.HTTPS, "HTTPS is required for Baseline 2024 compliance")
	}
	if page.MixedContent {
		t.fail(e.Weights.MixedContent, "Mixed content detected - all resources should use HTTPS")
	}

	h := page.Headers
	d := SecurityDetails{
		HTTPS:               https,
		MixedContent:        page.MixedContent,
		HSTS:                h.StrictTransportSecurity != "",
		CSP:                 h.ContentSecurityPolicy != "",
		XFrameOptions:       h.XFrameOptions != "",
		XContentTypeOptions: h.XContentTypeOptions != "",
		FormsTotal:          len(page.Forms),
	}
	if !d.HSTS {
		t.fail(e.Weights.HSTS, "Missing HSTS header")
	}
	if !d.CSP {
		t.fail(e.Weights.CSP, "Missing Content Security Policy")
	}
	if !d.XFrameOptions {
		t.fail(e.Weights.XFrameOptions, "Missing X-Frame-Options header")
	}
	if !d.XContentTypeOptions {
		t.fail(e.Weights.XContentTypeOptions, "Missing X-Content-Type-Options header")
	}

	for _, f := range page.Forms {
		if f.UsesHTTPS {
			d.FormsSecure++
		}
	}
	if d.FormsSecure < d.FormsTotal {
		t.fail(e.Weights.InsecureForms, "Some forms not using HTTPS")
	}

	return t.score(baseline.CategorySecurity, e.Cutoff, d)
}
