// Package lighthouse converts a Lighthouse result (LHR) into an audit report.
package lighthouse

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/JakeFAU/baseline-analyzer/internal/audit"
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Result is the subset of the LHR that is read.
type Result struct {
	FinalURL   string              `json:"finalUrl"`
	Categories map[string]Category `json:"categories"`
	Audits     map[string]Audit    `json:"audits"`
}

// Category is one scored LHR category. Score is 0..1 or null.
type Category struct {
	Score *float64 `json:"score"`
}

// Audit is one LHR audit.
type Audit struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	DisplayValue string   `json:"displayValue"`
	Score        *float64 `json:"score"`
	Details      *Details `json:"details"`
}

// Details carries the audit payload fields that are read.
type Details struct {
	OverallSavingsMs float64           `json:"overallSavingsMs"`
	Items            []json.RawMessage `json:"items"`
}

var metricAudits = map[string]string{
	"fcp": "first-contentful-paint",
	"lcp": "largest-contentful-paint",
	"fid": "max-potential-fid",
	"cls": "cumulative-layout-shift",
	"si":  "speed-index",
	"tti": "interactive",
}

var opportunityAudits = []string{
	"unused-css-rules",
	"unused-javascript",
	"modern-image-formats",
	"offscreen-images",
	"render-blocking-resources",
	"unminified-css",
	"unminified-javascript",
	"efficient-animated-content",
	"duplicated-javascript",
}

var diagnosticAudits = []string{
	"mainthread-work-breakdown",
	"bootup-time",
	"uses-long-cache-ttl",
	"total-byte-weight",
	"dom-size",
	"critical-request-chains",
}

var issueAudits = map[string][]string{
	"accessibility": {
		"color-contrast", "image-alt", "label", "link-name",
		"button-name", "document-title", "html-has-lang", "meta-viewport",
	},
	"seo": {
		"document-title", "meta-description", "http-status-code", "link-text",
		"crawlable-anchors", "is-crawlable", "robots-txt", "image-alt", "hreflang", "canonical",
	},
	"best-practices": {
		"is-on-https", "uses-http2", "no-vulnerable-libraries", "external-anchors-use-rel-noopener",
		"geolocation-on-start", "notification-on-start", "no-document-write", "js-libraries",
	},
}

var passedAudits = map[string][]string{
	"accessibility":  {"color-contrast", "image-alt", "label", "link-name", "button-name"},
	"seo":            {"document-title", "meta-description", "link-text", "crawlable-anchors"},
	"best-practices": {"is-on-https", "uses-http2", "no-vulnerable-libraries"},
}

// Parse decodes raw LHR JSON and converts it.
func Parse(data []byte, source string) (baseline.AuditReport, error) {
	var lhr Result
	if err := json.Unmarshal(data, &lhr); err != nil {
		return baseline.AuditReport{}, fmt.Errorf("decode lighthouse result: %w", err)
	}
	return Convert(lhr, source)
}

// Convert builds an audit report from a decoded LHR. Categories absent from
// the result stay nil.
func Convert(lhr Result, source string) (baseline.AuditReport, error) {
	if len(lhr.Categories) == 0 {
		return baseline.AuditReport{}, fmt.Errorf("lighthouse result has no categories")
	}
	report := baseline.AuditReport{Source: source}

	if score, ok := lhr.score("performance"); ok {
		report.Performance = &baseline.AuditCategory{
			Score:         score,
			Metrics:       lhr.metrics(),
			Opportunities: lhr.opportunities(),
			Diagnostics:   lhr.diagnostics(),
		}
	}
	report.Accessibility = lhr.scored("accessibility", true)
	report.SEO = lhr.scored("seo", false)
	report.BestPractices = lhr.scored("best-practices", false)
	report.ComputeOverall()
	return report, nil
}

func (r Result) score(category string) (int, bool) {
	c, ok := r.Categories[category]
	if !ok {
		return 0, false
	}
	if c.Score == nil {
		return 0, true
	}
	return percent(*c.Score), true
}

func (r Result) scored(category string, countElements bool) *baseline.AuditCategory {
	score, ok := r.score(category)
	if !ok {
		return nil
	}
	return &baseline.AuditCategory{
		Score:  score,
		Issues: r.issues(category, countElements),
		Passed: r.passed(category),
	}
}

func (r Result) metrics() map[string]string {
	out := audit.EmptyMetrics()
	for key, id := range metricAudits {
		if a, ok := r.Audits[id]; ok && a.DisplayValue != "" {
			out[key] = a.DisplayValue
		}
	}
	return out
}

func (r Result) opportunities() []baseline.AuditItem {
	out := []baseline.AuditItem{}
	for _, id := range opportunityAudits {
		a, ok := r.Audits[id]
		if !ok || a.Score == nil || *a.Score >= 1 {
			continue
		}
		item := a.item(id)
		if a.Details != nil {
			item.SavingsMs = a.Details.OverallSavingsMs
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SavingsMs > out[j].SavingsMs })
	return out
}

func (r Result) diagnostics() []baseline.AuditItem {
	out := []baseline.AuditItem{}
	for _, id := range diagnosticAudits {
		if a, ok := r.Audits[id]; ok {
			out = append(out, a.item(id))
		}
	}
	return out
}

func (r Result) issues(category string, countElements bool) []baseline.AuditItem {
	out := []baseline.AuditItem{}
	for _, id := range issueAudits[category] {
		a, ok := r.Audits[id]
		if !ok || a.Score == nil || *a.Score >= 1 {
			continue
		}
		item := baseline.AuditItem{
			ID:          id,
			Title:       a.Title,
			Description: a.Description,
			Impact:      baseline.AuditImpact(*a.Score),
		}
		if countElements && a.Details != nil {
			item.Elements = len(a.Details.Items)
		}
		out = append(out, item)
	}
	return out
}

func (r Result) passed(category string) []baseline.AuditItem {
	out := []baseline.AuditItem{}
	for _, id := range passedAudits[category] {
		a, ok := r.Audits[id]
		if !ok || a.Score == nil || *a.Score != 1 {
			continue
		}
		out = append(out, baseline.AuditItem{ID: id, Title: a.Title, Description: a.Description})
	}
	return out
}

func (a Audit) item(id string) baseline.AuditItem {
	item := baseline.AuditItem{
		ID:           id,
		Title:        a.Title,
		Description:  a.Description,
		DisplayValue: a.DisplayValue,
	}
	if a.Score != nil {
		s := percent(*a.Score)
		item.Score = &s
	}
	return item
}

func percent(v float64) int {
	return baseline.Round(v * 100)
}
