package analyzer

import (
	"context"
	"strings"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Issue texts of the limited analysis.
const (
	IssueNotAccessible   = "Website not accessible"
	IssueLimited         = "Limited analysis - website crawling failed"
	IssueHTTPSNotEnabled = "HTTPS not enabled"
)

// degrade fills result with coarse scores derived from reachability alone.
// Features and the external audit are skipped.
func (a *Analyzer) degrade(ctx context.Context, result *baseline.AnalysisResult, crawl baseline.CrawlResult) {
	site := baseline.SiteInfo{ResponseTimeMs: DefaultProbeTimeout.Milliseconds()}
	if a.prober != nil {
		site = a.prober.Probe(ctx, result.URL)
	}
	result.Limited = true
	result.Site = site

	base := 30
	if site.Reachable {
		base = 70
	}
	var perf int
	switch {
	case site.ResponseTimeMs < 2000:
		perf = 80
	case site.ResponseTimeMs < 4000:
		perf = 60
	default:
		perf = 40
	}
	var perfIssues []string
	if !site.Reachable {
		perfIssues = []string{IssueNotAccessible}
	}
	security, securityIssues := 30, []string{IssueHTTPSNotEnabled}
	if strings.HasPrefix(result.URL, "https://") {
		security, securityIssues = 70, nil
	}

	result.Performance = limitedScore(baseline.CategoryPerformance, perf, perfIssues)
	result.SEO = limitedScore(baseline.CategorySEO, base, []string{IssueLimited})
	result.Accessibility = limitedScore(baseline.CategoryAccessibility, base, []string{IssueLimited})
	result.Security = limitedScore(baseline.CategorySecurity, security, securityIssues)
	result.ModernWeb = limitedScore(baseline.CategoryModernWeb, base, []string{IssueLimited})

	o := overall(result.CategoryScores(), nil)
	o.Compliance = baseline.ComplianceLimited
	result.Overall = o
	result.Recommendations = []baseline.Recommendation{{
		Priority:    baseline.PriorityHigh,
		Category:    "Analysis",
		Title:       "Website Analysis Limited",
		Description: "Full analysis could not be performed. Please check website accessibility.",
		Impact:      "Limited insights available",
	}}
	result.Technical = technical(crawl)
}

func limitedScore(category baseline.Category, score int, issues []string) baseline.CategoryScore {
	if issues == nil {
		issues = []string{}
	}
	return baseline.CategoryScore{
		Category:     category,
		Score:        score,
		Grade:        baseline.Grade(score),
		Issues:       issues,
		CrawlerScore: score,
	}
}
