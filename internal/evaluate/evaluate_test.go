package evaluate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

func crawlOf(page baseline.PageFacts) baseline.CrawlResult {
	return baseline.CrawlResult{EntryURL: page.URL, Pages: []baseline.PageFacts{page}}
}

// compliantPage is a single-page site that satisfies every rule.
func compliantPage() baseline.PageFacts {
	return baseline.PageFacts{
		URL:             "https://example.com/",
		FinalURL:        "https://example.com/",
		StatusCode:      200,
		LoadTimeMs:      1200,
		Protocol:        "HTTP/2.0",
		Title:           strings.Repeat("t", 45),
		MetaDescription: strings.Repeat("d", 140),
		HasViewport:     true,
		Viewport:        "width=device-width, initial-scale=1",
		Canonical:       "https://example.com/",
		Headers: baseline.ResponseHeaders{
			ContentEncoding:         "br",
			CacheControl:            "max-age=600",
			ContentSecurityPolicy:   "default-src 'self'",
			StrictTransportSecurity: "max-age=31536000",
			XFrameOptions:           "DENY",
			XContentTypeOptions:     "nosniff",
		},
		Headings:         []baseline.Heading{{Level: 1, Text: "Hello"}, {Level: 2, Text: "World"}},
		Images:           []baseline.Image{{Src: "https://example.com/a.webp", Alt: "a", HasAlt: true, Loading: "lazy"}},
		Stylesheets:      []baseline.Stylesheet{{Href: "https://example.com/site.css", Media: "all"}},
		Forms:            []baseline.Form{{Action: "/search", Method: "GET", UsesHTTPS: true}},
		Buttons:          []baseline.Button{{Text: "Go", Labeled: true}},
		Inputs:           []baseline.Input{{Type: "text", ID: "q", Labeled: true}},
		SkipLinks:        1,
		Landmarks:        []string{"main", "nav", "header"},
		SemanticElements: []string{"main", "nav", "header"},
	}
}

func TestEndToEndCompliantPage(t *testing.T) {
	t.Parallel()

	scores := Run(All(DefaultRubric()), crawlOf(compliantPage()))
	require.Len(t, scores, 5)

	require.GreaterOrEqual(t, scores[baseline.CategoryPerformance].Score, 85)
	require.Equal(t, 100, scores[baseline.CategorySEO].Score)
	require.Equal(t, 100, scores[baseline.CategorySecurity].Score)
	for cat, s := range scores {
		require.Equal(t, 100, s.Score, cat)
		require.Empty(t, s.Issues, cat)
		require.True(t, s.BaselinePass, cat)
		require.Equal(t, "A+", s.Grade, cat)
		require.Equal(t, s.Score, s.CrawlerScore, cat)
	}

	perf := scores[baseline.CategoryPerformance].Details.(PerformanceDetails)
	require.Equal(t, int64(1440), perf.LCPEstimateMs)
	require.Equal(t, NotMeasured, perf.FID)
	require.Equal(t, NotMeasured, perf.CLS)
}

func TestEmptyCrawlHasNoData(t *testing.T) {
	t.Parallel()

	for _, e := range All(DefaultRubric()) {
		s := e.Evaluate(baseline.CrawlResult{EntryURL: "https://unreachable.invalid"})
		require.Equal(t, 0, s.Score, e.Category())
		require.Equal(t, []string{baseline.NoPageDataIssue}, s.Issues, e.Category())
		require.False(t, s.BaselinePass)
		require.Equal(t, "F", s.Grade)
	}
}

func TestPenaltiesSumAndClamp(t *testing.T) {
	t.Parallel()

	r := DefaultRubric()
	bare := baseline.PageFacts{URL: "http://example.com/", LoadTimeMs: 5000, MixedContent: true,
		Forms: []baseline.Form{{Action: "http://example.com/post"}}}
	for i := 0; i < 11; i++ {
		bare.Scripts = append(bare.Scripts, baseline.Script{Src: baseline.InlineScriptSrc})
	}
	for i := 0; i < 6; i++ {
		bare.Stylesheets = append(bare.Stylesheets, baseline.Stylesheet{Href: "x.css"})
		bare.Images = append(bare.Images, baseline.Image{Src: "x.png", Loading: "eager"})
	}
	bare.Buttons = []baseline.Button{{}}
	bare.Inputs = []baseline.Input{{Type: "text"}}

	cases := []struct {
		eval    Evaluator
		penalty int
		issues  int
	}{
		{Performance{Weights: r.Performance, Cutoff: 80}, 30 + 10 + 5 + 15 + 10, 5},
		{SEO{Weights: r.SEO, Cutoff: 80}, 15 + 20 + 15 + 20 + 15 + 5, 6},
		{Accessibility{Weights: r.Accessibility, Cutoff: 85}, 25 + 15 + 20 + 15 + 10, 5},
		{Security{Weights: r.Security, Cutoff: 80}, 40 + 20 + 15*4 + 15, 7},
		{ModernWeb{Weights: r.ModernWeb, Cutoff: 75}, 20 + 20 + 15, 3},
	}
	for _, tc := range cases {
		s := tc.eval.Evaluate(crawlOf(bare))
		require.Equal(t, baseline.Clamp(100-tc.penalty), s.Score, tc.eval.Category())
		require.Len(t, s.Issues, tc.issues, tc.eval.Category())
		require.GreaterOrEqual(t, s.Score, 0)
		require.LessOrEqual(t, s.Score, 100)
	}
}

func TestVacuousCoverage(t *testing.T) {
	t.Parallel()

	page := compliantPage()
	page.Images = nil
	page.Buttons = nil
	page.Inputs = nil

	seo := SEO{Weights: DefaultRubric().SEO, Cutoff: 80}.Evaluate(crawlOf(page))
	require.Equal(t, 100.0, seo.Details.(SEODetails).AltCoverage)
	require.Equal(t, 100, seo.Score)

	a11y := Accessibility{Weights: DefaultRubric().Accessibility, Cutoff: 85}.Evaluate(crawlOf(page))
	d := a11y.Details.(AccessibilityDetails)
	require.Equal(t, 100.0, d.AltCoverage)
	require.Equal(t, 100.0, d.ButtonCoverage)
	require.Equal(t, 100.0, d.InputCoverage)
	require.Equal(t, 100, a11y.Score)
}

func TestAltCoverageThresholdsDiffer(t *testing.T) {
	t.Parallel()

	page := compliantPage()
	page.Images = nil
	for i := 0; i < 10; i++ {
		page.Images = append(page.Images, baseline.Image{Src: "i.png", HasAlt: i > 0, Loading: "lazy"})
	}
	r := DefaultRubric()

	seo := SEO{Weights: r.SEO, Cutoff: 80}.Evaluate(crawlOf(page))
	require.Equal(t, 100, seo.Score, "90 percent meets the SEO target")

	a11y := Accessibility{Weights: r.Accessibility, Cutoff: 85}.Evaluate(crawlOf(page))
	require.Equal(t, 75, a11y.Score)
	require.Equal(t, []string{"Alt text coverage: 90.0% (should be ≥95%)"}, a11y.Issues)
	require.False(t, a11y.BaselinePass)
}

func TestPerformanceLoadBands(t *testing.T) {
	t.Parallel()

	e := Performance{Weights: DefaultRubric().Performance, Cutoff: 80}
	page := compliantPage()

	page.LoadTimeMs = 2500
	require.Equal(t, 100, e.Evaluate(crawlOf(page)).Score)

	page.LoadTimeMs = 2501
	s := e.Evaluate(crawlOf(page))
	require.Equal(t, 85, s.Score)
	require.Equal(t, []string{"LCP needs improvement (should be ≤ 2.5s)"}, s.Issues)

	page.LoadTimeMs = 4001
	s = e.Evaluate(crawlOf(page))
	require.Equal(t, 70, s.Score)
	require.Equal(t, []string{"Poor LCP performance (should be ≤ 2.5s)"}, s.Issues)
	require.False(t, s.BaselinePass)
}

func TestSEOMessages(t *testing.T) {
	t.Parallel()

	page := compliantPage()
	page.Title = "Short"
	page.MetaDescription = "Too short"
	page.Headings = append(page.Headings, baseline.Heading{Level: 1})
	page.Canonical = ""

	s := SEO{Weights: DefaultRubric().SEO, Cutoff: 80}.Evaluate(crawlOf(page))
	require.Equal(t, []string{
		"Title length should be 30-60 characters (current: 5)",
		"Meta description should be 120-160 characters (current: 9)",
		"Should have exactly one H1 tag (current: 2)",
		"Consider adding canonical URL",
	}, s.Issues)
	require.Equal(t, 100-15-10-15-5, s.Score)
	require.Equal(t, "C-", s.Grade)
}

func TestSecurityPlainHTTP(t *testing.T) {
	t.Parallel()

	page := compliantPage()
	page.URL = "http://example.com/"
	page.FinalURL = "http://example.com/"
	page.Headers.StrictTransportSecurity = ""

	s := Security{Weights: DefaultRubric().Security, Cutoff: 80}.Evaluate(crawlOf(page))
	require.Equal(t, 45, s.Score)
	require.Equal(t, []string{
		"HTTPS is required for Baseline 2024 compliance",
		"Missing HSTS header",
	}, s.Issues)
	d := s.Details.(SecurityDetails)
	require.False(t, d.HTTPS)
	require.Equal(t, 1, d.FormsSecure)
}

func TestModernWebLazyLoadingRule(t *testing.T) {
	t.Parallel()

	e := ModernWeb{Weights: DefaultRubric().ModernWeb, Cutoff: 75}
	page := compliantPage()
	page.Images = nil
	for i := 0; i < 6; i++ {
		loading := "eager"
		if i < 2 {
			loading = "lazy"
		}
		page.Images = append(page.Images, baseline.Image{Src: "i.png", HasAlt: true, Loading: loading})
	}
	s := e.Evaluate(crawlOf(page))
	require.Equal(t, 85, s.Score)
	require.Equal(t, []string{"Consider lazy loading for images"}, s.Issues)

	page.Images[2].Loading = "lazy"
	require.Equal(t, 100, e.Evaluate(crawlOf(page)).Score)

	page.Viewport = "initial-scale=1"
	page.SemanticElements = []string{"main", "nav"}
	s = e.Evaluate(crawlOf(page))
	require.Equal(t, 60, s.Score)
	require.False(t, s.BaselinePass)
}

func TestEvaluatorsAreIdempotent(t *testing.T) {
	t.Parallel()

	crawl := crawlOf(compliantPage())
	crawl.Pages[0].Title = "x"
	for _, e := range All(DefaultRubric()) {
		require.Equal(t, e.Evaluate(crawl), e.Evaluate(crawl), e.Category())
	}
}

func TestRubricIsConfigurable(t *testing.T) {
	t.Parallel()

	r := DefaultRubric()
	r.Security.HTTPS = 70
	r.Cutoffs.Security = 10

	page := compliantPage()
	page.FinalURL = "http://example.com/"
	s := Security{Weights: r.Security, Cutoff: r.Cutoffs.Security}.Evaluate(crawlOf(page))
	require.Equal(t, 30, s.Score)
	require.True(t, s.BaselinePass)
}
