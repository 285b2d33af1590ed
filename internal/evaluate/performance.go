package evaluate

import (
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Load-time bands and resource budgets of the performance rubric.
const (
	LCPGoodMs         = 2500
	LCPNeedsWorkMs    = 4000
	MaxScripts        = 10
	MaxStylesheets    = 5
	lcpEstimateFactor = 1.2
	NotMeasured       = "not measured"
	ratingGood        = "good"
	ratingNeedsWork   = "needs-improvement"
	ratingPoor        = "poor"
)

// PerformanceDetails are the sub-metrics behind a performance score.
type PerformanceDetails struct {
	LoadTimeMs        int64  `json:"loadTimeMs"`
	LCPEstimateMs     int64  `json:"lcpEstimateMs"`
	LCPRating         string `json:"lcpRating"`
	FID               string `json:"fid"`
	CLS               string `json:"cls"`
	ScriptCount       int    `json:"scriptCount"`
	StylesheetCount   int    `json:"stylesheetCount"`
	ImageCount        int    `json:"imageCount"`
	LazyImages        int    `json:"lazyImages"`
	ResponseSizeBytes int64  `json:"responseSizeBytes"`
	Compression       bool   `json:"compression"`
	CacheHeaders      bool   `json:"cacheHeaders"`
}

// Performance scores load time and resource hygiene.
type Performance struct {
	Weights PerformanceWeights
	Cutoff  int
}

// Category implements Evaluator.
func (Performance) Category() baseline.Category { return baseline.CategoryPerformance }

// Evaluate implements Evaluator.
func (e Performance) Evaluate(crawl baseline.CrawlResult) baseline.CategoryScore {
	page, ok := crawl.Entry()
	if !ok {
		return noData(baseline.CategoryPerformance)
	}

	var t tally
	rating := LCPRating(page.LoadTimeMs)
	switch rating {
	case ratingNeedsWork:
		t.fail(e.Weights.LCPNeedsImprovement, "LCP needs improvement (should be ≤ 2.5s)")
	case ratingPoor:
		t.fail(e.Weights.LCPPoor, "Poor LCP performance (should be ≤ 2.5s)")
	}
	if len(page.Scripts) > MaxScripts {
		t.fail(e.Weights.TooManyScripts, "Too many JavaScript files - consider bundling")
	}
	if len(page.Stylesheets) > MaxStylesheets {
		t.fail(e.Weights.TooManyStylesheets, "Too many CSS files - consider combining")
	}
	compressed := page.Headers.ContentEncoding != ""
	if !compressed {
		t.fail(e.Weights.NoCompression, "Enable gzip/brotli compression")
	}
	cached := page.Headers.CacheControl != ""
	if !cached {
		t.fail(e.Weights.NoCacheHeaders, "Add proper cache headers")
	}

	lazy := 0
	for _, img := range page.Images {
		if img.Loading == "lazy" {
			lazy++
		}
	}
	size := page.Headers.ContentLength
	if size == 0 {
		size = int64(page.ContentLength)
	}

	return t.score(baseline.CategoryPerformance, e.Cutoff, PerformanceDetails{
		LoadTimeMs:        page.LoadTimeMs,
		LCPEstimateMs:     int64(float64(page.LoadTimeMs) * lcpEstimateFactor),
		LCPRating:         rating,
		FID:               NotMeasured,
		CLS:               NotMeasured,
		ScriptCount:       len(page.Scripts),
		StylesheetCount:   len(page.Stylesheets),
		ImageCount:        len(page.Images),
		LazyImages:        lazy,
		ResponseSizeBytes: size,
		Compression:       compressed,
		CacheHeaders:      cached,
	})
}

// LCPRating buckets a load time into the Core Web Vitals LCP bands.
func LCPRating(loadTimeMs int64) string {
	switch {
	case loadTimeMs <= LCPGoodMs:
		return ratingGood
	case loadTimeMs <= LCPNeedsWorkMs:
		return ratingNeedsWork
	default:
		return ratingPoor
	}
}
