package evaluate

import (
	"unicode/utf8"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Optimal ranges of the SEO rubric, in characters.
const (
	TitleMin       = 30
	TitleMax       = 60
	DescriptionMin = 120
	DescriptionMax = 160
	SEOAltTarget   = 90.0
)

// SEODetails are the sub-metrics behind an SEO score.
type SEODetails struct {
	TitleLength            int     `json:"titleLength"`
	TitleOptimal           bool    `json:"titleOptimal"`
	HasMetaDescription     bool    `json:"hasMetaDescription"`
	MetaDescriptionLength  int     `json:"metaDescriptionLength"`
	MetaDescriptionOptimal bool    `json:"metaDescriptionOptimal"`
	H1Count                int     `json:"h1Count"`
	ImagesTotal            int     `json:"imagesTotal"`
	ImagesWithoutAlt       int     `json:"imagesWithoutAlt"`
	AltCoverage            float64 `json:"altCoverage"`
	HasViewport            bool    `json:"hasViewport"`
	HasCanonical           bool    `json:"hasCanonical"`
	HasRobotsMeta          bool    `json:"hasRobotsMeta"`
}

// SEO scores on-page search metadata.
type SEO struct {
	Weights SEOWeights
	Cutoff  int
}

// Category implements Evaluator.
func (SEO) Category() baseline.Category { return baseline.CategorySEO }

// Evaluate implements Evaluator.
func (e SEO) Evaluate(crawl baseline.CrawlResult) baseline.CategoryScore {
	page, ok := crawl.Entry()
	if !ok {
		return noData(baseline.CategorySEO)
	}

	var t tally
	titleLen := utf8.RuneCountInString(page.Title)
	titleOptimal := titleLen >= TitleMin && titleLen <= TitleMax
	if !titleOptimal {
		t.fail(e.Weights.TitleLength, "Title length should be 30-60 characters (current: %d)", titleLen)
	}

	descLen := utf8.RuneCountInString(page.MetaDescription)
	hasDesc := descLen > 0
	descOptimal := descLen >= DescriptionMin && descLen <= DescriptionMax
	switch {
	case !hasDesc:
		t.fail(e.Weights.MissingDescription, "Missing meta description")
	case !descOptimal:
		t.fail(e.Weights.DescriptionLength, "Meta description should be 120-160 characters (current: %d)", descLen)
	}

	h1 := page.CountHeadings(1)
	if h1 != 1 {
		t.fail(e.Weights.H1Count, "Should have exactly one H1 tag (current: %d)", h1)
	}

	withAlt, total, pct := altCoverage(page)
	if pct < SEOAltTarget {
		t.fail(e.Weights.AltCoverage, "Alt text coverage too low: %.1f%% (should be ≥90%%)", pct)
	}
	if !page.HasViewport {
		t.fail(e.Weights.MissingViewport, "Missing viewport meta tag")
	}
	hasCanonical := page.Canonical != ""
	if !hasCanonical {
		t.fail(e.Weights.MissingCanonical, "Consider adding canonical URL")
	}

	return t.score(baseline.CategorySEO, e.Cutoff, SEODetails{
		TitleLength:            titleLen,
		TitleOptimal:           titleOptimal,
		HasMetaDescription:     hasDesc,
		MetaDescriptionLength:  descLen,
		MetaDescriptionOptimal: descOptimal,
		H1Count:                h1,
		ImagesTotal:            total,
		ImagesWithoutAlt:       total - withAlt,
		AltCoverage:            pct,
		HasViewport:            page.HasViewport,
		HasCanonical:           hasCanonical,
		HasRobotsMeta:          page.HasRobotsMeta,
	})
}
