package evaluate

import (
	"strings"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Thresholds of the modern-web rubric.
const (
	MinSemanticElements  = 3
	LazyLoadingMinImages = 5
)

// ModernWebDetails are the sub-metrics behind a modern-web score.
type ModernWebDetails struct {
	HasViewport      bool     `json:"hasViewport"`
	ViewportOptimal  bool     `json:"viewportOptimal"`
	SemanticElements []string `json:"semanticElements"`
	SemanticHTML     bool     `json:"semanticHtml"`
	ModernCSS        bool     `json:"modernCss"`
	ImagesTotal      int      `json:"imagesTotal"`
	LazyImages       int      `json:"lazyImages"`
	LCPRating        string   `json:"lcpRating"`
}

// ModernWeb scores adoption of current platform conventions.
type ModernWeb struct {
	Weights ModernWebWeights
	Cutoff  int
}

// Category implements Evaluator.
func (ModernWeb) Category() baseline.Category { return baseline.CategoryModernWeb }

// Evaluate implements Evaluator.
func (e ModernWeb) Evaluate(crawl baseline.CrawlResult) baseline.CategoryScore {
	page, ok := crawl.Entry()
	if !ok {
		return noData(baseline.CategoryModernWeb)
	}

	var t tally
	optimal := page.HasViewport && strings.Contains(page.Viewport, "width=device-width")
	if !optimal {
		t.fail(e.Weights.Viewport, "Missing or suboptimal viewport meta tag")
	}

	semantic := page.SemanticElements
	if semantic == nil {
		semantic = []string{}
	}
	semanticOK := len(semantic) >= MinSemanticElements
	if !semanticOK {
		t.fail(e.Weights.SemanticHTML, "Use more semantic HTML elements")
	}

	modernCSS := len(page.Stylesheets) > 0
	if !modernCSS {
		t.fail(e.Weights.ModernCSS, "Consider using modern CSS features")
	}

	lazy := 0
	for _, img := range page.Images {
		if img.Loading == "lazy" {
			lazy++
		}
	}
	if len(page.Images) > LazyLoadingMinImages && lazy*2 < len(page.Images) {
		t.fail(e.Weights.LazyLoading, "Consider lazy loading for images")
	}

	return t.score(baseline.CategoryModernWeb, e.Cutoff, ModernWebDetails{
		HasViewport:      page.HasViewport,
		ViewportOptimal:  optimal,
		SemanticElements: semantic,
		SemanticHTML:     semanticOK,
		ModernCSS:        modernCSS,
		ImagesTotal:      len(page.Images),
		LazyImages:       lazy,
		LCPRating:        LCPRating(page.LoadTimeMs),
	})
}
