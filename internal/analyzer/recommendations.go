package analyzer

import (
	"sort"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

type rule struct {
	category baseline.Category
	below    int
	rec      baseline.Recommendation
}

var rules = []rule{
	{baseline.CategorySecurity, 70, baseline.Recommendation{
		Priority:    baseline.PriorityHigh,
		Category:    "Security",
		Title:       "Implement HTTPS and Security Headers",
		Description: "Enable HTTPS, HSTS, CSP, and other security headers for Baseline 2024 compliance",
		Impact:      "Critical for user trust and search rankings",
	}},
	{baseline.CategoryPerformance, 70, baseline.Recommendation{
		Priority:    baseline.PriorityHigh,
		Category:    "Performance",
		Title:       "Optimize Core Web Vitals",
		Description: "Improve LCP, FID, and CLS metrics to meet Google Baseline standards",
		Impact:      "Direct impact on user experience and SEO",
	}},
	{baseline.CategoryAccessibility, 80, baseline.Recommendation{
		Priority:    baseline.PriorityMedium,
		Category:    "Accessibility",
		Title:       "Improve Accessibility Compliance",
		Description: "Add alt text, proper labels, and semantic HTML for WCAG 2.1 AA compliance",
		Impact:      "Better user experience for all users",
	}},
	{baseline.CategorySEO, 80, baseline.Recommendation{
		Priority:    baseline.PriorityMedium,
		Category:    "SEO",
		Title:       "Optimize SEO Elements",
		Description: "Improve title tags, meta descriptions, and heading structure",
		Impact:      "Better search engine visibility",
	}},
	{baseline.CategoryModernWeb, 85, baseline.Recommendation{
		Priority:    baseline.PriorityLow,
		Category:    "Modern Web",
		Title:       "Adopt Modern Web Standards",
		Description: "Use semantic HTML, modern CSS, and progressive enhancement",
		Impact:      "Future-proof your website",
	}},
}

// Recommend lists one recommendation per category below its cutoff, high
// priority first. Ties keep rule order.
func Recommend(result baseline.AnalysisResult) []baseline.Recommendation {
	out := []baseline.Recommendation{}
	for _, r := range rules {
		if result.Category(r.category).Score < r.below {
			out = append(out, r.rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() > out[j].Priority.Rank()
	})
	return out
}
