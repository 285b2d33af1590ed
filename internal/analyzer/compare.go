package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// ScoreRange is the spread of one score across compared sites.
type ScoreRange struct {
	Min   int `json:"min"`
	Max   int `json:"max"`
	Range int `json:"range"`
}

// SiteSupport is one site's verdict for a feature.
type SiteSupport struct {
	URL       string   `json:"url"`
	Supported bool     `json:"supported"`
	Evidence  []string `json:"evidence,omitempty"`
}

// FeatureAdoption is how many compared sites use a catalog feature.
type FeatureAdoption struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Category     baseline.FeatureCategory `json:"category"`
	Year         int                      `json:"year"`
	Adopters     int                      `json:"adopters"`
	AdoptionRate int                      `json:"adoptionRate"`
	Sites        []SiteSupport            `json:"sites"`
}

// Insight is an observation about the compared set as a whole.
type Insight struct {
	Type           string            `json:"type"`
	Level          baseline.Priority `json:"level"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Recommendation string            `json:"recommendation"`
}

// ComparisonRecommendation is advice derived from the whole comparison.
type ComparisonRecommendation struct {
	Priority    baseline.Priority `json:"priority"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ActionItems []string          `json:"actionItems"`
}

// Score keys shared by ranges and common-issue detection.
const (
	keyOverall       = "overall"
	keyPerformance   = "performance"
	keySEO           = "seo"
	keyAccessibility = "accessibility"
	keySecurity      = "security"
	keyBaseline2024  = "baseline2024"
)

var rangeKeys = []string{keyOverall, keyPerformance, keySEO, keyAccessibility, keySecurity, keyBaseline2024}

func scoreOf(s SiteScores, key string) int {
	switch key {
	case keyOverall:
		return s.Overall
	case keyPerformance:
		return s.Performance
	case keySEO:
		return s.SEO
	case keyAccessibility:
		return s.Accessibility
	case keySecurity:
		return s.Security
	case keyBaseline2024:
		return s.Baseline2024
	default:
		return 0
	}
}

func scoreRanges(sites []SiteScores) map[string]ScoreRange {
	out := make(map[string]ScoreRange, len(rangeKeys))
	for _, key := range rangeKeys {
		r := ScoreRange{Min: math.MaxInt, Max: math.MinInt}
		for _, s := range sites {
			v := scoreOf(s, key)
			r.Min = min(r.Min, v)
			r.Max = max(r.Max, v)
		}
		r.Range = r.Max - r.Min
		out[key] = r
	}
	return out
}

// complianceDistribution counts badge levels awarded on the 2024 feature
// score. Every level is present so consumers can chart zeros.
func complianceDistribution(sites []SiteScores) map[string]int {
	out := map[string]int{"platinum": 0, "gold": 0, "silver": 0, "bronze": 0, "none": 0}
	for _, s := range sites {
		out[baseline.BadgeFor(s.Baseline2024).Level]++
	}
	return out
}

// featureAdoption builds a matrix over every feature any site was checked
// against, ordered by adoption then id.
func featureAdoption(results []baseline.AnalysisResult) []FeatureAdoption {
	byID := map[string]*FeatureAdoption{}
	var order []string
	for _, r := range results {
		if r.Features == nil {
			continue
		}
		seen := map[string]bool{}
		for _, p := range []baseline.FeaturePartition{r.Features.Baseline2024, r.Features.Baseline2025} {
			for _, v := range append(append([]baseline.FeatureVerdict(nil), p.Supported...), p.Missing...) {
				if seen[v.FeatureID] {
					continue
				}
				seen[v.FeatureID] = true
				fa, ok := byID[v.FeatureID]
				if !ok {
					fa = &FeatureAdoption{ID: v.FeatureID, Name: v.Name, Category: v.Category, Year: p.Year}
					byID[v.FeatureID] = fa
					order = append(order, v.FeatureID)
				}
				fa.Sites = append(fa.Sites, SiteSupport{URL: r.URL, Supported: v.Supported, Evidence: v.Evidence})
				if v.Supported {
					fa.Adopters++
				}
			}
		}
	}
	if len(order) == 0 {
		return nil
	}

	n := float64(len(results))
	out := make([]FeatureAdoption, 0, len(order))
	for _, id := range order {
		fa := byID[id]
		fa.AdoptionRate = baseline.RoundDiv(100*float64(fa.Adopters), n)
		out = append(out, *fa)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AdoptionRate != out[j].AdoptionRate {
			return out[i].AdoptionRate > out[j].AdoptionRate
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// missingOpportunities lists features absent from at least half the sites,
// most widely missing first.
func missingOpportunities(adoption []FeatureAdoption, sites int) []FeatureAdoption {
	var out []FeatureAdoption
	for _, fa := range adoption {
		if 2*(sites-fa.Adopters) >= sites {
			out = append(out, fa)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Adopters < out[j].Adopters })
	return out
}

func insights(c Comparison) []Insight {
	var out []Insight
	if r := c.ScoreRanges[keyPerformance]; r.Range > 30 {
		out = append(out, Insight{
			Type:           "performance",
			Level:          baseline.PriorityHigh,
			Title:          "Significant Performance Gap",
			Description:    fmt.Sprintf("Performance scores vary by %d points, indicating major optimization opportunities", r.Range),
			Recommendation: "Focus on performance optimization for lower-scoring sites",
		})
	}
	if len(c.FeatureAdoption) > 0 && c.Averages.Baseline2024 < 70 {
		out = append(out, Insight{
			Type:           "baseline",
			Level:          baseline.PriorityHigh,
			Title:          "Low Baseline Compliance",
			Description:    fmt.Sprintf("Average Baseline 2024 compliance is %d%%", c.Averages.Baseline2024),
			Recommendation: "Prioritize adoption of widely supported web platform features",
		})
	}
	insecure := 0
	for _, s := range c.Sites {
		if s.Security < 70 {
			insecure++
		}
	}
	if insecure > 0 {
		out = append(out, Insight{
			Type:           "security",
			Level:          baseline.PriorityHigh,
			Title:          "Security Vulnerabilities",
			Description:    fmt.Sprintf("%d out of %d sites have security scores below 70", insecure, len(c.Sites)),
			Recommendation: "Implement security headers and HTTPS across all sites",
		})
	}
	if c.Averages.Accessibility < 80 {
		out = append(out, Insight{
			Type:           "accessibility",
			Level:          baseline.PriorityMedium,
			Title:          "Accessibility Improvements Needed",
			Description:    fmt.Sprintf("Average accessibility score is %d", c.Averages.Accessibility),
			Recommendation: "Conduct accessibility audits and implement WCAG guidelines",
		})
	}
	return out
}

var commonIssueActions = map[string][]string{
	keyPerformance:   {"Optimize images and enable lazy loading", "Minify and bundle CSS and JavaScript", "Enable compression and caching headers"},
	keySEO:           {"Add unique titles and meta descriptions", "Fix heading structure", "Add structured data"},
	keyAccessibility: {"Add alt text to images", "Label every form control", "Declare the document language"},
	keySecurity:      {"Serve every page over HTTPS", "Add a Content-Security-Policy", "Enable HSTS"},
	keyBaseline2024:  {"Adopt CSS Grid and Flexbox layouts", "Use ES modules", "Serve modern image formats"},
}

var featureSteps = map[string][]string{
	"css-grid":              {"Identify layouts built on floats or tables", "Rebuild them with grid-template-areas"},
	"css-flexbox":           {"Replace inline-block alignment hacks", "Use flex containers for navigation and cards"},
	"service-workers":       {"Register a service worker", "Cache the application shell for offline use"},
	"webp":                  {"Convert large images to WebP", "Serve them through picture elements with fallbacks"},
	"http2":                 {"Enable HTTP/2 on the web server or CDN", "Drop domain sharding"},
	"intersection-observer": {"Replace scroll listeners with IntersectionObserver", "Lazy load below-the-fold media"},
}

var featureOrder = []string{"css-grid", "css-flexbox", "service-workers", "webp", "http2", "intersection-observer"}

func comparisonRecommendations(c Comparison) []ComparisonRecommendation {
	var out []ComparisonRecommendation

	if c.Best.URL != c.Worst.URL {
		var actions []string
		if d := c.Best.Performance - c.Worst.Performance; d > 20 {
			actions = append(actions, fmt.Sprintf("Close the %d point performance gap with %s", d, c.Best.URL))
		}
		if d := c.Best.Baseline2024 - c.Worst.Baseline2024; d > 15 {
			actions = append(actions, fmt.Sprintf("Adopt the modern features %s already uses", c.Best.URL))
		}
		if d := c.Best.Security - c.Worst.Security; d > 15 {
			actions = append(actions, fmt.Sprintf("Match the security headers of %s", c.Best.URL))
		}
		if len(actions) > 0 {
			out = append(out, ComparisonRecommendation{
				Priority:    baseline.PriorityHigh,
				Type:        "benchmarking",
				Title:       "Learn from Best Performer",
				Description: fmt.Sprintf("%s leads with an overall score of %d", c.Best.URL, c.Best.Overall),
				ActionItems: actions,
			})
		}
	}

	n := len(c.Sites)
	half, most := ceilShare(n, 50), ceilShare(n, 80)
	for _, key := range rangeKeys[1:] {
		if key == keyBaseline2024 && len(c.FeatureAdoption) == 0 {
			continue
		}
		failing := 0
		for _, s := range c.Sites {
			if scoreOf(s, key) < 70 {
				failing++
			}
		}
		if failing < half {
			continue
		}
		priority := baseline.PriorityMedium
		if failing >= most {
			priority = baseline.PriorityHigh
		}
		out = append(out, ComparisonRecommendation{
			Priority:    priority,
			Type:        "common-issue",
			Title:       fmt.Sprintf("Common %s Issues", categoryTitle(key)),
			Description: fmt.Sprintf("%d of %d sites score below 70 for %s", failing, n, categoryTitle(key)),
			ActionItems: commonIssueActions[key],
		})
	}

	rates := map[string]FeatureAdoption{}
	for _, fa := range c.FeatureAdoption {
		rates[fa.ID] = fa
	}
	for _, id := range featureOrder {
		fa, ok := rates[id]
		if !ok || fa.AdoptionRate >= 80 {
			continue
		}
		out = append(out, ComparisonRecommendation{
			Priority:    baseline.PriorityMedium,
			Type:        "feature-opportunity",
			Title:       "Adopt " + fa.Name,
			Description: fmt.Sprintf("Only %d%% of compared sites use %s", fa.AdoptionRate, fa.Name),
			ActionItems: featureSteps[id],
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority.Rank() > out[j].Priority.Rank() })
	return out
}

func ceilShare(n, percent int) int {
	return (n*percent + 99) / 100
}

func categoryTitle(key string) string {
	switch key {
	case keySEO:
		return "SEO"
	case keyBaseline2024:
		return "Baseline 2024"
	default:
		return strings.ToUpper(key[:1]) + key[1:]
	}
}
