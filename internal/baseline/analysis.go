package baseline

import "time"

// Category names one of the five scored areas.
type Category string

// Scored categories.
const (
	CategoryPerformance   Category = "performance"
	CategorySEO           Category = "seo"
	CategoryAccessibility Category = "accessibility"
	CategorySecurity      Category = "security"
	CategoryModernWeb     Category = "modern-web"
)

// Categories lists every scored category in report order.
func Categories() []Category {
	return []Category{
		CategoryPerformance,
		CategorySEO,
		CategoryAccessibility,
		CategorySecurity,
		CategoryModernWeb,
	}
}

// NoPageDataIssue is the single issue reported when nothing was crawled.
const NoPageDataIssue = "No page data available"

// CategoryScore is the result of one evaluator, optionally merged with the
// external audit's score for the same category.
type CategoryScore struct {
	Category     Category       `json:"category"`
	Score        int            `json:"score"`
	Grade        string         `json:"grade"`
	Issues       []string       `json:"issues"`
	BaselinePass bool           `json:"baselinePass"`
	Details      any            `json:"details,omitempty"`
	CrawlerScore int            `json:"crawlerScore"`
	AuditScore   *int           `json:"auditScore,omitempty"`
	Audit        *AuditCategory `json:"audit,omitempty"`
}

// FeatureCategory classifies a catalog feature by the area its spec covers.
type FeatureCategory string

// Feature categories.
const (
	FeatureCSS        FeatureCategory = "css"
	FeatureJavaScript FeatureCategory = "javascript"
	FeatureHTML       FeatureCategory = "html"
	FeatureWebAPI     FeatureCategory = "webapi"
	FeatureSecurity   FeatureCategory = "security"
)

// FeatureVerdict classifies one catalog feature for one analyzed site.
type FeatureVerdict struct {
	FeatureID   string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    FeatureCategory `json:"category"`
	Supported   bool            `json:"supported"`
	Evidence    []string        `json:"evidence,omitempty"`
	Impact      string          `json:"impact,omitempty"`
}

// FeaturePartition is the outcome for one dated catalog subset.
type FeaturePartition struct {
	Year      int              `json:"year"`
	Supported []FeatureVerdict `json:"supported"`
	Missing   []FeatureVerdict `json:"missing"`
	Total     int              `json:"total"`
	Score     int              `json:"score"`
}

// FeatureCategoryBreakdown splits the 2024 partition verdicts by category.
type FeatureCategoryBreakdown struct {
	Supported []string `json:"supported"`
	Missing   []string `json:"missing"`
}

// FeatureReport is the outcome of the feature matcher.
type FeatureReport struct {
	Baseline2024 FeaturePartition                             `json:"baseline2024"`
	Baseline2025 FeaturePartition                             `json:"baseline2025"`
	Categories   map[FeatureCategory]FeatureCategoryBreakdown `json:"categories"`
	Score        int                                          `json:"score"`
	Grade        string                                       `json:"grade"`
	Compliance   string                                       `json:"compliance"`
}

// Priority orders recommendations.
type Priority string

// Recommendation priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns a sortable weight, higher first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Recommendation is one actionable improvement.
type Recommendation struct {
	Priority    Priority `json:"priority"`
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Impact      string   `json:"impact"`
}

// Badge is the certification level derived from a score.
type Badge struct {
	Level string `json:"level"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Overall is the aggregate verdict of an analysis.
type Overall struct {
	Score         int    `json:"score"`
	CategoryScore int    `json:"categoryScore"`
	Grade         string `json:"grade"`
	Compliance    string `json:"compliance"`
	Badge         Badge  `json:"badge"`
}

// SiteInfo captures what was learned about the target before scoring.
type SiteInfo struct {
	Reachable      bool   `json:"reachable"`
	StatusCode     int    `json:"statusCode,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	Title          string `json:"title,omitempty"`
	Error          string `json:"error,omitempty"`
}

// TechnicalDetails summarizes the crawl for reports.
type TechnicalDetails struct {
	PagesCrawled     int            `json:"pagesCrawled"`
	TotalLinks       int            `json:"totalLinks"`
	InternalLinks    int            `json:"internalLinks"`
	ExternalLinks    int            `json:"externalLinks"`
	HeadingStructure map[string]int `json:"headingStructure"`
	Scripts          int            `json:"scripts"`
	Stylesheets      int            `json:"stylesheets"`
	Images           int            `json:"images"`
	Errors           []FetchFailure `json:"errors"`
}

// AuditSummary records where the audit scores came from.
type AuditSummary struct {
	Source   string `json:"source"`
	Fallback bool   `json:"fallback"`
	Score    int    `json:"score"`
	Grade    string `json:"grade"`
}

// AnalysisResult is the root aggregate returned by the orchestrator.
type AnalysisResult struct {
	ID              string           `json:"id"`
	URL             string           `json:"url"`
	Timestamp       time.Time        `json:"timestamp"`
	Limited         bool             `json:"limited"`
	Site            SiteInfo         `json:"site"`
	Performance     CategoryScore    `json:"performance"`
	SEO             CategoryScore    `json:"seo"`
	Accessibility   CategoryScore    `json:"accessibility"`
	Security        CategoryScore    `json:"security"`
	ModernWeb       CategoryScore    `json:"modernWeb"`
	Features        *FeatureReport   `json:"features,omitempty"`
	Audit           *AuditSummary    `json:"audit,omitempty"`
	Overall         Overall          `json:"overall"`
	Recommendations []Recommendation `json:"recommendations"`
	Technical       TechnicalDetails `json:"technicalDetails"`
}

// Category returns the score for c.
func (a *AnalysisResult) Category(c Category) *CategoryScore {
	switch c {
	case CategoryPerformance:
		return &a.Performance
	case CategorySEO:
		return &a.SEO
	case CategoryAccessibility:
		return &a.Accessibility
	case CategorySecurity:
		return &a.Security
	case CategoryModernWeb:
		return &a.ModernWeb
	default:
		return nil
	}
}

// CategoryScores returns the five scores in report order.
func (a AnalysisResult) CategoryScores() []CategoryScore {
	return []CategoryScore{a.Performance, a.SEO, a.Accessibility, a.Security, a.ModernWeb}
}

// AnalysisSummary is the listing view of a stored analysis.
type AnalysisSummary struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Timestamp  time.Time `json:"timestamp"`
	Score      int       `json:"score"`
	Grade      string    `json:"grade"`
	Compliance string    `json:"compliance"`
	Limited    bool      `json:"limited"`
}

// Summary projects the result into its listing view.
func (a AnalysisResult) Summary() AnalysisSummary {
	return AnalysisSummary{
		ID:         a.ID,
		URL:        a.URL,
		Timestamp:  a.Timestamp,
		Score:      a.Overall.Score,
		Grade:      a.Overall.Grade,
		Compliance: a.Overall.Compliance,
		Limited:    a.Limited,
	}
}
