package report

import (
	"sort"
	"strings"
	"time"

	"github.com/JakeFAU/baseline-analyzer/internal/audit"
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
	"github.com/JakeFAU/baseline-analyzer/internal/evaluate"
)

// Summary heads the detailed report.
type Summary struct {
	URL          string    `json:"url"`
	OverallScore int       `json:"overallScore"`
	Grade        string    `json:"grade"`
	Compliance   string    `json:"compliance"`
	Limited      bool      `json:"limited"`
	AnalyzedAt   time.Time `json:"analyzedAt"`
}

// Scores lists every headline number.
type Scores struct {
	Performance   int  `json:"performance"`
	SEO           int  `json:"seo"`
	Accessibility int  `json:"accessibility"`
	Security      int  `json:"security"`
	ModernWeb     int  `json:"modernWeb"`
	Baseline2024  *int `json:"baseline2024,omitempty"`
	Baseline2025  *int `json:"baseline2025,omitempty"`
}

// FeatureSection is the feature-matcher part of the detailed report.
type FeatureSection struct {
	Compliance2024 baseline.FeaturePartition `json:"compliance2024"`
	Compliance2025 baseline.FeaturePartition `json:"compliance2025"`
	Score          int                       `json:"score"`
	Compliance     string                    `json:"compliance"`
	Badge          baseline.Badge            `json:"badge"`
}

// Detailed is the full report.
type Detailed struct {
	Summary         Summary                   `json:"summary"`
	Scores          Scores                    `json:"scores"`
	Badge           baseline.Badge            `json:"badge"`
	Features        *FeatureSection           `json:"baseline,omitempty"`
	Categories      []baseline.CategoryScore  `json:"categories"`
	Audit           *baseline.AuditSummary    `json:"audit,omitempty"`
	Recommendations []baseline.Recommendation `json:"recommendations"`
	Technical       baseline.TechnicalDetails `json:"technicalDetails"`
}

// ExecutiveSummary is the headline block of the executive report.
type ExecutiveSummary struct {
	WebsiteURL         string                    `json:"websiteUrl"`
	OverallScore       int                       `json:"overallScore"`
	OverallGrade       string                    `json:"overallGrade"`
	ComplianceLevel    string                    `json:"complianceLevel"`
	KeyFindings        []string                  `json:"keyFindings"`
	BusinessImpact     []string                  `json:"businessImpact"`
	RecommendedActions []baseline.Recommendation `json:"recommendedActions"`
}

// PerformanceOverview summarizes user-facing speed.
type PerformanceOverview struct {
	Score                int    `json:"score"`
	UserExperienceImpact string `json:"userExperienceImpact"`
	CoreWebVitalsStatus  string `json:"coreWebVitalsStatus"`
}

// ComplianceOverview summarizes feature adoption.
type ComplianceOverview struct {
	Baseline2024Score    int    `json:"baseline2024Score"`
	SupportedFeatures    int    `json:"modernWebStandards"`
	MissingFeatures      int    `json:"missingFeatures"`
	CompetitiveAdvantage string `json:"competitiveAdvantage"`
}

// RiskAssessment lists risk statements per area.
type RiskAssessment struct {
	Security      []string `json:"securityRisks"`
	Accessibility []string `json:"accessibilityRisks"`
	SEO           []string `json:"seoRisks"`
}

// Executive is the short management report.
type Executive struct {
	Summary     ExecutiveSummary    `json:"executiveSummary"`
	Performance PerformanceOverview `json:"performanceOverview"`
	Compliance  ComplianceOverview  `json:"complianceOverview"`
	Risks       RiskAssessment      `json:"riskAssessment"`
}

// Certificate is the compliance certificate block.
type Certificate struct {
	WebsiteURL         string         `json:"websiteUrl"`
	CertificationLevel string         `json:"certificationLevel"`
	IssuedDate         time.Time      `json:"issuedDate"`
	ValidUntil         time.Time      `json:"validUntil"`
	Badge              baseline.Badge `json:"badge"`
}

// PartitionCompliance is one dated partition in the compliance report.
type PartitionCompliance struct {
	Score             int                       `json:"score"`
	TotalFeatures     int                       `json:"totalFeatures"`
	SupportedFeatures []baseline.FeatureVerdict `json:"supportedFeatures"`
	MissingFeatures   []baseline.FeatureVerdict `json:"missingFeatures"`
}

// CategoryCompliance is the adoption ratio of one feature category.
type CategoryCompliance struct {
	Score     int `json:"score"`
	Supported int `json:"supported"`
	Missing   int `json:"missing"`
	Total     int `json:"total"`
}

// Gap is a feature category with missing features.
type Gap struct {
	Category         baseline.FeatureCategory  `json:"category"`
	MissingCount     int                       `json:"missingCount"`
	CriticalFeatures []baseline.FeatureVerdict `json:"criticalFeatures"`
}

// Phase is one step of the improvement plan.
type Phase struct {
	Phase       string                    `json:"phase"`
	Priority    string                    `json:"priority"`
	Features    []baseline.FeatureVerdict `json:"features"`
	Description string                    `json:"description"`
}

// Compliance is the certification report.
type Compliance struct {
	Certificate     Certificate                                     `json:"complianceCertificate"`
	Baseline2024    PartitionCompliance                             `json:"baseline2024"`
	Baseline2025    PartitionCompliance                             `json:"baseline2025"`
	Categories      map[baseline.FeatureCategory]CategoryCompliance `json:"categoryCompliance"`
	Gaps            []Gap                                           `json:"complianceGaps"`
	ImprovementPlan []Phase                                         `json:"improvementPlan"`
}

const (
	maxTopActions      = 5
	maxCriticalPerGap  = 3
	maxPlanFeatures    = 5
	impactHigh         = "high"
	strongAdoptionMin  = 80
	riskScoreThreshold = 70
)

var featureCategoryOrder = []baseline.FeatureCategory{
	baseline.FeatureCSS,
	baseline.FeatureJavaScript,
	baseline.FeatureHTML,
	baseline.FeatureWebAPI,
	baseline.FeatureSecurity,
}

func detailed(r baseline.AnalysisResult) Detailed {
	d := Detailed{
		Summary: Summary{
			URL:          r.URL,
			OverallScore: r.Overall.Score,
			Grade:        r.Overall.Grade,
			Compliance:   r.Overall.Compliance,
			Limited:      r.Limited,
			AnalyzedAt:   r.Timestamp,
		},
		Scores: Scores{
			Performance:   r.Performance.Score,
			SEO:           r.SEO.Score,
			Accessibility: r.Accessibility.Score,
			Security:      r.Security.Score,
			ModernWeb:     r.ModernWeb.Score,
		},
		Badge:           r.Overall.Badge,
		Categories:      r.CategoryScores(),
		Audit:           r.Audit,
		Recommendations: nonNil(r.Recommendations),
		Technical:       r.Technical,
	}
	if f := r.Features; f != nil {
		s24, s25 := f.Baseline2024.Score, f.Baseline2025.Score
		d.Scores.Baseline2024 = &s24
		d.Scores.Baseline2025 = &s25
		d.Features = &FeatureSection{
			Compliance2024: f.Baseline2024,
			Compliance2025: f.Baseline2025,
			Score:          f.Score,
			Compliance:     f.Compliance,
			Badge:          baseline.BadgeFor(f.Baseline2024.Score),
		}
	}
	return d
}

func executive(r baseline.AnalysisResult) Executive {
	e := Executive{
		Summary: ExecutiveSummary{
			WebsiteURL:         r.URL,
			OverallScore:       r.Overall.Score,
			OverallGrade:       r.Overall.Grade,
			ComplianceLevel:    r.Overall.Compliance,
			KeyFindings:        keyFindings(r),
			BusinessImpact:     businessImpact(r),
			RecommendedActions: topRecommendations(r.Recommendations, maxTopActions),
		},
		Performance: PerformanceOverview{
			Score:                r.Performance.Score,
			UserExperienceImpact: uxImpact(r.Performance.Score),
			CoreWebVitalsStatus:  webVitalsStatus(r.Performance),
		},
		Risks: RiskAssessment{
			Security:      securityRisks(r),
			Accessibility: scoreRisks(r.Accessibility.Score, "High accessibility risk", "Low accessibility risk"),
			SEO:           scoreRisks(r.SEO.Score, "Poor search visibility", "Good SEO foundation"),
		},
	}
	e.Compliance.CompetitiveAdvantage = "Not assessed"
	if f := r.Features; f != nil {
		e.Compliance = ComplianceOverview{
			Baseline2024Score:    f.Baseline2024.Score,
			SupportedFeatures:    len(f.Baseline2024.Supported),
			MissingFeatures:      len(f.Baseline2024.Missing),
			CompetitiveAdvantage: competitiveAdvantage(f.Baseline2024.Score),
		}
	}
	return e
}

func compliance(r baseline.AnalysisResult, now time.Time) Compliance {
	c := Compliance{
		Certificate: Certificate{
			WebsiteURL:         r.URL,
			CertificationLevel: certificationLevel(r.Overall.Badge),
			IssuedDate:         now,
			ValidUntil:         now.Add(CertificateValidity),
			Badge:              r.Overall.Badge,
		},
		Baseline2024:    PartitionCompliance{SupportedFeatures: []baseline.FeatureVerdict{}, MissingFeatures: []baseline.FeatureVerdict{}},
		Baseline2025:    PartitionCompliance{SupportedFeatures: []baseline.FeatureVerdict{}, MissingFeatures: []baseline.FeatureVerdict{}},
		Categories:      map[baseline.FeatureCategory]CategoryCompliance{},
		Gaps:            []Gap{},
		ImprovementPlan: []Phase{},
	}
	f := r.Features
	if f == nil {
		return c
	}
	c.Baseline2024 = partitionCompliance(f.Baseline2024)
	c.Baseline2025 = partitionCompliance(f.Baseline2025)

	missingByCategory := map[baseline.FeatureCategory][]baseline.FeatureVerdict{}
	for _, v := range f.Baseline2024.Missing {
		missingByCategory[v.Category] = append(missingByCategory[v.Category], v)
	}

	var urgent []baseline.FeatureVerdict
	for _, cat := range featureCategoryOrder {
		b := f.Categories[cat]
		total := len(b.Supported) + len(b.Missing)
		c.Categories[cat] = CategoryCompliance{
			Score:     baseline.RoundDiv(float64(len(b.Supported))*100, float64(total)),
			Supported: len(b.Supported),
			Missing:   len(b.Missing),
			Total:     total,
		}
		if len(b.Missing) == 0 {
			continue
		}
		critical := highImpact(missingByCategory[cat])
		urgent = append(urgent, critical...)
		if len(critical) > maxCriticalPerGap {
			critical = critical[:maxCriticalPerGap]
		}
		c.Gaps = append(c.Gaps, Gap{Category: cat, MissingCount: len(b.Missing), CriticalFeatures: critical})
	}
	sort.SliceStable(c.Gaps, func(i, j int) bool { return c.Gaps[i].MissingCount > c.Gaps[j].MissingCount })

	if len(urgent) > 0 {
		if len(urgent) > maxPlanFeatures {
			urgent = urgent[:maxPlanFeatures]
		}
		c.ImprovementPlan = append(c.ImprovementPlan, Phase{
			Phase:       "Immediate (0-30 days)",
			Priority:    "High",
			Features:    urgent,
			Description: "Critical features that should be implemented immediately",
		})
	}
	return c
}

func partitionCompliance(p baseline.FeaturePartition) PartitionCompliance {
	return PartitionCompliance{
		Score:             p.Score,
		TotalFeatures:     len(p.Supported) + len(p.Missing),
		SupportedFeatures: nonNil(p.Supported),
		MissingFeatures:   nonNil(p.Missing),
	}
}

func highImpact(verdicts []baseline.FeatureVerdict) []baseline.FeatureVerdict {
	out := []baseline.FeatureVerdict{}
	for _, v := range verdicts {
		if v.Impact == impactHigh {
			out = append(out, v)
		}
	}
	return out
}

func keyFindings(r baseline.AnalysisResult) []string {
	var out []string
	switch {
	case r.Overall.Score >= 90:
		out = append(out, "Excellent overall performance with high compliance scores")
	case r.Overall.Score >= 70:
		out = append(out, "Good performance with room for improvement")
	default:
		out = append(out, "Significant improvements needed across multiple areas")
	}
	switch {
	case r.Features == nil:
		out = append(out, "Modern web feature adoption was not assessed")
	case r.Features.Baseline2024.Score >= strongAdoptionMin:
		out = append(out, "Strong adoption of modern web standards")
	default:
		out = append(out, "Missing critical modern web features")
	}
	if r.Limited {
		out = append(out, "Analysis was limited because the site could not be crawled")
	}
	return out
}

func businessImpact(r baseline.AnalysisResult) []string {
	out := []string{}
	if r.Performance.Score < riskScoreThreshold {
		out = append(out, "Poor performance may lead to increased bounce rates")
	}
	if r.SEO.Score < riskScoreThreshold {
		out = append(out, "SEO issues may reduce search engine visibility")
	}
	if r.Accessibility.Score < riskScoreThreshold {
		out = append(out, "Accessibility issues may exclude users and create legal risks")
	}
	return out
}

func topRecommendations(recs []baseline.Recommendation, n int) []baseline.Recommendation {
	out := append([]baseline.Recommendation{}, recs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority.Rank() > out[j].Priority.Rank() })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func uxImpact(score int) string {
	switch {
	case score >= 90:
		return "Excellent user experience"
	case score >= 70:
		return "Good user experience"
	default:
		return "Poor user experience - users likely to abandon"
	}
}

func webVitalsStatus(perf baseline.CategoryScore) string {
	if perf.Audit != nil {
		if v, ok := perf.Audit.Metrics["lcp"]; ok && v != "" && v != audit.NotAvailable {
			return "Measured by external audit (LCP " + v + ")"
		}
	}
	return "Needs assessment with real user data"
}

func competitiveAdvantage(score int) string {
	switch {
	case score >= 90:
		return "Strong competitive advantage"
	case score >= 70:
		return "Moderate competitive advantage"
	default:
		return "Competitive disadvantage"
	}
}

func securityRisks(r baseline.AnalysisResult) []string {
	var out []string
	if r.Security.Score < riskScoreThreshold {
		out = append(out, "High security risk")
	}
	https := strings.HasPrefix(r.URL, "https://")
	if d, ok := r.Security.Details.(evaluate.SecurityDetails); ok {
		https = d.HTTPS
	}
	if !https {
		out = append(out, "No HTTPS encryption")
	}
	if len(out) == 0 {
		return []string{"Low security risk"}
	}
	return out
}

func scoreRisks(score int, risk, ok string) []string {
	if score < riskScoreThreshold {
		return []string{risk}
	}
	return []string{ok}
}

func certificationLevel(b baseline.Badge) string {
	if b.Level == "none" || b.Level == "" {
		return "Not Certified"
	}
	return b.Label + " Certified"
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
