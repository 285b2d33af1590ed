package baseline

// AuditItem is one audit finding reported by the external audit tool.
type AuditItem struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	DisplayValue string  `json:"displayValue,omitempty"`
	Score        *int    `json:"score,omitempty"`
	Impact       string  `json:"impact,omitempty"`
	SavingsMs    float64 `json:"savingsMs,omitempty"`
	Elements     int     `json:"elements,omitempty"`
}

// AuditCategory is the external audit's view of one category.
type AuditCategory struct {
	Score         int               `json:"score"`
	Metrics       map[string]string `json:"metrics,omitempty"`
	Opportunities []AuditItem       `json:"opportunities,omitempty"`
	Diagnostics   []AuditItem       `json:"diagnostics,omitempty"`
	Issues        []AuditItem       `json:"issues,omitempty"`
	Passed        []AuditItem       `json:"passed,omitempty"`
}

// AuditReport is the normalized result of the external page audit.
// A nil category means the tool did not measure it.
type AuditReport struct {
	Source        string         `json:"source"`
	Fallback      bool           `json:"fallback"`
	Performance   *AuditCategory `json:"performance,omitempty"`
	Accessibility *AuditCategory `json:"accessibility,omitempty"`
	SEO           *AuditCategory `json:"seo,omitempty"`
	BestPractices *AuditCategory `json:"bestPractices,omitempty"`
	Overall       int            `json:"overall"`
	Grade         string         `json:"grade"`
}

// ForCategory maps a scored category onto the audit category merged with it.
// Security is merged with best practices; modern-web has no audit counterpart.
func (r AuditReport) ForCategory(c Category) *AuditCategory {
	switch c {
	case CategoryPerformance:
		return r.Performance
	case CategorySEO:
		return r.SEO
	case CategoryAccessibility:
		return r.Accessibility
	case CategorySecurity:
		return r.BestPractices
	default:
		return nil
	}
}

// ComputeOverall fills Overall and Grade from the measured categories.
func (r *AuditReport) ComputeOverall() {
	var (
		sum   int
		count int
	)
	for _, c := range []*AuditCategory{r.Performance, r.Accessibility, r.SEO, r.BestPractices} {
		if c == nil {
			continue
		}
		sum += c.Score
		count++
	}
	if count == 0 {
		r.Overall = 0
	} else {
		r.Overall = RoundDiv(float64(sum), float64(count))
	}
	r.Grade = Grade(r.Overall)
}

// AuditImpact converts a 0..1 audit score into an impact tier.
func AuditImpact(score float64) string {
	switch {
	case score == 0:
		return "high"
	case score < 0.5:
		return "medium"
	default:
		return "low"
	}
}
