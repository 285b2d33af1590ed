package baseline

import "math"

type band struct {
	min   int
	label string
}

var gradeBands = []band{
	{95, "A+"},
	{90, "A"},
	{85, "A-"},
	{80, "B+"},
	{75, "B"},
	{70, "B-"},
	{65, "C+"},
	{60, "C"},
	{55, "C-"},
	{50, "D"},
}

// Grade maps a score onto the letter band shared by every evaluator.
func Grade(score int) string {
	for _, b := range gradeBands {
		if score >= b.min {
			return b.label
		}
	}
	return "F"
}

// Compliance tiers.
const (
	ComplianceExcellent = "excellent"
	ComplianceGood      = "good"
	ComplianceFair      = "fair"
	CompliancePoor      = "poor"
	ComplianceCritical  = "critical"
	ComplianceLimited   = "limited"
)

// Compliance maps an overall score onto its compliance tier.
func Compliance(score int) string {
	switch {
	case score >= 85:
		return ComplianceExcellent
	case score >= 75:
		return ComplianceGood
	case score >= 65:
		return ComplianceFair
	default:
		return CompliancePoor
	}
}

// FeatureCompliance maps a feature-matcher score onto its tier. The feature
// bands are stricter than the overall ones and add a critical tier.
func FeatureCompliance(score int) string {
	switch {
	case score >= 90:
		return ComplianceExcellent
	case score >= 80:
		return ComplianceGood
	case score >= 70:
		return ComplianceFair
	case score >= 60:
		return CompliancePoor
	default:
		return ComplianceCritical
	}
}

// BadgeFor returns the certification badge for a score.
func BadgeFor(score int) Badge {
	switch {
	case score >= 95:
		return Badge{Level: "platinum", Label: "Platinum", Color: "#E5E4E2"}
	case score >= 85:
		return Badge{Level: "gold", Label: "Gold", Color: "#FFD700"}
	case score >= 75:
		return Badge{Level: "silver", Label: "Silver", Color: "#C0C0C0"}
	case score >= 65:
		return Badge{Level: "bronze", Label: "Bronze", Color: "#CD7F32"}
	default:
		return Badge{Level: "none", Label: "Not Certified", Color: "#666666"}
	}
}

// Clamp bounds a score to 0..100.
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Round rounds half away from zero for positive values, matching how scores
// are rounded everywhere in the pipeline.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// RoundDiv returns Round(num/den), or 0 when den is zero.
func RoundDiv(num, den float64) int {
	if den == 0 {
		return 0
	}
	return Round(num / den)
}

// Mean returns the rounded arithmetic mean of scores, or 0 for none.
func Mean(scores ...int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return RoundDiv(float64(sum), float64(len(scores)))
}
