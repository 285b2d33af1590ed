package evaluate

import (
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Coverage targets of the accessibility rubric, in percent.
const (
	AccessibilityAltTarget = 95.0
	ButtonLabelTarget      = 90.0
	InputLabelTarget       = 95.0
)

// AccessibilityDetails are the sub-metrics behind an accessibility score.
type AccessibilityDetails struct {
	AltCoverage       float64  `json:"altCoverage"`
	ButtonCoverage    float64  `json:"buttonCoverage"`
	InputCoverage     float64  `json:"inputCoverage"`
	HasSkipLinks      bool     `json:"hasSkipLinks"`
	HasLandmarks      bool     `json:"hasLandmarks"`
	Landmarks         []string `json:"landmarks"`
	FocusableElements int      `json:"focusableElements"`
	ColorContrast     string   `json:"colorContrast"`
}

// Accessibility scores labeling and document structure.
type Accessibility struct {
	Weights AccessibilityWeights
	Cutoff  int
}

// Category implements Evaluator.
func (Accessibility) Category() baseline.Category { return baseline.CategoryAccessibility }

// Evaluate implements Evaluator.
func (e Accessibility) Evaluate(crawl baseline.CrawlResult) baseline.CategoryScore {
	page, ok := crawl.Entry()
	if !ok {
		return noData(baseline.CategoryAccessibility)
	}

	var t tally
	_, _, altPct := altCoverage(page)
	if altPct < AccessibilityAltTarget {
		t.fail(e.Weights.AltCoverage, "Alt text coverage: %.1f%% (should be ≥95%%)", altPct)
	}

	labeledButtons := 0
	for _, b := range page.Buttons {
		if b.Labeled {
			labeledButtons++
		}
	}
	buttonPct := percent(coverage(labeledButtons, len(page.Buttons)))
	if buttonPct < ButtonLabelTarget {
		t.fail(e.Weights.ButtonLabels, "Some buttons lack proper labels or text")
	}

	labeledInputs := 0
	for _, in := range page.Inputs {
		if in.Labeled {
			labeledInputs++
		}
	}
	inputPct := percent(coverage(labeledInputs, len(page.Inputs)))
	if inputPct < InputLabelTarget {
		t.fail(e.Weights.InputLabels, "Some form inputs lack proper labels")
	}

	hasLandmarks := len(page.Landmarks) > 0
	if !hasLandmarks {
		t.fail(e.Weights.Landmarks, "Add semantic HTML landmarks (main, nav, header, footer)")
	}
	hasSkip := page.SkipLinks > 0
	if !hasSkip {
		t.fail(e.Weights.SkipLinks, "Consider adding skip navigation links")
	}

	landmarks := page.Landmarks
	if landmarks == nil {
		landmarks = []string{}
	}
	return t.score(baseline.CategoryAccessibility, e.Cutoff, AccessibilityDetails{
		AltCoverage:       altPct,
		ButtonCoverage:    buttonPct,
		InputCoverage:     inputPct,
		HasSkipLinks:      hasSkip,
		HasLandmarks:      hasLandmarks,
		Landmarks:         landmarks,
		FocusableElements: page.FocusableElements,
		ColorContrast:     NotMeasured,
	})
}
