// Package evaluate scores the entry page of a crawl in five categories.
//
// Every evaluator starts at 100 and subtracts one penalty per failed rule,
// flooring at 0. Only pages[0] is scored. An empty crawl scores 0 with the
// single issue baseline.NoPageDataIssue.
package evaluate

import (
	"fmt"
	"math"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Evaluator scores one category.
type Evaluator interface {
	Category() baseline.Category
	Evaluate(crawl baseline.CrawlResult) baseline.CategoryScore
}

// All returns the five evaluators in report order.
func All(r Rubric) []Evaluator {
	return []Evaluator{
		Performance{Weights: r.Performance, Cutoff: r.Cutoffs.Performance},
		SEO{Weights: r.SEO, Cutoff: r.Cutoffs.SEO},
		Accessibility{Weights: r.Accessibility, Cutoff: r.Cutoffs.Accessibility},
		Security{Weights: r.Security, Cutoff: r.Cutoffs.Security},
		ModernWeb{Weights: r.ModernWeb, Cutoff: r.Cutoffs.ModernWeb},
	}
}

// Run applies every evaluator to crawl.
func Run(evaluators []Evaluator, crawl baseline.CrawlResult) map[baseline.Category]baseline.CategoryScore {
	out := make(map[baseline.Category]baseline.CategoryScore, len(evaluators))
	for _, e := range evaluators {
		out[e.Category()] = e.Evaluate(crawl)
	}
	return out
}

// tally accumulates penalties and their issue strings in rule order.
type tally struct {
	penalty int
	issues  []string
}

func (t *tally) fail(weight int, format string, args ...any) {
	t.penalty += weight
	t.issues = append(t.issues, fmt.Sprintf(format, args...))
}

func (t *tally) score(category baseline.Category, cutoff int, details any) baseline.CategoryScore {
	score := baseline.Clamp(100 - t.penalty)
	issues := t.issues
	if issues == nil {
		issues = []string{}
	}
	return baseline.CategoryScore{
		Category:     category,
		Score:        score,
		Grade:        baseline.Grade(score),
		Issues:       issues,
		BaselinePass: score >= cutoff,
		Details:      details,
		CrawlerScore: score,
	}
}

func noData(category baseline.Category) baseline.CategoryScore {
	return baseline.CategoryScore{
		Category: category,
		Score:    0,
		Grade:    baseline.Grade(0),
		Issues:   []string{baseline.NoPageDataIssue},
	}
}

// coverage returns the percentage of ok among total. Zero elements of a kind
// count as fully compliant.
func coverage(ok, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(ok) / float64(total) * 100
}

// percent rounds a coverage value to one decimal so the threshold comparison
// and the issue text agree.
func percent(v float64) float64 {
	return math.Round(v*10) / 10
}

func altCoverage(page baseline.PageFacts) (withAlt, total int, pct float64) {
	for _, img := range page.Images {
		if img.HasAlt {
			withAlt++
		}
	}
	total = len(page.Images)
	return withAlt, total, percent(coverage(withAlt, total))
}
