package features

import (
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Matcher classifies a crawl against a catalog.
type Matcher struct {
	catalog *Catalog
}

// NewMatcher binds a matcher to catalog.
func NewMatcher(catalog *Catalog) *Matcher {
	return &Matcher{catalog: catalog}
}

// Empty reports whether there is nothing to match against.
func (m *Matcher) Empty() bool {
	return m.catalog == nil || m.catalog.Len() == 0
}

// Verdict classifies one feature.
func Verdict(crawl baseline.CrawlResult, f Feature) baseline.FeatureVerdict {
	v := baseline.FeatureVerdict{
		FeatureID:   f.ID,
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category(),
	}
	if ev := Detect(crawl, f); len(ev) > 0 {
		v.Supported = true
		v.Evidence = ev
	} else {
		v.Impact = f.Impact()
	}
	return v
}

// Match builds the feature report for crawl. Each feature is detected once
// and shared between the partitions it belongs to.
func (m *Matcher) Match(crawl baseline.CrawlResult) baseline.FeatureReport {
	cache := make(map[string]baseline.FeatureVerdict)
	verdict := func(f Feature) baseline.FeatureVerdict {
		if v, ok := cache[f.ID]; ok {
			return v
		}
		v := Verdict(crawl, f)
		cache[f.ID] = v
		return v
	}

	var p2024, p2025 []Feature
	if m.catalog != nil {
		p2024 = m.catalog.Partition(Year2024)
		p2025 = m.catalog.Partition(Year2025)
	}
	report := baseline.FeatureReport{
		Baseline2024: partition(Year2024, p2024, verdict),
		Baseline2025: partition(Year2025, p2025, verdict),
		Categories:   breakdown(p2024, verdict),
	}
	report.Score = baseline.Mean(report.Baseline2024.Score, report.Baseline2025.Score)
	report.Grade = baseline.Grade(report.Score)
	report.Compliance = baseline.FeatureCompliance(report.Score)
	return report
}

func partition(year int, feats []Feature, verdict func(Feature) baseline.FeatureVerdict) baseline.FeaturePartition {
	p := baseline.FeaturePartition{
		Year:      year,
		Supported: []baseline.FeatureVerdict{},
		Missing:   []baseline.FeatureVerdict{},
		Total:     len(feats),
	}
	for _, f := range feats {
		v := verdict(f)
		if v.Supported {
			p.Supported = append(p.Supported, v)
		} else {
			p.Missing = append(p.Missing, v)
		}
	}
	p.Score = baseline.RoundDiv(100*float64(len(p.Supported)), float64(p.Total))
	return p
}

func breakdown(feats []Feature, verdict func(Feature) baseline.FeatureVerdict) map[baseline.FeatureCategory]baseline.FeatureCategoryBreakdown {
	out := make(map[baseline.FeatureCategory]baseline.FeatureCategoryBreakdown)
	for _, f := range feats {
		v := verdict(f)
		b, ok := out[v.Category]
		if !ok {
			b = baseline.FeatureCategoryBreakdown{Supported: []string{}, Missing: []string{}}
		}
		if v.Supported {
			b.Supported = append(b.Supported, f.ID)
		} else {
			b.Missing = append(b.Missing, f.ID)
		}
		out[v.Category] = b
	}
	return out
}
