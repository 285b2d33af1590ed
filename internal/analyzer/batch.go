package analyzer

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// BulkItem is the outcome for one URL of a bulk request.
type BulkItem struct {
	URL      string                   `json:"url"`
	Success  bool                     `json:"success"`
	Analysis *baseline.AnalysisResult `json:"analysis,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// BulkSummary counts bulk outcomes.
type BulkSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BulkResult is returned by Bulk.
type BulkResult struct {
	Results []BulkItem  `json:"results"`
	Summary BulkSummary `json:"summary"`
}

// Bulk analyzes urls one after another, continuing past failures.
func (a *Analyzer) Bulk(ctx context.Context, urls []string) (BulkResult, error) {
	if len(urls) == 0 {
		return BulkResult{}, baseline.InvalidInput("URLs array is required")
	}
	if len(urls) > a.cfg.BulkMax {
		return BulkResult{}, baseline.InvalidInput("Maximum %d URLs allowed per bulk analysis", a.cfg.BulkMax)
	}

	out := BulkResult{Results: make([]BulkItem, 0, len(urls))}
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return BulkResult{}, err
		}
		item := BulkItem{URL: u}
		res, err := a.Analyze(ctx, u)
		if err != nil {
			a.logger.Warn("bulk item failed", zap.String("url", u), zap.Error(err))
			item.Error = err.Error()
			out.Summary.Failed++
		} else {
			item.Success = true
			item.Analysis = &res
			out.Summary.Successful++
		}
		out.Results = append(out.Results, item)
	}
	out.Summary.Total = len(urls)
	return out, nil
}

// CategoryAverages are the mean scores across compared sites.
type CategoryAverages struct {
	Overall       int `json:"overall"`
	Performance   int `json:"performance"`
	SEO           int `json:"seo"`
	Accessibility int `json:"accessibility"`
	Security      int `json:"security"`
	ModernWeb     int `json:"modernWeb"`
	Baseline2024  int `json:"baseline2024"`
}

// SiteScores is the per-site row of a comparison.
type SiteScores struct {
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	Limited       bool   `json:"limited"`
	Overall       int    `json:"overall"`
	Grade         string `json:"grade"`
	Performance   int    `json:"performance"`
	SEO           int    `json:"seo"`
	Accessibility int    `json:"accessibility"`
	Security      int    `json:"security"`
	ModernWeb     int    `json:"modernWeb"`
	FeatureScore  *int   `json:"featureScore,omitempty"`
	Baseline2024  int    `json:"baseline2024"`
}

// Comparison is returned by Compare.
type Comparison struct {
	Sites    []SiteScores     `json:"sites"`
	Best     SiteScores       `json:"bestOverall"`
	Worst    SiteScores       `json:"worstOverall"`
	Averages CategoryAverages `json:"averageScores"`
	Ranking  []string         `json:"ranking"`

	ScoreRanges            map[string]ScoreRange      `json:"scoreRanges"`
	ComplianceDistribution map[string]int             `json:"complianceDistribution"`
	FeatureAdoption        []FeatureAdoption          `json:"featureAdoption,omitempty"`
	MissingOpportunities   []FeatureAdoption          `json:"missingOpportunities,omitempty"`
	Insights               []Insight                  `json:"insights"`
	Recommendations        []ComparisonRecommendation `json:"recommendations"`
}

// Compare analyzes 2..CompareMax urls concurrently and ranks them.
func (a *Analyzer) Compare(ctx context.Context, urls []string) (Comparison, error) {
	if len(urls) < 2 {
		return Comparison{}, baseline.InvalidInput("At least 2 websites required for comparison")
	}
	if len(urls) > a.cfg.CompareMax {
		return Comparison{}, baseline.InvalidInput("Maximum %d URLs allowed per comparison", a.cfg.CompareMax)
	}
	for _, u := range urls {
		if err := baseline.ValidateTargetURL(u); err != nil {
			return Comparison{}, err
		}
	}

	results := make([]baseline.AnalysisResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.CompareConcurrency)
	for i, u := range urls {
		g.Go(func() error {
			res, err := a.Analyze(gctx, u)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}
	return Summarize(results), nil
}

// Summarize builds a comparison from finished analyses. results must not be
// empty.
func Summarize(results []baseline.AnalysisResult) Comparison {
	c := Comparison{Sites: make([]SiteScores, 0, len(results))}
	var sum CategoryAverages
	for _, r := range results {
		row := SiteScores{
			URL:           r.URL,
			Title:         r.Site.Title,
			Limited:       r.Limited,
			Overall:       r.Overall.Score,
			Grade:         r.Overall.Grade,
			Performance:   r.Performance.Score,
			SEO:           r.SEO.Score,
			Accessibility: r.Accessibility.Score,
			Security:      r.Security.Score,
			ModernWeb:     r.ModernWeb.Score,
		}
		if r.Features != nil {
			fs := r.Features.Score
			row.FeatureScore = &fs
			row.Baseline2024 = r.Features.Baseline2024.Score
		}
		c.Sites = append(c.Sites, row)

		sum.Overall += row.Overall
		sum.Performance += row.Performance
		sum.SEO += row.SEO
		sum.Accessibility += row.Accessibility
		sum.Security += row.Security
		sum.ModernWeb += row.ModernWeb
		sum.Baseline2024 += row.Baseline2024
	}
	if len(c.Sites) == 0 {
		return c
	}

	n := float64(len(c.Sites))
	c.Averages = CategoryAverages{
		Overall:       baseline.RoundDiv(float64(sum.Overall), n),
		Performance:   baseline.RoundDiv(float64(sum.Performance), n),
		SEO:           baseline.RoundDiv(float64(sum.SEO), n),
		Accessibility: baseline.RoundDiv(float64(sum.Accessibility), n),
		Security:      baseline.RoundDiv(float64(sum.Security), n),
		ModernWeb:     baseline.RoundDiv(float64(sum.ModernWeb), n),
		Baseline2024:  baseline.RoundDiv(float64(sum.Baseline2024), n),
	}

	ranked := append([]SiteScores(nil), c.Sites...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Overall > ranked[j].Overall })
	c.Best = ranked[0]
	c.Worst = ranked[len(ranked)-1]
	for _, s := range ranked {
		c.Ranking = append(c.Ranking, s.URL)
	}

	c.ScoreRanges = scoreRanges(c.Sites)
	c.ComplianceDistribution = complianceDistribution(c.Sites)
	c.FeatureAdoption = featureAdoption(results)
	c.MissingOpportunities = missingOpportunities(c.FeatureAdoption, len(results))
	c.Insights = insights(c)
	c.Recommendations = comparisonRecommendations(c)
	return c
}
