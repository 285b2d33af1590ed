package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

const timeLayout = "2006-01-02 15:04:05 MST"

var categoryTitles = map[baseline.Category]string{
	baseline.CategoryPerformance:   "Performance",
	baseline.CategorySEO:           "SEO",
	baseline.CategoryAccessibility: "Accessibility",
	baseline.CategorySecurity:      "Security",
	baseline.CategoryModernWeb:     "Modern Web Standards",
}

func writeMarkdown(w io.Writer, meta Metadata, content any) error {
	md := markdown.NewMarkdown(w)
	switch c := content.(type) {
	case Detailed:
		writeDetailed(md, c)
	case Executive:
		writeExecutive(md, c)
	case Compliance:
		writeCompliance(md, c)
	}
	writeFooter(md, meta)
	return md.Build()
}

func writeDetailed(md *markdown.Markdown, d Detailed) {
	md.H1("Baseline Compliance Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Website", d.Summary.URL},
			{"Analyzed", d.Summary.AnalyzedAt.Format(timeLayout)},
			{"Overall Score", strconv.Itoa(d.Summary.OverallScore)},
			{"Grade", d.Summary.Grade},
			{"Compliance", d.Summary.Compliance},
			{"Badge", d.Badge.Label},
		},
	})
	md.PlainText("")
	if d.Summary.Limited {
		md.Warningf("Limited analysis: the site could not be crawled, scores are estimates.")
		md.PlainText("")
	}

	md.H2("Category Scores")
	md.PlainText("")
	rows := make([][]string, 0, len(d.Categories))
	for _, c := range d.Categories {
		rows = append(rows, []string{
			categoryTitles[c.Category],
			strconv.Itoa(c.Score),
			c.Grade,
			strconv.Itoa(c.CrawlerScore),
			optionalInt(c.AuditScore),
		})
	}
	md.Table(markdown.TableSet{Header: []string{"Category", "Score", "Grade", "Crawler", "Audit"}, Rows: rows})
	md.PlainText("")

	for _, c := range d.Categories {
		if len(c.Issues) == 0 {
			continue
		}
		md.PlainText("### " + categoryTitles[c.Category] + " Issues")
		md.PlainText("")
		md.BulletList(c.Issues...)
		md.PlainText("")
	}

	if d.Features != nil {
		md.H2("Baseline Features")
		md.PlainText("")
		md.PlainTextf("Feature score **%d** (%s).", d.Features.Score, d.Features.Compliance)
		md.PlainText("")
		writePartition(md, d.Features.Compliance2024)
		writePartition(md, d.Features.Compliance2025)
	}

	if d.Audit != nil {
		md.H2("External Audit")
		md.PlainText("")
		source := d.Audit.Source
		if d.Audit.Fallback {
			source += " (fallback scores)"
		}
		md.Table(markdown.TableSet{
			Header: []string{"Source", "Score", "Grade"},
			Rows:   [][]string{{source, strconv.Itoa(d.Audit.Score), d.Audit.Grade}},
		})
		md.PlainText("")
	}

	writeRecommendations(md, d.Recommendations)

	md.H2("Technical Details")
	md.PlainText("")
	t := d.Technical
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Pages crawled", strconv.Itoa(t.PagesCrawled)},
			{"Links (internal / external)", strconv.Itoa(t.InternalLinks) + " / " + strconv.Itoa(t.ExternalLinks)},
			{"Scripts", strconv.Itoa(t.Scripts)},
			{"Stylesheets", strconv.Itoa(t.Stylesheets)},
			{"Images", strconv.Itoa(t.Images)},
			{"Crawl errors", strconv.Itoa(len(t.Errors))},
		},
	})
	md.PlainText("")
}

func writePartition(md *markdown.Markdown, p baseline.FeaturePartition) {
	md.PlainText("### Baseline " + strconv.Itoa(p.Year))
	md.PlainText("")
	md.PlainTextf("%d of %d features supported, score %d.", len(p.Supported), p.Total, p.Score)
	md.PlainText("")
	rows := make([][]string, 0, p.Total)
	for _, v := range p.Supported {
		rows = append(rows, []string{v.Name, string(v.Category), "yes", strings.Join(v.Evidence, "; ")})
	}
	for _, v := range p.Missing {
		rows = append(rows, []string{v.Name, string(v.Category), "no", "impact " + v.Impact})
	}
	if len(rows) > 0 {
		md.Table(markdown.TableSet{Header: []string{"Feature", "Category", "Supported", "Notes"}, Rows: rows})
		md.PlainText("")
	}
}

func writeRecommendations(md *markdown.Markdown, recs []baseline.Recommendation) {
	md.H2("Recommendations")
	md.PlainText("")
	if len(recs) == 0 {
		md.Tip("No recommendations. Every category meets its target.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{string(r.Priority), r.Category, r.Title, r.Impact})
	}
	md.Table(markdown.TableSet{Header: []string{"Priority", "Category", "Action", "Impact"}, Rows: rows})
	md.PlainText("")
	for _, r := range recs {
		md.Details(r.Title, r.Description)
	}
	md.PlainText("")
}

func writeExecutive(md *markdown.Markdown, e Executive) {
	md.H1("Executive Summary")
	md.PlainText("")
	s := e.Summary
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Website", s.WebsiteURL},
			{"Overall Score", strconv.Itoa(s.OverallScore)},
			{"Grade", s.OverallGrade},
			{"Compliance", s.ComplianceLevel},
		},
	})
	md.PlainText("")

	md.H2("Key Findings")
	md.PlainText("")
	md.BulletList(s.KeyFindings...)
	md.PlainText("")

	if len(s.BusinessImpact) > 0 {
		md.H2("Business Impact")
		md.PlainText("")
		md.BulletList(s.BusinessImpact...)
		md.PlainText("")
	}

	md.H2("Performance")
	md.PlainText("")
	md.PlainTextf("Score %d. %s. Core Web Vitals: %s.",
		e.Performance.Score, e.Performance.UserExperienceImpact, e.Performance.CoreWebVitalsStatus)
	md.PlainText("")

	md.H2("Modern Web Adoption")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Baseline 2024 Score", "Supported", "Missing", "Position"},
		Rows: [][]string{{
			strconv.Itoa(e.Compliance.Baseline2024Score),
			strconv.Itoa(e.Compliance.SupportedFeatures),
			strconv.Itoa(e.Compliance.MissingFeatures),
			e.Compliance.CompetitiveAdvantage,
		}},
	})
	md.PlainText("")

	md.H2("Risk Assessment")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Area", "Risks"},
		Rows: [][]string{
			{"Security", strings.Join(e.Risks.Security, "; ")},
			{"Accessibility", strings.Join(e.Risks.Accessibility, "; ")},
			{"SEO", strings.Join(e.Risks.SEO, "; ")},
		},
	})
	md.PlainText("")

	writeRecommendations(md, s.RecommendedActions)
}

func writeCompliance(md *markdown.Markdown, c Compliance) {
	cert := c.Certificate
	md.H1("Baseline Compliance Certificate")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Website", cert.WebsiteURL},
			{"Certification", cert.CertificationLevel},
			{"Issued", cert.IssuedDate.Format(timeLayout)},
			{"Valid until", cert.ValidUntil.Format(timeLayout)},
		},
	})
	md.PlainText("")
	if cert.Badge.Level == "none" {
		md.Cautionf("This website does not currently qualify for certification.")
	} else {
		md.Note("Certified " + cert.Badge.Label + " until " + cert.ValidUntil.Format(time.DateOnly) + ".")
	}
	md.PlainText("")

	md.H2("Feature Categories")
	md.PlainText("")
	rows := make([][]string, 0, len(featureCategoryOrder))
	for _, cat := range featureCategoryOrder {
		cc, ok := c.Categories[cat]
		if !ok {
			continue
		}
		rows = append(rows, []string{string(cat), strconv.Itoa(cc.Score), strconv.Itoa(cc.Supported), strconv.Itoa(cc.Missing)})
	}
	if len(rows) == 0 {
		md.PlainText("Feature adoption was not assessed.")
	} else {
		md.Table(markdown.TableSet{Header: []string{"Category", "Score", "Supported", "Missing"}, Rows: rows})
	}
	md.PlainText("")

	if len(c.Gaps) > 0 {
		md.H2("Compliance Gaps")
		md.PlainText("")
		items := make([]string, 0, len(c.Gaps))
		for _, g := range c.Gaps {
			items = append(items, string(g.Category)+": "+strconv.Itoa(g.MissingCount)+" missing"+criticalSuffix(g.CriticalFeatures))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	for _, p := range c.ImprovementPlan {
		md.H2("Improvement Plan: " + p.Phase)
		md.PlainText("")
		md.PlainText(p.Description)
		md.PlainText("")
		names := make([]string, 0, len(p.Features))
		for _, f := range p.Features {
			names = append(names, f.Name)
		}
		md.BulletList(names...)
		md.PlainText("")
	}
}

func writeFooter(md *markdown.Markdown, meta Metadata) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated %s, report version %s*", meta.GeneratedAt.Format(timeLayout), meta.Version)
}

func criticalSuffix(critical []baseline.FeatureVerdict) string {
	if len(critical) == 0 {
		return ""
	}
	names := make([]string, 0, len(critical))
	for _, f := range critical {
		names = append(names, f.Name)
	}
	return " (critical: " + strings.Join(names, ", ") + ")"
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
