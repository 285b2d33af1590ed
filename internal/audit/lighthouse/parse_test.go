package lighthouse

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/baseline-analyzer/internal/audit"
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

func loadFixture(t *testing.T) baseline.AuditReport {
	t.Helper()
	data, err := os.ReadFile("testdata/lhr.json")
	require.NoError(t, err)
	report, err := Parse(data, audit.ProviderPageSpeed)
	require.NoError(t, err)
	return report
}

func TestParseScores(t *testing.T) {
	t.Parallel()

	r := loadFixture(t)
	require.Equal(t, audit.ProviderPageSpeed, r.Source)
	require.False(t, r.Fallback)
	require.Equal(t, 92, r.Performance.Score)
	require.Equal(t, 81, r.Accessibility.Score)
	require.Equal(t, 100, r.SEO.Score)
	require.Equal(t, 76, r.BestPractices.Score)
	require.Equal(t, 87, r.Overall)
	require.Equal(t, "A-", r.Grade)
}

func TestParseMetrics(t *testing.T) {
	t.Parallel()

	m := loadFixture(t).Performance.Metrics
	require.Equal(t, "0.8 s", m["fcp"])
	require.Equal(t, "1.6 s", m["lcp"])
	require.Equal(t, "0.01", m["cls"])
	require.Equal(t, "1.1 s", m["si"])
	require.Equal(t, audit.NotAvailable, m["fid"])
	require.Equal(t, audit.NotAvailable, m["tti"])
}

func TestParseOpportunitiesSortedBySavings(t *testing.T) {
	t.Parallel()

	perf := loadFixture(t).Performance
	require.Len(t, perf.Opportunities, 2)
	require.Equal(t, "unused-javascript", perf.Opportunities[0].ID)
	require.Equal(t, 900.0, perf.Opportunities[0].SavingsMs)
	require.Equal(t, 20, *perf.Opportunities[0].Score)
	require.Equal(t, "unused-css-rules", perf.Opportunities[1].ID)
	require.Equal(t, "Potential savings of 20 KiB", perf.Opportunities[1].DisplayValue)

	require.Len(t, perf.Diagnostics, 2)
	require.Equal(t, "dom-size", perf.Diagnostics[0].ID)
	require.Equal(t, 100, *perf.Diagnostics[0].Score)
	require.Nil(t, perf.Diagnostics[1].Score)
}

func TestParseIssuesAndPassed(t *testing.T) {
	t.Parallel()

	r := loadFixture(t)
	require.Equal(t, []baseline.AuditItem{
		{ID: "color-contrast", Title: "Background and foreground colors do not have a sufficient contrast ratio.", Impact: "high", Elements: 3},
		{ID: "label", Title: "Form elements have associated labels", Impact: "medium"},
	}, r.Accessibility.Issues)
	require.Equal(t, []string{"image-alt"}, itemIDs(r.Accessibility.Passed))

	require.Empty(t, r.SEO.Issues)
	require.Equal(t, []string{"document-title", "meta-description"}, itemIDs(r.SEO.Passed))

	require.Len(t, r.BestPractices.Issues, 1)
	require.Equal(t, "low", r.BestPractices.Issues[0].Impact)
	require.Equal(t, []string{"is-on-https"}, itemIDs(r.BestPractices.Passed))
}

func TestParseMissingCategoriesStayNil(t *testing.T) {
	t.Parallel()

	r, err := Parse([]byte(`{"categories":{"performance":{"score":0.5}},"audits":{}}`), audit.ProviderHeadless)
	require.NoError(t, err)
	require.Equal(t, 50, r.Performance.Score)
	require.Nil(t, r.SEO)
	require.Nil(t, r.Accessibility)
	require.Nil(t, r.BestPractices)
	require.Equal(t, 50, r.Overall)
}

func TestParseRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{not json`), audit.ProviderPageSpeed)
	require.Error(t, err)
	_, err = Parse([]byte(`{"categories":{}}`), audit.ProviderPageSpeed)
	require.Error(t, err)
}

func itemIDs(items []baseline.AuditItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
