package metrics_test

import (
	"testing"

	"github.com/rpggio/portfolio-kpi/internal/metrics"
	"github.com/stretchr/testify/require"
)

func portfolioRecords() []metrics.ProjectRecord {
	return []metrics.ProjectRecord{
		{Domain: "AI", Programme: "NLP", ProjectName: "Parser", ProjectID: "p1", TotalBudget: f64(100), JournalArticles: i64(2), Status: metrics.StatusActive},
		{Domain: "AI", Programme: "Vision", ProjectName: "Detector", ProjectID: "p2", TotalBudget: f64(300), ConferencePapers: i64(1), Status: metrics.StatusActive},
		{Domain: "Energy", Programme: "NLP", ProjectName: "Grid", ProjectID: "p3", TotalBudget: f64(200), Status: metrics.StatusInactive},
		{Domain: "Energy", Programme: "Storage", ProjectName: "Battery", ProjectID: "p4", TotalBudget: f64(40), BookChapters: i64(4), Status: metrics.StatusActive},
	}
}

func TestFilterDomain(t *testing.T) {
	records := portfolioRecords()

	require.Len(t, metrics.FilterDomain(records, metrics.AllDomains), 4)
	require.Len(t, metrics.FilterDomain(records, ""), 4)

	energy := metrics.FilterDomain(records, "Energy")
	require.Len(t, energy, 2)
	require.Equal(t, "Grid", energy[0].ProjectName)
	require.Equal(t, "Battery", energy[1].ProjectName)

	none := metrics.FilterDomain(records, "Health")
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestSummarize_PicksLowestNonZeroCost(t *testing.T) {
	rows, err := metrics.AggregateEfficiency(portfolioRecords(), metrics.LevelProject)
	require.NoError(t, err)

	summary := metrics.Summarize(rows)
	require.Equal(t, 640.0, summary.TotalBudget)
	require.Equal(t, int64(7), summary.TotalKPIs)
	require.InDelta(t, 640.0/7, summary.AverageCostPerKPI, 1e-9)
	require.NotNil(t, summary.MostEfficient)
	require.Equal(t, "Battery", summary.MostEfficient.Name)
	require.InDelta(t, 10.0, summary.MostEfficient.CostPerKPI, 1e-9)
}

func TestSummarize_NoOutputs(t *testing.T) {
	summary := metrics.Summarize([]metrics.EfficiencyRollup{
		metrics.EfficiencyOf(metrics.Rollup{Name: "idle", TotalBudget: 10}),
	})
	require.Nil(t, summary.MostEfficient)
	require.Zero(t, summary.AverageCostPerKPI)
	require.Equal(t, 10.0, summary.TotalBudget)
}

func TestSummarize_TieKeepsFirst(t *testing.T) {
	rows := metrics.Efficiency([]metrics.Rollup{
		{Name: "first", TotalBudget: 10, KPICounts: metrics.KPICounts{JournalArticles: 1}},
		{Name: "second", TotalBudget: 20, KPICounts: metrics.KPICounts{JournalArticles: 2}},
	})
	summary := metrics.Summarize(rows)
	require.Equal(t, "first", summary.MostEfficient.Name)
}

func TestOverviewOf(t *testing.T) {
	ov := metrics.OverviewOf(portfolioRecords())
	require.Equal(t, 640.0, ov.TotalBudget)
	require.Equal(t, 2, ov.DomainCount)
	require.Equal(t, 4, ov.ProgrammeCount)
	require.Equal(t, 4, ov.ProjectCount)
	require.Equal(t, []string{"AI", "Energy"}, ov.Domains)
}

func TestOverviewOf_Empty(t *testing.T) {
	ov := metrics.OverviewOf(nil)
	require.Zero(t, ov.TotalBudget)
	require.Zero(t, ov.ProjectCount)
	require.Empty(t, ov.Domains)
}

func TestStatsFor(t *testing.T) {
	stats, ok := metrics.StatsFor(portfolioRecords(), "Energy")
	require.True(t, ok)
	require.Equal(t, "Energy", stats.Domain)
	require.Equal(t, 240.0, stats.Budget)
	require.Equal(t, 2, stats.TotalProjects)
	require.Equal(t, 1, stats.ActiveProjects)
	require.Equal(t, int64(4), stats.ResearchOutputs)
	require.Equal(t, []string{"NLP", "Storage"}, stats.Programmes)

	_, ok = metrics.StatsFor(portfolioRecords(), "Health")
	require.False(t, ok)
	_, ok = metrics.StatsFor(portfolioRecords(), "")
	require.False(t, ok)
}

func TestStatsFor_Description(t *testing.T) {
	records := portfolioRecords()
	stats, ok := metrics.StatsFor(records, "Energy")
	require.True(t, ok)
	require.Empty(t, stats.Description)

	for i := range records {
		if records[i].Domain == "Energy" {
			records[i].DomainDescription = "Renewables"
			break
		}
	}
	stats, ok = metrics.StatsFor(records, "Energy")
	require.True(t, ok)
	require.Equal(t, "Renewables", stats.Description)
}

func TestDomainsAndProgrammes(t *testing.T) {
	records := portfolioRecords()
	require.Equal(t, []string{"AI", "Energy"}, metrics.Domains(records))
	require.Equal(t, []string{"NLP", "Vision"}, metrics.Programmes(records, "AI"))
	require.Empty(t, metrics.Programmes(records, "Health"))
}
