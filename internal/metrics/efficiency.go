package metrics

// Efficiency derives cost-per-output ratios for each rollup.
func Efficiency(rollups []Rollup) []EfficiencyRollup {
	out := make([]EfficiencyRollup, 0, len(rollups))
	for _, r := range rollups {
		out = append(out, EfficiencyOf(r))
	}
	return out
}

// EfficiencyOf derives the cost-per-output ratios of a single rollup. Every ratio with a
// zero denominator is reported as 0.
func EfficiencyOf(r Rollup) EfficiencyRollup {
	total := r.KPICounts.Total()
	return EfficiencyRollup{
		Rollup:                        r,
		CostPerJournalArticle:         costPer(r.TotalBudget, r.JournalArticles),
		CostPerConferencePaper:        costPer(r.TotalBudget, r.ConferencePapers),
		CostPerBookChapter:            costPer(r.TotalBudget, r.BookChapters),
		CostPerTechnologyDemonstrator: costPer(r.TotalBudget, r.TechnologyDemonstrators),
		TotalKPIs:                     total,
		CostPerKPI:                    costPer(r.TotalBudget, total),
	}
}

// AggregateEfficiency aggregates records at level and derives efficiency for every group.
func AggregateEfficiency(records []ProjectRecord, level Level) ([]EfficiencyRollup, error) {
	rollups, err := Aggregate(records, level)
	if err != nil {
		return nil, err
	}
	return Efficiency(rollups), nil
}

func costPer(budget float64, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return budget / float64(count)
}
