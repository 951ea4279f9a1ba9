package metrics

import (
	"fmt"
	"sort"
)

// BudgetPoint is a parsed budget allocation.
type BudgetPoint struct {
	FiscalYear string  `json:"fiscal_year"`
	Year       int     `json:"year"`
	Amount     float64 `json:"amount"`
}

// BudgetSeries is the budget history of one project.
type BudgetSeries struct {
	ProjectID   string        `json:"project_id"`
	ProjectName string        `json:"project_name"`
	Points      []BudgetPoint `json:"points"`
}

// BudgetBreakdown parses a project's budget details, ordered by year.
func BudgetBreakdown(rec ProjectRecord) ([]BudgetPoint, error) {
	points, err := parseBudget(rec)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Year < points[j].Year })
	return points, nil
}

// BudgetTrends returns one series per project of a programme that has budget details,
// each ordered by fiscal year.
func BudgetTrends(records []ProjectRecord, domain, programme string) ([]BudgetSeries, error) {
	series := make([]BudgetSeries, 0)
	for _, rec := range records {
		if rec.Domain != domain || rec.Programme != programme || len(rec.BudgetDetails) == 0 {
			continue
		}
		points, err := parseBudget(rec)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(points, func(i, j int) bool { return points[i].FiscalYear < points[j].FiscalYear })
		series = append(series, BudgetSeries{
			ProjectID:   rec.ProjectID,
			ProjectName: rec.ProjectName,
			Points:      points,
		})
	}
	return series, nil
}

func parseBudget(rec ProjectRecord) ([]BudgetPoint, error) {
	points := make([]BudgetPoint, 0, len(rec.BudgetDetails))
	for _, entry := range rec.BudgetDetails {
		amount, err := entry.Amount.Float64()
		if err != nil {
			return nil, fmt.Errorf("project %q (%s): %w", rec.ProjectName, entry.FiscalYear, err)
		}
		points = append(points, BudgetPoint{
			FiscalYear: entry.FiscalYear,
			Year:       entry.Year,
			Amount:     amount,
		})
	}
	return points, nil
}
