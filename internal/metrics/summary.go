package metrics

// AllDomains selects every domain in FilterDomain.
const AllDomains = "All"

// FilterDomain returns the records of one domain in input order. An empty domain or
// AllDomains returns records unchanged.
func FilterDomain(records []ProjectRecord, domain string) []ProjectRecord {
	if domain == "" || domain == AllDomains {
		return records
	}
	out := make([]ProjectRecord, 0)
	for _, rec := range records {
		if rec.Domain == domain {
			out = append(out, rec)
		}
	}
	return out
}

// KPISummary condenses a level of efficiency rollups.
type KPISummary struct {
	TotalBudget       float64 `json:"total_budget"`
	TotalKPIs         int64   `json:"total_kpis"`
	AverageCostPerKPI float64 `json:"average_cost_per_kpi"`
	// MostEfficient is the rollup with the lowest non-zero cost per KPI.
	MostEfficient *EfficiencyRollup `json:"most_efficient,omitempty"`
}

// Summarize computes the portfolio-wide cost per KPI and picks the most efficient rollup.
// Rollups with a zero cost per KPI have no outputs and are never picked.
func Summarize(rows []EfficiencyRollup) KPISummary {
	var summary KPISummary
	for i := range rows {
		row := rows[i]
		summary.TotalBudget += row.TotalBudget
		summary.TotalKPIs += row.TotalKPIs
		if row.CostPerKPI <= 0 {
			continue
		}
		if summary.MostEfficient == nil || row.CostPerKPI < summary.MostEfficient.CostPerKPI {
			summary.MostEfficient = &row
		}
	}
	summary.AverageCostPerKPI = costPer(summary.TotalBudget, summary.TotalKPIs)
	return summary
}

// Overview is the all-domains headline view.
type Overview struct {
	TotalBudget    float64  `json:"total_budget"`
	DomainCount    int      `json:"domain_count"`
	ProgrammeCount int      `json:"programme_count"`
	ProjectCount   int      `json:"project_count"`
	Domains        []string `json:"domains"`
}

// OverviewOf builds the overview. Programmes are counted per (domain, programme).
func OverviewOf(records []ProjectRecord) Overview {
	ov := Overview{Domains: Domains(records)}
	programmes := make(map[groupKey]struct{})
	for _, rec := range records {
		if rec.Domain == "" {
			continue
		}
		ov.TotalBudget += rec.Budget()
		ov.ProjectCount++
		programmes[groupKey{domain: rec.Domain, programme: rec.Programme}] = struct{}{}
	}
	ov.DomainCount = len(ov.Domains)
	ov.ProgrammeCount = len(programmes)
	return ov
}

// DomainStats is the headline view of a single domain.
type DomainStats struct {
	Domain          string   `json:"domain"`
	Description     string   `json:"description,omitempty"`
	Budget          float64  `json:"budget"`
	ActiveProjects  int      `json:"active_projects"`
	TotalProjects   int      `json:"total_projects"`
	ResearchOutputs int64    `json:"research_outputs"`
	Programmes      []string `json:"programmes"`
}

// StatsFor computes the headline view of domain. ok is false when no record belongs to it.
func StatsFor(records []ProjectRecord, domain string) (stats DomainStats, ok bool) {
	if domain == "" {
		return DomainStats{}, false
	}
	stats = DomainStats{Domain: domain, Programmes: Programmes(records, domain)}
	for _, rec := range records {
		if rec.Domain != domain {
			continue
		}
		if stats.Description == "" {
			stats.Description = rec.DomainDescription
		}
		stats.Budget += rec.Budget()
		stats.TotalProjects++
		if rec.Active() {
			stats.ActiveProjects++
		}
		stats.ResearchOutputs += rec.Outputs().Total()
	}
	return stats, stats.TotalProjects > 0
}

// Domains lists distinct domains in first-encountered order.
func Domains(records []ProjectRecord) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, rec := range records {
		if rec.Domain == "" {
			continue
		}
		if _, ok := seen[rec.Domain]; ok {
			continue
		}
		seen[rec.Domain] = struct{}{}
		out = append(out, rec.Domain)
	}
	return out
}

// Programmes lists the distinct programmes of domain in first-encountered order.
func Programmes(records []ProjectRecord, domain string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, rec := range records {
		if rec.Domain != domain {
			continue
		}
		if _, ok := seen[rec.Programme]; ok {
			continue
		}
		seen[rec.Programme] = struct{}{}
		out = append(out, rec.Programme)
	}
	return out
}
