package portfolio

import "github.com/rpggio/portfolio-kpi/internal/metrics"

// KPIRequest selects the rows of a KPI report. An empty Level means domain level and an
// empty Domain (or metrics.AllDomains) means the whole portfolio.
type KPIRequest struct {
	Domain string
	Level  string
}

// KPIReport is the efficiency table of one level plus its headline summary.
type KPIReport struct {
	Level   metrics.Level              `json:"level"`
	Domain  string                     `json:"domain"`
	Rows    []metrics.EfficiencyRollup `json:"rows"`
	Summary metrics.KPISummary         `json:"summary"`
}

// DomainSummary is the single-domain view.
type DomainSummary struct {
	metrics.DomainStats
	Performance         *metrics.DomainPerformance `json:"performance,omitempty"`
	ProgrammeEfficiency []metrics.EfficiencyRollup `json:"programme_efficiency"`
}

// ProjectDetail is a single project with its budget history and efficiency.
type ProjectDetail struct {
	Record      metrics.ProjectRecord    `json:"record"`
	StatusLabel string                   `json:"status_label"`
	Budget      []metrics.BudgetPoint    `json:"budget"`
	Efficiency  metrics.EfficiencyRollup `json:"efficiency"`
}

// ProgrammeProjects lists every project of one programme with its details.
type ProgrammeProjects struct {
	Domain    string          `json:"domain"`
	Programme string          `json:"programme"`
	Projects  []ProjectDetail `json:"projects"`
}

// ProgrammeBudget is a programme's share of its domain budget.
type ProgrammeBudget struct {
	Programme string  `json:"programme"`
	Budget    float64 `json:"budget"`
	// Share is the percentage of the domain budget, 0 when the domain budget is 0.
	Share float64 `json:"share"`
}

// Dashboard bundles every all-domains view built from one snapshot.
type Dashboard struct {
	Overview    metrics.Overview            `json:"overview"`
	Performance []metrics.DomainPerformance `json:"performance"`
	KPIs        map[metrics.Level]KPIReport `json:"kpis"`
}
