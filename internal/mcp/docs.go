package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `portfolio-kpi reports budgets and research outputs of a portfolio organised as Domains → Programmes → Projects.

Core concepts:
- Domain: top-level category. Programme: group of projects inside one domain (names repeat across domains).
- KPI: journal articles, conference papers, book chapters, technology demonstrators.
- Cost per KPI: budget / outputs. A cost of 0 means "not computable" (no outputs), never "free".
- Performance score: weighted budget share, active ratio and output share, per domain, in [0, 100]. The default weights are 0.3 / 0.3 / 0.4 and the server may be configured with others. 50 or more is on track.

Suggested workflow:
1) get_overview or list_domains to orient.
2) get_kpis (level=domain|programme|project, optional domain) for efficiency tables.
3) get_domain_performance for scores; get_domain_summary for one domain.
4) get_programme_projects, get_project, get_programme_trends and get_programme_budgets for detail.

All numbers are raw; apply currency formatting yourself.

Docs:
- portfolio://docs/index
- portfolio://docs/metrics
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "portfolio://docs/index",
		Name:        "docs_index",
		Title:       "portfolio-kpi docs index",
		Description: "Entry point: the tools, what they return, and which doc to read next.",
		Content: `# portfolio-kpi: Agent Docs Index

## Tools

- ` + "`list_domains`" + `: domain names in source order.
- ` + "`get_overview`" + `: total budget, domain / programme / project counts.
- ` + "`get_domain_summary(domain)`" + `: description, budget, active and total projects, research outputs, programmes, programme efficiency and the domain score.
- ` + "`get_kpis(level, domain)`" + `: efficiency rows plus a summary with the average cost per KPI and the most efficient row.
- ` + "`get_domain_performance`" + `: score components per domain.
- ` + "`get_project(id)`" + `: one project with status label, budget by year and its efficiency.
- ` + "`get_programme_trends(domain, programme)`" + `: budget by fiscal year per project.
- ` + "`get_programme_projects(domain, programme)`" + `: every project of a programme with description, status, department, national problem, budget by year and efficiency.
- ` + "`get_programme_budgets(domain)`" + `: programme budgets and their share of the domain.

## Errors

Errors carry a code: ` + "`INVALID_ARGUMENT`" + ` (unknown level or invalid scoring weights), ` + "`DATA_FORMAT`" + ` (a malformed budget amount in the source data), ` + "`DOMAIN_NOT_FOUND`" + `, ` + "`PROGRAMME_NOT_FOUND`" + `, ` + "`PROJECT_NOT_FOUND`" + `, ` + "`INVALID_INPUT`" + `.

## Read next

- ` + "`portfolio://docs/metrics`" + `: exact formulas and the zero rules.
`,
	},
	{
		URI:         "portfolio://docs/metrics",
		Name:        "docs_metrics",
		Title:       "Metric definitions",
		Description: "Aggregation levels, cost per output, performance score formula and the zero-denominator rules.",
		Content: `# Metric definitions

## Aggregation

- ` + "`domain`" + `: one row per domain.
- ` + "`programme`" + `: one row per (domain, programme). The row name is the programme name; ` + "`domain`" + ` tells rows with the same name apart.
- ` + "`project`" + `: one row per project.

Rows appear in the order they are first met in the data, not sorted. Missing budgets and counters count as 0.

## Cost per output

For each KPI ` + "`m`" + `: ` + "`cost_per_m = total_budget / m`" + ` when ` + "`m > 0`" + `, otherwise ` + "`0`" + `.
` + "`total_kpis`" + ` is the sum of the four KPIs and ` + "`cost_per_kpi`" + ` follows the same rule.

**0 means not computable.** Exclude zero costs before picking a minimum; the KPI summary already does this for ` + "`most_efficient`" + `.

## Performance score

Per domain, against the whole portfolio:

- budget_score = 100 × domain budget / portfolio budget (0 when the portfolio budget is 0)
- activity_score = 100 × active projects / projects (status 1 is active)
- output_score = 100 × domain outputs / portfolio outputs (0 when either is 0)
- performance_score = w_budget × budget_score + w_activity × activity_score + w_output × output_score

The default weights are w_budget = 0.3, w_activity = 0.3 and w_output = 0.4. Weights are configurable and always sum to 1, so the score stays within [0, 100]. ` + "`meets_threshold`" + ` is true at 50 or more.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
