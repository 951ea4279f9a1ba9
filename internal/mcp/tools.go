package mcp

import (
	"context"
	"fmt"

	"github.com/rpggio/portfolio-kpi/internal/domain/portfolio"
	"github.com/rpggio/portfolio-kpi/internal/metrics"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type emptyInput struct{}

type DomainInput struct {
	Domain string `json:"domain" jsonschema:"domain name as returned by list_domains"`
}

type KPIInput struct {
	Level  string `json:"level,omitempty" jsonschema:"aggregation level: domain (default), programme or project"`
	Domain string `json:"domain,omitempty" jsonschema:"restrict to one domain; omit or All for the whole portfolio"`
}

type ProjectInput struct {
	ID string `json:"id" jsonschema:"project id"`
}

type ProgrammeInput struct {
	Domain    string `json:"domain" jsonschema:"domain the programme belongs to"`
	Programme string `json:"programme" jsonschema:"programme name"`
}

type DomainsOutput struct {
	Domains []string `json:"domains"`
}

type PerformanceOutput struct {
	Threshold float64                     `json:"threshold"`
	Domains   []metrics.DomainPerformance `json:"domains"`
}

type TrendsOutput struct {
	Domain    string                 `json:"domain"`
	Programme string                 `json:"programme"`
	Series    []metrics.BudgetSeries `json:"series"`
}

type ProgrammeBudgetsOutput struct {
	Domain     string                      `json:"domain"`
	Programmes []portfolio.ProgrammeBudget `json:"programmes"`
}

func tenantFrom(ctx context.Context) (string, error) {
	tenantID := getTenantID(ctx)
	if tenantID == "" {
		return "", fmt.Errorf("unauthorized: no tenant")
	}
	return tenantID, nil
}

func registerTools(server *sdkmcp.Server, svc PortfolioService) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_domains",
		Description: "List the portfolio domains in source order",
	}, listDomainsHandler(svc))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_overview",
		Description: "Total budget and domain, programme and project counts across all domains",
	}, overviewHandler(svc))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_domain_summary",
		Description: "Budget, active projects, research outputs, programmes and performance score of one domain",
	}, domainSummaryHandler(svc))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_kpis",
		Description: "Budget, research outputs and cost per output aggregated by domain, programme or project. A cost of 0 means not computable.",
	}, kpisHandler(svc))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_domain_performance",
		Description: "Weighted performance score per domain from budget share, activity ratio and output share",
	}, performanceHandler(svc))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_project",
		Description: "One project with status, budget breakdown by year and cost per output",
	}, projectHandler(svc))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_programme_trends",
		Description: "Budget by fiscal year for every project of a programme",
	}, programmeTrendsHandler(svc))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_programme_projects",
		Description: "Every project of a programme with description, status, department, national problem, budget by year and research outputs",
	}, programmeProjectsHandler(svc))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_programme_budgets",
		Description: "Budget of each programme in a domain and its share of the domain budget",
	}, programmeBudgetsHandler(svc))
}

func listDomainsHandler(svc PortfolioService) sdkmcp.ToolHandlerFor[emptyInput, DomainsOutput] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, DomainsOutput, error) {
		tenantID, err := tenantFrom(ctx)
		if err != nil {
			return nil, DomainsOutput{}, err
		}
		domains, err := svc.Domains(ctx, tenantID)
		if err != nil {
			return nil, DomainsOutput{}, toolError(err)
		}
		return nil, DomainsOutput{Domains: domains}, nil
	}
}

func overviewHandler(svc PortfolioService) sdkmcp.ToolHandlerFor[emptyInput, metrics.Overview] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, metrics.Overview, error) {
		tenantID, err := tenantFrom(ctx)
		if err != nil {
			return nil, metrics.Overview{}, err
		}
		ov, err := svc.Overview(ctx, tenantID)
		if err != nil {
			return nil, metrics.Overview{}, toolError(err)
		}
		return nil, ov, nil
	}
}

func domainSummaryHandler(svc PortfolioService) sdkmcp.ToolHandlerFor[DomainInput, portfolio.DomainSummary] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in DomainInput) (*sdkmcp.CallToolResult, portfolio.DomainSummary, error) {
		tenantID, err := tenantFrom(ctx)
		if err != nil {
			return nil, portfolio.DomainSummary{}, err
		}
		summary, err := svc.DomainSummary(ctx, tenantID, in.Domain)
		if err != nil {
			return nil, portfolio.DomainSummary{}, toolError(err)
		}
		return nil, *summary, nil
	}
}

func kpisHandler(svc PortfolioService) sdkmcp.ToolHandlerFor[KPIInput, portfolio.KPIReport] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in KPIInput) (*sdkmcp.CallToolResult, portfolio.KPIReport, error) {
		tenantID, err := tenantFrom(ctx)
		if err != nil {
			return nil, portfolio.KPIReport{}, err
		}
		report, err := svc.KPIs(ctx, tenantID, portfolio.KPIRequest{Domain: in.Domain, Level: in.Level})
		if err != nil {
			return nil, portfolio.KPIReport{}, toolError(err)
		}
		return nil, *report, nil
	}
}

func performanceHandler(svc PortfolioService) sdkmcp.ToolHandlerFor[emptyInput, PerformanceOutput] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, PerformanceOutput, error) {
		tenantID, err := tenantFrom(ctx)
		if err != nil {
			return nil, PerformanceOutput{}, err
		}
		scores, err := svc.Performance(ctx, tenantID)
		if err != nil {
			return nil, PerformanceOutput{}, toolError(err)
		}
		return nil, PerformanceOutput{Threshold: metrics.PerformanceThreshold, Domains: scores}, nil
	}
}

func projectHandler(svc PortfolioService) sdkmcp.ToolHandlerFor[ProjectInput, portfolio.ProjectDetail] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProjectInput) (*sdkmcp.CallToolResult, portfolio.ProjectDetail, error) {
		tenantID, err := tenantFrom(ctx)
		if err != nil {
			return nil, portfolio.ProjectDetail{}, err
		}
		detail, err := svc.Project(ctx, tenantID, in.ID)
		if err != nil {
			return nil, portfolio.ProjectDetail{}, toolError(err)
		}
		return nil, *detail, nil
	}
}

func programmeTrendsHandler(svc PortfolioService) sdkmcp.ToolHandlerFor[ProgrammeInput, TrendsOutput] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProgrammeInput) (*sdkmcp.CallToolResult, TrendsOutput, error) {
		tenantID, err := tenantFrom(ctx)
		if err != nil {
			return nil, TrendsOutput{}, err
		}
		series, err := svc.ProgrammeTrends(ctx, tenantID, in.Domain, in.Programme)
		if err != nil {
			return nil, TrendsOutput{}, toolError(err)
		}
		return nil, TrendsOutput{Domain: in.Domain, Programme: in.Programme, Series: series}, nil
	}
}

func programmeBudgetsHandler(svc PortfolioService) sdkmcp.ToolHandlerFor[DomainInput, ProgrammeBudgetsOutput] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in DomainInput) (*sdkmcp.CallToolResult, ProgrammeBudgetsOutput, error) {
		tenantID, err := tenantFrom(ctx)
		if err != nil {
			return nil, ProgrammeBudgetsOutput{}, err
		}
		budgets, err := svc.ProgrammeBudgets(ctx, tenantID, in.Domain)
		if err != nil {
			return nil, ProgrammeBudgetsOutput{}, toolError(err)
		}
		return nil, ProgrammeBudgetsOutput{Domain: in.Domain, Programmes: budgets}, nil
	}
}

func programmeProjectsHandler(svc PortfolioService) sdkmcp.ToolHandlerFor[ProgrammeInput, portfolio.ProgrammeProjects] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProgrammeInput) (*sdkmcp.CallToolResult, portfolio.ProgrammeProjects, error) {
		tenantID, err := tenantFrom(ctx)
		if err != nil {
			return nil, portfolio.ProgrammeProjects{}, err
		}
		projects, err := svc.ProgrammeProjects(ctx, tenantID, in.Domain, in.Programme)
		if err != nil {
			return nil, portfolio.ProgrammeProjects{}, toolError(err)
		}
		return nil, *projects, nil
	}
}
