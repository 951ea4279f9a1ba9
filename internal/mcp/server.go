package mcp

import (
	"context"
	"log/slog"

	"github.com/rpggio/portfolio-kpi/internal/domain/portfolio"
	"github.com/rpggio/portfolio-kpi/internal/metrics"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// PortfolioService defines portfolio operations needed by MCP.
type PortfolioService interface {
	Domains(ctx context.Context, tenantID string) ([]string, error)
	Overview(ctx context.Context, tenantID string) (metrics.Overview, error)
	DomainSummary(ctx context.Context, tenantID, domain string) (*portfolio.DomainSummary, error)
	KPIs(ctx context.Context, tenantID string, req portfolio.KPIRequest) (*portfolio.KPIReport, error)
	Performance(ctx context.Context, tenantID string) ([]metrics.DomainPerformance, error)
	Project(ctx context.Context, tenantID, projectID string) (*portfolio.ProjectDetail, error)
	ProgrammeTrends(ctx context.Context, tenantID, domain, programme string) ([]metrics.BudgetSeries, error)
	ProgrammeProjects(ctx context.Context, tenantID, domain, programme string) (*portfolio.ProgrammeProjects, error)
	ProgrammeBudgets(ctx context.Context, tenantID, domain string) ([]portfolio.ProgrammeBudget, error)
}

// Config contains server configuration.
type Config struct {
	Portfolio     PortfolioService
	Resolver      TenantResolver
	AuthEnabled   bool
	DefaultTenant string
	TransportMode string // "stdio", "http" or "api"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "portfolio-kpi",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio mode is local only and never authenticates.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(cfg.DefaultTenant))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Portfolio)

	return server
}
