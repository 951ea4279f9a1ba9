package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/rpggio/portfolio-kpi/internal/domain/portfolio"
	"github.com/rpggio/portfolio-kpi/internal/metrics"
	"github.com/rpggio/portfolio-kpi/internal/repository"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type recordSourceStub struct {
	records map[string][]metrics.ProjectRecord
}

func (s recordSourceStub) ListRecords(_ context.Context, tenantID string) ([]metrics.ProjectRecord, error) {
	return s.records[tenantID], nil
}

func (s recordSourceStub) GetRecord(_ context.Context, tenantID, projectID string) (*metrics.ProjectRecord, error) {
	for _, rec := range s.records[tenantID] {
		if rec.ProjectID == projectID {
			rec := rec
			return &rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

type resolverStub map[string]string

func (r resolverStub) ResolveTenant(_ context.Context, token string) (string, error) {
	if tenant, ok := r[token]; ok {
		return tenant, nil
	}
	return "", repository.ErrUnauthorized
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func testRecords() []metrics.ProjectRecord {
	return []metrics.ProjectRecord{
		{Domain: "AI", Programme: "NLP", ProjectName: "Parser", ProjectID: "p1", TotalBudget: f64(100), JournalArticles: i64(2), Status: metrics.StatusActive,
			BudgetDetails: []metrics.BudgetEntry{{FiscalYear: "2023/24", Year: 2023, Amount: "100"}}},
		{Domain: "AI", Programme: "NLP", ProjectName: "Tagger", ProjectID: "p2", TotalBudget: f64(50), ConferencePapers: i64(1)},
	}
}

func newTestService() *portfolio.Service {
	source := recordSourceStub{records: map[string][]metrics.ProjectRecord{"default": testRecords()}}
	return portfolio.NewService(source, metrics.DefaultWeights(), nil)
}

func connect(t *testing.T, server *sdkmcp.Server) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any, out any) *sdkmcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return res
}

func errorText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServer_ListsToolsAndDocs(t *testing.T) {
	session := connect(t, NewServer(Config{Portfolio: newTestService(), TransportMode: "stdio"}))
	ctx := context.Background()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{
		"list_domains", "get_overview", "get_domain_summary", "get_kpis",
		"get_domain_performance", "get_project", "get_programme_trends", "get_programme_budgets",
		"get_programme_projects",
	}, names)

	resources, err := session.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, resources.Resources, len(docResources))

	doc, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "portfolio://docs/metrics"})
	require.NoError(t, err)
	require.Contains(t, doc.Contents[0].Text, "0 means not computable")
	require.Contains(t, doc.Contents[0].Text, "default weights")
}

func TestServer_KPIs(t *testing.T) {
	session := connect(t, NewServer(Config{Portfolio: newTestService(), TransportMode: "stdio"}))

	var report portfolio.KPIReport
	res := callTool(t, session, "get_kpis", map[string]any{"level": "domain"}, &report)
	require.False(t, res.IsError)
	require.Equal(t, metrics.LevelDomain, report.Level)
	require.Len(t, report.Rows, 1)
	require.Equal(t, "AI", report.Rows[0].Name)
	require.InDelta(t, 50.0, report.Rows[0].CostPerKPI, 1e-9)
	require.InDelta(t, 75.0, report.Rows[0].CostPerJournalArticle, 1e-9)

	res = callTool(t, session, "get_kpis", map[string]any{"level": "department"}, nil)
	require.Contains(t, errorText(t, res), "INVALID_ARGUMENT")
}

func TestServer_Performance(t *testing.T) {
	session := connect(t, NewServer(Config{Portfolio: newTestService(), TransportMode: "stdio"}))

	var out PerformanceOutput
	callTool(t, session, "get_domain_performance", nil, &out)
	require.Equal(t, metrics.PerformanceThreshold, out.Threshold)
	require.Len(t, out.Domains, 1)
	require.InDelta(t, 85.0, out.Domains[0].PerformanceScore, 1e-9)
	require.True(t, out.Domains[0].MeetsThreshold)
}

func TestServer_OverviewAndDomains(t *testing.T) {
	session := connect(t, NewServer(Config{Portfolio: newTestService(), TransportMode: "stdio"}))

	var ov metrics.Overview
	callTool(t, session, "get_overview", nil, &ov)
	require.Equal(t, 150.0, ov.TotalBudget)
	require.Equal(t, 1, ov.ProgrammeCount)

	var domains DomainsOutput
	callTool(t, session, "list_domains", nil, &domains)
	require.Equal(t, []string{"AI"}, domains.Domains)
}

func TestServer_DomainTools(t *testing.T) {
	session := connect(t, NewServer(Config{Portfolio: newTestService(), TransportMode: "stdio"}))

	var summary portfolio.DomainSummary
	res := callTool(t, session, "get_domain_summary", map[string]any{"domain": "AI"}, &summary)
	require.False(t, res.IsError, "get_domain_summary: %+v", res.Content)
	require.Equal(t, 2, summary.TotalProjects)
	require.Equal(t, 1, summary.ActiveProjects)
	require.Equal(t, []string{"NLP"}, summary.Programmes)
	require.Len(t, summary.ProgrammeEfficiency, 1)
	require.Equal(t, "NLP", summary.ProgrammeEfficiency[0].Name)
	require.Equal(t, int64(3), summary.ProgrammeEfficiency[0].TotalKPIs)

	var budgets ProgrammeBudgetsOutput
	callTool(t, session, "get_programme_budgets", map[string]any{"domain": "AI"}, &budgets)
	require.Len(t, budgets.Programmes, 1)
	require.InDelta(t, 100.0, budgets.Programmes[0].Share, 1e-9)

	var trends TrendsOutput
	callTool(t, session, "get_programme_trends", map[string]any{"domain": "AI", "programme": "NLP"}, &trends)
	require.Len(t, trends.Series, 1)
	require.Equal(t, "p1", trends.Series[0].ProjectID)

	res = callTool(t, session, "get_domain_summary", map[string]any{"domain": "Health"}, nil)
	require.Contains(t, errorText(t, res), "DOMAIN_NOT_FOUND")
}

func TestServer_ProgrammeProjects(t *testing.T) {
	session := connect(t, NewServer(Config{Portfolio: newTestService(), TransportMode: "stdio"}))

	var projects portfolio.ProgrammeProjects
	res := callTool(t, session, "get_programme_projects", map[string]any{"domain": "AI", "programme": "NLP"}, &projects)
	require.False(t, res.IsError, "get_programme_projects: %+v", res.Content)
	require.Len(t, projects.Projects, 2)
	require.Equal(t, "Parser", projects.Projects[0].Record.ProjectName)
	require.Equal(t, "Active", projects.Projects[0].StatusLabel)
	require.Len(t, projects.Projects[0].Budget, 1)
	require.Equal(t, "Tagger", projects.Projects[1].Record.ProjectName)
	require.Empty(t, projects.Projects[1].Budget)

	res = callTool(t, session, "get_programme_projects", map[string]any{"domain": "AI", "programme": "Vision"}, nil)
	require.Contains(t, errorText(t, res), "PROGRAMME_NOT_FOUND")
}

func TestServer_Project(t *testing.T) {
	session := connect(t, NewServer(Config{Portfolio: newTestService(), TransportMode: "stdio"}))

	var detail portfolio.ProjectDetail
	callTool(t, session, "get_project", map[string]any{"id": "p1"}, &detail)
	require.Equal(t, "Parser", detail.Record.ProjectName)
	require.Equal(t, "Active", detail.StatusLabel)
	require.Len(t, detail.Budget, 1)

	res := callTool(t, session, "get_project", map[string]any{"id": "missing"}, nil)
	require.Contains(t, errorText(t, res), "PROJECT_NOT_FOUND")
}

func TestServer_AuthRequiredOverHTTP(t *testing.T) {
	session := connect(t, NewServer(Config{
		Portfolio:     newTestService(),
		Resolver:      resolverStub{"secret": "default"},
		AuthEnabled:   true,
		TransportMode: "http",
	}))

	_, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: "list_domains", Arguments: map[string]any{}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unauthorized")
}

func TestAuthMiddleware(t *testing.T) {
	var gotTenant string
	next := func(ctx context.Context, _ string, _ sdkmcp.Request) (sdkmcp.Result, error) {
		gotTenant = getTenantID(ctx)
		return nil, nil
	}
	handler := authMiddleware(resolverStub{"secret": "tenant1"})(next)

	request := func(header string) sdkmcp.Request {
		h := http.Header{}
		if header != "" {
			h.Set("Authorization", header)
		}
		return &sdkmcp.CallToolRequest{
			Params: &sdkmcp.CallToolParamsRaw{Name: "list_domains"},
			Extra:  &sdkmcp.RequestExtra{Header: h},
		}
	}

	_, err := handler(context.Background(), "tools/call", request("Bearer secret"))
	require.NoError(t, err)
	require.Equal(t, "tenant1", gotTenant)

	_, err = handler(context.Background(), "tools/call", request("Bearer wrong"))
	require.ErrorIs(t, err, repository.ErrUnauthorized)

	_, err = handler(context.Background(), "tools/call", request(""))
	require.ErrorContains(t, err, "missing bearer token")

	gotTenant = ""
	_, err = handler(context.Background(), "initialize", request(""))
	require.NoError(t, err)
	require.Empty(t, gotTenant)
}

func TestNoAuthMiddlewareDefaultsTenant(t *testing.T) {
	var gotTenant string
	next := func(ctx context.Context, _ string, _ sdkmcp.Request) (sdkmcp.Result, error) {
		gotTenant = getTenantID(ctx)
		return nil, nil
	}
	_, err := noAuthMiddleware("")(next)(context.Background(), "tools/call", nil)
	require.NoError(t, err)
	require.Equal(t, "default", gotTenant)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{err: metrics.ErrInvalidArgument, code: "INVALID_ARGUMENT"},
		{err: metrics.ErrDataFormat, code: "DATA_FORMAT"},
		{err: portfolio.ErrProjectNotFound, code: "PROJECT_NOT_FOUND"},
		{err: portfolio.ErrDomainNotFound, code: "DOMAIN_NOT_FOUND"},
		{err: portfolio.ErrProgrammeNotFound, code: "PROGRAMME_NOT_FOUND"},
		{err: portfolio.ErrInvalidInput, code: "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiErr := MapError(errors.Join(errors.New("context"), tt.err))
			require.NotNil(t, apiErr)
			require.Equal(t, tt.code, apiErr.Code)
		})
	}

	weights := MapError(fmt.Errorf("scoring: %w", metrics.ErrInvalidArgument))
	require.NotContains(t, weights.RecoveryHint, "level")

	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(errors.New("boom")))
}

func TestTrafficLoggingDisabledBelowDebug(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	called := false
	next := func(context.Context, string, sdkmcp.Request) (sdkmcp.Result, error) {
		called = true
		return nil, nil
	}
	_, err := trafficLoggingMiddleware(logger, "inbound")(next)(context.Background(), "tools/call", nil)
	require.NoError(t, err)
	require.True(t, called)
}
