package testserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/portfolio-kpi/internal/domain/portfolio"
	"github.com/rpggio/portfolio-kpi/internal/metrics"
	"github.com/rpggio/portfolio-kpi/internal/testserver"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s failed: %+v", name, res.Content)
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestREST_SeededPortfolio(t *testing.T) {
	ts := testserver.New(t, "token", "tenant1")
	require.Equal(t, 4, ts.Seed(t, "tenant1"))

	var ov metrics.Overview
	decode(t, ts.Get(t, "/api/overview"), &ov)
	require.InDelta(t, 6400000.5, ov.TotalBudget, 1e-6)
	require.Equal(t, 2, ov.DomainCount)
	require.Equal(t, 3, ov.ProgrammeCount)
	require.Equal(t, 4, ov.ProjectCount)
	require.Equal(t, []string{"Artificial Intelligence", "Energy"}, ov.Domains)

	var report portfolio.KPIReport
	decode(t, ts.Get(t, "/api/kpis"), &report)
	require.Equal(t, metrics.LevelDomain, report.Level)
	require.Len(t, report.Rows, 2)
	require.Equal(t, int64(18), report.Rows[0].TotalKPIs)
	require.Equal(t, int64(2), report.Rows[1].TotalKPIs)
	require.InDelta(t, 1050000.0, report.Rows[1].CostPerKPI, 1e-6)
	require.NotNil(t, report.Summary.MostEfficient)
	require.Equal(t, "Artificial Intelligence", report.Summary.MostEfficient.Name)

	var perf struct {
		Domains []metrics.DomainPerformance `json:"domains"`
	}
	decode(t, ts.Get(t, "/api/performance"), &perf)
	require.Len(t, perf.Domains, 2)
	require.True(t, perf.Domains[0].MeetsThreshold)
	require.False(t, perf.Domains[1].MeetsThreshold)
	require.InDelta(t, 100.0, perf.Domains[1].ActivityScore, 1e-9)

	var detail portfolio.ProjectDetail
	decode(t, ts.Get(t, "/api/projects/ai-nlp-001"), &detail)
	require.Equal(t, "Multilingual Parser", detail.Record.ProjectName)
	require.InDelta(t, 2550000.5, detail.Efficiency.TotalBudget, 1e-6)
	require.Len(t, detail.Budget, 2)
	require.Equal(t, "Active", detail.StatusLabel)
}

func TestREST_RequiresBearerToken(t *testing.T) {
	ts := testserver.New(t, "token", "tenant1")

	resp, err := http.Get(ts.Server.URL + "/api/overview")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestREST_TenantIsolation(t *testing.T) {
	ts := testserver.New(t, "token", "tenant1")
	ts.Seed(t, "tenant1")
	require.NoError(t, ts.AddAPIKey("other-token", "tenant2"))

	other := *ts
	other.Token = "other-token"

	var ov metrics.Overview
	decode(t, other.Get(t, "/api/overview"), &ov)
	require.Zero(t, ov.ProjectCount)
	require.Empty(t, ov.Domains)

	resp := other.Get(t, "/api/projects/ai-nlp-001")
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMCP_SeededPortfolio(t *testing.T) {
	ts := testserver.New(t, "token", "tenant1")
	ts.Seed(t, "tenant1")
	session := ts.ConnectMCP(t, ts.Token)

	var domains struct {
		Domains []string `json:"domains"`
	}
	callTool(t, session, "list_domains", nil, &domains)
	require.Equal(t, []string{"Artificial Intelligence", "Energy"}, domains.Domains)

	var report portfolio.KPIReport
	callTool(t, session, "get_kpis", map[string]any{"level": "programme", "domain": "Artificial Intelligence"}, &report)
	require.Len(t, report.Rows, 2)
	require.Equal(t, "Computer Vision", report.Rows[0].Name)
	require.Equal(t, "Natural Language Processing", report.Rows[1].Name)

	var budgets struct {
		Programmes []portfolio.ProgrammeBudget `json:"programmes"`
	}
	callTool(t, session, "get_programme_budgets", map[string]any{"domain": "Energy"}, &budgets)
	require.Len(t, budgets.Programmes, 1)
	require.InDelta(t, 100.0, budgets.Programmes[0].Share, 1e-9)
}

func TestMCP_RejectsUnknownToken(t *testing.T) {
	ts := testserver.New(t, "token", "tenant1")
	session := ts.ConnectMCP(t, "wrong")

	_, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: "list_domains", Arguments: map[string]any{}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unauthorized")
}

func TestREST_ProgrammeProjectsAndDomainDescription(t *testing.T) {
	ts := testserver.New(t, "token", "tenant1")
	ts.Seed(t, "tenant1")

	var projects portfolio.ProgrammeProjects
	decode(t, ts.Get(t, "/api/domains/Artificial%20Intelligence/programmes/Natural%20Language%20Processing/projects"), &projects)
	require.Len(t, projects.Projects, 2)
	require.Equal(t, "Multilingual Parser", projects.Projects[0].Record.ProjectName)
	require.Equal(t, "Access to services in all official languages", projects.Projects[0].Record.NationalProblem)
	require.Equal(t, "Computer Science", projects.Projects[0].Record.Department)
	require.Len(t, projects.Projects[0].Budget, 2)
	require.Equal(t, "Speech Corpus", projects.Projects[1].Record.ProjectName)
	require.Equal(t, "Inactive", projects.Projects[1].StatusLabel)
	require.Empty(t, projects.Projects[1].Budget)

	var summary portfolio.DomainSummary
	decode(t, ts.Get(t, "/api/domains/Energy"), &summary)
	require.Equal(t, "Renewable generation and storage", summary.Description)
	require.Equal(t, []string{"Storage"}, summary.Programmes)
	require.Len(t, summary.ProgrammeEfficiency, 1)
}

func TestMCP_DomainSummary(t *testing.T) {
	ts := testserver.New(t, "token", "tenant1")
	ts.Seed(t, "tenant1")
	session := ts.ConnectMCP(t, ts.Token)

	var summary portfolio.DomainSummary
	callTool(t, session, "get_domain_summary", map[string]any{"domain": "Artificial Intelligence"}, &summary)
	require.Equal(t, "Machine learning and language technology", summary.Description)
	require.Equal(t, []string{"Computer Vision", "Natural Language Processing"}, summary.Programmes)
	require.Len(t, summary.ProgrammeEfficiency, 2)
}
