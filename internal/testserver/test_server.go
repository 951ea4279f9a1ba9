// Package testserver starts the full HTTP stack against an in-memory database for
// functional tests.
package testserver

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/portfolio-kpi/internal/domain/portfolio"
	"github.com/rpggio/portfolio-kpi/internal/mcp"
	"github.com/rpggio/portfolio-kpi/internal/metrics"
	"github.com/rpggio/portfolio-kpi/internal/seed"
	"github.com/rpggio/portfolio-kpi/internal/sqlite"
	"github.com/rpggio/portfolio-kpi/internal/transport"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/portfolio.yaml
var fixture []byte

type TestServer struct {
	Server    *httptest.Server
	DB        *sqlite.DB
	Keys      *sqlite.APIKeyRepository
	Portfolio *sqlite.PortfolioRepository
	Token     string
	TenantID  string
}

// New starts a server with bearer auth on both the REST API and MCP. token is registered
// for tenantID.
func New(t *testing.T, token, tenantID string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	keys := sqlite.NewAPIKeyRepository(db)
	portfolioRepo := sqlite.NewPortfolioRepository(db)
	svc := portfolio.NewService(portfolioRepo, metrics.DefaultWeights(), nil)

	mcpServer := mcp.NewServer(mcp.Config{
		Portfolio:     svc,
		Resolver:      keys,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	router := transport.NewServer(svc, transport.Options{
		Auth: transport.AuthMiddleware(keys),
		MCP:  mcpHandler,
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:    server,
		DB:        db,
		Keys:      keys,
		Portfolio: portfolioRepo,
		Token:     token,
		TenantID:  tenantID,
	}

	require.NoError(t, ts.AddAPIKey(token, tenantID))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

func (ts *TestServer) AddAPIKey(token, tenantID string) error {
	return ts.Keys.AddKey(context.Background(), tenantID, token, "test")
}

// Seed imports the bundled fixture portfolio for tenantID.
func (ts *TestServer) Seed(t *testing.T, tenantID string) int {
	t.Helper()
	ds, err := seed.Parse(fixture)
	require.NoError(t, err)
	n, err := seed.Import(context.Background(), ts.Portfolio, tenantID, ds)
	require.NoError(t, err)
	return n
}

// Get issues an authenticated GET against path.
func (ts *TestServer) Get(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.Server.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ts.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}

// ConnectMCP opens an MCP client session over streamable HTTP using token.
func (ts *TestServer) ConnectMCP(t *testing.T, token string) *sdkmcp.ClientSession {
	t.Helper()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint: ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{
			Transport: &bearerTransport{token: token, base: http.DefaultTransport},
		},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}
