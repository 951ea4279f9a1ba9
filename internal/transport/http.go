package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/portfolio-kpi/internal/domain/portfolio"
	"github.com/rpggio/portfolio-kpi/internal/metrics"
)

// PortfolioService defines the portfolio operations served over HTTP.
type PortfolioService interface {
	Overview(ctx context.Context, tenantID string) (metrics.Overview, error)
	DomainSummary(ctx context.Context, tenantID, domain string) (*portfolio.DomainSummary, error)
	KPIs(ctx context.Context, tenantID string, req portfolio.KPIRequest) (*portfolio.KPIReport, error)
	Performance(ctx context.Context, tenantID string) ([]metrics.DomainPerformance, error)
	Project(ctx context.Context, tenantID, projectID string) (*portfolio.ProjectDetail, error)
	ProgrammeTrends(ctx context.Context, tenantID, domain, programme string) ([]metrics.BudgetSeries, error)
	ProgrammeProjects(ctx context.Context, tenantID, domain, programme string) (*portfolio.ProgrammeProjects, error)
	ProgrammeBudgets(ctx context.Context, tenantID, domain string) ([]portfolio.ProgrammeBudget, error)
	Dashboard(ctx context.Context, tenantID string) (*portfolio.Dashboard, error)
}

// Options configures the HTTP router.
type Options struct {
	// Auth places the tenant in the request context. Required.
	Auth func(http.Handler) http.Handler
	// Limiter throttles /api per tenant. Nil disables limiting.
	Limiter *TenantLimiter
	// MCP, when set, is mounted at /mcp outside the REST auth chain.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	svc    PortfolioService
	logger *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(svc PortfolioService, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
		r.Handle("/mcp/*", opts.MCP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(opts.Auth)
		if opts.Limiter != nil {
			r.Use(opts.Limiter.Middleware)
		}

		r.Get("/overview", srv.handleOverview)
		r.Get("/dashboard", srv.handleDashboard)
		r.Get("/performance", srv.handlePerformance)
		r.Get("/kpis", srv.handleKPIs)
		r.Get("/projects/{id}", srv.handleProject)
		r.Get("/domains/{domain}", srv.handleDomain)
		r.Get("/domains/{domain}/programmes", srv.handleProgrammeBudgets)
		r.Get("/domains/{domain}/programmes/{programme}/trends", srv.handleProgrammeTrends)
		r.Get("/domains/{domain}/programmes/{programme}/projects", srv.handleProgrammeProjects)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.svc.Overview(r.Context(), tenant(r))
	s.respond(w, r, ov, err)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.svc.Dashboard(r.Context(), tenant(r))
	s.respond(w, r, dash, err)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	scores, err := s.svc.Performance(r.Context(), tenant(r))
	s.respond(w, r, map[string]any{
		"threshold": metrics.PerformanceThreshold,
		"domains":   scores,
	}, err)
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := s.svc.KPIs(r.Context(), tenant(r), portfolio.KPIRequest{
		Domain: q.Get("domain"),
		Level:  q.Get("level"),
	})
	s.respond(w, r, report, err)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.Project(r.Context(), tenant(r), pathParam(r, "id"))
	s.respond(w, r, detail, err)
}

func (s *Server) handleDomain(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.DomainSummary(r.Context(), tenant(r), pathParam(r, "domain"))
	s.respond(w, r, summary, err)
}

func (s *Server) handleProgrammeBudgets(w http.ResponseWriter, r *http.Request) {
	domain := pathParam(r, "domain")
	budgets, err := s.svc.ProgrammeBudgets(r.Context(), tenant(r), domain)
	s.respond(w, r, map[string]any{
		"domain":     domain,
		"programmes": budgets,
	}, err)
}

func (s *Server) handleProgrammeTrends(w http.ResponseWriter, r *http.Request) {
	domain, programme := pathParam(r, "domain"), pathParam(r, "programme")
	series, err := s.svc.ProgrammeTrends(r.Context(), tenant(r), domain, programme)
	s.respond(w, r, map[string]any{
		"domain":    domain,
		"programme": programme,
		"series":    series,
	}, err)
}

func (s *Server) handleProgrammeProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.svc.ProgrammeProjects(r.Context(), tenant(r), pathParam(r, "domain"), pathParam(r, "programme"))
	s.respond(w, r, projects, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, body any, err error) {
	if err != nil {
		status, code := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("request failed", "path", r.URL.Path, "error", err)
			writeError(w, status, code, "internal error")
			return
		}
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func tenant(r *http.Request) string {
	tenantID, _ := TenantFromContext(r.Context())
	return tenantID
}

func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// statusFor maps domain errors to an HTTP status and an error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, metrics.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, portfolio.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, metrics.ErrDataFormat):
		return http.StatusUnprocessableEntity, "DATA_FORMAT"
	case errors.Is(err, portfolio.ErrProjectNotFound):
		return http.StatusNotFound, "PROJECT_NOT_FOUND"
	case errors.Is(err, portfolio.ErrDomainNotFound):
		return http.StatusNotFound, "DOMAIN_NOT_FOUND"
	case errors.Is(err, portfolio.ErrProgrammeNotFound):
		return http.StatusNotFound, "PROGRAMME_NOT_FOUND"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
