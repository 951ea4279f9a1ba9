package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rpggio/portfolio-kpi/internal/metrics"
	"github.com/rpggio/portfolio-kpi/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Service assembles portfolio reports. Every call reads a fresh snapshot from the repository;
// nothing is cached between calls.
type Service struct {
	repo    Repository
	weights metrics.Weights
	logger  *slog.Logger
}

// NewService creates a new portfolio service. Weights are expected to be validated by the
// caller; invalid weights surface as metrics.ErrInvalidArgument from Performance.
func NewService(repo Repository, weights metrics.Weights, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, weights: weights, logger: logger}
}

func (s *Service) snapshot(ctx context.Context, tenantID string) ([]metrics.ProjectRecord, error) {
	records, err := s.repo.ListRecords(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	s.logger.Debug("loaded portfolio snapshot", "tenant", tenantID, "records", len(records))
	return records, nil
}

// Domains lists the tenant's domains in source order.
func (s *Service) Domains(ctx context.Context, tenantID string) ([]string, error) {
	records, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return metrics.Domains(records), nil
}

// Overview returns the all-domains headline view.
func (s *Service) Overview(ctx context.Context, tenantID string) (metrics.Overview, error) {
	records, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return metrics.Overview{}, err
	}
	return metrics.OverviewOf(records), nil
}

// KPIs builds the efficiency report of one level, optionally restricted to a domain.
func (s *Service) KPIs(ctx context.Context, tenantID string, req KPIRequest) (*KPIReport, error) {
	level := metrics.LevelDomain
	if strings.TrimSpace(req.Level) != "" {
		parsed, err := metrics.ParseLevel(req.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	records, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	report, err := kpiReport(records, req.Domain, level)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func kpiReport(records []metrics.ProjectRecord, domain string, level metrics.Level) (KPIReport, error) {
	if domain == "" {
		domain = metrics.AllDomains
	}
	filtered := metrics.FilterDomain(records, domain)
	if domain != metrics.AllDomains && len(filtered) == 0 {
		return KPIReport{}, fmt.Errorf("%w: %q", ErrDomainNotFound, domain)
	}

	rows, err := metrics.AggregateEfficiency(filtered, level)
	if err != nil {
		return KPIReport{}, fmt.Errorf("aggregating %s kpis: %w", level, err)
	}
	return KPIReport{
		Level:   level,
		Domain:  domain,
		Rows:    rows,
		Summary: metrics.Summarize(rows),
	}, nil
}

// Performance scores every domain of the tenant.
func (s *Service) Performance(ctx context.Context, tenantID string) ([]metrics.DomainPerformance, error) {
	records, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return metrics.ScoreDomainsWith(records, s.weights)
}

// DomainSummary returns the single-domain view. The domain is scored against the whole
// portfolio, so its budget and output shares are portfolio shares.
func (s *Service) DomainSummary(ctx context.Context, tenantID, domain string) (*DomainSummary, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, fmt.Errorf("%w: domain is required", ErrInvalidInput)
	}
	records, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stats, ok := metrics.StatsFor(records, domain)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDomainNotFound, domain)
	}

	programmes, err := metrics.AggregateEfficiency(metrics.FilterDomain(records, domain), metrics.LevelProgramme)
	if err != nil {
		return nil, fmt.Errorf("aggregating programmes: %w", err)
	}

	scores, err := metrics.ScoreDomainsWith(records, s.weights)
	if err != nil {
		return nil, err
	}

	summary := &DomainSummary{DomainStats: stats, ProgrammeEfficiency: programmes}
	for i := range scores {
		if scores[i].Domain == domain {
			summary.Performance = &scores[i]
			break
		}
	}
	return summary, nil
}

// Project returns one project with its budget breakdown and efficiency.
func (s *Service) Project(ctx context.Context, tenantID, projectID string) (*ProjectDetail, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrInvalidInput)
	}
	rec, err := s.repo.GetRecord(ctx, tenantID, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrProjectNotFound, projectID)
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}

	detail, err := projectDetail(*rec)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func projectDetail(rec metrics.ProjectRecord) (ProjectDetail, error) {
	points, err := metrics.BudgetBreakdown(rec)
	if err != nil {
		return ProjectDetail{}, err
	}
	return ProjectDetail{
		Record:      rec,
		StatusLabel: rec.Status.Label(),
		Budget:      points,
		Efficiency: metrics.EfficiencyOf(metrics.Rollup{
			Name:        rec.ProjectName,
			Domain:      rec.Domain,
			ProjectID:   rec.ProjectID,
			TotalBudget: rec.Budget(),
			KPICounts:   rec.Outputs(),
			Members:     1,
		}),
	}, nil
}

// ProgrammeProjects returns every project of a programme in source order, including
// projects without budget details.
func (s *Service) ProgrammeProjects(ctx context.Context, tenantID, domain, programme string) (*ProgrammeProjects, error) {
	if strings.TrimSpace(domain) == "" || strings.TrimSpace(programme) == "" {
		return nil, fmt.Errorf("%w: domain and programme are required", ErrInvalidInput)
	}
	records, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := &ProgrammeProjects{Domain: domain, Programme: programme, Projects: make([]ProjectDetail, 0)}
	for _, rec := range records {
		if rec.Domain != domain || rec.Programme != programme {
			continue
		}
		detail, err := projectDetail(rec)
		if err != nil {
			return nil, err
		}
		out.Projects = append(out.Projects, detail)
	}
	if len(out.Projects) == 0 {
		return nil, fmt.Errorf("%w: %q in %q", ErrProgrammeNotFound, programme, domain)
	}
	return out, nil
}

// ProgrammeTrends returns the budget history of every project in a programme.
func (s *Service) ProgrammeTrends(ctx context.Context, tenantID, domain, programme string) ([]metrics.BudgetSeries, error) {
	if strings.TrimSpace(domain) == "" || strings.TrimSpace(programme) == "" {
		return nil, fmt.Errorf("%w: domain and programme are required", ErrInvalidInput)
	}
	records, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !hasProgramme(records, domain, programme) {
		return nil, fmt.Errorf("%w: %q in %q", ErrProgrammeNotFound, programme, domain)
	}
	return metrics.BudgetTrends(records, domain, programme)
}

func hasProgramme(records []metrics.ProjectRecord, domain, programme string) bool {
	for _, rec := range records {
		if rec.Domain == domain && rec.Programme == programme {
			return true
		}
	}
	return false
}

// ProgrammeBudgets splits a domain budget across its programmes.
func (s *Service) ProgrammeBudgets(ctx context.Context, tenantID, domain string) ([]ProgrammeBudget, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, fmt.Errorf("%w: domain is required", ErrInvalidInput)
	}
	records, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	filtered := metrics.FilterDomain(records, domain)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrDomainNotFound, domain)
	}

	rollups, err := metrics.Aggregate(filtered, metrics.LevelProgramme)
	if err != nil {
		return nil, fmt.Errorf("aggregating programmes: %w", err)
	}

	var total float64
	for _, r := range rollups {
		total += r.TotalBudget
	}
	budgets := make([]ProgrammeBudget, 0, len(rollups))
	for _, r := range rollups {
		var share float64
		if total != 0 {
			share = r.TotalBudget / total * 100
		}
		budgets = append(budgets, ProgrammeBudget{Programme: r.Name, Budget: r.TotalBudget, Share: share})
	}
	return budgets, nil
}

// Dashboard builds the overview, the domain scores and the KPI report of every level from a
// single snapshot. The views are independent and are computed concurrently.
func (s *Service) Dashboard(ctx context.Context, tenantID string) (*Dashboard, error) {
	records, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{KPIs: make(map[metrics.Level]KPIReport, len(metrics.Levels))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dash.Overview = metrics.OverviewOf(records)
		return nil
	})
	g.Go(func() error {
		scores, err := metrics.ScoreDomainsWith(records, s.weights)
		if err != nil {
			return err
		}
		dash.Performance = scores
		return nil
	})
	for _, level := range metrics.Levels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := kpiReport(records, metrics.AllDomains, level)
			if err != nil {
				return err
			}
			mu.Lock()
			dash.KPIs[level] = report
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}
