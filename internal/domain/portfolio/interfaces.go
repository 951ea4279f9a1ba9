package portfolio

import (
	"context"

	"github.com/rpggio/portfolio-kpi/internal/metrics"
)

// Repository supplies the flat project records of a tenant.
type Repository interface {
	ListRecords(ctx context.Context, tenantID string) ([]metrics.ProjectRecord, error)
	GetRecord(ctx context.Context, tenantID, projectID string) (*metrics.ProjectRecord, error)
}
