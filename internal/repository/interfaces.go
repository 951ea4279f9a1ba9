package repository

import (
	"context"

	"github.com/rpggio/portfolio-kpi/internal/metrics"
)

// RecordSource supplies flat project records for a tenant. Every call returns a fresh
// snapshot; callers must not share the returned slice across requests they mutate.
type RecordSource interface {
	ListRecords(ctx context.Context, tenantID string) ([]metrics.ProjectRecord, error)
	GetRecord(ctx context.Context, tenantID, projectID string) (*metrics.ProjectRecord, error)
}

// SnapshotImporter replaces a tenant's portfolio in one step.
type SnapshotImporter interface {
	ImportSnapshot(ctx context.Context, tenantID string, snap Snapshot) error
}

// Snapshot is a full portfolio for one tenant. Descriptions keyed by domain name are
// optional.
type Snapshot struct {
	DomainDescriptions map[string]string
	Records            []metrics.ProjectRecord
}

// TenantResolver maps an API key to a tenant ID.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, token string) (string, error)
}
