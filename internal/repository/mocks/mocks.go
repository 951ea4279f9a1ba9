package mocks

import (
	"context"

	"github.com/rpggio/portfolio-kpi/internal/metrics"
	"github.com/rpggio/portfolio-kpi/internal/repository"
	"github.com/stretchr/testify/mock"
)

// RecordSource is a mock for repository.RecordSource.
type RecordSource struct {
	mock.Mock
}

func (m *RecordSource) ListRecords(ctx context.Context, tenantID string) ([]metrics.ProjectRecord, error) {
	args := m.Called(ctx, tenantID)
	if list, ok := args.Get(0).([]metrics.ProjectRecord); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RecordSource) GetRecord(ctx context.Context, tenantID, projectID string) (*metrics.ProjectRecord, error) {
	args := m.Called(ctx, tenantID, projectID)
	if rec, ok := args.Get(0).(*metrics.ProjectRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

// SnapshotImporter is a mock for repository.SnapshotImporter.
type SnapshotImporter struct {
	mock.Mock
}

func (m *SnapshotImporter) ImportSnapshot(ctx context.Context, tenantID string, snap repository.Snapshot) error {
	args := m.Called(ctx, tenantID, snap)
	return args.Error(0)
}

// TenantResolver is a mock for repository.TenantResolver.
type TenantResolver struct {
	mock.Mock
}

func (m *TenantResolver) ResolveTenant(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}
