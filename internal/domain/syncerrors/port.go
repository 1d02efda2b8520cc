package syncerrors

import (
	"context"
)

// Repository defines persistence for sync errors
type Repository interface {
	Save(ctx context.Context, e *SyncError) error
	ListByRun(ctx context.Context, tenant string, runID string, limit int) ([]*SyncError, error)
}
