package syncruns

import (
	"context"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// Repository port for sync run records
type Repository interface {
	Save(ctx context.Context, r *Run) error
	Latest(ctx context.Context, tenant string, clientID entities.ClientID, limit int) ([]*Run, error)
}
