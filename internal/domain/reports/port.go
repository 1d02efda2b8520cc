package reports

import (
	"context"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// Repository port for persisting and querying report jobs
type Repository interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, tenant string, id ReportID) (*Report, error)
	UpdateStatus(ctx context.Context, tenant string, id ReportID, status JobStatus, failureReason string) error
	Paginate(ctx context.Context, tenant string, clientID entities.ClientID, page, pageSize int) ([]*Report, error)
}

// Renderer port (external collaborator): consumes the completed report
// contract and produces an opaque local artifact for upload.
type Renderer interface {
	Render(ctx context.Context, r *Report) (localPath string, err error)
}

// ArtifactStore port for rendered report documents
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
}
