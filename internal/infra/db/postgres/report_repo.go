package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pulsemsp/pulse/internal/domain/entities"
	domain "github.com/pulsemsp/pulse/internal/domain/reports"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Save inserts or updates a report job row
func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO reports
  (id, tenant_id, client_id, quarter, status, scores_json, narrative_json, review_flags_json,
   artifact_url, failure_reason, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  scores_json = EXCLUDED.scores_json,
  narrative_json = EXCLUDED.narrative_json,
  review_flags_json = EXCLUDED.review_flags_json,
  artifact_url = EXCLUDED.artifact_url,
  failure_reason = EXCLUDED.failure_reason,
  updated_at = EXCLUDED.updated_at;`
	tenant := stringOrDash(rep.TenantID)
	scores := rep.ScoresJSON
	if strings.TrimSpace(scores) == "" {
		scores = "{}"
	}
	narrative := rep.NarrativeJSON
	if strings.TrimSpace(narrative) == "" {
		narrative = "{}"
	}
	flags := rep.ReviewFlagsJSON
	if strings.TrimSpace(flags) == "" {
		flags = "[]"
	}
	created := rep.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := rep.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err := r.db.ExecContext(ctx, q,
		rep.ID, tenant, rep.ClientID, rep.Quarter, rep.Status, scores, narrative, flags,
		rep.ArtifactURL, rep.FailureReason, created, updated,
	)
	return err
}

// Get by ID + tenant
func (r *ReportRepository) Get(ctx context.Context, tenant string, id domain.ReportID) (*domain.Report, error) {
	const q = `
SELECT id, tenant_id, client_id, quarter, status, scores_json, narrative_json, review_flags_json,
       artifact_url, failure_reason, created_at, updated_at
FROM reports WHERE tenant_id=$1 AND id=$2 LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, tenant, id)

	var rep domain.Report
	if err := row.Scan(&rep.ID, &rep.TenantID, &rep.ClientID, &rep.Quarter, &rep.Status,
		&rep.ScoresJSON, &rep.NarrativeJSON, &rep.ReviewFlagsJSON,
		&rep.ArtifactURL, &rep.FailureReason, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
		return nil, err
	}
	return &rep, nil
}

// UpdateStatus advances the job lifecycle column
func (r *ReportRepository) UpdateStatus(ctx context.Context, tenant string, id domain.ReportID, status domain.JobStatus, failureReason string) error {
	const q = `
UPDATE reports SET status=$1, failure_reason=$2, updated_at=$3 WHERE tenant_id=$4 AND id=$5;`
	_, err := r.db.ExecContext(ctx, q, status, failureReason, time.Now(), tenant, id)
	return err
}

// Paginate returns a page of report rows for one client, newest first
func (r *ReportRepository) Paginate(ctx context.Context, tenant string, clientID entities.ClientID, page, pageSize int) ([]*domain.Report, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, tenant_id, client_id, quarter, status, scores_json, narrative_json, review_flags_json,
       artifact_url, failure_reason, created_at, updated_at
FROM reports
WHERE tenant_id=$1 AND client_id=$2
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4;`
	rows, err := r.db.QueryContext(ctx, q, tenant, clientID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Report
	for rows.Next() {
		var rep domain.Report
		if err := rows.Scan(&rep.ID, &rep.TenantID, &rep.ClientID, &rep.Quarter, &rep.Status,
			&rep.ScoresJSON, &rep.NarrativeJSON, &rep.ReviewFlagsJSON,
			&rep.ArtifactURL, &rep.FailureReason, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rep)
	}
	return out, rows.Err()
}

var _ domain.Repository = (*ReportRepository)(nil)
