package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/syncerrors"
	"github.com/pulsemsp/pulse/internal/domain/syncruns"
)

type SyncRunRepository struct {
	db *sql.DB
}

func NewSyncRunRepository(db *sql.DB) *SyncRunRepository { return &SyncRunRepository{db: db} }

func (r *SyncRunRepository) Save(ctx context.Context, run *syncruns.Run) error {
	const q = `
INSERT INTO sync_runs (id, tenant_id, client_id, vendor, status, rows_upserted, duration_ms, triggered_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 rows_upserted = EXCLUDED.rows_upserted,
 duration_ms = EXCLUDED.duration_ms;`
	triggered := run.TriggeredAt
	if triggered.IsZero() {
		triggered = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		run.ID, stringOrDash(run.TenantID), run.ClientID, run.Vendor, run.Status,
		run.RowsUpserted, run.DurationMS, triggered)
	return err
}

func (r *SyncRunRepository) Latest(ctx context.Context, tenant string, clientID entities.ClientID, limit int) ([]*syncruns.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, client_id, vendor, status, rows_upserted, duration_ms, triggered_at
FROM sync_runs
WHERE tenant_id=$1 AND client_id=$2
ORDER BY triggered_at DESC, id DESC
LIMIT $3;`
	rows, err := r.db.QueryContext(ctx, q, tenant, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*syncruns.Run
	for rows.Next() {
		var run syncruns.Run
		if err := rows.Scan(&run.ID, &run.TenantID, &run.ClientID, &run.Vendor, &run.Status,
			&run.RowsUpserted, &run.DurationMS, &run.TriggeredAt); err != nil {
			return nil, err
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}

type SyncErrorRepository struct {
	db *sql.DB
}

func NewSyncErrorRepository(db *sql.DB) *SyncErrorRepository { return &SyncErrorRepository{db: db} }

func (r *SyncErrorRepository) Save(ctx context.Context, e *syncerrors.SyncError) error {
	const q = `
INSERT INTO sync_errors
  (tenant_id, run_id, vendor, phase, kind, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	details := e.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else {
		// ensure valid json; if invalid, wrap as string field
		var js any
		if json.Unmarshal([]byte(details), &js) != nil {
			b, _ := json.Marshal(map[string]string{"raw": details})
			details = string(b)
		}
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		stringOrDash(e.TenantID), stringOrDash(e.RunID), stringOrDash(e.Vendor),
		stringOrDash(e.Phase), stringOrDash(e.Kind), msg, details, created)
	return err
}

func (r *SyncErrorRepository) ListByRun(ctx context.Context, tenant string, runID string, limit int) ([]*syncerrors.SyncError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, run_id, vendor, phase, kind, message, details_json, created_at
FROM sync_errors
WHERE tenant_id = $1 AND run_id = $2
ORDER BY created_at DESC, id DESC
LIMIT $3;`
	rows, err := r.db.QueryContext(ctx, q, tenant, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*syncerrors.SyncError
	for rows.Next() {
		var e syncerrors.SyncError
		if err := rows.Scan(&e.ID, &e.TenantID, &e.RunID, &e.Vendor, &e.Phase, &e.Kind,
			&e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

var (
	_ syncruns.Repository   = (*SyncRunRepository)(nil)
	_ syncerrors.Repository = (*SyncErrorRepository)(nil)
)
