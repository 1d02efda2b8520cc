package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// StoreRepository is the Postgres implementation of the normalized data
// store, matching the MySQL repository's semantics with ON CONFLICT
// upserts.
type StoreRepository struct {
	db *sql.DB
}

func NewStoreRepository(db *sql.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// UpsertBatch applies one adapter's batch inside a single transaction.
func (r *StoreRepository) UpsertBatch(ctx context.Context, tenant string, clientID entities.ClientID, batch *entities.NormalizedBatch) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	count := 0

	const qClient = `
INSERT INTO clients (id, tenant_id, external_id, source, name, segment, mrr, agreement_start, agreement_end)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (tenant_id, external_id, source) DO UPDATE SET
 name = EXCLUDED.name,
 segment = EXCLUDED.segment,
 mrr = EXCLUDED.mrr,
 agreement_start = EXCLUDED.agreement_start,
 agreement_end = EXCLUDED.agreement_end;`
	for _, c := range batch.Clients {
		if _, err := tx.ExecContext(ctx, qClient,
			c.ID, tenant, c.ExternalID, c.Source, stringOrDash(c.Name), c.Segment, c.MRR,
			nullTime(c.AgreementStart), nullTime(c.AgreementEnd)); err != nil {
			return 0, fmt.Errorf("upserting client %s: %w", c.ExternalID, err)
		}
		count++
	}

	const qSite = `
INSERT INTO sites (tenant_id, client_id, external_id, name, address)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (tenant_id, client_id, external_id) DO UPDATE SET
 name = EXCLUDED.name,
 address = EXCLUDED.address;`
	for _, s := range batch.Sites {
		if _, err := tx.ExecContext(ctx, qSite, tenant, orDefault(s.ClientID, clientID), s.ExternalID, stringOrDash(s.Name), s.Address); err != nil {
			return 0, fmt.Errorf("upserting site %s: %w", s.ExternalID, err)
		}
		count++
	}

	const qContact = `
INSERT INTO contacts (tenant_id, client_id, external_id, name, role, email, phone)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (tenant_id, client_id, external_id) DO UPDATE SET
 name = EXCLUDED.name, role = EXCLUDED.role, email = EXCLUDED.email, phone = EXCLUDED.phone;`
	for _, c := range batch.Contacts {
		if _, err := tx.ExecContext(ctx, qContact, tenant, orDefault(c.ClientID, clientID), c.ExternalID, stringOrDash(c.Name), c.Role, c.Email, c.Phone); err != nil {
			return 0, fmt.Errorf("upserting contact %s: %w", c.ExternalID, err)
		}
		count++
	}

	const qUser = `
INSERT INTO users (tenant_id, client_id, external_id, email, upn, mfa_enabled, risk_level)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (tenant_id, client_id, external_id) DO UPDATE SET
 email = EXCLUDED.email, upn = EXCLUDED.upn,
 mfa_enabled = EXCLUDED.mfa_enabled, risk_level = EXCLUDED.risk_level;`
	for _, u := range batch.Users {
		if _, err := tx.ExecContext(ctx, qUser, tenant, orDefault(u.ClientID, clientID), u.ExternalID, u.Email, u.UPN, u.MFAEnabled, u.RiskLevel); err != nil {
			return 0, fmt.Errorf("upserting user %s: %w", u.ExternalID, err)
		}
		count++
	}

	const qDevice = `
INSERT INTO devices (tenant_id, client_id, site_id, external_id, name, type, os, managed, health_status, last_seen)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (tenant_id, client_id, external_id) DO UPDATE SET
 site_id = EXCLUDED.site_id, name = EXCLUDED.name, type = EXCLUDED.type, os = EXCLUDED.os,
 managed = EXCLUDED.managed, health_status = EXCLUDED.health_status, last_seen = EXCLUDED.last_seen;`
	for _, d := range batch.Devices {
		if _, err := tx.ExecContext(ctx, qDevice,
			tenant, orDefault(d.ClientID, clientID), nullInt64(d.SiteID), d.ExternalID, stringOrDash(d.Name),
			d.Type, d.OS, d.Managed, d.HealthStatus, nullTime(d.LastSeen)); err != nil {
			return 0, fmt.Errorf("upserting device %s: %w", d.ExternalID, err)
		}
		count++
	}

	const qAgreement = `
INSERT INTO agreements (tenant_id, client_id, external_id, name, mrr, effective_rate, term_months, start_date, end_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (tenant_id, client_id, external_id) DO UPDATE SET
 name = EXCLUDED.name, mrr = EXCLUDED.mrr, effective_rate = EXCLUDED.effective_rate,
 term_months = EXCLUDED.term_months, start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date;`
	for _, g := range batch.Agreements {
		if _, err := tx.ExecContext(ctx, qAgreement,
			tenant, orDefault(g.ClientID, clientID), g.ExternalID, g.Name, g.MRR, g.EffectiveRate,
			g.TermMonths, nullTime(g.StartDate), nullTime(g.EndDate)); err != nil {
			return 0, fmt.Errorf("upserting agreement %s: %w", g.ExternalID, err)
		}
		count++
	}

	const qTicket = `
INSERT INTO tickets (tenant_id, client_id, external_id, summary, category, priority, status,
 hours_spent, sla_met, reopen_count, csat_score, created_date, closed_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (tenant_id, client_id, external_id) DO UPDATE SET
 summary = EXCLUDED.summary, category = EXCLUDED.category, priority = EXCLUDED.priority,
 status = EXCLUDED.status, hours_spent = EXCLUDED.hours_spent, sla_met = EXCLUDED.sla_met,
 reopen_count = EXCLUDED.reopen_count, csat_score = EXCLUDED.csat_score, closed_date = EXCLUDED.closed_date;`
	for _, t := range batch.Tickets {
		if _, err := tx.ExecContext(ctx, qTicket,
			tenant, orDefault(t.ClientID, clientID), t.ExternalID, t.Summary, t.Category, t.Priority, t.Status,
			t.HoursSpent, t.SLAMet, t.ReopenCount, nullFloat(t.CSATScore), t.CreatedDate, nullTime(t.ClosedDate)); err != nil {
			return 0, fmt.Errorf("upserting ticket %s: %w", t.ExternalID, err)
		}
		count++
	}

	const qControl = `
INSERT INTO controls (tenant_id, client_id, external_id, control_type, name, status, evidence_json, last_checked)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (tenant_id, client_id, external_id) DO UPDATE SET
 control_type = EXCLUDED.control_type, name = EXCLUDED.name, status = EXCLUDED.status,
 evidence_json = EXCLUDED.evidence_json, last_checked = EXCLUDED.last_checked;`
	for _, c := range batch.Controls {
		if _, err := tx.ExecContext(ctx, qControl,
			tenant, orDefault(c.ClientID, clientID), c.ExternalID, c.ControlType, c.Name, c.Status,
			jsonOrEmpty(c.Evidence), nullTime(c.LastChecked)); err != nil {
			return 0, fmt.Errorf("upserting control %s: %w", c.ExternalID, err)
		}
		count++
	}

	const qRisk = `
INSERT INTO risks (tenant_id, client_id, external_id, risk_type, title, description, likelihood, impact, status, detected_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (tenant_id, client_id, external_id) DO UPDATE SET
 risk_type = EXCLUDED.risk_type, title = EXCLUDED.title, description = EXCLUDED.description,
 likelihood = EXCLUDED.likelihood, impact = EXCLUDED.impact, status = EXCLUDED.status,
 detected_at = EXCLUDED.detected_at;`
	for _, k := range batch.Risks {
		if _, err := tx.ExecContext(ctx, qRisk,
			tenant, orDefault(k.ClientID, clientID), k.ExternalID, k.RiskType, stringOrDash(k.Title), k.Description,
			k.Likelihood, k.Impact, k.Status, nullTime(k.DetectedAt)); err != nil {
			return 0, fmt.Errorf("upserting risk %s: %w", k.ExternalID, err)
		}
		count++
	}

	const qRecommendation = `
INSERT INTO recommendations (tenant_id, client_id, external_id, title, description, effort, cost_range, priority, quarter, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (tenant_id, client_id, external_id) DO UPDATE SET
 title = EXCLUDED.title, description = EXCLUDED.description, effort = EXCLUDED.effort,
 cost_range = EXCLUDED.cost_range, priority = EXCLUDED.priority, quarter = EXCLUDED.quarter,
 status = EXCLUDED.status;`
	for _, rec := range batch.Recommendations {
		if _, err := tx.ExecContext(ctx, qRecommendation,
			tenant, orDefault(rec.ClientID, clientID), rec.ExternalID, stringOrDash(rec.Title), rec.Description,
			rec.Effort, rec.CostRange, rec.Priority, rec.Quarter, rec.Status); err != nil {
			return 0, fmt.Errorf("upserting recommendation %s: %w", rec.ExternalID, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing upsert tx: %w", err)
	}
	return count, nil
}

func orDefault(id, fallback entities.ClientID) entities.ClientID {
	if id != "" {
		return id
	}
	return fallback
}

// GetClient by ID + tenant
func (r *StoreRepository) GetClient(ctx context.Context, tenant string, id entities.ClientID) (*entities.Client, error) {
	const q = `
SELECT id, external_id, source, name, segment, mrr, agreement_start, agreement_end
FROM clients WHERE tenant_id=$1 AND id=$2 LIMIT 1;`
	return scanClient(r.db.QueryRowContext(ctx, q, tenant, id))
}

// FindClientByExternalID resolves the vendor-native identity
func (r *StoreRepository) FindClientByExternalID(ctx context.Context, tenant string, externalID string, source entities.Source) (*entities.Client, error) {
	const q = `
SELECT id, external_id, source, name, segment, mrr, agreement_start, agreement_end
FROM clients WHERE tenant_id=$1 AND external_id=$2 AND source=$3 LIMIT 1;`
	return scanClient(r.db.QueryRowContext(ctx, q, tenant, externalID, source))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*entities.Client, error) {
	var c entities.Client
	var start, end sql.NullTime
	if err := row.Scan(&c.ID, &c.ExternalID, &c.Source, &c.Name, &c.Segment, &c.MRR, &start, &end); err != nil {
		return nil, err
	}
	c.AgreementStart = timePtr(start)
	c.AgreementEnd = timePtr(end)
	return &c, nil
}

// ClientData reads every row owned by the client inside one repeatable-read
// transaction so scoring sees a consistent snapshot.
func (r *StoreRepository) ClientData(ctx context.Context, tenant string, clientID entities.ClientID) (*entities.ClientData, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	data := &entities.ClientData{}

	const qClient = `
SELECT id, external_id, source, name, segment, mrr, agreement_start, agreement_end
FROM clients WHERE tenant_id=$1 AND id=$2 LIMIT 1;`
	data.Client, err = scanClient(tx.QueryRowContext(ctx, qClient, tenant, clientID))
	if err != nil {
		return nil, err
	}

	const qSites = `SELECT id, external_id, client_id, name, address FROM sites WHERE tenant_id=$1 AND client_id=$2;`
	rows, err := tx.QueryContext(ctx, qSites, tenant, clientID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var s entities.Site
		if err := rows.Scan(&s.ID, &s.ExternalID, &s.ClientID, &s.Name, &s.Address); err != nil {
			rows.Close()
			return nil, err
		}
		data.Sites = append(data.Sites, s)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	const qContacts = `SELECT id, external_id, client_id, name, role, email, phone FROM contacts WHERE tenant_id=$1 AND client_id=$2;`
	rows, err = tx.QueryContext(ctx, qContacts, tenant, clientID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c entities.Contact
		if err := rows.Scan(&c.ID, &c.ExternalID, &c.ClientID, &c.Name, &c.Role, &c.Email, &c.Phone); err != nil {
			rows.Close()
			return nil, err
		}
		data.Contacts = append(data.Contacts, c)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	const qUsers = `SELECT id, external_id, client_id, email, upn, mfa_enabled, risk_level FROM users WHERE tenant_id=$1 AND client_id=$2;`
	rows, err = tx.QueryContext(ctx, qUsers, tenant, clientID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var u entities.User
		if err := rows.Scan(&u.ID, &u.ExternalID, &u.ClientID, &u.Email, &u.UPN, &u.MFAEnabled, &u.RiskLevel); err != nil {
			rows.Close()
			return nil, err
		}
		data.Users = append(data.Users, u)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	const qDevices = `
SELECT id, external_id, client_id, site_id, name, type, os, managed, health_status, last_seen
FROM devices WHERE tenant_id=$1 AND client_id=$2;`
	rows, err = tx.QueryContext(ctx, qDevices, tenant, clientID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var d entities.Device
		var siteID sql.NullInt64
		var lastSeen sql.NullTime
		if err := rows.Scan(&d.ID, &d.ExternalID, &d.ClientID, &siteID, &d.Name, &d.Type, &d.OS, &d.Managed, &d.HealthStatus, &lastSeen); err != nil {
			rows.Close()
			return nil, err
		}
		d.SiteID = int64Ptr(siteID)
		d.LastSeen = timePtr(lastSeen)
		data.Devices = append(data.Devices, d)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	const qAgreements = `
SELECT id, external_id, client_id, name, mrr, effective_rate, term_months, start_date, end_date
FROM agreements WHERE tenant_id=$1 AND client_id=$2;`
	rows, err = tx.QueryContext(ctx, qAgreements, tenant, clientID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var g entities.Agreement
		var start, end sql.NullTime
		if err := rows.Scan(&g.ID, &g.ExternalID, &g.ClientID, &g.Name, &g.MRR, &g.EffectiveRate, &g.TermMonths, &start, &end); err != nil {
			rows.Close()
			return nil, err
		}
		g.StartDate = timePtr(start)
		g.EndDate = timePtr(end)
		data.Agreements = append(data.Agreements, g)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	const qTickets = `
SELECT id, external_id, client_id, summary, category, priority, status,
       hours_spent, sla_met, reopen_count, csat_score, created_date, closed_date
FROM tickets WHERE tenant_id=$1 AND client_id=$2;`
	rows, err = tx.QueryContext(ctx, qTickets, tenant, clientID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var t entities.Ticket
		var csat sql.NullFloat64
		var closed sql.NullTime
		if err := rows.Scan(&t.ID, &t.ExternalID, &t.ClientID, &t.Summary, &t.Category, &t.Priority, &t.Status,
			&t.HoursSpent, &t.SLAMet, &t.ReopenCount, &csat, &t.CreatedDate, &closed); err != nil {
			rows.Close()
			return nil, err
		}
		t.CSATScore = floatPtr(csat)
		t.ClosedDate = timePtr(closed)
		data.Tickets = append(data.Tickets, t)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	const qControls = `
SELECT id, external_id, client_id, control_type, name, status, evidence_json, last_checked
FROM controls WHERE tenant_id=$1 AND client_id=$2;`
	rows, err = tx.QueryContext(ctx, qControls, tenant, clientID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c entities.Control
		var evidence string
		var checked sql.NullTime
		if err := rows.Scan(&c.ID, &c.ExternalID, &c.ClientID, &c.ControlType, &c.Name, &c.Status, &evidence, &checked); err != nil {
			rows.Close()
			return nil, err
		}
		if evidence != "" {
			_ = json.Unmarshal([]byte(evidence), &c.Evidence)
		}
		c.LastChecked = timePtr(checked)
		data.Controls = append(data.Controls, c)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	const qRisks = `
SELECT id, external_id, client_id, risk_type, title, description, likelihood, impact, status, detected_at
FROM risks WHERE tenant_id=$1 AND client_id=$2;`
	rows, err = tx.QueryContext(ctx, qRisks, tenant, clientID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var k entities.Risk
		var detected sql.NullTime
		if err := rows.Scan(&k.ID, &k.ExternalID, &k.ClientID, &k.RiskType, &k.Title, &k.Description,
			&k.Likelihood, &k.Impact, &k.Status, &detected); err != nil {
			rows.Close()
			return nil, err
		}
		k.DetectedAt = timePtr(detected)
		data.Risks = append(data.Risks, k)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	const qRecs = `
SELECT id, external_id, client_id, title, description, effort, cost_range, priority, quarter, status
FROM recommendations WHERE tenant_id=$1 AND client_id=$2;`
	rows, err = tx.QueryContext(ctx, qRecs, tenant, clientID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var rec entities.Recommendation
		if err := rows.Scan(&rec.ID, &rec.ExternalID, &rec.ClientID, &rec.Title, &rec.Description,
			&rec.Effort, &rec.CostRange, &rec.Priority, &rec.Quarter, &rec.Status); err != nil {
			rows.Close()
			return nil, err
		}
		data.Recommendations = append(data.Recommendations, rec)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	return data, tx.Commit()
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	rows.Close()
	return err
}

var _ entities.Store = (*StoreRepository)(nil)
