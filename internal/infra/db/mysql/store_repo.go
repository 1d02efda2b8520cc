package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// StoreRepository is the MySQL implementation of the normalized data store.
// All ten entity types upsert by their vendor external id so a re-sync of
// identical data updates in place instead of duplicating rows.
type StoreRepository struct {
	db *sql.DB
}

func NewStoreRepository(db *sql.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// UpsertBatch applies one adapter's batch inside a single transaction; a
// failure on any row leaves nothing applied for this sync.
func (r *StoreRepository) UpsertBatch(ctx context.Context, tenant string, clientID entities.ClientID, batch *entities.NormalizedBatch) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	count := 0
	bump := func(res sql.Result, err error) error {
		if err != nil {
			return err
		}
		count++
		return nil
	}

	const qClient = `
INSERT INTO clients (id, tenant_id, external_id, source, name, segment, mrr, agreement_start, agreement_end)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 name=VALUES(name), segment=VALUES(segment), mrr=VALUES(mrr),
 agreement_start=VALUES(agreement_start), agreement_end=VALUES(agreement_end);
`
	for _, c := range batch.Clients {
		err := bump(tx.ExecContext(ctx, qClient,
			c.ID, tenant, c.ExternalID, c.Source, stringOrDash(c.Name), c.Segment, c.MRR,
			nullTime(c.AgreementStart), nullTime(c.AgreementEnd)))
		if err != nil {
			return 0, fmt.Errorf("upserting client %s: %w", c.ExternalID, err)
		}
	}

	const qSite = `
INSERT INTO sites (tenant_id, client_id, external_id, name, address)
VALUES (?,?,?,?,?)
ON DUPLICATE KEY UPDATE name=VALUES(name), address=VALUES(address);
`
	for _, s := range batch.Sites {
		if err := bump(tx.ExecContext(ctx, qSite, tenant, orDefault(s.ClientID, clientID), s.ExternalID, stringOrDash(s.Name), s.Address)); err != nil {
			return 0, fmt.Errorf("upserting site %s: %w", s.ExternalID, err)
		}
	}

	const qContact = `
INSERT INTO contacts (tenant_id, client_id, external_id, name, role, email, phone)
VALUES (?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE name=VALUES(name), role=VALUES(role), email=VALUES(email), phone=VALUES(phone);
`
	for _, c := range batch.Contacts {
		if err := bump(tx.ExecContext(ctx, qContact, tenant, orDefault(c.ClientID, clientID), c.ExternalID, stringOrDash(c.Name), c.Role, c.Email, c.Phone)); err != nil {
			return 0, fmt.Errorf("upserting contact %s: %w", c.ExternalID, err)
		}
	}

	const qUser = `
INSERT INTO users (tenant_id, client_id, external_id, email, upn, mfa_enabled, risk_level)
VALUES (?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE email=VALUES(email), upn=VALUES(upn), mfa_enabled=VALUES(mfa_enabled), risk_level=VALUES(risk_level);
`
	for _, u := range batch.Users {
		if err := bump(tx.ExecContext(ctx, qUser, tenant, orDefault(u.ClientID, clientID), u.ExternalID, u.Email, u.UPN, u.MFAEnabled, u.RiskLevel)); err != nil {
			return 0, fmt.Errorf("upserting user %s: %w", u.ExternalID, err)
		}
	}

	const qDevice = `
INSERT INTO devices (tenant_id, client_id, site_id, external_id, name, type, os, managed, health_status, last_seen)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 site_id=VALUES(site_id), name=VALUES(name), type=VALUES(type), os=VALUES(os),
 managed=VALUES(managed), health_status=VALUES(health_status), last_seen=VALUES(last_seen);
`
	for _, d := range batch.Devices {
		if err := bump(tx.ExecContext(ctx, qDevice,
			tenant, orDefault(d.ClientID, clientID), nullInt64(d.SiteID), d.ExternalID, stringOrDash(d.Name),
			d.Type, d.OS, d.Managed, d.HealthStatus, nullTime(d.LastSeen))); err != nil {
			return 0, fmt.Errorf("upserting device %s: %w", d.ExternalID, err)
		}
	}

	const qAgreement = `
INSERT INTO agreements (tenant_id, client_id, external_id, name, mrr, effective_rate, term_months, start_date, end_date)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 name=VALUES(name), mrr=VALUES(mrr), effective_rate=VALUES(effective_rate),
 term_months=VALUES(term_months), start_date=VALUES(start_date), end_date=VALUES(end_date);
`
	for _, g := range batch.Agreements {
		if err := bump(tx.ExecContext(ctx, qAgreement,
			tenant, orDefault(g.ClientID, clientID), g.ExternalID, g.Name, g.MRR, g.EffectiveRate,
			g.TermMonths, nullTime(g.StartDate), nullTime(g.EndDate))); err != nil {
			return 0, fmt.Errorf("upserting agreement %s: %w", g.ExternalID, err)
		}
	}

	const qTicket = `
INSERT INTO tickets (tenant_id, client_id, external_id, summary, category, priority, status,
 hours_spent, sla_met, reopen_count, csat_score, created_date, closed_date)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 summary=VALUES(summary), category=VALUES(category), priority=VALUES(priority), status=VALUES(status),
 hours_spent=VALUES(hours_spent), sla_met=VALUES(sla_met), reopen_count=VALUES(reopen_count),
 csat_score=VALUES(csat_score), closed_date=VALUES(closed_date);
`
	for _, t := range batch.Tickets {
		if err := bump(tx.ExecContext(ctx, qTicket,
			tenant, orDefault(t.ClientID, clientID), t.ExternalID, t.Summary, t.Category, t.Priority, t.Status,
			t.HoursSpent, t.SLAMet, t.ReopenCount, nullFloat(t.CSATScore), t.CreatedDate, nullTime(t.ClosedDate))); err != nil {
			return 0, fmt.Errorf("upserting ticket %s: %w", t.ExternalID, err)
		}
	}

	const qControl = `
INSERT INTO controls (tenant_id, client_id, external_id, control_type, name, status, evidence_json, last_checked)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 control_type=VALUES(control_type), name=VALUES(name), status=VALUES(status),
 evidence_json=VALUES(evidence_json), last_checked=VALUES(last_checked);
`
	for _, c := range batch.Controls {
		if err := bump(tx.ExecContext(ctx, qControl,
			tenant, orDefault(c.ClientID, clientID), c.ExternalID, c.ControlType, c.Name, c.Status,
			jsonOrEmpty(c.Evidence), nullTime(c.LastChecked))); err != nil {
			return 0, fmt.Errorf("upserting control %s: %w", c.ExternalID, err)
		}
	}

	const qRisk = `
INSERT INTO risks (tenant_id, client_id, external_id, risk_type, title, description, likelihood, impact, status, detected_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 risk_type=VALUES(risk_type), title=VALUES(title), description=VALUES(description),
 likelihood=VALUES(likelihood), impact=VALUES(impact), status=VALUES(status), detected_at=VALUES(detected_at);
`
	for _, k := range batch.Risks {
		if err := bump(tx.ExecContext(ctx, qRisk,
			tenant, orDefault(k.ClientID, clientID), k.ExternalID, k.RiskType, stringOrDash(k.Title), k.Description,
			k.Likelihood, k.Impact, k.Status, nullTime(k.DetectedAt))); err != nil {
			return 0, fmt.Errorf("upserting risk %s: %w", k.ExternalID, err)
		}
	}

	const qRecommendation = `
INSERT INTO recommendations (tenant_id, client_id, external_id, title, description, effort, cost_range, priority, quarter, status)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 title=VALUES(title), description=VALUES(description), effort=VALUES(effort),
 cost_range=VALUES(cost_range), priority=VALUES(priority), quarter=VALUES(quarter), status=VALUES(status);
`
	for _, rec := range batch.Recommendations {
		if err := bump(tx.ExecContext(ctx, qRecommendation,
			tenant, orDefault(rec.ClientID, clientID), rec.ExternalID, stringOrDash(rec.Title), rec.Description,
			rec.Effort, rec.CostRange, rec.Priority, rec.Quarter, rec.Status)); err != nil {
			return 0, fmt.Errorf("upserting recommendation %s: %w", rec.ExternalID, err)
		}
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
FROM clients WHERE tenant_id=? AND id=? LIMIT 1;
`
	return scanClient(r.db.QueryRowContext(ctx, q, tenant, id))
}

// FindClientByExternalID resolves the vendor-native identity
func (r *StoreRepository) FindClientByExternalID(ctx context.Context, tenant string, externalID string, source entities.Source) (*entities.Client, error) {
	const q = `
SELECT id, external_id, source, name, segment, mrr, agreement_start, agreement_end
FROM clients WHERE tenant_id=? AND external_id=? AND source=? LIMIT 1;
`
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

// ClientData reads every row owned by the client inside one read-only
// transaction, so scoring sees a point-in-time consistent snapshot.
func (r *StoreRepository) ClientData(ctx context.Context, tenant string, clientID entities.ClientID) (*entities.ClientData, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	data := &entities.ClientData{}

	const qClient = `
SELECT id, external_id, source, name, segment, mrr, agreement_start, agreement_end
FROM clients WHERE tenant_id=? AND id=? LIMIT 1;
`
	data.Client, err = scanClient(tx.QueryRowContext(ctx, qClient, tenant, clientID))
	if err != nil {
		return nil, err
	}

	if data.Sites, err = readSites(ctx, tx, tenant, clientID); err != nil {
		return nil, err
	}
	if data.Contacts, err = readContacts(ctx, tx, tenant, clientID); err != nil {
		return nil, err
	}
	if data.Users, err = readUsers(ctx, tx, tenant, clientID); err != nil {
		return nil, err
	}
	if data.Devices, err = readDevices(ctx, tx, tenant, clientID); err != nil {
		return nil, err
	}
	if data.Agreements, err = readAgreements(ctx, tx, tenant, clientID); err != nil {
		return nil, err
	}
	if data.Tickets, err = readTickets(ctx, tx, tenant, clientID); err != nil {
		return nil, err
	}
	if data.Controls, err = readControls(ctx, tx, tenant, clientID); err != nil {
		return nil, err
	}
	if data.Risks, err = readRisks(ctx, tx, tenant, clientID); err != nil {
		return nil, err
	}
	if data.Recommendations, err = readRecommendations(ctx, tx, tenant, clientID); err != nil {
		return nil, err
	}

	return data, tx.Commit()
}

func readSites(ctx context.Context, tx *sql.Tx, tenant string, clientID entities.ClientID) ([]entities.Site, error) {
	const q = `SELECT id, external_id, client_id, name, address FROM sites WHERE tenant_id=? AND client_id=?;`
	rows, err := tx.QueryContext(ctx, q, tenant, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Site
	for rows.Next() {
		var s entities.Site
		if err := rows.Scan(&s.ID, &s.ExternalID, &s.ClientID, &s.Name, &s.Address); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func readContacts(ctx context.Context, tx *sql.Tx, tenant string, clientID entities.ClientID) ([]entities.Contact, error) {
	const q = `SELECT id, external_id, client_id, name, role, email, phone FROM contacts WHERE tenant_id=? AND client_id=?;`
	rows, err := tx.QueryContext(ctx, q, tenant, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Contact
	for rows.Next() {
		var c entities.Contact
		if err := rows.Scan(&c.ID, &c.ExternalID, &c.ClientID, &c.Name, &c.Role, &c.Email, &c.Phone); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func readUsers(ctx context.Context, tx *sql.Tx, tenant string, clientID entities.ClientID) ([]entities.User, error) {
	const q = `SELECT id, external_id, client_id, email, upn, mfa_enabled, risk_level FROM users WHERE tenant_id=? AND client_id=?;`
	rows, err := tx.QueryContext(ctx, q, tenant, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.User
	for rows.Next() {
		var u entities.User
		if err := rows.Scan(&u.ID, &u.ExternalID, &u.ClientID, &u.Email, &u.UPN, &u.MFAEnabled, &u.RiskLevel); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func readDevices(ctx context.Context, tx *sql.Tx, tenant string, clientID entities.ClientID) ([]entities.Device, error) {
	const q = `
SELECT id, external_id, client_id, site_id, name, type, os, managed, health_status, last_seen
FROM devices WHERE tenant_id=? AND client_id=?;`
	rows, err := tx.QueryContext(ctx, q, tenant, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Device
	for rows.Next() {
		var d entities.Device
		var siteID sql.NullInt64
		var lastSeen sql.NullTime
		if err := rows.Scan(&d.ID, &d.ExternalID, &d.ClientID, &siteID, &d.Name, &d.Type, &d.OS, &d.Managed, &d.HealthStatus, &lastSeen); err != nil {
			return nil, err
		}
		d.SiteID = int64Ptr(siteID)
		d.LastSeen = timePtr(lastSeen)
		out = append(out, d)
	}
	return out, rows.Err()
}

func readAgreements(ctx context.Context, tx *sql.Tx, tenant string, clientID entities.ClientID) ([]entities.Agreement, error) {
	const q = `
SELECT id, external_id, client_id, name, mrr, effective_rate, term_months, start_date, end_date
FROM agreements WHERE tenant_id=? AND client_id=?;`
	rows, err := tx.QueryContext(ctx, q, tenant, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Agreement
	for rows.Next() {
		var g entities.Agreement
		var start, end sql.NullTime
		if err := rows.Scan(&g.ID, &g.ExternalID, &g.ClientID, &g.Name, &g.MRR, &g.EffectiveRate, &g.TermMonths, &start, &end); err != nil {
			return nil, err
		}
		g.StartDate = timePtr(start)
		g.EndDate = timePtr(end)
		out = append(out, g)
	}
	return out, rows.Err()
}

func readTickets(ctx context.Context, tx *sql.Tx, tenant string, clientID entities.ClientID) ([]entities.Ticket, error) {
	const q = `
SELECT id, external_id, client_id, summary, category, priority, status,
       hours_spent, sla_met, reopen_count, csat_score, created_date, closed_date
FROM tickets WHERE tenant_id=? AND client_id=?;`
	rows, err := tx.QueryContext(ctx, q, tenant, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Ticket
	for rows.Next() {
		var t entities.Ticket
		var csat sql.NullFloat64
		var closed sql.NullTime
		if err := rows.Scan(&t.ID, &t.ExternalID, &t.ClientID, &t.Summary, &t.Category, &t.Priority, &t.Status,
			&t.HoursSpent, &t.SLAMet, &t.ReopenCount, &csat, &t.CreatedDate, &closed); err != nil {
			return nil, err
		}
		t.CSATScore = floatPtr(csat)
		t.ClosedDate = timePtr(closed)
		out = append(out, t)
	}
	return out, rows.Err()
}

func readControls(ctx context.Context, tx *sql.Tx, tenant string, clientID entities.ClientID) ([]entities.Control, error) {
	const q = `
SELECT id, external_id, client_id, control_type, name, status, evidence_json, last_checked
FROM controls WHERE tenant_id=? AND client_id=?;`
	rows, err := tx.QueryContext(ctx, q, tenant, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Control
	for rows.Next() {
		var c entities.Control
		var evidence string
		var checked sql.NullTime
		if err := rows.Scan(&c.ID, &c.ExternalID, &c.ClientID, &c.ControlType, &c.Name, &c.Status, &evidence, &checked); err != nil {
			return nil, err
		}
		if evidence != "" {
			_ = json.Unmarshal([]byte(evidence), &c.Evidence)
		}
		c.LastChecked = timePtr(checked)
		out = append(out, c)
	}
	return out, rows.Err()
}

func readRisks(ctx context.Context, tx *sql.Tx, tenant string, clientID entities.ClientID) ([]entities.Risk, error) {
	const q = `
SELECT id, external_id, client_id, risk_type, title, description, likelihood, impact, status, detected_at
FROM risks WHERE tenant_id=? AND client_id=?;`
	rows, err := tx.QueryContext(ctx, q, tenant, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Risk
	for rows.Next() {
		var k entities.Risk
		var detected sql.NullTime
		if err := rows.Scan(&k.ID, &k.ExternalID, &k.ClientID, &k.RiskType, &k.Title, &k.Description,
			&k.Likelihood, &k.Impact, &k.Status, &detected); err != nil {
			return nil, err
		}
		k.DetectedAt = timePtr(detected)
		out = append(out, k)
	}
	return out, rows.Err()
}

func readRecommendations(ctx context.Context, tx *sql.Tx, tenant string, clientID entities.ClientID) ([]entities.Recommendation, error) {
	const q = `
SELECT id, external_id, client_id, title, description, effort, cost_range, priority, quarter, status
FROM recommendations WHERE tenant_id=? AND client_id=?;`
	rows, err := tx.QueryContext(ctx, q, tenant, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Recommendation
	for rows.Next() {
		var rec entities.Recommendation
		if err := rows.Scan(&rec.ID, &rec.ExternalID, &rec.ClientID, &rec.Title, &rec.Description,
			&rec.Effort, &rec.CostRange, &rec.Priority, &rec.Quarter, &rec.Status); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ entities.Store = (*StoreRepository)(nil)
