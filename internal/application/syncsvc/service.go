package syncsvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pulsemsp/pulse/internal/domain/adapters"
	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/syncerrors"
	"github.com/pulsemsp/pulse/internal/domain/syncruns"
)

// Service runs vendor syncs. Adapters fetch and normalize; this layer
// resolves client identity, applies each vendor's batch in its own
// transaction and records run + error rows.
type Service struct {
	Store    entities.Store
	Runs     syncruns.Repository
	Errors   syncerrors.Repository
	Adapters map[entities.Source]adapters.Adapter
	Creds    map[entities.Source]adapters.Credentials
	Log      *logrus.Logger
	Clock    Clock
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type TriggerSyncCommand struct {
	TenantID string
	ClientID entities.ClientID
	Vendors  []entities.Source // empty = every configured adapter
}

// VendorResult is the per-vendor outcome; a failed vendor carries its
// error here instead of failing the whole sync.
type VendorResult struct {
	Vendor       entities.Source `json:"vendor"`
	RunID        string          `json:"run_id"`
	Status       string          `json:"status"`
	RowsUpserted int             `json:"rows_upserted"`
	DurationMS   int64           `json:"duration_ms"`
	Error        string          `json:"error,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
}

// TriggerSync runs the requested vendors in parallel. Each vendor gets one
// transaction; a vendor failing leaves the others untouched.
func (s *Service) TriggerSync(ctx context.Context, cmd TriggerSyncCommand) ([]VendorResult, error) {
	if _, err := s.Store.GetClient(ctx, cmd.TenantID, cmd.ClientID); err != nil {
		return nil, err
	}

	vendors := cmd.Vendors
	if len(vendors) == 0 {
		for src := range s.Adapters {
			vendors = append(vendors, src)
		}
	}

	results := make([]VendorResult, len(vendors))
	g, gctx := errgroup.WithContext(ctx)
	for i, vendor := range vendors {
		i, vendor := i, vendor
		g.Go(func() error {
			results[i] = s.syncVendor(gctx, cmd.TenantID, cmd.ClientID, vendor)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (s *Service) syncVendor(ctx context.Context, tenant string, clientID entities.ClientID, vendor entities.Source) VendorResult {
	adapter, ok := s.Adapters[vendor]
	if !ok {
		return VendorResult{Vendor: vendor, Status: string(syncruns.StatusFailed), Error: fmt.Sprintf("no adapter configured for vendor %q", vendor)}
	}

	started := s.Clock.Now()
	runID := syncruns.RunID(uuid.New().String())
	result := VendorResult{Vendor: vendor, RunID: string(runID)}

	batch, err := adapter.Sync(ctx, s.Creds[vendor])
	if err != nil {
		return s.failRun(ctx, tenant, clientID, runID, vendor, started, result, "fetch", err)
	}

	// An empty batch is a valid outcome (new tenant, quiet quarter); skip
	// the transaction and record a zero-row run.
	var count int
	if batch.Size() > 0 {
		if err := s.resolveClients(ctx, tenant, batch); err != nil {
			return s.failRun(ctx, tenant, clientID, runID, vendor, started, result, "upsert", err)
		}
		if count, err = s.Store.UpsertBatch(ctx, tenant, clientID, batch); err != nil {
			return s.failRun(ctx, tenant, clientID, runID, vendor, started, result, "upsert", err)
		}
	}

	duration := s.Clock.Now().Sub(started).Milliseconds()
	run := &syncruns.Run{
		ID:           runID,
		TenantID:     tenant,
		ClientID:     clientID,
		Vendor:       vendor,
		Status:       syncruns.StatusSuccess,
		RowsUpserted: count,
		DurationMS:   duration,
		TriggeredAt:  started,
	}
	if err := s.Runs.Save(ctx, run); err != nil {
		s.Log.WithError(err).WithField("vendor", vendor).Warn("failed to record sync run")
	}

	result.Status = string(syncruns.StatusSuccess)
	result.RowsUpserted = count
	result.DurationMS = duration
	s.Log.WithFields(logrus.Fields{
		"tenant": tenant, "client_id": clientID, "vendor": vendor,
		"rows": count, "duration_ms": duration,
	}).Info("vendor sync completed")
	return result
}

// resolveClients keeps store IDs stable across re-syncs: an already known
// (external_id, source) pair reuses its row ID, a new one gets a fresh UUID.
func (s *Service) resolveClients(ctx context.Context, tenant string, batch *entities.NormalizedBatch) error {
	for i := range batch.Clients {
		c := &batch.Clients[i]
		existing, err := s.Store.FindClientByExternalID(ctx, tenant, c.ExternalID, c.Source)
		switch {
		case err == nil:
			c.ID = existing.ID
		case errors.Is(err, sql.ErrNoRows):
			c.ID = entities.ClientID(uuid.New().String())
		default:
			return fmt.Errorf("resolving client %s: %w", c.ExternalID, err)
		}
	}
	return nil
}

func (s *Service) failRun(ctx context.Context, tenant string, clientID entities.ClientID, runID syncruns.RunID,
	vendor entities.Source, started time.Time, result VendorResult, phase string, cause error) VendorResult {

	kind := ""
	details := ""
	if ae, ok := adapters.AsError(cause); ok {
		kind = string(ae.Kind)
		if ae.Kind == adapters.KindInvalidCredentials {
			phase = "credentials"
		}
		b, _ := json.Marshal(map[string]any{
			"status_code":      ae.StatusCode,
			"retry_after_secs": int(ae.RetryAfter.Seconds()),
		})
		details = string(b)
	}

	run := &syncruns.Run{
		ID:          runID,
		TenantID:    tenant,
		ClientID:    clientID,
		Vendor:      vendor,
		Status:      syncruns.StatusFailed,
		DurationMS:  s.Clock.Now().Sub(started).Milliseconds(),
		TriggeredAt: started,
	}
	if err := s.Runs.Save(ctx, run); err != nil {
		s.Log.WithError(err).WithField("vendor", vendor).Warn("failed to record failed sync run")
	}
	entry := &syncerrors.SyncError{
		TenantID:    tenant,
		RunID:       string(runID),
		Vendor:      string(vendor),
		Phase:       phase,
		Kind:        kind,
		Message:     cause.Error(),
		DetailsJSON: details,
		CreatedAt:   s.Clock.Now(),
	}
	if err := s.Errors.Save(ctx, entry); err != nil {
		s.Log.WithError(err).WithField("vendor", vendor).Warn("failed to record sync error")
	}

	s.Log.WithError(cause).WithFields(logrus.Fields{
		"tenant": tenant, "client_id": clientID, "vendor": vendor, "phase": phase,
	}).Error("vendor sync failed")

	result.Status = string(syncruns.StatusFailed)
	result.DurationMS = run.DurationMS
	result.Error = cause.Error()
	result.ErrorKind = kind
	return result
}

// LatestRuns returns recent sync runs for a client.
func (s *Service) LatestRuns(ctx context.Context, tenant string, clientID entities.ClientID, limit int) ([]*syncruns.Run, error) {
	return s.Runs.Latest(ctx, tenant, clientID, limit)
}
