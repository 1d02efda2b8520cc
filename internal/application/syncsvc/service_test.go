package syncsvc

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/pulsemsp/pulse/internal/domain/adapters"
	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/syncerrors"
	"github.com/pulsemsp/pulse/internal/domain/syncruns"
)

type fakeStore struct {
	mu       sync.Mutex
	clients  map[string]*entities.Client // keyed externalID
	upserted []*entities.NormalizedBatch
	rows     int
}

func (f *fakeStore) UpsertBatch(ctx context.Context, tenant string, clientID entities.ClientID, batch *entities.NormalizedBatch) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, batch)
	return f.rows, nil
}

func (f *fakeStore) ClientData(ctx context.Context, tenant string, clientID entities.ClientID) (*entities.ClientData, error) {
	return &entities.ClientData{}, nil
}

func (f *fakeStore) GetClient(ctx context.Context, tenant string, id entities.ClientID) (*entities.Client, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &entities.Client{ID: id, Name: "Acme"}, nil
}

func (f *fakeStore) FindClientByExternalID(ctx context.Context, tenant string, externalID string, source entities.Source) (*entities.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[externalID]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs []*syncruns.Run
}

func (f *fakeRunRepo) Save(ctx context.Context, r *syncruns.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, r)
	return nil
}

func (f *fakeRunRepo) Latest(ctx context.Context, tenant string, clientID entities.ClientID, limit int) ([]*syncruns.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs, nil
}

func (f *fakeRunRepo) byVendor(vendor entities.Source) *syncruns.Run {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.Vendor == vendor {
			return r
		}
	}
	return nil
}

type fakeErrRepo struct {
	mu      sync.Mutex
	entries []*syncerrors.SyncError
}

func (f *fakeErrRepo) Save(ctx context.Context, e *syncerrors.SyncError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeErrRepo) ListByRun(ctx context.Context, tenant string, runID string, limit int) ([]*syncerrors.SyncError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, nil
}

type fakeAdapter struct {
	vendor entities.Source
	batch  *entities.NormalizedBatch
	err    error
}

func (f *fakeAdapter) Vendor() entities.Source { return f.vendor }

func (f *fakeAdapter) RequiredFields() []string { return nil }

func (f *fakeAdapter) Sync(ctx context.Context, creds adapters.Credentials) (*entities.NormalizedBatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(nopWriter{})
	return log
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newService(store *fakeStore, runs *fakeRunRepo, errs *fakeErrRepo, adapterSet map[entities.Source]adapters.Adapter) *Service {
	return &Service{
		Store:    store,
		Runs:     runs,
		Errors:   errs,
		Adapters: adapterSet,
		Creds:    map[entities.Source]adapters.Credentials{},
		Log:      quietLogger(),
		Clock:    fixedClock{at: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)},
	}
}

func TestTriggerSyncUnknownClient(t *testing.T) {
	svc := newService(&fakeStore{}, &fakeRunRepo{}, &fakeErrRepo{}, nil)

	_, err := svc.TriggerSync(context.Background(), TriggerSyncCommand{
		TenantID: "t1",
		ClientID: "missing",
	})

	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTriggerSyncVendorIsolation(t *testing.T) {
	store := &fakeStore{rows: 12}
	runs := &fakeRunRepo{}
	errs := &fakeErrRepo{}
	svc := newService(store, runs, errs, map[entities.Source]adapters.Adapter{
		entities.SourceImmy: &fakeAdapter{
			vendor: entities.SourceImmy,
			batch:  &entities.NormalizedBatch{Source: entities.SourceImmy, Devices: []entities.Device{{ExternalID: "d1"}}},
		},
		entities.SourceM365: &fakeAdapter{
			vendor: entities.SourceM365,
			err:    adapters.AuthFailed(entities.SourceM365, 401),
		},
	})

	results, err := svc.TriggerSync(context.Background(), TriggerSyncCommand{
		TenantID: "t1",
		ClientID: "c1",
		Vendors:  []entities.Source{entities.SourceImmy, entities.SourceM365},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	byVendor := make(map[entities.Source]VendorResult)
	for _, r := range results {
		byVendor[r.Vendor] = r
	}

	ok := byVendor[entities.SourceImmy]
	require.Equal(t, string(syncruns.StatusSuccess), ok.Status)
	require.Equal(t, 12, ok.RowsUpserted)
	require.NotEmpty(t, ok.RunID)

	failed := byVendor[entities.SourceM365]
	require.Equal(t, string(syncruns.StatusFailed), failed.Status)
	require.Equal(t, string(adapters.KindAuthenticationFailed), failed.ErrorKind)

	// the failing vendor did not block the good one's upsert
	require.Len(t, store.upserted, 1)
	require.Equal(t, entities.SourceImmy, store.upserted[0].Source)

	// both runs recorded, failure has an error row
	require.NotNil(t, runs.byVendor(entities.SourceImmy))
	require.Equal(t, syncruns.StatusFailed, runs.byVendor(entities.SourceM365).Status)
	require.Len(t, errs.entries, 1)
	require.Equal(t, "fetch", errs.entries[0].Phase)
	require.Equal(t, failed.RunID, errs.entries[0].RunID)
}

func TestTriggerSyncEmptyBatchSkipsUpsert(t *testing.T) {
	store := &fakeStore{rows: 99}
	runs := &fakeRunRepo{}
	svc := newService(store, runs, &fakeErrRepo{}, map[entities.Source]adapters.Adapter{
		entities.SourceImmy: &fakeAdapter{
			vendor: entities.SourceImmy,
			batch:  &entities.NormalizedBatch{Source: entities.SourceImmy},
		},
	})

	results, err := svc.TriggerSync(context.Background(), TriggerSyncCommand{
		TenantID: "t1",
		ClientID: "c1",
		Vendors:  []entities.Source{entities.SourceImmy},
	})

	require.NoError(t, err)
	require.Equal(t, string(syncruns.StatusSuccess), results[0].Status)
	require.Equal(t, 0, results[0].RowsUpserted)
	require.Empty(t, store.upserted)

	run := runs.byVendor(entities.SourceImmy)
	require.NotNil(t, run)
	require.Equal(t, 0, run.RowsUpserted)
}

func TestTriggerSyncDefaultsToAllConfiguredVendors(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, &fakeRunRepo{}, &fakeErrRepo{}, map[entities.Source]adapters.Adapter{
		entities.SourceImmy:  &fakeAdapter{vendor: entities.SourceImmy, batch: &entities.NormalizedBatch{Source: entities.SourceImmy}},
		entities.SourceCWPSA: &fakeAdapter{vendor: entities.SourceCWPSA, batch: &entities.NormalizedBatch{Source: entities.SourceCWPSA}},
	})

	results, err := svc.TriggerSync(context.Background(), TriggerSyncCommand{TenantID: "t1", ClientID: "c1"})

	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestTriggerSyncUnconfiguredVendor(t *testing.T) {
	svc := newService(&fakeStore{}, &fakeRunRepo{}, &fakeErrRepo{}, map[entities.Source]adapters.Adapter{})

	results, err := svc.TriggerSync(context.Background(), TriggerSyncCommand{
		TenantID: "t1",
		ClientID: "c1",
		Vendors:  []entities.Source{entities.SourceM365},
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, string(syncruns.StatusFailed), results[0].Status)
	require.Contains(t, results[0].Error, "no adapter configured")
}

func TestTriggerSyncCredentialFailurePhase(t *testing.T) {
	errs := &fakeErrRepo{}
	svc := newService(&fakeStore{}, &fakeRunRepo{}, errs, map[entities.Source]adapters.Adapter{
		entities.SourceCWPSA: &fakeAdapter{
			vendor: entities.SourceCWPSA,
			err:    adapters.MissingFields(entities.SourceCWPSA, []string{"public_key"}),
		},
	})

	results, err := svc.TriggerSync(context.Background(), TriggerSyncCommand{
		TenantID: "t1",
		ClientID: "c1",
		Vendors:  []entities.Source{entities.SourceCWPSA},
	})

	require.NoError(t, err)
	require.Equal(t, string(adapters.KindInvalidCredentials), results[0].ErrorKind)
	require.Len(t, errs.entries, 1)
	require.Equal(t, "credentials", errs.entries[0].Phase)
}

func TestResolveClientsReusesAndMintsIDs(t *testing.T) {
	store := &fakeStore{clients: map[string]*entities.Client{
		"101": {ID: "existing-id", ExternalID: "101"},
	}}
	svc := newService(store, &fakeRunRepo{}, &fakeErrRepo{}, nil)

	batch := &entities.NormalizedBatch{
		Source: entities.SourceCWPSA,
		Clients: []entities.Client{
			{ExternalID: "101", Source: entities.SourceCWPSA},
			{ExternalID: "102", Source: entities.SourceCWPSA},
		},
	}
	require.NoError(t, svc.resolveClients(context.Background(), "t1", batch))

	require.Equal(t, entities.ClientID("existing-id"), batch.Clients[0].ID)
	require.NotEmpty(t, batch.Clients[1].ID)
	require.NotEqual(t, batch.Clients[0].ID, batch.Clients[1].ID)
}
