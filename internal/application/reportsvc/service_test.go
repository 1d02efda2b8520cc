package reportsvc

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/pulsemsp/pulse/internal/application/scoresvc"
	"github.com/pulsemsp/pulse/internal/domain/citations"
	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/narrative"
	"github.com/pulsemsp/pulse/internal/domain/reports"
)

type fakeStore struct {
	data *entities.ClientData
}

func (f *fakeStore) UpsertBatch(ctx context.Context, tenant string, clientID entities.ClientID, batch *entities.NormalizedBatch) (int, error) {
	return 0, nil
}

func (f *fakeStore) ClientData(ctx context.Context, tenant string, clientID entities.ClientID) (*entities.ClientData, error) {
	return f.data, nil
}

func (f *fakeStore) GetClient(ctx context.Context, tenant string, id entities.ClientID) (*entities.Client, error) {
	return f.data.Client, nil
}

func (f *fakeStore) FindClientByExternalID(ctx context.Context, tenant string, externalID string, source entities.Source) (*entities.Client, error) {
	return f.data.Client, nil
}

type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[reports.ReportID]*reports.Report
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[reports.ReportID]*reports.Report)}
}

func (f *fakeReportRepo) Save(ctx context.Context, r *reports.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.reports[r.ID] = &cp
	return nil
}

func (f *fakeReportRepo) Get(ctx context.Context, tenant string, id reports.ReportID) (*reports.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.reports[id]
	return &cp, nil
}

func (f *fakeReportRepo) UpdateStatus(ctx context.Context, tenant string, id reports.ReportID, status reports.JobStatus, failureReason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.reports[id]
	r.Status = status
	r.FailureReason = failureReason
	return nil
}

func (f *fakeReportRepo) Paginate(ctx context.Context, tenant string, clientID entities.ClientID, page, pageSize int) ([]*reports.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*reports.Report
	for _, r := range f.reports {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

type scriptedGenerator struct {
	mu    sync.Mutex
	calls int
	errs  []error // consumed first, one per call
	out   *narrative.Output
}

func (g *scriptedGenerator) Generate(ctx context.Context, in *narrative.Input) (*narrative.Output, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		return nil, err
	}
	return g.out, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(ctx context.Context, r *reports.Report) (string, error) {
	f, err := os.CreateTemp("", "report-test-*.html")
	if err != nil {
		return "", err
	}
	f.WriteString("<html></html>")
	f.Close()
	return f.Name(), nil
}

type fakeArtifactStore struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeArtifactStore) Upload(ctx context.Context, localPath, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return "https://artifacts.test/" + key, nil
}

func (f *fakeArtifactStore) UploadAndCleanup(ctx context.Context, localPath, key string) (string, error) {
	defer os.Remove(localPath)
	return f.Upload(ctx, localPath, key)
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

func testData() *entities.ClientData {
	return &entities.ClientData{
		Client: &entities.Client{ID: "c1", Name: "Northwind"},
		Tickets: []entities.Ticket{
			{ID: 1, ExternalID: "4412", Summary: "Mailbox full", Category: "email",
				CreatedDate: time.Date(2026, 7, 10, 10, 0, 0, 0, time.UTC)},
		},
		Devices: []entities.Device{
			{ExternalID: "d1", Name: "FILESRV-01", Managed: true, HealthStatus: entities.HealthCritical},
		},
	}
}

func groundedOutput() *narrative.Output {
	return &narrative.Output{
		Trends:           "Ticket volume is flat quarter over quarter.",
		ExecutiveSummary: "Environment is stable with one aging server.",
		Recommendations: []narrative.Recommendation{{
			Title:       "Replace file server",
			Description: "FILESRV-01 reports critical health.",
			Priority:    "high",
			Effort:      "medium",
			CostRange:   "$5k-$8k",
			Evidence:    []string{`device "FILESRV-01"`, "ticket #4412"},
		}},
		DiscussionPoints: []string{"Budget for hardware refresh"},
	}
}

func newTestService(repo *fakeReportRepo, gen narrative.Generator, artifacts *fakeArtifactStore) *Service {
	clock := fixedClock{at: time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)}
	return &Service{
		Store:       &fakeStore{data: testData()},
		Reports:     repo,
		Scores:      &scoresvc.Service{Log: quietLogger(), Clock: clock},
		Generator:   gen,
		Validator:   citations.NewValidator(),
		Renderer:    fakeRenderer{},
		Artifacts:   artifacts,
		Log:         quietLogger(),
		Clock:       clock,
		CallTimeout: time.Second,
		MaxAttempts: 2,
	}
}

func queuedReport(t *testing.T, svc *Service) *reports.Report {
	t.Helper()
	rep, err := svc.Request(context.Background(), "t1", "c1")
	require.NoError(t, err)
	require.Equal(t, reports.StatusQueued, rep.Status)
	require.Equal(t, "2026-Q3", rep.Quarter)
	return rep
}

func waitForTerminal(t *testing.T, repo *fakeReportRepo, id reports.ReportID) *reports.Report {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rep, err := repo.Get(context.Background(), "t1", id)
		require.NoError(t, err)
		if rep.Status == reports.StatusCompleted || rep.Status == reports.StatusFailed {
			return rep
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("report never reached a terminal status")
	return nil
}

func TestRequestCompletesGroundedReport(t *testing.T) {
	repo := newFakeReportRepo()
	artifacts := &fakeArtifactStore{}
	svc := newTestService(repo, &scriptedGenerator{out: groundedOutput()}, artifacts)

	rep := queuedReport(t, svc)
	final := waitForTerminal(t, repo, rep.ID)

	require.Equal(t, reports.StatusCompleted, final.Status)
	require.Equal(t, "https://artifacts.test/t1/reports/"+string(rep.ID)+".html", final.ArtifactURL)
	require.NotEmpty(t, final.ScoresJSON)
	require.NotEmpty(t, final.NarrativeJSON)
	// both citations resolve, so no flags
	require.Equal(t, "[]", final.ReviewFlagsJSON)
	require.Equal(t, []string{"t1/reports/" + string(rep.ID) + ".html"}, artifacts.keys)
}

func TestRequestReturnsUnsharedRow(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestService(repo, &scriptedGenerator{out: groundedOutput()}, &fakeArtifactStore{})

	rep := queuedReport(t, svc)
	final := waitForTerminal(t, repo, rep.ID)
	require.Equal(t, reports.StatusCompleted, final.Status)

	// the background job mutates its own copy; the row handed to the HTTP
	// layer must still be the queued snapshot
	require.Equal(t, reports.StatusQueued, rep.Status)
	require.Empty(t, rep.ScoresJSON)
	require.Empty(t, rep.NarrativeJSON)
	require.Empty(t, rep.ArtifactURL)
}

func TestRequestFailsOnHallucinatedRecommendation(t *testing.T) {
	repo := newFakeReportRepo()
	out := groundedOutput()
	out.Recommendations[0].Evidence = nil
	svc := newTestService(repo, &scriptedGenerator{out: out}, &fakeArtifactStore{})

	rep := queuedReport(t, svc)
	final := waitForTerminal(t, repo, rep.ID)

	require.Equal(t, reports.StatusFailed, final.Status)
	require.Contains(t, final.FailureReason, "hallucination detected")
	require.Empty(t, final.ArtifactURL)
}

func TestRequestPersistsReviewFlags(t *testing.T) {
	repo := newFakeReportRepo()
	out := groundedOutput()
	out.Recommendations[0].Evidence = []string{"device GHOST-99"}
	svc := newTestService(repo, &scriptedGenerator{out: out}, &fakeArtifactStore{})

	rep := queuedReport(t, svc)
	final := waitForTerminal(t, repo, rep.ID)

	// unresolved citations flag for review but do not block the report
	require.Equal(t, reports.StatusCompleted, final.Status)
	require.Contains(t, final.ReviewFlagsJSON, "GHOST-99")
	require.Contains(t, final.ReviewFlagsJSON, "not found in client data")
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	gen := &scriptedGenerator{
		errs: []error{errors.New("upstream hiccup")},
		out:  groundedOutput(),
	}
	svc := newTestService(newFakeReportRepo(), gen, &fakeArtifactStore{})

	out, err := svc.generate(context.Background(), &narrative.Input{})

	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, 2, gen.calls)
}

func TestGenerateQuotaErrorIsNotRetried(t *testing.T) {
	gen := &scriptedGenerator{
		errs: []error{narrative.ErrQuotaExceeded, narrative.ErrQuotaExceeded},
	}
	svc := newTestService(newFakeReportRepo(), gen, &fakeArtifactStore{})

	_, err := svc.generate(context.Background(), &narrative.Input{})

	require.ErrorIs(t, err, narrative.ErrQuotaExceeded)
	require.Equal(t, 1, gen.calls)
}

func TestGenerateSpentBudgetSurfacesTimedOut(t *testing.T) {
	gen := &scriptedGenerator{
		errs: []error{errors.New("attempt 1"), errors.New("attempt 2")},
	}
	svc := newTestService(newFakeReportRepo(), gen, &fakeArtifactStore{})

	_, err := svc.generate(context.Background(), &narrative.Input{})

	require.ErrorIs(t, err, narrative.ErrTimedOut)
	require.Equal(t, 2, gen.calls)
}

func TestBuildInputSelection(t *testing.T) {
	svc := newTestService(newFakeReportRepo(), &scriptedGenerator{out: groundedOutput()}, &fakeArtifactStore{})

	endSoon := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	endFar := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
	data := testData()
	data.Agreements = []entities.Agreement{
		{Name: "Managed Services", EndDate: &endSoon},
		{Name: "Backup Plan", EndDate: &endFar},
	}
	data.Risks = []entities.Risk{
		{ExternalID: "r1", Status: entities.RiskOpen},
		{ExternalID: "r2", Status: entities.RiskMitigated},
	}
	for i := 0; i < 30; i++ {
		data.Tickets = append(data.Tickets, entities.Ticket{
			ExternalID:  "bulk",
			CreatedDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		})
	}

	bundle := svc.Scores.ComputeFromData(data, "c1")
	in := svc.buildInput(data, bundle)

	require.Len(t, in.RecentTickets, 20)
	// newest first
	require.False(t, in.RecentTickets[0].CreatedDate.Before(in.RecentTickets[1].CreatedDate))

	require.Len(t, in.TopRisks, 1)
	require.Equal(t, "r1", in.TopRisks[0].ExternalID)

	// expiring agreement and critical device, not the far-out agreement
	require.Len(t, in.LifecycleItems, 2)
	require.Equal(t, "Managed Services", in.LifecycleItems[0].Name)
	require.Equal(t, "agreement", in.LifecycleItems[0].Kind)
	require.Equal(t, "FILESRV-01", in.LifecycleItems[1].Name)
}

func TestQuarterLabel(t *testing.T) {
	require.Equal(t, "2026-Q1", quarterLabel(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "2026-Q4", quarterLabel(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)))
}
