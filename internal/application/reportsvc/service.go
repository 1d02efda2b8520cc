package reportsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pulsemsp/pulse/internal/application/scoresvc"
	"github.com/pulsemsp/pulse/internal/domain/citations"
	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/narrative"
	"github.com/pulsemsp/pulse/internal/domain/reports"
	"github.com/pulsemsp/pulse/internal/domain/scoring"
	"github.com/pulsemsp/pulse/internal/middleware"
)

const (
	defaultCallTimeout = 90 * time.Second
	defaultMaxAttempts = 3
	baseBackoff        = 2 * time.Second

	recentTicketLimit    = 20
	topRiskLimit         = 10
	lifecycleHorizonDays = 90
)

// Service runs the quarterly report pipeline: score, narrate, validate
// citations, render, upload. Jobs are asynchronous; callers poll Get.
type Service struct {
	Store     entities.Store
	Reports   reports.Repository
	Scores    *scoresvc.Service
	Generator narrative.Generator
	Validator *citations.Validator
	Renderer  reports.Renderer
	Artifacts reports.ArtifactStore
	Log       *logrus.Logger
	Clock     Clock

	CallTimeout time.Duration // per narrative attempt
	MaxAttempts int
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Request queues a report job for the client's current quarter and starts
// it in the background. The returned report is in status queued.
func (s *Service) Request(ctx context.Context, tenant string, clientID entities.ClientID) (*reports.Report, error) {
	if _, err := s.Store.GetClient(ctx, tenant, clientID); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	rep := &reports.Report{
		ID:        reports.ReportID(uuid.New().String()),
		TenantID:  tenant,
		ClientID:  clientID,
		Quarter:   quarterLabel(now),
		Status:    reports.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Reports.Save(ctx, rep); err != nil {
		return nil, err
	}

	// Detached context: an abandoned poll must not cancel the in-flight
	// narrative call. The goroutine gets its own copy of the row; the one
	// handed back to the caller keeps the queued snapshot.
	job := *rep
	go s.run(context.Background(), &job)

	return rep, nil
}

// Get returns the job row for polling.
func (s *Service) Get(ctx context.Context, tenant string, id reports.ReportID) (*reports.Report, error) {
	return s.Reports.Get(ctx, tenant, id)
}

// List returns a page of a client's reports, newest first.
func (s *Service) List(ctx context.Context, tenant string, clientID entities.ClientID, page, pageSize int) ([]*reports.Report, error) {
	return s.Reports.Paginate(ctx, tenant, clientID, page, pageSize)
}

func (s *Service) run(ctx context.Context, rep *reports.Report) {
	log := s.Log.WithFields(logrus.Fields{
		"report_id": rep.ID, "tenant": rep.TenantID, "client_id": rep.ClientID,
	})

	if err := s.Reports.UpdateStatus(ctx, rep.TenantID, rep.ID, reports.StatusActive, ""); err != nil {
		log.WithError(err).Error("failed to mark report active")
		return
	}

	data, err := s.Store.ClientData(ctx, rep.TenantID, rep.ClientID)
	if err != nil {
		s.fail(ctx, rep, log, fmt.Errorf("loading client data: %w", err))
		return
	}

	bundle := s.Scores.ComputeFromData(data, rep.ClientID)
	scoresJSON, err := json.Marshal(bundle)
	if err != nil {
		s.fail(ctx, rep, log, fmt.Errorf("encoding scores: %w", err))
		return
	}
	rep.ScoresJSON = string(scoresJSON)
	rep.UpdatedAt = s.Clock.Now()
	if err := s.Reports.Save(ctx, rep); err != nil {
		s.fail(ctx, rep, log, fmt.Errorf("persisting scores: %w", err))
		return
	}

	input := s.buildInput(data, bundle)
	out, err := s.generate(ctx, input)
	if err != nil {
		s.fail(ctx, rep, log, err)
		return
	}

	flags, err := s.Validator.Validate(out.Recommendations, data)
	if err != nil {
		// hallucination gate: no report ships
		s.fail(ctx, rep, log, err)
		return
	}
	if flags == nil {
		flags = []citations.ReviewFlag{}
	}

	narrativeJSON, err := json.Marshal(out)
	if err != nil {
		s.fail(ctx, rep, log, fmt.Errorf("encoding narrative: %w", err))
		return
	}
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		s.fail(ctx, rep, log, fmt.Errorf("encoding review flags: %w", err))
		return
	}
	rep.NarrativeJSON = string(narrativeJSON)
	rep.ReviewFlagsJSON = string(flagsJSON)
	rep.UpdatedAt = s.Clock.Now()
	if err := s.Reports.Save(ctx, rep); err != nil {
		s.fail(ctx, rep, log, fmt.Errorf("persisting narrative: %w", err))
		return
	}

	localPath, err := s.Renderer.Render(ctx, rep)
	if err != nil {
		s.fail(ctx, rep, log, fmt.Errorf("rendering artifact: %w", err))
		return
	}
	key := fmt.Sprintf("%s/reports/%s.html", rep.TenantID, rep.ID)
	url, err := s.Artifacts.UploadAndCleanup(ctx, localPath, key)
	if err != nil {
		os.Remove(localPath)
		s.fail(ctx, rep, log, fmt.Errorf("uploading artifact: %w", err))
		return
	}

	rep.ArtifactURL = url
	rep.Status = reports.StatusCompleted
	rep.UpdatedAt = s.Clock.Now()
	if err := s.Reports.Save(ctx, rep); err != nil {
		log.WithError(err).Error("failed to persist completed report")
		return
	}
	log.WithField("flags", len(flags)).Info("report completed")
}

func (s *Service) fail(ctx context.Context, rep *reports.Report, log *logrus.Entry, cause error) {
	middleware.IncrementReportsFailed()
	log.WithError(cause).Error("report generation failed")
	if err := s.Reports.UpdateStatus(ctx, rep.TenantID, rep.ID, reports.StatusFailed, cause.Error()); err != nil {
		log.WithError(err).Error("failed to mark report failed")
	}
}

// generate calls the narrative generator with a per-attempt timeout and a
// fixed retry budget. Quota errors surface immediately; a spent budget
// surfaces ErrTimedOut.
func (s *Service) generate(ctx context.Context, in *narrative.Input) (*narrative.Output, error) {
	timeout := s.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	backoff := baseBackoff
	var lastErr error
	for i := 0; i < attempts; i++ {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		out, err := s.Generator.Generate(cctx, in)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if errors.Is(err, narrative.ErrQuotaExceeded) {
			return nil, err
		}
		if i < attempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("%w: %v", narrative.ErrTimedOut, lastErr)
}

// buildInput selects the narrative's raw material: recent tickets, open
// risks and assets nearing renewal or replacement.
func (s *Service) buildInput(data *entities.ClientData, bundle *scoring.Bundle) *narrative.Input {
	now := s.Clock.Now()

	recent := make([]entities.Ticket, len(data.Tickets))
	copy(recent, data.Tickets)
	sortTicketsNewestFirst(recent)
	if len(recent) > recentTicketLimit {
		recent = recent[:recentTicketLimit]
	}

	var topRisks []entities.Risk
	for _, r := range data.Risks {
		if r.Status != entities.RiskOpen {
			continue
		}
		topRisks = append(topRisks, r)
		if len(topRisks) == topRiskLimit {
			break
		}
	}

	horizon := now.AddDate(0, 0, lifecycleHorizonDays)
	var lifecycle []narrative.LifecycleItem
	for _, g := range data.Agreements {
		if g.EndDate != nil && g.EndDate.After(now) && g.EndDate.Before(horizon) {
			lifecycle = append(lifecycle, narrative.LifecycleItem{
				Name:    g.Name,
				Kind:    "agreement",
				Detail:  "agreement ends within 90 days",
				DueDate: g.EndDate.Format("2006-01-02"),
			})
		}
	}
	for _, d := range data.Devices {
		if d.HealthStatus == entities.HealthCritical {
			lifecycle = append(lifecycle, narrative.LifecycleItem{
				Name:   d.Name,
				Kind:   "device",
				Detail: "critical health; replacement candidate",
			})
		}
	}

	return &narrative.Input{
		Client:         data.Client,
		Scores:         bundle,
		RecentTickets:  recent,
		TopRisks:       topRisks,
		LifecycleItems: lifecycle,
	}
}

func quarterLabel(t time.Time) string {
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
}

func sortTicketsNewestFirst(tickets []entities.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].CreatedDate.After(tickets[j].CreatedDate)
	})
}
