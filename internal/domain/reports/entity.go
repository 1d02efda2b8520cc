package reports

import (
	"time"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// ReportID identifier type
type ReportID string

// JobStatus lifecycle for an async report-generation job
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusActive    JobStatus = "active"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Report represents a quarterly report job and, once completed, the
// rendered artifact plus everything it was built from. Scores, narrative
// and review flags are stored as JSON strings for auditing and retrieval.
type Report struct {
	ID              ReportID          `json:"id"`
	TenantID        string            `json:"tenant_id"`
	ClientID        entities.ClientID `json:"client_id"`
	Quarter         string            `json:"quarter"` // e.g. "2026-Q3"
	Status          JobStatus         `json:"status"`
	ScoresJSON      string            `json:"scores_json,omitempty"`
	NarrativeJSON   string            `json:"narrative_json,omitempty"`
	ReviewFlagsJSON string            `json:"review_flags_json,omitempty"`
	ArtifactURL     string            `json:"artifact_url,omitempty"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
