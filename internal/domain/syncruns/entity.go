package syncruns

import (
	"time"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// RunID identifier type
type RunID string

// Status enum
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Run records one vendor sync: which adapter ran, how many rows it
// upserted, and how long it took.
type Run struct {
	ID           RunID             `json:"id"`
	TenantID     string            `json:"tenant_id"`
	ClientID     entities.ClientID `json:"client_id"`
	Vendor       entities.Source   `json:"vendor"`
	Status       Status            `json:"status"`
	RowsUpserted int               `json:"rows_upserted"`
	DurationMS   int64             `json:"duration_ms"`
	TriggeredAt  time.Time         `json:"triggered_at"`
}
