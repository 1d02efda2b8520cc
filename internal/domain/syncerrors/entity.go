package syncerrors

import "time"

// SyncError represents a persisted vendor sync failure entry
type SyncError struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	RunID       string    `json:"run_id"`
	Vendor      string    `json:"vendor,omitempty"`
	Phase       string    `json:"phase,omitempty"` // credentials | fetch | upsert
	Kind        string    `json:"kind,omitempty"`  // adapter error kind, when there is one
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
