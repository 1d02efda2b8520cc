package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClientID tipe for Client
type ClientID string

// Source identifies the vendor a record came from
type Source string

const (
	SourceCWPSA Source = "cwpsa"
	SourceImmy  Source = "immy"
	SourceM365  Source = "m365"
)

// Segment enum
type Segment string

const (
	SegmentA Segment = "A"
	SegmentB Segment = "B"
	SegmentC Segment = "C"
	SegmentD Segment = "D"
)

// Client aggregate root; everything else belongs to exactly one Client
type Client struct {
	ID             ClientID        `json:"id"`
	ExternalID     string          `json:"external_id"`
	Source         Source          `json:"source"`
	Name           string          `json:"name"`
	Segment        Segment         `json:"segment"`
	MRR            decimal.Decimal `json:"mrr"`
	AgreementStart *time.Time      `json:"agreement_start,omitempty"`
	AgreementEnd   *time.Time      `json:"agreement_end,omitempty"`
}

type Site struct {
	ID         int64    `json:"id"`
	ExternalID string   `json:"external_id"`
	ClientID   ClientID `json:"client_id"`
	Name       string   `json:"name"`
	Address    string   `json:"address,omitempty"`
}

type Contact struct {
	ID         int64    `json:"id"`
	ExternalID string   `json:"external_id"`
	ClientID   ClientID `json:"client_id"`
	Name       string   `json:"name"`
	Role       string   `json:"role,omitempty"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
}

// UserRiskLevel enum
type UserRiskLevel string

const (
	UserRiskNone   UserRiskLevel = "none"
	UserRiskLow    UserRiskLevel = "low"
	UserRiskMedium UserRiskLevel = "medium"
	UserRiskHigh   UserRiskLevel = "high"
)

type User struct {
	ID         int64         `json:"id"`
	ExternalID string        `json:"external_id"`
	ClientID   ClientID      `json:"client_id"`
	Email      string        `json:"email,omitempty"`
	UPN        string        `json:"upn,omitempty"`
	MFAEnabled bool          `json:"mfa_enabled"`
	RiskLevel  UserRiskLevel `json:"risk_level"`
}

// DeviceType enum
type DeviceType string

const (
	DeviceEndpoint DeviceType = "endpoint"
	DeviceServer   DeviceType = "server"
	DeviceNetwork  DeviceType = "network"
)

// HealthStatus enum. Unknown is the mandatory default when a vendor
// supplies no telemetry; adapters must never default to Healthy.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
	HealthUnknown  HealthStatus = "unknown"
)

type Device struct {
	ID           int64        `json:"id"`
	ExternalID   string       `json:"external_id"`
	ClientID     ClientID     `json:"client_id"`
	SiteID       *int64       `json:"site_id,omitempty"` // nulled when the site is deleted
	Name         string       `json:"name"`
	Type         DeviceType   `json:"type"`
	OS           string       `json:"os,omitempty"`
	Managed      bool         `json:"managed"`
	HealthStatus HealthStatus `json:"health_status"`
	LastSeen     *time.Time   `json:"last_seen,omitempty"`
}

type Agreement struct {
	ID            int64           `json:"id"`
	ExternalID    string          `json:"external_id"`
	ClientID      ClientID        `json:"client_id"`
	Name          string          `json:"name,omitempty"`
	MRR           decimal.Decimal `json:"mrr"`
	EffectiveRate decimal.Decimal `json:"effective_rate"`
	TermMonths    int             `json:"term_months"`
	StartDate     *time.Time      `json:"start_date,omitempty"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
}

type Ticket struct {
	ID          int64      `json:"id"`
	ExternalID  string     `json:"external_id"`
	ClientID    ClientID   `json:"client_id"`
	Summary     string     `json:"summary,omitempty"`
	Category    string     `json:"category,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	Status      string     `json:"status,omitempty"`
	HoursSpent  float64    `json:"hours_spent"`
	SLAMet      bool       `json:"sla_met"`
	ReopenCount int        `json:"reopen_count"`
	CSATScore   *float64   `json:"csat_score,omitempty"` // 1..5 when surveyed, nil otherwise
	CreatedDate time.Time  `json:"created_date"`
	ClosedDate  *time.Time `json:"closed_date,omitempty"`
}

// ControlStatus enum
type ControlStatus string

const (
	ControlPass    ControlStatus = "pass"
	ControlFail    ControlStatus = "fail"
	ControlUnknown ControlStatus = "unknown"
)

// ControlTypeSecureScore marks externally-sourced secure-score controls;
// the Standards calculator filters on it.
const ControlTypeSecureScore = "m365_secure_score"

type Control struct {
	ID          int64          `json:"id"`
	ExternalID  string         `json:"external_id"`
	ClientID    ClientID       `json:"client_id"`
	ControlType string         `json:"control_type"` // free-form vendor tag, e.g. "immy_baseline"
	Name        string         `json:"name,omitempty"`
	Status      ControlStatus  `json:"status"`
	Evidence    map[string]any `json:"evidence,omitempty"`
	LastChecked *time.Time     `json:"last_checked,omitempty"`
}

// RiskType enum
type RiskType string

const (
	RiskIdentity RiskType = "identity"
	RiskEmail    RiskType = "email"
	RiskEndpoint RiskType = "endpoint"
	RiskBusiness RiskType = "business"
)

// RiskStatus enum
type RiskStatus string

const (
	RiskOpen      RiskStatus = "open"
	RiskMitigated RiskStatus = "mitigated"
	RiskAccepted  RiskStatus = "accepted"
)

// Likelihood/impact share one scale
type RiskRating string

const (
	RatingLow    RiskRating = "low"
	RatingMedium RiskRating = "medium"
	RatingHigh   RiskRating = "high"
)

type Risk struct {
	ID          int64      `json:"id"`
	ExternalID  string     `json:"external_id"`
	ClientID    ClientID   `json:"client_id"`
	RiskType    RiskType   `json:"risk_type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Likelihood  RiskRating `json:"likelihood"`
	Impact      RiskRating `json:"impact"`
	Status      RiskStatus `json:"status"`
	DetectedAt  *time.Time `json:"detected_at,omitempty"`
}

type Recommendation struct {
	ID          int64      `json:"id"`
	ExternalID  string     `json:"external_id,omitempty"`
	ClientID    ClientID   `json:"client_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Effort      RiskRating `json:"effort"`
	CostRange   string     `json:"cost_range,omitempty"`
	Priority    string     `json:"priority"` // high | medium | low
	Quarter     string     `json:"quarter,omitempty"`
	Status      string     `json:"status,omitempty"`
}

// NormalizedBatch is what an adapter returns: partially-populated rows for
// whichever of the ten entity types its vendor can supply. The caller owns
// the merge/upsert; adapters never write to the store.
type NormalizedBatch struct {
	Source          Source           `json:"source"`
	Clients         []Client         `json:"clients,omitempty"`
	Sites           []Site           `json:"sites,omitempty"`
	Contacts        []Contact        `json:"contacts,omitempty"`
	Users           []User           `json:"users,omitempty"`
	Devices         []Device         `json:"devices,omitempty"`
	Agreements      []Agreement      `json:"agreements,omitempty"`
	Tickets         []Ticket         `json:"tickets,omitempty"`
	Controls        []Control        `json:"controls,omitempty"`
	Risks           []Risk           `json:"risks,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// Size returns the row count across all entity lists.
func (b *NormalizedBatch) Size() int {
	return len(b.Clients) + len(b.Sites) + len(b.Contacts) + len(b.Users) +
		len(b.Devices) + len(b.Agreements) + len(b.Tickets) + len(b.Controls) +
		len(b.Risks) + len(b.Recommendations)
}

// ClientData is the point-in-time snapshot the scoring engine reads.
// Rows are scoped to one client; scoring never sees another client's rows.
type ClientData struct {
	Client          *Client          `json:"client"`
	Sites           []Site           `json:"sites,omitempty"`
	Contacts        []Contact        `json:"contacts,omitempty"`
	Users           []User           `json:"users,omitempty"`
	Devices         []Device         `json:"devices,omitempty"`
	Agreements      []Agreement      `json:"agreements,omitempty"`
	Tickets         []Ticket         `json:"tickets,omitempty"`
	Controls        []Control        `json:"controls,omitempty"`
	Risks           []Risk           `json:"risks,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}
