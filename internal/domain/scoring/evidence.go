package scoring

import "fmt"

// Evidence variants. One concrete type per component shape so a missing
// count is a compile error rather than an absent map key.

// CoverageEvidence backs device-coverage and EDR-coverage. Both use the
// managed flag; for EDR that is a documented proxy, not a distinct signal.
type CoverageEvidence struct {
	Covered     int    `json:"covered"`
	Total       int    `json:"total"`
	Description string `json:"description"`
}

func (e CoverageEvidence) Summary() string { return e.Description }
func (CoverageEvidence) isEvidence()       {}

func coverageEvidence(verb string, covered, total int) CoverageEvidence {
	return CoverageEvidence{
		Covered:     covered,
		Total:       total,
		Description: fmt.Sprintf("%d/%d devices (%.0f%%) %s", covered, total, pct(covered, total), verb),
	}
}

// ControlsEvidence backs baseline-compliance and external secure-score.
type ControlsEvidence struct {
	Passed      int    `json:"passed"`
	Total       int    `json:"total"`
	Description string `json:"description"`
}

func (e ControlsEvidence) Summary() string { return e.Description }
func (ControlsEvidence) isEvidence()       {}

func controlsEvidence(passed, total int) ControlsEvidence {
	return ControlsEvidence{
		Passed:      passed,
		Total:       total,
		Description: fmt.Sprintf("%d/%d controls (%.0f%%) passing", passed, total, pct(passed, total)),
	}
}

// HealthEvidence backs patch compliance (healthy status as the proxy).
type HealthEvidence struct {
	Healthy     int    `json:"healthy"`
	Total       int    `json:"total"`
	Description string `json:"description"`
}

func (e HealthEvidence) Summary() string { return e.Description }
func (HealthEvidence) isEvidence()       {}

// IdentityEvidence backs the identity-risk component.
type IdentityEvidence struct {
	TotalUsers      int     `json:"total_users"`
	MFAEnabled      int     `json:"mfa_enabled"`
	HighRiskUsers   int     `json:"high_risk_users"`
	MediumRiskUsers int     `json:"medium_risk_users"`
	MFACoveragePct  float64 `json:"mfa_coverage_pct"`
	Description     string  `json:"description"`
}

func (e IdentityEvidence) Summary() string { return e.Description }
func (IdentityEvidence) isEvidence()       {}

// EmailEvidence backs the email-risk step function.
type EmailEvidence struct {
	OpenEmailRisks int    `json:"open_email_risks"`
	Description    string `json:"description"`
}

func (e EmailEvidence) Summary() string { return e.Description }
func (EmailEvidence) isEvidence()       {}

// EndpointEvidence backs the endpoint-risk component.
type EndpointEvidence struct {
	TotalDevices      int     `json:"total_devices"`
	Unmanaged         int     `json:"unmanaged"`
	CriticalHealth    int     `json:"critical_health"`
	OpenEndpointRisks int     `json:"open_endpoint_risks"`
	UnmanagedPct      float64 `json:"unmanaged_pct"`
	Description       string  `json:"description"`
}

func (e EndpointEvidence) Summary() string { return e.Description }
func (EndpointEvidence) isEvidence()       {}

// BaselineEvidence backs the business-modifier placeholder component.
type BaselineEvidence struct {
	Baseline    float64 `json:"baseline"`
	Description string  `json:"description"`
}

func (e BaselineEvidence) Summary() string { return e.Description }
func (BaselineEvidence) isEvidence()       {}

// TrendEvidence backs tickets-per-user quarter-over-quarter trend.
type TrendEvidence struct {
	CurrentTickets int     `json:"current_tickets"`
	PriorTickets   int     `json:"prior_tickets"`
	TotalUsers     int     `json:"total_users"`
	CurrentPerUser float64 `json:"current_per_user"`
	PriorPerUser   float64 `json:"prior_per_user"`
	ChangePct      float64 `json:"change_pct"`
	Description    string  `json:"description"`
}

func (e TrendEvidence) Summary() string { return e.Description }
func (TrendEvidence) isEvidence()       {}

// RepeatEvidence backs the repeat-issue rate.
type RepeatEvidence struct {
	RepeatCategories int    `json:"repeat_categories"`
	TotalCategories  int    `json:"total_categories"`
	Description      string `json:"description"`
}

func (e RepeatEvidence) Summary() string { return e.Description }
func (RepeatEvidence) isEvidence()       {}

// SLAEvidence backs SLA performance.
type SLAEvidence struct {
	Met         int    `json:"met"`
	Total       int    `json:"total"`
	Description string `json:"description"`
}

func (e SLAEvidence) Summary() string { return e.Description }
func (SLAEvidence) isEvidence()       {}

// ReopenEvidence backs the reopen rate.
type ReopenEvidence struct {
	Reopened    int     `json:"reopened"`
	Total       int     `json:"total"`
	ReopenPct   float64 `json:"reopen_pct"`
	Description string  `json:"description"`
}

func (e ReopenEvidence) Summary() string { return e.Description }
func (ReopenEvidence) isEvidence()       {}

// AfterHoursEvidence backs after-hours incident rate.
type AfterHoursEvidence struct {
	AfterHours    int     `json:"after_hours"`
	Total         int     `json:"total"`
	AfterHoursPct float64 `json:"after_hours_pct"`
	Description   string  `json:"description"`
}

func (e AfterHoursEvidence) Summary() string { return e.Description }
func (AfterHoursEvidence) isEvidence()       {}

// NoDataEvidence is the shared "denominator missing" variant for components
// that score at the neutral midpoint.
type NoDataEvidence struct {
	Description string `json:"description"`
}

func (e NoDataEvidence) Summary() string { return e.Description }
func (NoDataEvidence) isEvidence()       {}

func noData(what string) NoDataEvidence {
	return NoDataEvidence{Description: "no " + what + " data available; scored at neutral midpoint"}
}

// StoredEvidence is what evidence rehydrates into when a bundle comes back
// from the cache or a persisted report row. The description survives the
// round trip; the typed counts do not.
type StoredEvidence struct {
	Description string `json:"description"`
}

func (e StoredEvidence) Summary() string { return e.Description }
func (StoredEvidence) isEvidence()       {}
