// Package m365 adapts the Microsoft-365-style identity API into the
// normalized entity set: users, secure-score controls and identity/email
// risks.
//
// Default policy for fields the vendor cannot supply:
//   - User.RiskLevel:   "none" when the vendor reports no risk state
//   - User.MFAEnabled:  false unless the vendor explicitly reports a
//     registered method (never assumed enabled)
//   - Control.Status:   "unknown" when the secure-score control carries no
//     implementation state
//   - Risk.Description: the vendor detail string; when the vendor evaluated
//     a detection it always supplies one, so an empty description only
//     occurs for never-evaluated rows
package m365

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pulsemsp/pulse/internal/domain/adapters"
	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/infra/adapters/httpx"
)

var requiredFields = []string{"tenant_id", "client_id", "client_secret"}

type Adapter struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Adapter {
	return &Adapter{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Adapter) Vendor() entities.Source { return entities.SourceM365 }

func (a *Adapter) RequiredFields() []string { return requiredFields }

func (a *Adapter) Sync(ctx context.Context, creds adapters.Credentials) (*entities.NormalizedBatch, error) {
	if err := adapters.ValidateCredentials(a.Vendor(), creds, requiredFields); err != nil {
		return nil, err
	}
	headers := map[string]string{
		"Authorization": "Bearer " + creds["client_secret"],
		"X-Tenant-Id":   creds["tenant_id"],
		"X-Client-Id":   creds["client_id"],
	}

	batch := &entities.NormalizedBatch{Source: a.Vendor()}

	var users struct {
		Value []wireUser `json:"value"`
	}
	if err := httpx.GetJSON(ctx, a.HTTP, a.Vendor(), a.BaseURL+"/v1.0/users", headers, &users); err != nil {
		return nil, err
	}
	for _, u := range users.Value {
		batch.Users = append(batch.Users, mapUser(u))
	}

	var controls struct {
		Value []wireSecureScoreControl `json:"value"`
	}
	if err := httpx.GetJSON(ctx, a.HTTP, a.Vendor(), a.BaseURL+"/v1.0/security/secureScoreControlProfiles", headers, &controls); err != nil {
		return nil, err
	}
	for _, c := range controls.Value {
		batch.Controls = append(batch.Controls, mapControl(c))
	}

	var detections struct {
		Value []wireRiskDetection `json:"value"`
	}
	if err := httpx.GetJSON(ctx, a.HTTP, a.Vendor(), a.BaseURL+"/v1.0/security/riskDetections", headers, &detections); err != nil {
		return nil, err
	}
	for _, d := range detections.Value {
		batch.Risks = append(batch.Risks, mapDetection(d))
	}

	return batch, nil
}

type wireUser struct {
	ID            string `json:"id"`
	Mail          string `json:"mail"`
	UPN           string `json:"userPrincipalName"`
	MFARegistered bool   `json:"isMfaRegistered"`
	RiskLevel     string `json:"riskLevel"`
}

type wireSecureScoreControl struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	ImplementationState string     `json:"implementationStatus"`
	Score               float64    `json:"score"`
	MaxScore            float64    `json:"maxScore"`
	LastSynced          *time.Time `json:"lastModifiedDateTime"`
}

type wireRiskDetection struct {
	ID         string     `json:"id"`
	Kind       string     `json:"riskEventType"`
	Title      string     `json:"riskDetail"`
	Detail     string     `json:"additionalInfo"`
	Level      string     `json:"riskLevel"`
	State      string     `json:"riskState"`
	DetectedAt *time.Time `json:"detectedDateTime"`
}

func mapUser(u wireUser) entities.User {
	return entities.User{
		ExternalID: u.ID,
		Email:      u.Mail,
		UPN:        u.UPN,
		MFAEnabled: u.MFARegistered,
		RiskLevel:  mapUserRisk(u.RiskLevel),
	}
}

func mapUserRisk(level string) entities.UserRiskLevel {
	switch strings.ToLower(level) {
	case "low":
		return entities.UserRiskLow
	case "medium":
		return entities.UserRiskMedium
	case "high":
		return entities.UserRiskHigh
	default:
		return entities.UserRiskNone
	}
}

func mapControl(c wireSecureScoreControl) entities.Control {
	return entities.Control{
		ExternalID:  c.ID,
		ControlType: entities.ControlTypeSecureScore,
		Name:        c.Title,
		Status:      mapImplementation(c.ImplementationState),
		Evidence: map[string]any{
			"score":     c.Score,
			"max_score": c.MaxScore,
			"state":     c.ImplementationState,
		},
		LastChecked: c.LastSynced,
	}
}

func mapImplementation(state string) entities.ControlStatus {
	switch strings.ToLower(state) {
	case "implemented", "fulfilled":
		return entities.ControlPass
	case "notimplemented", "planned":
		return entities.ControlFail
	default:
		return entities.ControlUnknown
	}
}

func mapDetection(d wireRiskDetection) entities.Risk {
	return entities.Risk{
		ExternalID:  d.ID,
		RiskType:    mapRiskType(d.Kind),
		Title:       d.Title,
		Description: d.Detail,
		Likelihood:  mapRating(d.Level),
		Impact:      mapRating(d.Level),
		Status:      mapRiskState(d.State),
		DetectedAt:  d.DetectedAt,
	}
}

func mapRiskType(kind string) entities.RiskType {
	k := strings.ToLower(kind)
	switch {
	case strings.Contains(k, "mail") || strings.Contains(k, "phish") || strings.Contains(k, "spam"):
		return entities.RiskEmail
	case strings.Contains(k, "malware") || strings.Contains(k, "device"):
		return entities.RiskEndpoint
	default:
		return entities.RiskIdentity
	}
}

func mapRating(level string) entities.RiskRating {
	switch strings.ToLower(level) {
	case "high":
		return entities.RatingHigh
	case "medium":
		return entities.RatingMedium
	default:
		return entities.RatingLow
	}
}

func mapRiskState(state string) entities.RiskStatus {
	switch strings.ToLower(state) {
	case "remediated", "dismissed":
		return entities.RiskMitigated
	case "confirmedsafe":
		return entities.RiskAccepted
	default:
		return entities.RiskOpen
	}
}

var _ adapters.Adapter = (*Adapter)(nil)
