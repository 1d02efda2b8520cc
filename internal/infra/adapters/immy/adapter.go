// Package immy adapts the ImmyBot-style RMM API into the normalized entity
// set: devices and baseline-compliance controls.
//
// Default policy for fields the vendor cannot supply:
//   - Device.HealthStatus: "unknown" when the agent reports no status (a
//     silent "healthy" default would inflate patch compliance downstream)
//   - Device.Type:         "endpoint" when the vendor class is unrecognized
//   - Control.Status:      "unknown" when a baseline check has not run yet
package immy

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pulsemsp/pulse/internal/domain/adapters"
	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/infra/adapters/httpx"
)

var requiredFields = []string{"tenant_id", "api_token"}

// ControlType tag written onto every baseline control this adapter emits.
const ControlType = "immy_baseline"

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

func (a *Adapter) Vendor() entities.Source { return entities.SourceImmy }

func (a *Adapter) RequiredFields() []string { return requiredFields }

func (a *Adapter) Sync(ctx context.Context, creds adapters.Credentials) (*entities.NormalizedBatch, error) {
	if err := adapters.ValidateCredentials(a.Vendor(), creds, requiredFields); err != nil {
		return nil, err
	}
	headers := map[string]string{
		"Authorization": "Bearer " + creds["api_token"],
		"X-Tenant-Id":   creds["tenant_id"],
	}

	batch := &entities.NormalizedBatch{Source: a.Vendor()}

	var devices []wireDevice
	if err := httpx.GetJSON(ctx, a.HTTP, a.Vendor(), a.BaseURL+"/api/v1/devices", headers, &devices); err != nil {
		return nil, err
	}
	for _, d := range devices {
		batch.Devices = append(batch.Devices, mapDevice(d))
	}

	var checks []wireBaselineCheck
	if err := httpx.GetJSON(ctx, a.HTTP, a.Vendor(), a.BaseURL+"/api/v1/baseline/results", headers, &checks); err != nil {
		return nil, err
	}
	for _, c := range checks {
		batch.Controls = append(batch.Controls, mapCheck(c))
	}

	return batch, nil
}

type wireDevice struct {
	ID             int64      `json:"id"`
	Name           string     `json:"computerName"`
	SiteExternalID string     `json:"siteId"`
	Class          string     `json:"deviceClass"`
	OS             string     `json:"operatingSystem"`
	Onboarded      bool       `json:"onboarded"`
	AgentStatus    string     `json:"agentStatus"`
	LastSeen       *time.Time `json:"lastSeen"`
}

type wireBaselineCheck struct {
	ID        int64          `json:"id"`
	Name      string         `json:"policyName"`
	Result    string         `json:"result"`
	Detail    map[string]any `json:"detail"`
	CheckedAt *time.Time     `json:"checkedAt"`
}

func mapDevice(d wireDevice) entities.Device {
	return entities.Device{
		ExternalID:   strconv.FormatInt(d.ID, 10),
		Name:         d.Name,
		Type:         mapDeviceType(d.Class),
		OS:           d.OS,
		Managed:      d.Onboarded,
		HealthStatus: mapHealth(d.AgentStatus),
		LastSeen:     d.LastSeen,
	}
}

func mapDeviceType(class string) entities.DeviceType {
	switch strings.ToLower(class) {
	case "server":
		return entities.DeviceServer
	case "network", "networkdevice":
		return entities.DeviceNetwork
	default:
		return entities.DeviceEndpoint
	}
}

func mapHealth(status string) entities.HealthStatus {
	switch strings.ToLower(status) {
	case "healthy", "online":
		return entities.HealthHealthy
	case "degraded", "warning":
		return entities.HealthWarning
	case "failed", "critical", "offline":
		return entities.HealthCritical
	default:
		// no telemetry is not the same as healthy
		return entities.HealthUnknown
	}
}

func mapCheck(c wireBaselineCheck) entities.Control {
	evidence := c.Detail
	if evidence == nil {
		evidence = map[string]any{"result": c.Result}
	}
	return entities.Control{
		ExternalID:  strconv.FormatInt(c.ID, 10),
		ControlType: ControlType,
		Name:        c.Name,
		Status:      mapResult(c.Result),
		Evidence:    evidence,
		LastChecked: c.CheckedAt,
	}
}

func mapResult(result string) entities.ControlStatus {
	switch strings.ToLower(result) {
	case "pass", "compliant":
		return entities.ControlPass
	case "fail", "noncompliant":
		return entities.ControlFail
	default:
		return entities.ControlUnknown
	}
}

var _ adapters.Adapter = (*Adapter)(nil)
