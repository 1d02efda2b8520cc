package immy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsemsp/pulse/internal/domain/adapters"
	"github.com/pulsemsp/pulse/internal/domain/entities"
)

func TestSyncMapsDevicesAndBaselines(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/devices", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "t1", r.Header.Get("X-Tenant-Id"))
		w.Write([]byte(`[
			{"id": 1, "computerName": "FILESRV-01", "deviceClass": "Server", "operatingSystem": "Windows Server 2022", "onboarded": true, "agentStatus": "healthy"},
			{"id": 2, "computerName": "LT-0042", "deviceClass": "laptop", "onboarded": false, "agentStatus": ""}
		]`))
	})
	mux.HandleFunc("/api/v1/baseline/results", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": 10, "policyName": "BitLocker enabled", "result": "compliant"},
			{"id": 11, "policyName": "Local admin removed", "result": "pending"}
		]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := New(srv.URL)
	batch, err := a.Sync(context.Background(), adapters.Credentials{
		"tenant_id": "t1",
		"api_token": "tok",
	})

	require.NoError(t, err)
	require.Equal(t, entities.SourceImmy, batch.Source)

	require.Len(t, batch.Devices, 2)
	require.Equal(t, entities.DeviceServer, batch.Devices[0].Type)
	require.True(t, batch.Devices[0].Managed)
	require.Equal(t, entities.HealthHealthy, batch.Devices[0].HealthStatus)
	require.Equal(t, entities.DeviceEndpoint, batch.Devices[1].Type)
	// no agent telemetry must not read as healthy
	require.Equal(t, entities.HealthUnknown, batch.Devices[1].HealthStatus)

	require.Len(t, batch.Controls, 2)
	require.Equal(t, ControlType, batch.Controls[0].ControlType)
	require.Equal(t, entities.ControlPass, batch.Controls[0].Status)
	require.Equal(t, entities.ControlUnknown, batch.Controls[1].Status)
	require.Equal(t, map[string]any{"result": "pending"}, batch.Controls[1].Evidence)
}

func TestSyncRequiresTokenAndTenant(t *testing.T) {
	a := New("http://unused.test")
	_, err := a.Sync(context.Background(), adapters.Credentials{"tenant_id": "t1"})

	ae, ok := adapters.AsError(err)
	require.True(t, ok)
	require.Equal(t, adapters.KindInvalidCredentials, ae.Kind)
	require.Contains(t, ae.Message, "api_token")
}

func TestMapHealthStates(t *testing.T) {
	cases := map[string]entities.HealthStatus{
		"healthy":  entities.HealthHealthy,
		"Online":   entities.HealthHealthy,
		"degraded": entities.HealthWarning,
		"offline":  entities.HealthCritical,
		"critical": entities.HealthCritical,
		"":         entities.HealthUnknown,
		"weird":    entities.HealthUnknown,
	}
	for in, want := range cases {
		require.Equal(t, want, mapHealth(in), in)
	}
}
