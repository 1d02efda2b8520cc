package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

func TestIdentityRiskScenario(t *testing.T) {
	// 100 users, 30 MFA-enabled, none risk-flagged:
	// round((100-30)*0.6) = 42, Medium
	var users []entities.User
	for i := 0; i < 100; i++ {
		users = append(users, entities.User{
			ExternalID: fmt.Sprintf("u-%d", i),
			MFAEnabled: i < 30,
			RiskLevel:  entities.UserRiskNone,
		})
	}

	c := identityRisk(users)

	require.Equal(t, 42.0, c.Score)
	require.Equal(t, LevelMedium, c.RiskLevel)
}

func TestIdentityRiskMonotonicInMFAGap(t *testing.T) {
	// score never decreases as MFA coverage drops
	prev := -1.0
	for mfa := 100; mfa >= 0; mfa -= 10 {
		var users []entities.User
		for i := 0; i < 100; i++ {
			users = append(users, entities.User{ExternalID: fmt.Sprintf("u-%d", i), MFAEnabled: i < mfa})
		}
		c := identityRisk(users)
		require.GreaterOrEqual(t, c.Score, prev, "mfa=%d", mfa)
		prev = c.Score
	}
}

func TestIdentityRiskNeutralOnZeroUsers(t *testing.T) {
	c := identityRisk(nil)

	require.Equal(t, neutralScore, c.Score)
	require.Equal(t, LevelMedium, c.RiskLevel)
	require.IsType(t, NoDataEvidence{}, c.Evidence)
}

func TestEmailRiskSteps(t *testing.T) {
	cases := []struct {
		open int
		want float64
	}{
		{0, 10},
		{1, 30},
		{3, 30},
		{4, 60},
		{10, 60},
		{11, 90},
	}
	for _, tc := range cases {
		var risks []entities.Risk
		for i := 0; i < tc.open; i++ {
			risks = append(risks, entities.Risk{
				ExternalID: fmt.Sprintf("r-%d", i),
				RiskType:   entities.RiskEmail,
				Status:     entities.RiskOpen,
			})
		}
		// mitigated risks never count
		risks = append(risks, entities.Risk{ExternalID: "r-done", RiskType: entities.RiskEmail, Status: entities.RiskMitigated})

		c := emailRisk(risks)
		require.Equal(t, tc.want, c.Score, "open=%d", tc.open)
	}
}

func TestEndpointRiskNeutralOnZeroDevices(t *testing.T) {
	c := endpointRisk(nil, nil)

	require.Equal(t, neutralScore, c.Score)
	require.Equal(t, LevelMedium, c.RiskLevel)
}

func TestEndpointRiskCapsOpenRiskPenalty(t *testing.T) {
	devices := []entities.Device{{ExternalID: "d1", Managed: true, HealthStatus: entities.HealthHealthy}}
	var risks []entities.Risk
	for i := 0; i < 20; i++ {
		risks = append(risks, entities.Risk{
			ExternalID: fmt.Sprintf("r-%d", i),
			RiskType:   entities.RiskEndpoint,
			Status:     entities.RiskOpen,
		})
	}

	c := endpointRisk(devices, risks)

	// 0 unmanaged, 0 critical, open-risk term capped at 30
	require.Equal(t, 30.0, c.Score)
}

func TestComputeRiskTotal(t *testing.T) {
	// identity 42 (*.30) + email 10 (*.25) + endpoint neutral 50 (*.25) +
	// business baseline 40 (*.20) = round(35.6) = 36
	var users []entities.User
	for i := 0; i < 100; i++ {
		users = append(users, entities.User{ExternalID: fmt.Sprintf("u-%d", i), MFAEnabled: i < 30})
	}

	res := ComputeRisk(&entities.ClientData{Users: users})

	require.Equal(t, 36, res.Score)
	require.Equal(t, LevelMedium, res.Level)

	var sum float64
	for _, c := range res.Breakdown {
		sum += c.Weight
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestBusinessModifierFixedBaseline(t *testing.T) {
	res := ComputeRisk(&entities.ClientData{})
	byName := componentsByName(res.Breakdown)

	require.Equal(t, 40.0, byName["business_modifier"].Score)
}
