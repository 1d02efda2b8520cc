package scoring

import (
	"fmt"
	"math"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// Risk component weights; must sum to 1.00.
const (
	weightIdentityRisk     = 0.30
	weightEmailRisk        = 0.25
	weightEndpointRisk     = 0.25
	weightBusinessModifier = 0.20
)

// businessModifierBaseline is a deliberate placeholder until the product
// defines an industry/compliance multiplier. Do not invent a formula here.
const businessModifierBaseline = 40.0

// ComputeRisk produces a 0-100 score where higher means MORE risk. A
// missing denominator (no users, no devices) scores that component at the
// neutral midpoint instead of blocking the whole score.
func ComputeRisk(data *entities.ClientData) RiskResult {
	components := []Component{
		identityRisk(data.Users),
		emailRisk(data.Risks),
		endpointRisk(data.Devices, data.Risks),
		{
			Name:      "business_modifier",
			Score:     businessModifierBaseline,
			Weight:    weightBusinessModifier,
			RiskLevel: riskLevelFor(businessModifierBaseline),
			Evidence: BaselineEvidence{
				Baseline:    businessModifierBaseline,
				Description: fmt.Sprintf("fixed baseline %.0f; industry/compliance modifier not yet defined", businessModifierBaseline),
			},
		},
	}

	total := weightedTotal(components)
	return RiskResult{
		Score:     total,
		Level:     riskLevelFor(float64(total)),
		Breakdown: components,
	}
}

func identityRisk(users []entities.User) Component {
	total := len(users)
	if total == 0 {
		return Component{
			Name:      "identity_risk",
			Score:     neutralScore,
			Weight:    weightIdentityRisk,
			RiskLevel: LevelMedium,
			Evidence:  noData("user"),
		}
	}

	var mfa, high, medium int
	for _, u := range users {
		if u.MFAEnabled {
			mfa++
		}
		switch u.RiskLevel {
		case entities.UserRiskHigh:
			high++
		case entities.UserRiskMedium:
			medium++
		}
	}

	mfaPct := pct(mfa, total)
	score := math.Round((100-mfaPct)*0.6 + pct(high, total)*0.3 + pct(medium, total)*0.1)
	return Component{
		Name:      "identity_risk",
		Score:     score,
		Weight:    weightIdentityRisk,
		RiskLevel: riskLevelFor(score),
		Evidence: IdentityEvidence{
			TotalUsers:      total,
			MFAEnabled:      mfa,
			HighRiskUsers:   high,
			MediumRiskUsers: medium,
			MFACoveragePct:  mfaPct,
			Description:     fmt.Sprintf("%d/%d users (%.0f%%) MFA-enabled, %d high-risk, %d medium-risk", mfa, total, mfaPct, high, medium),
		},
	}
}

func emailRisk(risks []entities.Risk) Component {
	var open int
	for _, r := range risks {
		if r.RiskType == entities.RiskEmail && r.Status == entities.RiskOpen {
			open++
		}
	}

	var score float64
	switch {
	case open == 0:
		score = 10
	case open <= 3:
		score = 30
	case open <= 10:
		score = 60
	default:
		score = 90
	}

	return Component{
		Name:      "email_risk",
		Score:     score,
		Weight:    weightEmailRisk,
		RiskLevel: riskLevelFor(score),
		Evidence: EmailEvidence{
			OpenEmailRisks: open,
			Description:    fmt.Sprintf("%d open email risks", open),
		},
	}
}

func endpointRisk(devices []entities.Device, risks []entities.Risk) Component {
	total := len(devices)
	if total == 0 {
		return Component{
			Name:      "endpoint_risk",
			Score:     neutralScore,
			Weight:    weightEndpointRisk,
			RiskLevel: LevelMedium,
			Evidence:  noData("device"),
		}
	}

	var unmanaged, critical int
	for _, d := range devices {
		if !d.Managed {
			unmanaged++
		}
		if d.HealthStatus == entities.HealthCritical {
			critical++
		}
	}
	var openRisks int
	for _, r := range risks {
		if r.RiskType == entities.RiskEndpoint && r.Status == entities.RiskOpen {
			openRisks++
		}
	}

	unmanagedPct := pct(unmanaged, total)
	score := math.Round(unmanagedPct*0.4 + pct(critical, total)*0.3 + math.Min(float64(openRisks)*5, 30))
	return Component{
		Name:      "endpoint_risk",
		Score:     score,
		Weight:    weightEndpointRisk,
		RiskLevel: riskLevelFor(score),
		Evidence: EndpointEvidence{
			TotalDevices:      total,
			Unmanaged:         unmanaged,
			CriticalHealth:    critical,
			OpenEndpointRisks: openRisks,
			UnmanagedPct:      unmanagedPct,
			Description:       fmt.Sprintf("%d/%d devices unmanaged, %d critical health, %d open endpoint risks", unmanaged, total, critical, openRisks),
		},
	}
}
