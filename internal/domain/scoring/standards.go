package scoring

import (
	"fmt"
	"math"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// Standards component weights; must sum to 1.00.
const (
	weightDeviceCoverage     = 0.20
	weightBaselineCompliance = 0.30
	weightPatchCompliance    = 0.20
	weightEDRCoverage        = 0.15
	weightSecureScore        = 0.15
)

// InsufficientDataMessage is the terminal "cannot score yet" marker for a
// client with no devices. Not an error condition to the caller.
const InsufficientDataMessage = "Insufficient data: no devices found"

// ComputeStandards estimates baseline conformance as a 0-100 score from
// five weighted components. A client with zero devices short-circuits to a
// nil score with an empty breakdown; any other zero denominator scores its
// component as 0.
func ComputeStandards(data *entities.ClientData) StandardsResult {
	totalDevices := len(data.Devices)
	if totalDevices == 0 {
		return StandardsResult{Score: nil, Error: InsufficientDataMessage, Breakdown: []Component{}}
	}

	var managed, healthy int
	for _, d := range data.Devices {
		if d.Managed {
			managed++
		}
		if d.HealthStatus == entities.HealthHealthy {
			healthy++
		}
	}

	var passed, totalControls, securePassed, secureTotal int
	for _, c := range data.Controls {
		totalControls++
		if c.Status == entities.ControlPass {
			passed++
		}
		if c.ControlType == entities.ControlTypeSecureScore {
			secureTotal++
			if c.Status == entities.ControlPass {
				securePassed++
			}
		}
	}

	components := []Component{
		{
			Name:     "device_coverage",
			Score:    math.Min(100, pct(managed, totalDevices)),
			Weight:   weightDeviceCoverage,
			Evidence: coverageEvidence("managed", managed, totalDevices),
		},
		{
			Name:     "baseline_compliance",
			Score:    pct(passed, totalControls),
			Weight:   weightBaselineCompliance,
			Evidence: controlsEvidence(passed, totalControls),
		},
		{
			Name:   "patch_compliance",
			Score:  pct(healthy, totalDevices),
			Weight: weightPatchCompliance,
			Evidence: HealthEvidence{
				Healthy:     healthy,
				Total:       totalDevices,
				Description: fmt.Sprintf("%d/%d devices (%.0f%%) reporting healthy", healthy, totalDevices, pct(healthy, totalDevices)),
			},
		},
		{
			// managed doubles as the EDR proxy; the vendor feed carries no
			// separate EDR flag.
			Name:     "edr_coverage",
			Score:    pct(managed, totalDevices),
			Weight:   weightEDRCoverage,
			Evidence: coverageEvidence("managed (EDR proxy)", managed, totalDevices),
		},
		{
			Name:     "secure_score",
			Score:    pct(securePassed, secureTotal),
			Weight:   weightSecureScore,
			Evidence: controlsEvidence(securePassed, secureTotal),
		},
	}

	total := weightedTotal(components)
	return StandardsResult{Score: &total, Breakdown: components}
}
