package scoring

import (
	"encoding/json"
	"math"
	"time"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// RiskLevel label attached to Risk-score components
type RiskLevel string

const (
	LevelLow    RiskLevel = "Low"
	LevelMedium RiskLevel = "Medium"
	LevelHigh   RiskLevel = "High"
)

// Evidence is the closed set of per-component evidence variants. Every
// variant carries the raw counts its score was computed from plus a
// description string built only from those counts.
type Evidence interface {
	Summary() string
	isEvidence()
}

// Component is one weighted sub-calculation inside a composite score.
type Component struct {
	Name      string    `json:"name"`
	Score     float64   `json:"score"`
	Weight    float64   `json:"weight"`
	RiskLevel RiskLevel `json:"risk_level,omitempty"` // Risk score only
	Evidence  Evidence  `json:"evidence"`
}

// UnmarshalJSON restores a component from cached or persisted JSON. The
// evidence comes back as StoredEvidence since the concrete variant type is
// not encoded on the wire.
func (c *Component) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name      string          `json:"name"`
		Score     float64         `json:"score"`
		Weight    float64         `json:"weight"`
		RiskLevel RiskLevel       `json:"risk_level"`
		Evidence  json.RawMessage `json:"evidence"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Name = raw.Name
	c.Score = raw.Score
	c.Weight = raw.Weight
	c.RiskLevel = raw.RiskLevel
	c.Evidence = nil
	if len(raw.Evidence) > 0 && string(raw.Evidence) != "null" {
		var e StoredEvidence
		if err := json.Unmarshal(raw.Evidence, &e); err != nil {
			return err
		}
		c.Evidence = e
	}
	return nil
}

// StandardsResult carries a nil Score when the client cannot be scored yet
// (no devices). That is a valid terminal state, not an error to the caller.
type StandardsResult struct {
	Score     *int        `json:"score"`
	Error     string      `json:"error,omitempty"`
	Breakdown []Component `json:"breakdown"`
}

// RiskResult: higher means MORE risk, the inverse of the other two scores.
type RiskResult struct {
	Score     int         `json:"score"`
	Level     RiskLevel   `json:"level"`
	Breakdown []Component `json:"breakdown"`
}

type ExperienceResult struct {
	Score     int         `json:"score"`
	Breakdown []Component `json:"breakdown"`
}

// Bundle is the combined output handed to narrative generation and reports.
type Bundle struct {
	ClientID   entities.ClientID `json:"client_id"`
	Standards  StandardsResult   `json:"standards"`
	Risk       RiskResult        `json:"risk"`
	Experience ExperienceResult  `json:"experience"`
	ComputedAt time.Time         `json:"computed_at"`
}

// neutralScore is used when a component's denominator is missing; Risk and
// Experience score the component at the midpoint instead of blocking.
const neutralScore = 50.0

// weightedTotal rounds the weighted sum of component scores.
func weightedTotal(components []Component) int {
	var sum float64
	for _, c := range components {
		sum += c.Score * c.Weight
	}
	return int(math.Round(sum))
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func riskLevelFor(score float64) RiskLevel {
	switch {
	case score < 25:
		return LevelLow
	case score < 50:
		return LevelMedium
	default:
		return LevelHigh
	}
}
