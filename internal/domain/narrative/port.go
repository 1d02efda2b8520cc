package narrative

import (
	"context"

	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/scoring"
)

// Input is the fixed contract handed to the generator. The core never
// inspects how the generator turns it into text.
type Input struct {
	Client         *entities.Client  `json:"client"`
	Scores         *scoring.Bundle   `json:"scores"`
	RecentTickets  []entities.Ticket `json:"recent_tickets"`
	TopRisks       []entities.Risk   `json:"top_risks"`
	LifecycleItems []LifecycleItem   `json:"lifecycle_items"`
}

// LifecycleItem is an asset nearing replacement or renewal, summarized for
// the narrative.
type LifecycleItem struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // device | agreement
	Detail  string `json:"detail,omitempty"`
	DueDate string `json:"due_date,omitempty"`
}

// Recommendation as returned by the generator. Evidence carries citation
// strings that must survive the validation gate before the report ships.
type Recommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Effort      string   `json:"effort"`
	CostRange   string   `json:"cost_range"`
	Evidence    []string `json:"evidence"`
}

// Output is the generator's structured result.
type Output struct {
	Trends           string           `json:"trends"`
	ExecutiveSummary string           `json:"executive_summary"`
	Recommendations  []Recommendation `json:"recommendations"`
	DiscussionPoints []string         `json:"discussion_points"`
}

// Generator port. Implementations own their prompt engineering; callers own
// timeout and retry policy around Generate.
type Generator interface {
	Generate(ctx context.Context, in *Input) (*Output, error)
}
