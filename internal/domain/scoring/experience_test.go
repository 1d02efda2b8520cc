package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

var scoringNow = time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)

func TestComputeExperienceAllNeutral(t *testing.T) {
	// no tickets in either quarter: every component resolves to neutral 50
	res := ComputeExperience(&entities.ClientData{}, scoringNow)

	require.Equal(t, 50, res.Score)
	for _, c := range res.Breakdown {
		require.Equal(t, neutralScore, c.Score, c.Name)
		require.IsType(t, NoDataEvidence{}, c.Evidence, c.Name)
	}

	var sum float64
	for _, c := range res.Breakdown {
		sum += c.Weight
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestTicketTrendMonotonicNonIncreasing(t *testing.T) {
	// score never increases as the quarter-over-quarter ratio rises
	prev := 1000.0
	for current := 0; current <= 60; current += 5 {
		c := ticketTrend(current, 20, 10)
		require.LessOrEqual(t, c.Score, prev, "current=%d", current)
		prev = c.Score
	}
}

func TestTicketTrendNeutralWithoutDenominators(t *testing.T) {
	require.Equal(t, neutralScore, ticketTrend(10, 0, 5).Score)  // no prior quarter
	require.Equal(t, neutralScore, ticketTrend(10, 10, 0).Score) // no users
}

func TestTicketTrendStepTable(t *testing.T) {
	cases := []struct {
		current int
		want    float64
	}{
		{15, 90}, // -25%
		{18, 75}, // -10%
		{19, 60}, // -5%
		{20, 50}, // flat
		{21, 40}, // +5%
		{23, 30}, // +15%
		{25, 20}, // +25%
	}
	for _, tc := range cases {
		c := ticketTrend(tc.current, 20, 10)
		require.Equal(t, tc.want, c.Score, "current=%d", tc.current)
	}
}

func TestQuarterPartitioning(t *testing.T) {
	users := []entities.User{{ExternalID: "u1"}}
	data := &entities.ClientData{
		Users: users,
		Tickets: []entities.Ticket{
			// current quarter (Q3 2026)
			{ExternalID: "t1", Category: "email", SLAMet: true, CreatedDate: time.Date(2026, time.July, 10, 10, 0, 0, 0, time.UTC)},
			// prior quarter (Q2 2026)
			{ExternalID: "t2", Category: "email", SLAMet: false, CreatedDate: time.Date(2026, time.May, 10, 10, 0, 0, 0, time.UTC)},
			// older, ignored entirely
			{ExternalID: "t3", Category: "email", SLAMet: false, CreatedDate: time.Date(2025, time.May, 10, 10, 0, 0, 0, time.UTC)},
		},
	}

	res := ComputeExperience(data, scoringNow)
	byName := componentsByName(res.Breakdown)

	// SLA only sees the current quarter's single met ticket
	require.Equal(t, 100.0, byName["sla_performance"].Score)

	trend := byName["ticket_trend"].Evidence.(TrendEvidence)
	require.Equal(t, 1, trend.CurrentTickets)
	require.Equal(t, 1, trend.PriorTickets)
}

func TestReopenRateDoublePenalty(t *testing.T) {
	var tickets []entities.Ticket
	for i := 0; i < 10; i++ {
		tickets = append(tickets, entities.Ticket{
			ExternalID:  fmt.Sprintf("t-%d", i),
			Category:    "general",
			ReopenCount: boolToInt(i < 3),
		})
	}

	c := reopenRate(tickets)

	// 30% reopened, doubled penalty: 100 - 60 = 40
	require.Equal(t, 40.0, c.Score)
}

func TestAfterHoursWindow(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday morning", time.Date(2026, time.August, 12, 9, 0, 0, 0, time.UTC), false},  // Wednesday
		{"weekday evening", time.Date(2026, time.August, 12, 18, 0, 0, 0, time.UTC), true},  // 18:00 is outside
		{"weekday early", time.Date(2026, time.August, 12, 7, 59, 0, 0, time.UTC), true},
		{"saturday midday", time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC), true},
		{"sunday midday", time.Date(2026, time.August, 16, 12, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, isAfterHours(tc.at), tc.name)
	}
}

func TestQuarterBounds(t *testing.T) {
	start, next := quarterBounds(time.Date(2026, time.August, 29, 15, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC), next)

	start, next = quarterBounds(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), next)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
