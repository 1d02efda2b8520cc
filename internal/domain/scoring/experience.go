package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// Experience component weights; must sum to 1.00.
const (
	weightTicketTrend = 0.25
	weightRepeatIssue = 0.20
	weightSLA         = 0.25
	weightReopen      = 0.15
	weightAfterHours  = 0.15
)

// After-hours window: tickets created on a weekend or outside 08:00-18:00
// count as after-hours incidents.
const (
	businessDayStartHour = 8
	businessDayEndHour   = 18
)

// ComputeExperience summarizes service-delivery quality for the quarter
// containing now as a 0-100 score (higher is better). Missing denominators
// score the component at the neutral midpoint: a quiet quarter is a valid
// outcome, unlike the Standards no-devices case.
func ComputeExperience(data *entities.ClientData, now time.Time) ExperienceResult {
	curStart, nextStart := quarterBounds(now)
	priorStart, _ := quarterBounds(curStart.AddDate(0, 0, -1))

	var current, prior []entities.Ticket
	for _, t := range data.Tickets {
		switch {
		case !t.CreatedDate.Before(curStart) && t.CreatedDate.Before(nextStart):
			current = append(current, t)
		case !t.CreatedDate.Before(priorStart) && t.CreatedDate.Before(curStart):
			prior = append(prior, t)
		}
	}

	components := []Component{
		ticketTrend(len(current), len(prior), len(data.Users)),
		repeatIssueRate(current),
		slaPerformance(current),
		reopenRate(current),
		afterHoursRate(current),
	}

	return ExperienceResult{Score: weightedTotal(components), Breakdown: components}
}

// quarterBounds returns the start of the calendar quarter containing t and
// the start of the next quarter, in t's location.
func quarterBounds(t time.Time) (time.Time, time.Time) {
	q := (int(t.Month()) - 1) / 3
	start := time.Date(t.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 3, 0)
}

func ticketTrend(current, prior, users int) Component {
	if users == 0 || prior == 0 {
		return Component{
			Name:     "ticket_trend",
			Score:    neutralScore,
			Weight:   weightTicketTrend,
			Evidence: noData("quarter-over-quarter ticket"),
		}
	}

	curPerUser := float64(current) / float64(users)
	priorPerUser := float64(prior) / float64(users)
	change := (curPerUser - priorPerUser) / priorPerUser * 100

	var score float64
	switch {
	case change <= -20:
		score = 90
	case change <= -10:
		score = 75
	case change < 0:
		score = 60
	case change == 0:
		score = 50
	case change < 10:
		score = 40
	case change < 20:
		score = 30
	default:
		score = 20
	}

	return Component{
		Name:   "ticket_trend",
		Score:  score,
		Weight: weightTicketTrend,
		Evidence: TrendEvidence{
			CurrentTickets: current,
			PriorTickets:   prior,
			TotalUsers:     users,
			CurrentPerUser: curPerUser,
			PriorPerUser:   priorPerUser,
			ChangePct:      change,
			Description:    fmt.Sprintf("%.2f tickets/user this quarter vs %.2f prior (%+.0f%%)", curPerUser, priorPerUser, change),
		},
	}
}

func repeatIssueRate(tickets []entities.Ticket) Component {
	if len(tickets) == 0 {
		return Component{
			Name:     "repeat_issue_rate",
			Score:    neutralScore,
			Weight:   weightRepeatIssue,
			Evidence: noData("ticket"),
		}
	}

	byCategory := make(map[string]int)
	for _, t := range tickets {
		byCategory[t.Category]++
	}
	var repeat int
	for _, n := range byCategory {
		if n > 2 {
			repeat++
		}
	}
	total := len(byCategory)

	score := math.Max(0, 100-pct(repeat, total))
	return Component{
		Name:   "repeat_issue_rate",
		Score:  score,
		Weight: weightRepeatIssue,
		Evidence: RepeatEvidence{
			RepeatCategories: repeat,
			TotalCategories:  total,
			Description:      fmt.Sprintf("%d/%d ticket categories with more than 2 tickets", repeat, total),
		},
	}
}

func slaPerformance(tickets []entities.Ticket) Component {
	total := len(tickets)
	if total == 0 {
		return Component{
			Name:     "sla_performance",
			Score:    neutralScore,
			Weight:   weightSLA,
			Evidence: noData("ticket"),
		}
	}

	var met int
	for _, t := range tickets {
		if t.SLAMet {
			met++
		}
	}

	return Component{
		Name:   "sla_performance",
		Score:  pct(met, total),
		Weight: weightSLA,
		Evidence: SLAEvidence{
			Met:         met,
			Total:       total,
			Description: fmt.Sprintf("%d/%d tickets (%.0f%%) met SLA", met, total, pct(met, total)),
		},
	}
}

func reopenRate(tickets []entities.Ticket) Component {
	total := len(tickets)
	if total == 0 {
		return Component{
			Name:     "reopen_rate",
			Score:    neutralScore,
			Weight:   weightReopen,
			Evidence: noData("ticket"),
		}
	}

	var reopened int
	for _, t := range tickets {
		if t.ReopenCount > 0 {
			reopened++
		}
	}
	reopenPct := pct(reopened, total)

	// reopen penalty is doubled
	score := math.Max(0, 100-reopenPct*2)
	return Component{
		Name:   "reopen_rate",
		Score:  score,
		Weight: weightReopen,
		Evidence: ReopenEvidence{
			Reopened:    reopened,
			Total:       total,
			ReopenPct:   reopenPct,
			Description: fmt.Sprintf("%d/%d tickets (%.0f%%) reopened", reopened, total, reopenPct),
		},
	}
}

func afterHoursRate(tickets []entities.Ticket) Component {
	total := len(tickets)
	if total == 0 {
		return Component{
			Name:     "after_hours_rate",
			Score:    neutralScore,
			Weight:   weightAfterHours,
			Evidence: noData("ticket"),
		}
	}

	var after int
	for _, t := range tickets {
		if isAfterHours(t.CreatedDate) {
			after++
		}
	}
	afterPct := pct(after, total)

	score := math.Max(0, 100-afterPct*1.5)
	return Component{
		Name:   "after_hours_rate",
		Score:  score,
		Weight: weightAfterHours,
		Evidence: AfterHoursEvidence{
			AfterHours:    after,
			Total:         total,
			AfterHoursPct: afterPct,
			Description:   fmt.Sprintf("%d/%d tickets (%.0f%%) created after hours", after, total, afterPct),
		},
	}
}

func isAfterHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	h := t.Hour()
	return h < businessDayStartHour || h >= businessDayEndHour
}
