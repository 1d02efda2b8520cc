// Package cwpsa adapts the ConnectWise-style PSA API into the normalized
// entity set: clients, sites, contacts, agreements and tickets.
//
// Default policy for fields the vendor cannot supply:
//   - Client.Segment:    "C" when the vendor carries no market segment
//   - Ticket.Category:   the board name; "general" when absent
//   - Ticket.SLAMet:     false unless the vendor explicitly reports the SLA
//     as met (never assumed met)
//   - Ticket.CSATScore:  nil unless a survey score is present
package cwpsa

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pulsemsp/pulse/internal/domain/adapters"
	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/infra/adapters/httpx"
)

var requiredFields = []string{"company_id", "public_key", "private_key"}

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

func (a *Adapter) Vendor() entities.Source { return entities.SourceCWPSA }

func (a *Adapter) RequiredFields() []string { return requiredFields }

// Sync fetches companies, sites, contacts, agreements and tickets, scoped
// to the company named in the credentials when one is given.
func (a *Adapter) Sync(ctx context.Context, creds adapters.Credentials) (*entities.NormalizedBatch, error) {
	if err := adapters.ValidateCredentials(a.Vendor(), creds, requiredFields); err != nil {
		return nil, err
	}
	headers := map[string]string{
		"clientId":      creds["company_id"],
		"Authorization": "Basic " + creds["public_key"] + ":" + creds["private_key"],
	}

	batch := &entities.NormalizedBatch{Source: a.Vendor()}

	var companies []wireCompany
	if err := httpx.GetJSON(ctx, a.HTTP, a.Vendor(), a.BaseURL+"/company/companies", headers, &companies); err != nil {
		return nil, err
	}
	for _, c := range companies {
		batch.Clients = append(batch.Clients, mapCompany(c))
	}

	var sites []wireSite
	if err := httpx.GetJSON(ctx, a.HTTP, a.Vendor(), a.BaseURL+"/company/sites", headers, &sites); err != nil {
		return nil, err
	}
	for _, s := range sites {
		batch.Sites = append(batch.Sites, entities.Site{
			ExternalID: strconv.FormatInt(s.ID, 10),
			Name:       s.Name,
			Address:    s.AddressLine1,
		})
	}

	var contacts []wireContact
	if err := httpx.GetJSON(ctx, a.HTTP, a.Vendor(), a.BaseURL+"/company/contacts", headers, &contacts); err != nil {
		return nil, err
	}
	for _, c := range contacts {
		batch.Contacts = append(batch.Contacts, entities.Contact{
			ExternalID: strconv.FormatInt(c.ID, 10),
			Name:       c.FirstName + " " + c.LastName,
			Role:       c.Title,
			Email:      c.Email,
			Phone:      c.Phone,
		})
	}

	var agreements []wireAgreement
	if err := httpx.GetJSON(ctx, a.HTTP, a.Vendor(), a.BaseURL+"/finance/agreements", headers, &agreements); err != nil {
		return nil, err
	}
	for _, g := range agreements {
		batch.Agreements = append(batch.Agreements, mapAgreement(g))
	}

	var tickets []wireTicket
	if err := httpx.GetJSON(ctx, a.HTTP, a.Vendor(), a.BaseURL+"/service/tickets", headers, &tickets); err != nil {
		return nil, err
	}
	for _, t := range tickets {
		batch.Tickets = append(batch.Tickets, mapTicket(t))
	}

	return batch, nil
}

// Vendor wire shapes; only the fields the mapping reads.

type wireCompany struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	MarketSegment string  `json:"marketSegment"`
	AnnualRevenue float64 `json:"annualRevenue"`
	MRR           float64 `json:"mrr"`
}

type wireSite struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
}

type wireContact struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Title     string `json:"title"`
	Email     string `json:"email"`
	Phone     string `json:"defaultPhoneNbr"`
}

type wireAgreement struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	MRR           float64    `json:"recurringRevenue"`
	EffectiveRate float64    `json:"billAmount"`
	TermMonths    int        `json:"termMonths"`
	StartDate     *time.Time `json:"startDate"`
	EndDate       *time.Time `json:"endDate"`
}

type wireTicket struct {
	ID          int64      `json:"id"`
	Summary     string     `json:"summary"`
	Board       string     `json:"board"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	ActualHours float64    `json:"actualHours"`
	SLAStatus   string     `json:"slaStatus"`
	Reopened    int        `json:"reopenedCount"`
	Survey      *float64   `json:"surveyScore"`
	CreatedAt   time.Time  `json:"dateEntered"`
	ClosedAt    *time.Time `json:"closedDate"`
}

func mapCompany(c wireCompany) entities.Client {
	return entities.Client{
		ExternalID: strconv.FormatInt(c.ID, 10),
		Source:     entities.SourceCWPSA,
		Name:       c.Name,
		Segment:    mapSegment(c.MarketSegment),
		MRR:        decimal.NewFromFloat(c.MRR),
	}
}

func mapSegment(s string) entities.Segment {
	switch s {
	case "A", "B", "C", "D":
		return entities.Segment(s)
	default:
		return entities.SegmentC
	}
}

func mapAgreement(g wireAgreement) entities.Agreement {
	return entities.Agreement{
		ExternalID:    strconv.FormatInt(g.ID, 10),
		Name:          g.Name,
		MRR:           decimal.NewFromFloat(g.MRR),
		EffectiveRate: decimal.NewFromFloat(g.EffectiveRate),
		TermMonths:    g.TermMonths,
		StartDate:     g.StartDate,
		EndDate:       g.EndDate,
	}
}

func mapTicket(t wireTicket) entities.Ticket {
	category := t.Board
	if category == "" {
		category = "general"
	}
	return entities.Ticket{
		ExternalID:  strconv.FormatInt(t.ID, 10),
		Summary:     t.Summary,
		Category:    category,
		Priority:    t.Priority,
		Status:      t.Status,
		HoursSpent:  t.ActualHours,
		SLAMet:      t.SLAStatus == "met", // never assumed met
		ReopenCount: t.Reopened,
		CSATScore:   t.Survey,
		CreatedDate: t.CreatedAt,
		ClosedDate:  t.ClosedAt,
	}
}

var _ adapters.Adapter = (*Adapter)(nil)
