package citations

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/narrative"
)

// Citation is one extracted entity reference from an evidence string.
type Citation struct {
	EntityType string `json:"entity_type"`
	Identifier string `json:"identifier"`
	Raw        string `json:"raw"`
}

// Extractor recognizes one citation form and resolves it against the
// normalized data. Adding a citable entity type means adding an extractor,
// not editing a pattern list.
type Extractor interface {
	EntityType() string
	Extract(text string) []Citation
	Resolve(c Citation, data *entities.ClientData) bool
}

// ReviewFlag marks a citation that no extractor could resolve. Soft
// failure: extraction patterns are necessarily incomplete, so "not found"
// means "needs review", not "proven false".
type ReviewFlag struct {
	Recommendation string `json:"recommendation"`
	Citation       string `json:"citation"`
	Reason         string `json:"reason"`
}

// HallucinationError is fatal to the report-generation run: a
// recommendation claimed no grounding evidence at all.
type HallucinationError struct {
	Recommendation string
}

func (e *HallucinationError) Error() string {
	return fmt.Sprintf("hallucination detected: recommendation %q has no evidence citations", e.Recommendation)
}

// Validator gates generated recommendations against the normalized data.
type Validator struct {
	extractors []Extractor
}

// NewValidator builds a validator with the default extractor registry.
func NewValidator() *Validator {
	return &Validator{extractors: []Extractor{
		TicketExtractor{},
		DeviceExtractor{},
	}}
}

// Register appends an extractor for a newly citable entity form.
func (v *Validator) Register(e Extractor) {
	v.extractors = append(v.extractors, e)
}

// Validate checks every recommendation's evidence list. An empty list is a
// hard failure; an evidence string whose citations cannot all be resolved
// produces review flags and the run continues.
func (v *Validator) Validate(recs []narrative.Recommendation, data *entities.ClientData) ([]ReviewFlag, error) {
	var flags []ReviewFlag
	for _, rec := range recs {
		if len(rec.Evidence) == 0 {
			return nil, &HallucinationError{Recommendation: rec.Title}
		}
		for _, ev := range rec.Evidence {
			flags = append(flags, v.checkEvidence(rec.Title, ev, data)...)
		}
	}
	return flags, nil
}

func (v *Validator) checkEvidence(title, evidence string, data *entities.ClientData) []ReviewFlag {
	var found []Citation
	for _, ex := range v.extractors {
		found = append(found, ex.Extract(evidence)...)
	}
	if len(found) == 0 {
		// free-text evidence in a form no extractor recognizes yet
		return []ReviewFlag{{
			Recommendation: title,
			Citation:       evidence,
			Reason:         "no recognizable entity reference",
		}}
	}

	var flags []ReviewFlag
	for _, c := range found {
		resolved := false
		for _, ex := range v.extractors {
			if ex.EntityType() == c.EntityType && ex.Resolve(c, data) {
				resolved = true
				break
			}
		}
		if !resolved {
			flags = append(flags, ReviewFlag{
				Recommendation: title,
				Citation:       c.Raw,
				Reason:         fmt.Sprintf("%s %q not found in client data", c.EntityType, c.Identifier),
			})
		}
	}
	return flags
}

func matchesTicket(t entities.Ticket, id string) bool {
	if t.ExternalID == id {
		return true
	}
	return strconv.FormatInt(t.ID, 10) == id
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
