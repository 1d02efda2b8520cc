package citations

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/narrative"
)

func validatorData() *entities.ClientData {
	return &entities.ClientData{
		Tickets: []entities.Ticket{
			{ID: 7, ExternalID: "4412", Summary: "Mailbox full"},
			{ID: 8, ExternalID: "4499", Summary: "VPN drops"},
		},
		Devices: []entities.Device{
			{ExternalID: "dev-1", Name: "FILESRV-01"},
			{ExternalID: "dev-2", Name: "LT-0042"},
		},
	}
}

func TestValidateEmptyEvidenceIsFatal(t *testing.T) {
	recs := []narrative.Recommendation{
		{Title: "Upgrade file server", Evidence: []string{}},
	}

	flags, err := NewValidator().Validate(recs, validatorData())

	require.Nil(t, flags)
	var hall *HallucinationError
	require.ErrorAs(t, err, &hall)
	require.Equal(t, "Upgrade file server", hall.Recommendation)
}

func TestValidateResolvedCitationsProduceNoFlags(t *testing.T) {
	recs := []narrative.Recommendation{
		{Title: "Expand mailbox quotas", Evidence: []string{"ticket #4412"}},
		{Title: "Replace aging server", Evidence: []string{`device "FILESRV-01" flagged critical`}},
	}

	flags, err := NewValidator().Validate(recs, validatorData())

	require.NoError(t, err)
	require.Empty(t, flags)
}

func TestValidateTicketResolvesByInternalID(t *testing.T) {
	recs := []narrative.Recommendation{
		{Title: "Review VPN config", Evidence: []string{"ticket 7"}},
	}

	flags, err := NewValidator().Validate(recs, validatorData())

	require.NoError(t, err)
	require.Empty(t, flags)
}

func TestValidateUnresolvedCitationFlagsForReview(t *testing.T) {
	recs := []narrative.Recommendation{
		{Title: "Decommission old host", Evidence: []string{"device WORKSTN-99 repeatedly offline"}},
	}

	flags, err := NewValidator().Validate(recs, validatorData())

	require.NoError(t, err)
	require.Len(t, flags, 1)
	require.Equal(t, "Decommission old host", flags[0].Recommendation)
	require.Contains(t, flags[0].Reason, `device "WORKSTN-99" not found`)
}

func TestValidateUnrecognizedEvidenceFlagsForReview(t *testing.T) {
	recs := []narrative.Recommendation{
		{Title: "Improve onboarding", Evidence: []string{"users keep complaining about laptops"}},
	}

	flags, err := NewValidator().Validate(recs, validatorData())

	require.NoError(t, err)
	require.Len(t, flags, 1)
	require.Equal(t, "no recognizable entity reference", flags[0].Reason)
	require.Equal(t, "users keep complaining about laptops", flags[0].Citation)
}

func TestValidateMixedEvidenceOnlyFlagsUnresolved(t *testing.T) {
	recs := []narrative.Recommendation{
		{Title: "Quarterly hardware refresh", Evidence: []string{
			"ticket #4499",
			"ticket #9999",
		}},
	}

	flags, err := NewValidator().Validate(recs, validatorData())

	require.NoError(t, err)
	require.Len(t, flags, 1)
	require.Equal(t, "ticket #9999", flags[0].Citation)
}

func TestValidateEmptyEvidenceShortCircuitsLaterRecommendations(t *testing.T) {
	recs := []narrative.Recommendation{
		{Title: "Good rec", Evidence: []string{"ticket #4412"}},
		{Title: "Bad rec", Evidence: nil},
	}

	flags, err := NewValidator().Validate(recs, validatorData())

	require.Nil(t, flags)
	require.True(t, errors.As(err, new(*HallucinationError)))
}

func TestDeviceExtractorCaseInsensitiveResolution(t *testing.T) {
	recs := []narrative.Recommendation{
		{Title: "Patch laptop", Evidence: []string{"device lt-0042 missing updates"}},
	}

	flags, err := NewValidator().Validate(recs, validatorData())

	require.NoError(t, err)
	require.Empty(t, flags)
}

func TestRegisterCustomExtractor(t *testing.T) {
	v := NewValidator()
	v.Register(stubExtractor{})

	recs := []narrative.Recommendation{
		{Title: "Renew agreement", Evidence: []string{"agreement A-100"}},
	}

	flags, err := v.Validate(recs, validatorData())

	require.NoError(t, err)
	require.Empty(t, flags)
}

type stubExtractor struct{}

func (stubExtractor) EntityType() string { return "agreement" }

func (stubExtractor) Extract(text string) []Citation {
	if text == "agreement A-100" {
		return []Citation{{EntityType: "agreement", Identifier: "A-100", Raw: text}}
	}
	return nil
}

func (stubExtractor) Resolve(c Citation, _ *entities.ClientData) bool {
	return c.Identifier == "A-100"
}
