package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/narrative"
)

func TestSystemPromptEffortVocabulary(t *testing.T) {
	sys := GetSystemPrompt()

	require.Contains(t, sys, "effort is one of: low, medium, high")
	require.Contains(t, sys, `"effort": "<low|medium|high>"`)
	require.NotContains(t, sys, "small")
	require.NotContains(t, sys, "large")
}

func TestSystemPromptDemandsEvidence(t *testing.T) {
	sys := GetSystemPrompt()

	require.Contains(t, sys, "evidence array with at least one entry")
	require.Contains(t, sys, "Never cite data that was not provided")
}

func TestUserPromptCarriesClientAndPayload(t *testing.T) {
	in := &narrative.Input{
		Client: &entities.Client{Name: "Northwind", Segment: entities.SegmentA},
		RecentTickets: []entities.Ticket{
			{ExternalID: "4412", Summary: "Email outage"},
		},
	}

	msg, err := GetUserPrompt(in)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(msg, "Write the quarterly review narrative"))
	require.Contains(t, msg, "Client: Northwind (segment A)")
	require.Contains(t, msg, `"external_id":"4412"`)
}
