package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pulsemsp/pulse/internal/domain/narrative"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior MSP account strategist writing a quarterly business review. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Write for a non-technical business owner; plain language, no vendor jargon.
- Every recommendation MUST include an evidence array with at least one entry. Each evidence entry must reference a concrete record from the provided data, e.g. "ticket #4412" or "device FILESRV-01". Never cite data that was not provided.
- priority is one of: high, medium, low. effort is one of: low, medium, high.
- cost_range is a rough bracket like "$1k-$5k" or "no cost".
- trends compares this quarter against the prior quarter using the scores and ticket data given.
- discussion_points are short open questions to raise in the review meeting.

Schema (example with empty values):
{
  "trends": "<string>",
  "executive_summary": "<string>",
  "recommendations": [
    {
      "title": "<string>",
      "description": "<string>",
      "priority": "<high|medium|low>",
      "effort": "<low|medium|high>",
      "cost_range": "<string>",
      "evidence": ["<string>"]
    }
  ],
  "discussion_points": ["<string>"]
}`
}

// GetUserPrompt serializes the generator input into a compact user message.
func GetUserPrompt(in *narrative.Input) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to marshal narrative input: %w", err)
	}

	var b strings.Builder
	b.WriteString("Write the quarterly review narrative for the client below and respond with the JSON per schema.\n")
	if in.Client != nil {
		fmt.Fprintf(&b, "Client: %s (segment %s)\n", in.Client.Name, in.Client.Segment)
	}
	b.WriteString("Data:\n")
	b.Write(payload)
	return b.String(), nil
}
