package citations

import (
	"regexp"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// TicketExtractor recognizes numeric ticket references: "ticket 4821",
// "Ticket #4821", "#4821".
type TicketExtractor struct{}

var ticketPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bticket\s*#?\s*(\d+)`),
	regexp.MustCompile(`#(\d+)\b`),
}

func (TicketExtractor) EntityType() string { return "ticket" }

func (TicketExtractor) Extract(text string) []Citation {
	var out []Citation
	seen := make(map[string]bool)
	for _, rx := range ticketPatterns {
		for _, m := range rx.FindAllStringSubmatch(text, -1) {
			if seen[m[1]] {
				continue
			}
			seen[m[1]] = true
			out = append(out, Citation{EntityType: "ticket", Identifier: m[1], Raw: m[0]})
		}
	}
	return out
}

func (TicketExtractor) Resolve(c Citation, data *entities.ClientData) bool {
	for _, t := range data.Tickets {
		if matchesTicket(t, c.Identifier) {
			return true
		}
	}
	return false
}

// DeviceExtractor recognizes device-name references: `device "LT-0042"`,
// "device SRV-DC01".
type DeviceExtractor struct{}

var devicePattern = regexp.MustCompile(`(?i)\bdevice\s+"?([A-Za-z0-9][A-Za-z0-9._-]*)"?`)

func (DeviceExtractor) EntityType() string { return "device" }

func (DeviceExtractor) Extract(text string) []Citation {
	var out []Citation
	for _, m := range devicePattern.FindAllStringSubmatch(text, -1) {
		out = append(out, Citation{EntityType: "device", Identifier: m[1], Raw: m[0]})
	}
	return out
}

func (DeviceExtractor) Resolve(c Citation, data *entities.ClientData) bool {
	for _, d := range data.Devices {
		if equalFold(d.Name, c.Identifier) {
			return true
		}
	}
	return false
}
