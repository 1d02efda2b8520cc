package render

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"os"

	"github.com/pulsemsp/pulse/internal/domain/narrative"
	"github.com/pulsemsp/pulse/internal/domain/reports"
	"github.com/pulsemsp/pulse/internal/domain/scoring"
)

// HTML renders a completed report into a standalone HTML document in the
// OS temp dir. Implements reports.Renderer; the caller uploads and removes
// the file.
type HTML struct {
	tmpl *template.Template
}

func NewHTML() *HTML {
	return &HTML{tmpl: template.Must(template.New("report").Parse(reportTemplate))}
}

type reviewFlag struct {
	Recommendation string `json:"recommendation"`
	Reason         string `json:"reason"`
}

type templateData struct {
	Quarter     string
	ClientID    string
	GeneratedAt string
	Scores      *scoring.Bundle
	Narrative   *narrative.Output
	ReviewFlags []reviewFlag
}

func (h *HTML) Render(ctx context.Context, r *reports.Report) (string, error) {
	data := templateData{
		Quarter:     r.Quarter,
		ClientID:    string(r.ClientID),
		GeneratedAt: r.UpdatedAt.Format("2006-01-02 15:04 MST"),
	}
	if r.ScoresJSON != "" {
		data.Scores = &scoring.Bundle{}
		if err := json.Unmarshal([]byte(r.ScoresJSON), data.Scores); err != nil {
			return "", fmt.Errorf("decoding scores for render: %w", err)
		}
	}
	if r.NarrativeJSON != "" {
		data.Narrative = &narrative.Output{}
		if err := json.Unmarshal([]byte(r.NarrativeJSON), data.Narrative); err != nil {
			return "", fmt.Errorf("decoding narrative for render: %w", err)
		}
	}
	if r.ReviewFlagsJSON != "" {
		if err := json.Unmarshal([]byte(r.ReviewFlagsJSON), &data.ReviewFlags); err != nil {
			return "", fmt.Errorf("decoding review flags for render: %w", err)
		}
	}

	f, err := os.CreateTemp("", fmt.Sprintf("report-%s-*.html", r.ID))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := h.tmpl.Execute(f, data); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("rendering report %s: %w", r.ID, err)
	}
	return f.Name(), nil
}

var _ reports.Renderer = (*HTML)(nil)

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Quarterly Review {{.Quarter}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 860px; color: #1c2733; }
h1 { border-bottom: 2px solid #2a6fb0; padding-bottom: .4rem; }
h2 { margin-top: 2rem; color: #2a6fb0; }
table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
th, td { border: 1px solid #d4dbe1; padding: .45rem .6rem; text-align: left; }
th { background: #f0f4f8; }
.score { font-size: 1.6rem; font-weight: 700; }
.flag { background: #fff6e0; border-left: 4px solid #d99a00; padding: .6rem .8rem; margin: .5rem 0; }
.meta { color: #68737d; font-size: .85rem; }
.rec { border: 1px solid #d4dbe1; border-radius: 6px; padding: .8rem 1rem; margin: .8rem 0; }
.rec ul { margin: .4rem 0 0; }
</style>
</head>
<body>
<h1>Quarterly Business Review &mdash; {{.Quarter}}</h1>
<p class="meta">Generated {{.GeneratedAt}}</p>

{{if .Scores}}
<h2>Scores</h2>
<table>
<tr><th>Score</th><th>Value</th></tr>
<tr><td>Standards</td><td class="score">{{if .Scores.Standards.Score}}{{.Scores.Standards.Score}}{{else}}&mdash; {{.Scores.Standards.Error}}{{end}}</td></tr>
<tr><td>Risk ({{.Scores.Risk.Level}})</td><td class="score">{{.Scores.Risk.Score}}</td></tr>
<tr><td>Experience</td><td class="score">{{.Scores.Experience.Score}}</td></tr>
</table>

{{if .Scores.Standards.Breakdown}}
<h2>Standards Breakdown</h2>
<table>
<tr><th>Component</th><th>Score</th><th>Evidence</th></tr>
{{range .Scores.Standards.Breakdown}}<tr><td>{{.Name}}</td><td>{{printf "%.0f" .Score}}</td><td>{{if .Evidence}}{{.Evidence.Summary}}{{end}}</td></tr>
{{end}}</table>
{{end}}
{{end}}

{{if .Narrative}}
<h2>Executive Summary</h2>
<p>{{.Narrative.ExecutiveSummary}}</p>

<h2>Trends</h2>
<p>{{.Narrative.Trends}}</p>

{{if .Narrative.Recommendations}}
<h2>Recommendations</h2>
{{range .Narrative.Recommendations}}
<div class="rec">
<strong>{{.Title}}</strong> ({{.Priority}} priority, {{.Effort}} effort, {{.CostRange}})
<p>{{.Description}}</p>
<ul>{{range .Evidence}}<li>{{.}}</li>{{end}}</ul>
</div>
{{end}}
{{end}}

{{if .Narrative.DiscussionPoints}}
<h2>Discussion Points</h2>
<ul>{{range .Narrative.DiscussionPoints}}<li>{{.}}</li>{{end}}</ul>
{{end}}
{{end}}

{{if .ReviewFlags}}
<h2>Flagged for Review</h2>
{{range .ReviewFlags}}<div class="flag"><strong>{{.Recommendation}}</strong>: {{.Reason}}</div>
{{end}}
{{end}}

</body>
</html>
`
