package notifications

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
	"github.com/bissquit/incident-metrics/internal/reliability"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const summaryTemplate = `Incident metrics recalculation finished.

Scope:          {{ scope .Year }}
Processed:      {{ number .Processed }}
MTTR updated:   {{ number .MTTRUpdated }}
MTBF updated:   {{ number .MTBFUpdated }}
Duration:       {{ formatDuration .Duration }}
Run ID:         {{ .RunID }}
{{- if .Changes }}

Changed incidents:
{{- range .Changes }}
  #{{ .IncidentID }}{{ if .MTTRChanged }} mttr {{ mttr .OldMTTR }} -> {{ mttr .NewMTTR }}{{ end }}{{ if .MTBFChanged }} mtbf {{ mtbf .OldMTBF }} -> {{ mtbf .NewMTBF }}{{ end }}
{{- end }}
{{- end }}
`

// maxListedChanges bounds the per-incident section of a plain-text summary.
const maxListedChanges = 50

var printer = message.NewPrinter(language.English)

// Renderer renders plain-text run summaries.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the summary template.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"scope":          scope,
		"number":         func(n int) string { return printer.Sprintf("%d", n) },
		"formatDuration": formatDuration,
		"mttr": func(m *domain.MTTR) string {
			if m == nil {
				return "-"
			}
			return m.String()
		},
		"mtbf": func(v *int) string {
			if v == nil {
				return "-"
			}
			return fmt.Sprintf("%d", *v)
		},
	}

	tmpl, err := template.New("summary").Funcs(funcMap).Parse(summaryTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse summary template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render returns the subject and plain-text body for a run summary.
func (r *Renderer) Render(result *reliability.Result) (subject, body string, err error) {
	view := *result
	if len(view.Changes) > maxListedChanges {
		view.Changes = view.Changes[:maxListedChanges]
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, &view); err != nil {
		return "", "", fmt.Errorf("execute summary template: %w", err)
	}

	body = strings.TrimSpace(buf.String())
	if n := len(result.Changes) - len(view.Changes); n > 0 {
		body += fmt.Sprintf("\n  ... and %d more", n)
	}

	subject = fmt.Sprintf("[Incident metrics] Recalculated %s: %d MTTR, %d MTBF updates",
		scope(result.Year), result.MTTRUpdated, result.MTBFUpdated)
	return subject, body, nil
}

func scope(year *int) string {
	if year == nil {
		return "all years"
	}
	return fmt.Sprintf("year %d", *year)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Millisecond).String()
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm %ds", minutes, int(d.Seconds())%60)
}
