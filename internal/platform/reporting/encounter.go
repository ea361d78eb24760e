package reporting

import (
	"context"
	"io"
	"text/template"

	"github.com/google/uuid"
)

// EncounterReport is the data printed on an encounter report. Times are
// already rendered in the facility timezone.
type EncounterReport struct {
	RecName     string
	Institution string
	StartTime   string
	EndTime     string
	State       string
	SignedBy    string
	SignTime    string
	Summary     string
}

// EncounterSource builds the report data of an encounter.
type EncounterSource interface {
	Report(ctx context.Context, id uuid.UUID) (*EncounterReport, error)
}

var encounterTmpl = template.Must(template.New("encounter").Parse(
	`{{.RecName}}
Institution: {{or .Institution "-"}}
Start: {{.StartTime}}{{if .EndTime}}    End: {{.EndTime}}{{end}}
State: {{.State}}{{if .SignedBy}}
Signed by: {{.SignedBy}}{{if .SignTime}} on {{.SignTime}}{{end}}{{end}}
{{if .Summary}}
{{.Summary}}
{{end}}`))

// RenderEncounter writes the text report of r to w.
func RenderEncounter(w io.Writer, r *EncounterReport) error {
	return encounterTmpl.Execute(w, r)
}
