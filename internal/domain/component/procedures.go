package component

import "strings"

// Procedures records procedures performed during the encounter.
type Procedures struct {
	Base
	Performed  []Direction `json:"procedures" validate:"dive"`
	Anesthesia string      `json:"anesthesia,omitempty" validate:"max=64"`
	Outcome    string      `json:"outcome,omitempty"`
}

func (p *Procedures) Kind() Kind { return KindProcedures }

func (p *Procedures) Compute() {
	if p.Performed == nil {
		p.Performed = []Direction{}
	}
}

func (p *Procedures) MakeCriticalInfo() string {
	var out []string
	if len(p.Performed) > 0 {
		out = append(out, "Procedures: "+procedureSummary(p.Performed))
	}
	if p.Anesthesia != "" {
		out = append(out, "Anesthesia: "+p.Anesthesia)
	}
	return strings.Join(out, ", ")
}

func (p *Procedures) ReportInfo() string {
	r := &textReport{}
	r.add("== Procedures ==")
	directionSection(r, "Procedures", p.Performed)
	if p.Anesthesia != "" {
		r.add("Anesthesia:", p.Anesthesia)
	}
	if strings.TrimSpace(p.Outcome) != "" {
		r.add("Outcome:")
		r.add(compact(p.Outcome))
	}
	r.notes(p.Notes)
	return r.join("\n\n")
}
