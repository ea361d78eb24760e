package component

import (
	"fmt"
	"strings"
)

const dasher = "---------------"

// Coded is a coded finding such as a pathology or a sign.
type Coded struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=255"`
	Comments string `json:"comments,omitempty"`
}

// Direction is a procedure or action to take.
type Direction struct {
	Code        string `json:"code,omitempty" validate:"max=32"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description,omitempty"`
	Comments    string `json:"comments,omitempty"`
}

// Clinical records the clinician's assessment and plan.
type Clinical struct {
	Base
	Diagnosis            *Coded      `json:"diagnosis,omitempty"`
	SecondaryConditions  []Coded     `json:"secondary_conditions" validate:"dive"`
	DiagnosticHypothesis []Coded     `json:"diagnostic_hypothesis" validate:"dive"`
	SignsSymptoms        []Coded     `json:"signs_symptoms" validate:"dive"`
	Directions           []Direction `json:"directions" validate:"dive"`
	TreatmentPlan        string      `json:"treatment_plan,omitempty"`
}

func (c *Clinical) Kind() Kind { return KindClinical }

// Compute normalizes the coded lists so they persist as empty arrays.
func (c *Clinical) Compute() {
	if c.SecondaryConditions == nil {
		c.SecondaryConditions = []Coded{}
	}
	if c.DiagnosticHypothesis == nil {
		c.DiagnosticHypothesis = []Coded{}
	}
	if c.SignsSymptoms == nil {
		c.SignsSymptoms = []Coded{}
	}
	if c.Directions == nil {
		c.Directions = []Direction{}
	}
}

func codes(list []Coded) string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Code)
	}
	return strings.Join(out, ";")
}

// procedureSummary lists name-description pairs, or only names when there
// are more than two procedures.
func procedureSummary(list []Direction) string {
	if len(list) <= 2 {
		out := make([]string, 0, len(list))
		for _, d := range list {
			out = append(out, fmt.Sprintf("%s-%s", d.Name, d.Description))
		}
		return strings.Join(out, "; ")
	}
	out := make([]string, 0, len(list))
	for _, d := range list {
		out = append(out, d.Name)
	}
	return strings.Join(out, ";")
}

func (c *Clinical) MakeCriticalInfo() string {
	var out []string
	if len(c.SignsSymptoms) > 0 {
		out = append(out, "Signs: "+codes(c.SignsSymptoms))
	}
	if c.Diagnosis != nil {
		out = append(out, c.Diagnosis.Code+" - "+c.Diagnosis.Name)
	}
	if len(c.DiagnosticHypothesis) > 0 {
		prefix := "DDx"
		if c.Diagnosis != nil {
			prefix = "or"
		}
		out = append(out, prefix+" "+codes(c.DiagnosticHypothesis))
	}
	if len(c.Directions) > 0 {
		out = append(out, "Procedures: "+procedureSummary(c.Directions))
	}
	return strings.Join(out, ", ")
}

func listSection(r *textReport, title string, items []Coded) {
	if len(items) == 0 {
		return
	}
	r.add(title + ":")
	for _, it := range items {
		if it.Comments != "" {
			r.add(" *", it.Name, "-", it.Comments)
		} else {
			r.add(" *", it.Name)
		}
	}
}

func directionSection(r *textReport, title string, items []Direction) {
	if len(items) == 0 {
		return
	}
	r.add(title + ":")
	for _, it := range items {
		label := it.Description
		if label == "" {
			label = it.Name
		}
		if it.Comments != "" {
			r.add(" *", label, "-", it.Comments)
		} else {
			r.add(" *", label)
		}
	}
}

// compact drops blank lines from free text.
func compact(s string) string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func (c *Clinical) ReportInfo() string {
	r := &textReport{}
	r.add("== Clinical ==")
	listSection(r, "Signs And Symptoms", c.SignsSymptoms)
	if strings.TrimSpace(c.Notes) != "" {
		r.add("Clinical Notes:")
		r.add(compact(c.Notes))
		r.add(dasher)
	}
	if c.Diagnosis != nil {
		r.add("Presumptive Diagnosis:", c.Diagnosis.Name)
	}
	if strings.TrimSpace(c.TreatmentPlan) != "" {
		r.add("Treatment Plan:")
		r.add(compact(c.TreatmentPlan))
		r.add(dasher)
	}
	directionSection(r, "Procedures", c.Directions)
	listSection(r, "Diagnostic Hypothesis", c.DiagnosticHypothesis)
	listSection(r, "Secondary Conditions found on the patient", c.SecondaryConditions)
	return r.join("\n\n")
}
