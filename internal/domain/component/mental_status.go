package component

import (
	"fmt"

	"github.com/ehr/encounter/internal/platform/validate"
)

// Option is a selection value with its display label. Value has the JSON
// type of the field it fills: a string for coded fields, a number for scores.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

func labelOf(opts []Option, value any) string {
	for _, o := range opts {
		if o.Value == value {
			return o.Label
		}
	}
	return ""
}

// Glasgow coma scale parts.
var (
	LocEyes = []Option{
		{4, "Opens eyes spontaneously"},
		{3, "Opens eyes in response to voice"},
		{2, "Opens eyes in response to painful stimuli"},
		{1, "Does not Open Eyes"},
	}
	LocVerbal = []Option{
		{5, "Oriented, converses normally"},
		{4, "Confused, disoriented"},
		{3, "Utters inappropriate words"},
		{2, "Incomprehensible sounds"},
		{1, "Makes no sounds"},
	}
	LocMotor = []Option{
		{6, "Obeys commands"},
		{5, "Localizes painful stimuli"},
		{4, "Flexion / Withdrawal to painful stimuli"},
		{3, "Abnormal flexion to painful stimuli (decorticate response)"},
		{2, "Extension to painful stimuli - decerebrate response -"},
		{1, "Makes no movement"},
	}
)

var Moods = []Option{
	{"n", "Normal"}, {"s", "Sad"}, {"f", "Fear"}, {"r", "Rage"},
	{"h", "Happy"}, {"d", "Disgust"}, {"e", "Euphoria"}, {"fl", "Flat"},
}

// MentalStatus records level of consciousness and cognitive findings.
type MentalStatus struct {
	Base
	Loc       int `json:"loc"`
	LocEyes   int `json:"loc_eyes" validate:"gte=1,lte=4"`
	LocVerbal int `json:"loc_verbal" validate:"gte=1,lte=5"`
	LocMotor  int `json:"loc_motor" validate:"gte=1,lte=6"`

	Tremor                 bool   `json:"tremor"`
	Violent                bool   `json:"violent"`
	Mood                   string `json:"mood,omitempty" validate:"omitempty,oneof=n s f r h d e fl"`
	Orientation            bool   `json:"orientation"`
	Memory                 bool   `json:"memory"`
	KnowledgeCurrentEvents bool   `json:"knowledge_current_events"`
	Judgement              bool   `json:"judgement"`
	Abstraction            bool   `json:"abstraction"`
	Vocabulary             bool   `json:"vocabulary"`
	CalculationAbility     bool   `json:"calculation_ability"`
	ObjectRecognition      bool   `json:"object_recognition"`
	Praxis                 bool   `json:"praxis"`
}

func (m *MentalStatus) Kind() Kind { return KindMentalStatus }

// Compute sums the Glasgow parts.
func (m *MentalStatus) Compute() {
	m.Loc = m.LocEyes + m.LocVerbal + m.LocMotor
}

func (m *MentalStatus) Check() error {
	if m.Loc < 3 || m.Loc > 15 {
		return validate.Errors{{Field: "loc", Message: "Glasgow score must be between 3 and 15", Type: "range"}}
	}
	return nil
}

func (m *MentalStatus) MakeCriticalInfo() string {
	s := fmt.Sprintf("Glasgow: %d", m.Loc)
	if m.Violent {
		s = "Violent; " + s
	}
	if m.Praxis {
		s += " Praxis"
	}
	return s
}

func (m *MentalStatus) ReportInfo() string {
	r := &textReport{}
	r.add("== Mental Status ==")
	if m.Violent {
		r.add("Violent:", "YES")
	}
	r.add("Glasgow scale:", fmt.Sprint(m.Loc), fmt.Sprintf("= %s(%d) + %s(%d) + %s(%d)",
		labelOf(LocEyes, m.LocEyes), m.LocEyes,
		labelOf(LocVerbal, m.LocVerbal), m.LocVerbal,
		labelOf(LocMotor, m.LocMotor), m.LocMotor))
	if m.Mood != "" {
		r.add("Mood:", labelOf(Moods, m.Mood))
	}
	r.notes(m.Notes)
	for _, f := range []struct {
		set  bool
		text string
	}{
		{m.Orientation, "Disoriented"},
		{m.Memory, "Has memory problems"},
		{m.KnowledgeCurrentEvents, "Little or no knowledge of current events"},
		{m.Judgement, "Cannot interpret basic scenarios"},
		{m.Abstraction, "Abnormalities in abstract reasoning"},
		{m.Vocabulary, "Lacks basic intellectual capacity"},
		{m.CalculationAbility, "Cannot do simple math"},
		{m.ObjectRecognition, "Object recognition problems"},
		{m.Praxis, "Unable to make voluntary movements"},
	} {
		if f.set {
			r.add(f.text)
		}
	}
	return r.join("\n")
}
