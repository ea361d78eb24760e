package encounter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/encounter/internal/domain/component"
	"github.com/ehr/encounter/internal/platform/validate"
)

// Evaluation is a legacy patient evaluation record, one per JSONL line.
type Evaluation struct {
	PatientID         uuid.UUID  `json:"patient_id" validate:"required"`
	InstitutionID     *uuid.UUID `json:"institution_id"`
	HealthProfID      *uuid.UUID `json:"healthprof_id"`
	SignedBy          *uuid.UUID `json:"signed_by"`
	State             string     `json:"state" validate:"omitempty,oneof=in_progress done signed invalid"`
	EvaluationStart   time.Time  `json:"evaluation_start" validate:"required"`
	EvaluationEnd     *time.Time `json:"evaluation_endtime"`
	WriteDate         *time.Time `json:"write_date"`
	ChiefComplaint    string     `json:"chief_complaint"`
	AppointmentID     *uuid.UUID `json:"evaluation_date"`
	NextAppointmentID *uuid.UUID `json:"next_evaluation"`

	Weight            *float64 `json:"weight"`
	Height            *float64 `json:"height"`
	HeadCircumference *float64 `json:"head_circumference"`
	AbdominalCirc     *float64 `json:"abdominal_circ"`
	Hip               *float64 `json:"hip"`

	Dehydration     string   `json:"dehydration"`
	Temperature     *float64 `json:"temperature"`
	Osat            *int     `json:"osat"`
	BPM             *int     `json:"bpm"`
	RespiratoryRate *int     `json:"respiratory_rate"`
	Glycemia        *float64 `json:"glycemia"`
	Systolic        *int     `json:"systolic"`
	Diastolic       *int     `json:"diastolic"`

	Judgment               bool   `json:"judgment"`
	Tremor                 bool   `json:"tremor"`
	Violent                bool   `json:"violent"`
	Mood                   string `json:"mood"`
	Orientation            bool   `json:"orientation"`
	KnowledgeCurrentEvents bool   `json:"knowledge_current_events"`
	Abstraction            bool   `json:"abstraction"`
	Memory                 bool   `json:"memory"`
	Vocabulary             bool   `json:"vocabulary"`
	CalculationAbility     bool   `json:"calculation_ability"`
	ObjectRecognition      bool   `json:"object_recognition"`
	Praxis                 bool   `json:"praxis"`
	LocEyes                *int   `json:"loc_eyes"`
	LocVerbal              *int   `json:"loc_verbal"`
	LocMotor               *int   `json:"loc_motor"`
}

func (ev *Evaluation) hasAnthropometry() bool {
	return ev.Weight != nil || ev.Height != nil || ev.AbdominalCirc != nil || ev.Hip != nil
}

func (ev *Evaluation) hasVitals() bool {
	return ev.Dehydration != "" || ev.Temperature != nil || ev.Osat != nil || ev.BPM != nil ||
		ev.RespiratoryRate != nil || ev.Glycemia != nil || ev.Systolic != nil || ev.Diastolic != nil
}

func (ev *Evaluation) hasMentalStatus() bool {
	return ev.Judgment || ev.Tremor || ev.Violent || ev.Mood != "" || ev.Orientation ||
		ev.KnowledgeCurrentEvents || ev.Abstraction || ev.Memory || ev.Vocabulary ||
		ev.CalculationAbility || ev.ObjectRecognition || ev.Praxis
}

func orDefault(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// FromEvaluation splits an evaluation into an encounter and the components
// its filled sections map to.
func FromEvaluation(ev *Evaluation) (*Encounter, []component.Component) {
	enc := &Encounter{
		State:             ev.State,
		PatientID:         ev.PatientID,
		PrimaryComplaint:  ev.ChiefComplaint,
		StartTime:         ev.EvaluationStart,
		EndTime:           ev.EvaluationEnd,
		AppointmentID:     ev.AppointmentID,
		NextAppointmentID: ev.NextAppointmentID,
		SignedBy:          ev.SignedBy,
	}
	if enc.State == "" {
		enc.State = StateInProgress
	}
	if ev.InstitutionID != nil {
		enc.InstitutionID = *ev.InstitutionID
	}
	if ev.SignedBy != nil {
		enc.SignTime = ev.WriteDate
	}

	var comps []component.Component
	if ev.hasAnthropometry() {
		comps = append(comps, &component.Anthropometry{
			Weight:            ev.Weight,
			Height:            ev.Height,
			HeadCircumference: ev.HeadCircumference,
			AbdominalCirc:     ev.AbdominalCirc,
			Hip:               ev.Hip,
		})
	}
	if ev.hasVitals() {
		amb := &component.Ambulatory{
			Temperature:     ev.Temperature,
			Osat:            ev.Osat,
			BPM:             ev.BPM,
			RespiratoryRate: ev.RespiratoryRate,
			Glucose:         ev.Glycemia,
			Systolic:        ev.Systolic,
			Diastolic:       ev.Diastolic,
		}
		if ev.Dehydration != "" {
			amb.Dehydration = "moderate"
		}
		comps = append(comps, amb)
	}
	if ev.hasMentalStatus() {
		comps = append(comps, &component.MentalStatus{
			LocEyes:                orDefault(ev.LocEyes, 4),
			LocVerbal:              orDefault(ev.LocVerbal, 5),
			LocMotor:               orDefault(ev.LocMotor, 6),
			Judgement:              ev.Judgment,
			Tremor:                 ev.Tremor,
			Violent:                ev.Violent,
			Mood:                   ev.Mood,
			Orientation:            ev.Orientation,
			KnowledgeCurrentEvents: ev.KnowledgeCurrentEvents,
			Abstraction:            ev.Abstraction,
			Memory:                 ev.Memory,
			Vocabulary:             ev.Vocabulary,
			CalculationAbility:     ev.CalculationAbility,
			ObjectRecognition:      ev.ObjectRecognition,
			Praxis:                 ev.Praxis,
		})
	}

	for _, c := range comps {
		h := c.Header()
		h.Active = true
		h.PerformedBy = ev.HealthProfID
		h.SignedBy = ev.SignedBy
		h.StartTime = ev.EvaluationStart
		h.EndTime = ev.EvaluationEnd
		if ev.SignedBy != nil {
			h.SignTime = ev.WriteDate
		}
	}
	return enc, comps
}

// ImportEvaluation stores an evaluation as an encounter with its components,
// keeping its state and signatures.
func (s *Service) ImportEvaluation(ctx context.Context, ev *Evaluation) (*Encounter, error) {
	if err := validate.Struct(ev); err != nil {
		return nil, err
	}
	enc, comps := FromEvaluation(ev)
	if enc.InstitutionID == uuid.Nil && s.defaultInstitution != nil {
		enc.InstitutionID = *s.defaultInstitution
	}
	if err := validate.Struct(enc); err != nil {
		return nil, err
	}
	if enc.EndTime != nil && enc.EndTime.Before(enc.StartTime) {
		return nil, ErrEndBeforeStart
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, enc); err != nil {
			return err
		}
		for _, c := range comps {
			c.Header().EncounterID = enc.ID
			if err := s.components.Restore(ctx, c); err != nil {
				return fmt.Errorf("restore %s: %w", c.Kind(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import evaluation of patient %s: %w", ev.PatientID, err)
	}
	s.logger.Info().Str("encounter_id", enc.ID.String()).Int("components", len(comps)).Msg("evaluation imported")
	return enc, nil
}

// ImportEvaluations reads one evaluation per line from r and imports each.
// It stops at the first failing line and returns how many were imported.
func (s *Service) ImportEvaluations(ctx context.Context, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n, line := 0, 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev Evaluation
		if err := json.Unmarshal(raw, &ev); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := s.ImportEvaluation(ctx, &ev); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	return n, sc.Err()
}
