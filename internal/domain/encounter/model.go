package encounter

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/encounter/internal/domain/component"
)

// Encounter workflow states.
const (
	StateInProgress = "in_progress"
	StateDone       = "done"
	StateSigned     = "signed"
	StateInvalid    = "invalid"
)

// Encounter maps to the encounter table.
type Encounter struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	Number            int64      `db:"number" json:"number"`
	State             string     `db:"state" json:"state" validate:"oneof=in_progress done signed invalid"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id" validate:"required"`
	PrimaryComplaint  string     `db:"primary_complaint" json:"primary_complaint,omitempty" validate:"max=255"`
	StartTime         time.Time  `db:"start_time" json:"start_time"`
	EndTime           *time.Time `db:"end_time" json:"end_time,omitempty"`
	InstitutionID     uuid.UUID  `db:"institution_id" json:"institution_id" validate:"required"`
	AppointmentID     *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	NextAppointmentID *uuid.UUID `db:"next_appointment_id" json:"next_appointment_id,omitempty"`
	SignedBy          *uuid.UUID `db:"signed_by" json:"signed_by,omitempty"`
	SignTime          *time.Time `db:"sign_time" json:"sign_time,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Code is the display number, e.g. EV00042.
func (e *Encounter) Code() string {
	return fmt.Sprintf("EV%05d", e.Number)
}

// Final reports whether the encounter left in_progress.
func (e *Encounter) Final() bool {
	return e.State != StateInProgress
}

// EncounterStatusHistory records one workflow transition.
type EncounterStatusHistory struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	EncounterID uuid.UUID  `db:"encounter_id" json:"encounter_id"`
	FromState   string     `db:"from_state" json:"from_state"`
	ToState     string     `db:"to_state" json:"to_state"`
	ChangedBy   *uuid.UUID `db:"changed_by" json:"changed_by,omitempty"`
	ChangedAt   time.Time  `db:"changed_at" json:"changed_at"`
}

// UpdateRequest carries the fields a client may change. Nil means unchanged.
type UpdateRequest struct {
	PrimaryComplaint  *string    `json:"primary_complaint"`
	StartTime         *time.Time `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	InstitutionID     *uuid.UUID `json:"institution_id"`
	NextAppointmentID *uuid.UUID `json:"next_appointment_id"`
}

// onlyNextAppointment reports whether nothing but the follow-up appointment changes.
func (r *UpdateRequest) onlyNextAppointment() bool {
	return r.PrimaryComplaint == nil && r.StartTime == nil && r.EndTime == nil && r.InstitutionID == nil
}

// View is an encounter with its patient and display fields resolved.
type View struct {
	*Encounter
	Code             string                `json:"code"`
	RecName          string                `json:"rec_name"`
	PatientName      string                `json:"patient_name"`
	UPI              string                `json:"upi"`
	MedicalRecordNum string                `json:"medical_record_num"`
	SexDisplay       string                `json:"sex_display"`
	Age              string                `json:"age"`
	InstitutionName  string                `json:"institution_name"`
	SignedByName     string                `json:"signed_by_name,omitempty"`
	CryptoEnabled    bool                  `json:"crypto_enabled"`
	Components       []*component.UnionRow `json:"components"`
	Summary          string                `json:"summary"`
}

// ListFilter narrows List.
type ListFilter struct {
	PatientID *uuid.UUID
	State     string
}
