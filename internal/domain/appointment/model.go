package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment states touched by the encounter workflow.
const (
	StateConfirmed  = "confirmed"
	StateProcessing = "processing"
	StateDone       = "done"
	StateCancelled  = "cancelled"
	StateNoShow     = "no_show"
)

// Appointment maps to the appointment table.
type Appointment struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patient_id" validate:"required"`
	InstitutionID   *uuid.UUID `json:"institution_id,omitempty"`
	HealthProfID    *uuid.UUID `json:"healthprof_id,omitempty"`
	State           string     `json:"state" validate:"oneof=confirmed processing done cancelled no_show"`
	AppointmentDate time.Time  `json:"appointment_date" validate:"required"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EncounterTemplate is what opening an encounter from an appointment
// yields: the existing encounter, or the values a new one starts with.
type EncounterTemplate struct {
	ExistingID    *uuid.UUID `json:"existing_id,omitempty"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	InstitutionID *uuid.UUID `json:"institution_id,omitempty"`
}
