package encounter

import "github.com/ehr/encounter/internal/platform/apperr"

var (
	ErrNotFound           = apperr.New(apperr.ErrNotFound, "not_found", "encounter not found")
	ErrEncounterLocked    = apperr.New(apperr.ErrConflict, "encounter_locked", "encounter can no longer be changed")
	ErrInvalidTransition  = apperr.New(apperr.ErrConflict, "invalid_transition", "transition not allowed from the current state")
	ErrNoComponents       = apperr.New(apperr.ErrInvalid, "no_components", "an encounter needs at least one component before it is done")
	ErrUnsignedComponents = apperr.New(apperr.ErrInvalid, "unsigned_components", "All components must be signed before the encounter can be signed")
	ErrEndTimeRequired    = apperr.New(apperr.ErrInvalid, "end_date_required", "End time is required to finish the encounter")
	ErrEndBeforeStart     = apperr.New(apperr.ErrInvalid, "end_date_before_start", "End time cannot be before start time")
	ErrAppointmentPatient = apperr.New(apperr.ErrInvalid, "appointment_patient", "The appointment belongs to a different patient")
)
