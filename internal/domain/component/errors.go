package component

import "github.com/ehr/encounter/internal/platform/apperr"

var (
	ErrNotFound        = apperr.New(apperr.ErrNotFound, "not_found", "component not found")
	ErrUnknownKind     = apperr.New(apperr.ErrInvalid, "unknown_component_kind", "unknown component kind")
	ErrUnknownForm     = apperr.New(apperr.ErrNotFound, "unknown_form", "unknown component form")
	ErrComponentSigned = apperr.New(apperr.ErrConflict, "component_signed",
		"This component has been signed and can no longer be changed")
	ErrEncounterLocked = apperr.New(apperr.ErrConflict, "encounter_locked",
		"Components cannot be changed on a finished encounter")
	ErrBadStartTime = apperr.New(apperr.ErrInvalid, "bad_start_time",
		"The component start time cannot be before the encounter start time")
	ErrBadEndTime = apperr.New(apperr.ErrInvalid, "bad_end_time",
		"The component end time cannot be before its start time")
)
