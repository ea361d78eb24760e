package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/encounter/internal/platform/apperr"
	"github.com/ehr/encounter/internal/platform/validate"
)

var ErrNotFound = apperr.New(apperr.ErrNotFound, "not_found", "appointment not found")

// EncounterFinder looks up the encounter already opened for an appointment.
type EncounterFinder interface {
	EncounterForAppointment(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, bool, error)
}

type Service struct {
	repo       Repository
	encounters EncounterFinder
	logger     zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// SetEncounterFinder attaches the encounter lookup used by OpenEncounter.
func (s *Service) SetEncounterFinder(f EncounterFinder) {
	s.encounters = f
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if a.State == "" {
		a.State = StateConfirmed
	}
	if err := validate.Struct(a); err != nil {
		return err
	}
	return s.repo.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// SetState moves the appointment along as its encounter progresses.
func (s *Service) SetState(ctx context.Context, id uuid.UUID, state string) error {
	if err := s.repo.SetState(ctx, id, state); err != nil {
		return fmt.Errorf("set appointment %s to %s: %w", id, state, err)
	}
	s.logger.Info().Str("appointment_id", id.String()).Str("state", state).Msg("appointment state changed")
	return nil
}

// OpenEncounter returns the encounter already linked to the appointment, or
// the template a new encounter should be created from.
func (s *Service) OpenEncounter(ctx context.Context, id uuid.UUID) (*EncounterTemplate, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tmpl := &EncounterTemplate{AppointmentID: a.ID, PatientID: a.PatientID, InstitutionID: a.InstitutionID}
	if s.encounters == nil {
		return tmpl, nil
	}
	encID, ok, err := s.encounters.EncounterForAppointment(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		tmpl.ExistingID = &encID
	}
	return tmpl, nil
}
