package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ehr/encounter/internal/platform/apperr"
	"github.com/ehr/encounter/internal/platform/auth"
	"github.com/ehr/encounter/internal/platform/validate"
)

var (
	ErrNotFound       = apperr.New(apperr.ErrNotFound, "not_found", "record not found")
	ErrNoProfessional = apperr.New(apperr.ErrForbidden, "health_professional_warning",
		"No health professional associated with this user")
)

// Resolver finds the health professional acting on a request.
type Resolver interface {
	CurrentProfessional(ctx context.Context) (*Professional, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CurrentProfessional resolves the professional bound to the authenticated
// user, failing with ErrNoProfessional when there is none.
func (s *Service) CurrentProfessional(ctx context.Context) (*Professional, error) {
	userID := auth.UserIDFromContext(ctx)
	if userID == "" {
		return nil, ErrNoProfessional
	}
	hp, err := s.repo.GetProfessionalByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoProfessional
	}
	if err != nil {
		return nil, fmt.Errorf("lookup professional for %s: %w", userID, err)
	}
	return hp, nil
}

func (s *Service) CreateInstitution(ctx context.Context, inst *Institution) error {
	if err := validate.Struct(inst); err != nil {
		return err
	}
	return s.repo.CreateInstitution(ctx, inst)
}

func (s *Service) GetInstitution(ctx context.Context, id uuid.UUID) (*Institution, error) {
	return s.repo.GetInstitution(ctx, id)
}

func (s *Service) ListInstitutions(ctx context.Context) ([]*Institution, error) {
	return s.repo.ListInstitutions(ctx)
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	return s.repo.CreatePatient(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetPatient(ctx, id)
}

func (s *Service) SearchPatients(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.SearchPatients(ctx, query, limit, offset)
}

func (s *Service) CreateProfessional(ctx context.Context, hp *Professional) error {
	if err := validate.Struct(hp); err != nil {
		return err
	}
	hp.Active = true
	return s.repo.CreateProfessional(ctx, hp)
}

func (s *Service) GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return s.repo.GetProfessional(ctx, id)
}

// ProfessionalName returns the display name of a professional, or empty when
// id is nil or unknown.
func (s *Service) ProfessionalName(ctx context.Context, id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	hp, err := s.repo.GetProfessional(ctx, *id)
	if err != nil {
		return ""
	}
	return hp.Name
}
