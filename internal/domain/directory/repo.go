package directory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateInstitution(ctx context.Context, inst *Institution) error
	GetInstitution(ctx context.Context, id uuid.UUID) (*Institution, error)
	ListInstitutions(ctx context.Context) ([]*Institution, error)

	CreatePatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	SearchPatients(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)

	CreateProfessional(ctx context.Context, hp *Professional) error
	GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error)
	GetProfessionalByUserID(ctx context.Context, userID string) (*Professional, error)
}
