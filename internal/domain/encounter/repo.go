package encounter

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, enc *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	Update(ctx context.Context, enc *Encounter) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Encounter, int, error)
	FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Encounter, error)

	// Status History
	AddStatusHistory(ctx context.Context, sh *EncounterStatusHistory) error
	GetStatusHistory(ctx context.Context, encounterID uuid.UUID) ([]*EncounterStatusHistory, error)
}
