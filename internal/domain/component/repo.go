package component

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores components in their kind tables and reads the union
// view across them.
type Repository interface {
	Create(ctx context.Context, c Component) error
	Update(ctx context.Context, c Component) error
	Get(ctx context.Context, kind Kind, id uuid.UUID) (Component, error)
	// KindOf finds which table holds id.
	KindOf(ctx context.Context, id uuid.UUID) (Kind, error)
	// ListByEncounter returns the active components ordered by start time.
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*UnionRow, error)
}
