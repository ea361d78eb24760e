package componenttype

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, ct *ComponentType) error
	Update(ctx context.Context, ct *ComponentType) error
	Get(ctx context.Context, id uuid.UUID) (*ComponentType, error)
	FindByModelView(ctx context.Context, model, viewForm string) (*ComponentType, error)
	// FindByModel returns the first registration of model by ordering.
	FindByModel(ctx context.Context, model string) (*ComponentType, error)
	// List is ordered by ordering then name.
	List(ctx context.Context, activeOnly bool) ([]*ComponentType, error)
}
