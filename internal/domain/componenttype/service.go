package componenttype

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/encounter/internal/platform/apperr"
	"github.com/ehr/encounter/internal/platform/cache"
	"github.com/ehr/encounter/internal/platform/validate"
)

var (
	ErrNotFound             = apperr.New(apperr.ErrNotFound, "not_found", "component type not found")
	ErrUnknownComponentType = apperr.New(apperr.ErrNotFound, "unknown_component_type", "unknown component type")
)

const selectionKey = "selection"

type Service struct {
	repo   Repository
	cache  cache.Cache[[]Selection]
	logger zerolog.Logger
}

// NewService builds the registry. A nil cache falls back to an in-process one.
func NewService(repo Repository, c cache.Cache[[]Selection], logger zerolog.Logger) *Service {
	if c == nil {
		c = cache.NewMemoryCache[[]Selection](0)
	}
	return &Service{repo: repo, cache: c, logger: logger}
}

// RegisterType makes sure model/viewForm is registered and active. A new
// registration takes name, or the model's title, and a code cut from the name.
func (s *Service) RegisterType(ctx context.Context, model, viewForm, name string) (*ComponentType, error) {
	return s.register(ctx, CatalogEntry{Model: model, ViewForm: viewForm, Name: name})
}

func (s *Service) register(ctx context.Context, e CatalogEntry) (*ComponentType, error) {
	existing, err := s.repo.FindByModelView(ctx, e.Model, e.ViewForm)
	switch {
	case err == nil:
		if !existing.Active {
			existing.Active = true
			if err := s.repo.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("reactivate %s: %w", e.Model, err)
			}
			s.invalidate(ctx)
			s.logger.Info().Str("model", e.Model).Msg("component type reactivated")
		}
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("find %s/%s: %w", e.Model, e.ViewForm, err)
	}

	ct := &ComponentType{
		Model:    e.Model,
		ViewForm: e.ViewForm,
		Name:     e.Name,
		Code:     e.Code,
		Ordering: e.Ordering,
		Active:   true,
	}
	if ct.Name == "" {
		ct.Name = titleOf(e.Model)
	}
	if ct.Code == "" {
		ct.Code = ct.Name
	}
	ct.Code = truncateCode(ct.Code)
	if err := validate.Struct(ct); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, ct); err != nil {
		return nil, fmt.Errorf("register %s: %w", e.Model, err)
	}
	s.invalidate(ctx)
	s.logger.Info().Str("model", ct.Model).Str("view_form", ct.ViewForm).Msg("component type registered")
	return ct, nil
}

// Seed registers every catalog entry and returns how many were processed.
func (s *Service) Seed(ctx context.Context, cat *Catalog) (int, error) {
	for _, e := range cat.Types {
		if _, err := s.register(ctx, e); err != nil {
			return 0, err
		}
	}
	return len(cat.Types), nil
}

// SelectionList returns the active types ordered by ordering then name.
func (s *Service) SelectionList(ctx context.Context) ([]Selection, error) {
	if cached, ok := s.cache.Get(ctx, selectionKey); ok {
		return *cached, nil
	}
	types, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list component types: %w", err)
	}
	out := make([]Selection, 0, len(types))
	for _, ct := range types {
		out = append(out, Selection{ID: ct.ID, Name: ct.Name, Code: ct.Code, Model: ct.Model})
	}
	s.cache.Set(ctx, selectionKey, &out)
	return out, nil
}

// ViewName returns the form of a type, or "" when unknown.
func (s *Service) ViewName(ctx context.Context, id uuid.UUID) string {
	ct, err := s.repo.Get(ctx, id)
	if err != nil {
		return ""
	}
	return ct.ViewForm
}

// ModelView resolves (model, view_form) by type id, or by model name when id
// is uuid.Nil.
func (s *Service) ModelView(ctx context.Context, id uuid.UUID, model string) (string, string, error) {
	var (
		ct  *ComponentType
		err error
	)
	switch {
	case id != uuid.Nil:
		ct, err = s.repo.Get(ctx, id)
	case model != "":
		ct, err = s.repo.FindByModel(ctx, model)
	default:
		return "", "", ErrUnknownComponentType
	}
	if errors.Is(err, ErrNotFound) {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownComponentType, model)
	}
	if err != nil {
		return "", "", err
	}
	return ct.Model, ct.ViewForm, nil
}

// ByState finds the active selection whose code maps to state.
func (s *Service) ByState(ctx context.Context, state string) (*Selection, error) {
	list, err := s.SelectionList(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].State() == state {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownComponentType, state)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*ComponentType, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ComponentType, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, ct *ComponentType) error {
	if ct.Code == "" {
		ct.Code = ct.Name
	}
	ct.Code = truncateCode(ct.Code)
	if err := validate.Struct(ct); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, ct); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) Update(ctx context.Context, ct *ComponentType) error {
	if err := validate.Struct(ct); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, ct); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Deactivate hides a type from the selection list. Existing components keep
// working because their kind is stored on the row.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	ct, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	ct.Active = false
	return s.Update(ctx, ct)
}

func (s *Service) invalidate(ctx context.Context) {
	s.cache.Delete(ctx, selectionKey)
}
