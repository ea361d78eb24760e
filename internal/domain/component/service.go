package component

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/encounter/internal/domain/componenttype"
	"github.com/ehr/encounter/internal/domain/directory"
	"github.com/ehr/encounter/internal/platform/db"
	"github.com/ehr/encounter/internal/platform/events"
	"github.com/ehr/encounter/internal/platform/tz"
	"github.com/ehr/encounter/internal/platform/validate"
)

// EncounterInfo is what components need to know about their encounter.
type EncounterInfo struct {
	ID        uuid.UUID
	StartTime time.Time
	State     string
	Timezone  string
}

// AcceptsNew reports whether components may be added.
func (e *EncounterInfo) AcceptsNew() bool { return e.State == "in_progress" }

// Locked reports whether existing components are frozen.
func (e *EncounterInfo) Locked() bool { return e.State == "signed" || e.State == "invalid" }

// EncounterLookup is implemented by the encounter service.
type EncounterLookup interface {
	ComponentEncounter(ctx context.Context, id uuid.UUID) (*EncounterInfo, error)
}

// TypeRegistry is the part of the component type registry used here.
type TypeRegistry interface {
	SelectionList(ctx context.Context) ([]componenttype.Selection, error)
	ModelView(ctx context.Context, id uuid.UUID, model string) (string, string, error)
	ByState(ctx context.Context, state string) (*componenttype.Selection, error)
}

type Service struct {
	repo          Repository
	tx            db.Transactor
	professionals directory.Resolver
	registry      TypeRegistry
	encounters    EncounterLookup
	publisher     events.Publisher
	zones         *tz.Resolver
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(repo Repository, tx db.Transactor, professionals directory.Resolver,
	registry TypeRegistry, publisher events.Publisher, zones *tz.Resolver, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = db.NopTransactor{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if zones == nil {
		zones = tz.NewResolver("")
	}
	return &Service{
		repo:          repo,
		tx:            tx,
		professionals: professionals,
		registry:      registry,
		publisher:     publisher,
		zones:         zones,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetEncounterLookup attaches the encounter service. It is set after
// construction because the encounter service also depends on this one.
func (s *Service) SetEncounterLookup(l EncounterLookup) {
	s.encounters = l
}

func (s *Service) encounter(ctx context.Context, id uuid.UUID) (*EncounterInfo, error) {
	if s.encounters == nil {
		return nil, fmt.Errorf("component service has no encounter lookup")
	}
	return s.encounters.ComponentEncounter(ctx, id)
}

// Save creates or updates c.
func (s *Service) Save(ctx context.Context, c Component) error {
	return s.save(ctx, c, false)
}

// SaveAndSign stamps the current professional's signature and saves c.
func (s *Service) SaveAndSign(ctx context.Context, c Component) error {
	return s.save(ctx, c, true)
}

func (s *Service) save(ctx context.Context, c Component, sign bool) error {
	h := c.Header()
	creating := h.ID == uuid.Nil
	// Signatures are only ever stamped here.
	h.SignedBy, h.SignTime = nil, nil

	if !creating {
		existing, err := s.repo.Get(ctx, c.Kind(), h.ID)
		if err != nil {
			return err
		}
		prev := existing.Header()
		if prev.Signed() {
			return ErrComponentSigned
		}
		h.EncounterID = prev.EncounterID
		h.CreatedAt = prev.CreatedAt
		if h.PerformedBy == nil {
			h.PerformedBy = prev.PerformedBy
		}
		if h.StartTime.IsZero() {
			h.StartTime = prev.StartTime
		}
	}

	enc, err := s.encounter(ctx, h.EncounterID)
	if err != nil {
		return err
	}
	switch {
	case creating && !enc.AcceptsNew():
		return ErrEncounterLocked
	case enc.Locked():
		return ErrEncounterLocked
	}

	var hp *directory.Professional
	if creating || sign {
		if hp, err = s.professionals.CurrentProfessional(ctx); err != nil {
			return err
		}
	}
	if creating {
		h.Active = true
		if h.StartTime.IsZero() {
			h.StartTime = s.now()
		}
		if h.PerformedBy == nil {
			h.PerformedBy = &hp.ID
		}
	}
	if sign {
		now := s.now()
		h.SignedBy = &hp.ID
		h.SignTime = &now
	}

	if err := s.prepare(c, enc); err != nil {
		return err
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if creating {
			return s.repo.Create(ctx, c)
		}
		return s.repo.Update(ctx, c)
	})
	if err != nil {
		return fmt.Errorf("save %s component: %w", c.Kind(), err)
	}

	s.logger.Info().Str("component_id", h.ID.String()).Str("kind", string(c.Kind())).
		Bool("signed", sign).Msg("component saved")
	s.emit(ctx, events.ComponentSaved, c)
	if sign {
		s.emit(ctx, events.ComponentSigned, c)
	}
	return nil
}

// prepare refreshes derived fields and checks c against its encounter.
func (s *Service) prepare(c Component, enc *EncounterInfo) error {
	c.Compute()
	h := c.Header()
	h.CriticalInfo = truncate(c.MakeCriticalInfo(), 255)
	if err := validate.Struct(c); err != nil {
		return err
	}
	if ch, ok := c.(checker); ok {
		if err := ch.Check(); err != nil {
			return err
		}
	}
	if h.StartTime.Before(enc.StartTime) {
		return ErrBadStartTime
	}
	if h.EndTime != nil && h.EndTime.Before(h.StartTime) {
		return ErrBadEndTime
	}
	return nil
}

// Sign signs an existing component as the current professional.
func (s *Service) Sign(ctx context.Context, kind Kind, id uuid.UUID) (Component, error) {
	c, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.SaveAndSign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Deactivate hides an unsigned component from its encounter.
func (s *Service) Deactivate(ctx context.Context, kind Kind, id uuid.UUID) error {
	c, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	h := c.Header()
	if h.Signed() {
		return ErrComponentSigned
	}
	enc, err := s.encounter(ctx, h.EncounterID)
	if err != nil {
		return err
	}
	if enc.Locked() {
		return ErrEncounterLocked
	}
	h.Active = false
	if err := s.repo.Update(ctx, c); err != nil {
		return fmt.Errorf("deactivate component %s: %w", id, err)
	}
	s.logger.Info().Str("component_id", id.String()).Msg("component deactivated")
	return nil
}

// Restore stores an already complete component, signature included. Used
// when importing historical records.
func (s *Service) Restore(ctx context.Context, c Component) error {
	enc, err := s.encounter(ctx, c.Header().EncounterID)
	if err != nil {
		return err
	}
	if err := s.prepare(c, enc); err != nil {
		return err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, kind Kind, id uuid.UUID) (Component, error) {
	return s.repo.Get(ctx, kind, id)
}

// GetByID loads a component without knowing its kind.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Component, error) {
	kind, err := s.repo.KindOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, kind, id)
}

// Unshard loads the concrete component behind a union row.
func (s *Service) Unshard(ctx context.Context, row *UnionRow) (Component, error) {
	return s.repo.Get(ctx, row.ComponentType, row.ID)
}

// ListByEncounter returns the union rows of an encounter with their display
// columns rendered in the facility timezone.
func (s *Service) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*UnionRow, error) {
	enc, err := s.encounter(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByEncounter(ctx, encounterID)
	if err != nil {
		return nil, fmt.Errorf("list components of %s: %w", encounterID, err)
	}
	loc := s.zones.MustResolve(enc.Timezone)
	labels := s.labels(ctx)
	for _, r := range rows {
		r.decorate(loc, labels[string(r.ComponentType)])
	}
	return rows, nil
}

func (s *Service) labels(ctx context.Context) map[string]string {
	out := map[string]string{}
	if s.registry == nil {
		return out
	}
	list, err := s.registry.SelectionList(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("component type labels unavailable")
		return out
	}
	for _, sel := range list {
		if _, ok := out[sel.Model]; !ok {
			out[sel.Model] = sel.Name
		}
	}
	return out
}

// Components loads the concrete components of an encounter in order.
func (s *Service) Components(ctx context.Context, encounterID uuid.UUID) ([]Component, error) {
	rows, err := s.repo.ListByEncounter(ctx, encounterID)
	if err != nil {
		return nil, fmt.Errorf("list components of %s: %w", encounterID, err)
	}
	out := make([]Component, 0, len(rows))
	for _, r := range rows {
		c, err := s.Unshard(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Rows returns the undecorated union rows of an encounter.
func (s *Service) Rows(ctx context.Context, encounterID uuid.UUID) ([]*UnionRow, error) {
	return s.repo.ListByEncounter(ctx, encounterID)
}

// ReportInfo renders the report text of one component.
func (s *Service) ReportInfo(ctx context.Context, kind Kind, id uuid.UUID) (string, error) {
	c, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return "", err
	}
	return c.ReportInfo(), nil
}

func (s *Service) emit(ctx context.Context, eventType string, c Component) {
	h := c.Header()
	ev := events.ComponentEvent{
		ComponentID:   h.ID.String(),
		EncounterID:   h.EncounterID.String(),
		ComponentType: string(c.Kind()),
		CriticalInfo:  h.CriticalInfo,
	}
	if h.SignedBy != nil {
		ev.SignedBy = h.SignedBy.String()
	}
	events.Emit(ctx, s.publisher, s.logger, eventType, ev)
}
