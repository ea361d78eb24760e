package encounter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/encounter/internal/domain/appointment"
	"github.com/ehr/encounter/internal/domain/component"
	"github.com/ehr/encounter/internal/domain/componenttype"
	"github.com/ehr/encounter/internal/domain/directory"
	"github.com/ehr/encounter/internal/platform/db"
	"github.com/ehr/encounter/internal/platform/events"
	"github.com/ehr/encounter/internal/platform/tz"
	"github.com/ehr/encounter/internal/platform/validate"
)

// Components is the part of the component service the encounter drives.
type Components interface {
	Rows(ctx context.Context, encounterID uuid.UUID) ([]*component.UnionRow, error)
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*component.UnionRow, error)
	Components(ctx context.Context, encounterID uuid.UUID) ([]component.Component, error)
	Restore(ctx context.Context, c component.Component) error
}

// Directory resolves patients, institutions and professionals.
type Directory interface {
	directory.Resolver
	GetPatient(ctx context.Context, id uuid.UUID) (*directory.Patient, error)
	GetInstitution(ctx context.Context, id uuid.UUID) (*directory.Institution, error)
	ProfessionalName(ctx context.Context, id *uuid.UUID) string
}

// Appointments is the appointment store an encounter moves along.
type Appointments interface {
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	SetState(ctx context.Context, id uuid.UUID, state string) error
}

// TypeList exposes the registered component types.
type TypeList interface {
	SelectionList(ctx context.Context) ([]componenttype.Selection, error)
}

type Service struct {
	repo               Repository
	tx                 db.Transactor
	components         Components
	directory          Directory
	appointments       Appointments
	types              TypeList
	publisher          events.Publisher
	zones              *tz.Resolver
	logger             zerolog.Logger
	defaultInstitution *uuid.UUID
	now                func() time.Time
}

type Option func(*Service)

// WithDefaultInstitution sets the institution new encounters fall back to.
func WithDefaultInstitution(id *uuid.UUID) Option {
	return func(s *Service) { s.defaultInstitution = id }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithTransactor(tx db.Transactor) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithZones(z *tz.Resolver) Option {
	return func(s *Service) {
		if z != nil {
			s.zones = z
		}
	}
}

func NewService(repo Repository, components Components, dir Directory, appointments Appointments,
	types TypeList, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		tx:           db.NopTransactor{},
		components:   components,
		directory:    dir,
		appointments: appointments,
		types:        types,
		publisher:    events.NopPublisher{},
		zones:        tz.NewResolver(""),
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, enc *Encounter) error {
	enc.ID = uuid.Nil
	enc.State = StateInProgress
	enc.SignedBy, enc.SignTime = nil, nil
	if enc.StartTime.IsZero() {
		enc.StartTime = s.now()
	}
	if enc.InstitutionID == uuid.Nil && s.defaultInstitution != nil {
		enc.InstitutionID = *s.defaultInstitution
	}
	if err := validate.Struct(enc); err != nil {
		return err
	}
	if enc.EndTime != nil && enc.EndTime.Before(enc.StartTime) {
		return ErrEndBeforeStart
	}
	if enc.AppointmentID != nil {
		appt, err := s.appointments.Get(ctx, *enc.AppointmentID)
		if err != nil {
			return fmt.Errorf("load appointment %s: %w", *enc.AppointmentID, err)
		}
		if appt.PatientID != enc.PatientID {
			return ErrAppointmentPatient
		}
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, enc); err != nil {
			return err
		}
		if enc.AppointmentID != nil && enc.EndTime == nil {
			return s.appointments.SetState(ctx, *enc.AppointmentID, appointment.StateProcessing)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create encounter: %w", err)
	}
	s.logger.Info().Str("encounter_id", enc.ID.String()).Str("code", enc.Code()).Msg("encounter created")
	s.emit(ctx, events.EncounterCreated, enc, nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Update applies req. Done and invalid encounters only accept a new follow-up
// appointment; signed ones accept nothing.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Encounter, error) {
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case enc.State == StateSigned:
		return nil, ErrEncounterLocked
	case enc.Final() && !req.onlyNextAppointment():
		return nil, ErrEncounterLocked
	}

	if req.PrimaryComplaint != nil {
		enc.PrimaryComplaint = *req.PrimaryComplaint
	}
	if req.StartTime != nil {
		enc.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		enc.EndTime = req.EndTime
	}
	if req.InstitutionID != nil {
		enc.InstitutionID = *req.InstitutionID
	}
	if req.NextAppointmentID != nil {
		enc.NextAppointmentID = req.NextAppointmentID
	}
	if err := validate.Struct(enc); err != nil {
		return nil, err
	}
	if enc.EndTime != nil && enc.EndTime.Before(enc.StartTime) {
		return nil, ErrEndBeforeStart
	}
	if err := s.repo.Update(ctx, enc); err != nil {
		return nil, fmt.Errorf("update encounter %s: %w", id, err)
	}
	return enc, nil
}

// SetDone closes an in-progress encounter. Its components may still be
// unsigned; SignFinish requires them signed.
func (s *Service) SetDone(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if enc.State != StateInProgress {
		return nil, ErrInvalidTransition
	}
	if enc.EndTime == nil {
		return nil, ErrEndTimeRequired
	}
	if _, err := s.activeComponents(ctx, enc.ID); err != nil {
		return nil, err
	}
	hp, _ := s.directory.CurrentProfessional(ctx)

	err = s.transition(ctx, enc, StateDone, hp, func(ctx context.Context) error {
		if enc.AppointmentID == nil {
			return nil
		}
		return s.appointments.SetState(ctx, *enc.AppointmentID, appointment.StateDone)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.EncounterDone, enc, hp)
	return enc, nil
}

// SignFinish signs a done encounter as the current professional.
func (s *Service) SignFinish(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if enc.State != StateDone {
		return nil, ErrInvalidTransition
	}
	hp, err := s.directory.CurrentProfessional(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkSigned(ctx, enc.ID); err != nil {
		return nil, err
	}

	now := s.now()
	enc.SignedBy = &hp.ID
	enc.SignTime = &now
	if err := s.transition(ctx, enc, StateSigned, hp, nil); err != nil {
		return nil, err
	}
	s.emit(ctx, events.EncounterSigned, enc, hp)
	return enc, nil
}

// Invalidate marks an unsigned encounter as entered in error.
func (s *Service) Invalidate(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if enc.State != StateInProgress && enc.State != StateDone {
		return nil, ErrInvalidTransition
	}
	hp, _ := s.directory.CurrentProfessional(ctx)
	if err := s.transition(ctx, enc, StateInvalid, hp, nil); err != nil {
		return nil, err
	}
	s.emit(ctx, events.EncounterInvalid, enc, hp)
	return enc, nil
}

// activeComponents requires at least one active component.
func (s *Service) activeComponents(ctx context.Context, id uuid.UUID) ([]*component.UnionRow, error) {
	rows, err := s.components.Rows(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load components of %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoComponents
	}
	return rows, nil
}

// checkSigned requires every active component to be signed. Components stay
// editable while the encounter is done, so this runs at sign-off only.
func (s *Service) checkSigned(ctx context.Context, id uuid.UUID) error {
	rows, err := s.activeComponents(ctx, id)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.SignedBy == nil {
			return ErrUnsignedComponents
		}
	}
	return nil
}

func (s *Service) transition(ctx context.Context, enc *Encounter, to string, hp *directory.Professional,
	extra func(ctx context.Context) error) error {
	from := enc.State
	enc.State = to
	sh := &EncounterStatusHistory{EncounterID: enc.ID, FromState: from, ToState: to}
	if hp != nil {
		sh.ChangedBy = &hp.ID
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, enc); err != nil {
			return err
		}
		if err := s.repo.AddStatusHistory(ctx, sh); err != nil {
			return err
		}
		if extra != nil {
			return extra(ctx)
		}
		return nil
	})
	if err != nil {
		enc.State = from
		return fmt.Errorf("move encounter %s to %s: %w", enc.ID, to, err)
	}
	s.logger.Info().Str("encounter_id", enc.ID.String()).Str("from", from).Str("to", to).Msg("encounter state changed")
	return nil
}

func (s *Service) StatusHistory(ctx context.Context, id uuid.UUID) ([]*EncounterStatusHistory, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetStatusHistory(ctx, id)
}

// CanAddComponent returns the encounter when the current professional may
// add a component to it.
func (s *Service) CanAddComponent(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	if _, err := s.directory.CurrentProfessional(ctx); err != nil {
		return nil, err
	}
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if enc.Final() {
		return nil, ErrEncounterLocked
	}
	return enc, nil
}

// Summary joins the report text of every active component.
func (s *Service) Summary(ctx context.Context, id uuid.UUID) (string, error) {
	comps, err := s.components.Components(ctx, id)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(comps))
	for _, c := range comps {
		parts = append(parts, c.ReportInfo())
	}
	return strings.Join(parts, "\n\n"), nil
}

// RealComponents returns the concrete components, keeping only those whose
// type matches name by model, code or label when name is set.
func (s *Service) RealComponents(ctx context.Context, id uuid.UUID, name string) ([]component.Component, error) {
	comps, err := s.components.Components(ctx, id)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return comps, nil
	}
	models := map[string]bool{strings.ToLower(name): true}
	if s.types != nil {
		list, err := s.types.SelectionList(ctx)
		if err != nil {
			return nil, err
		}
		for _, sel := range list {
			if strings.EqualFold(sel.Code, name) || strings.EqualFold(sel.Name, name) {
				models[sel.Model] = true
			}
		}
	}
	out := make([]component.Component, 0, len(comps))
	for _, c := range comps {
		if models[string(c.Kind())] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) location(ctx context.Context, institutionID uuid.UUID) (*time.Location, *directory.Institution) {
	inst, err := s.directory.GetInstitution(ctx, institutionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("institution_id", institutionID.String()).Msg("institution lookup failed")
		return s.zones.MustResolve(""), nil
	}
	return s.zones.MustResolve(inst.Timezone), inst
}

// RecName renders "EV00042 Name (UPI /MRN:123) F 34y 2m 5d on <local start>".
func (s *Service) RecName(enc *Encounter, p *directory.Patient, loc *time.Location) string {
	return fmt.Sprintf("%s %s (%s /MRN:%s) %s %s on %s",
		enc.Code(), p.Name, p.PUID, p.MedicalRecordNum, p.SexDisplay(), p.Age(s.now()),
		tz.Ctime(tz.Localtime(enc.StartTime, loc)))
}

// View resolves the display fields, components and summary of an encounter.
func (s *Service) View(ctx context.Context, id uuid.UUID) (*View, error) {
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.directory.GetPatient(ctx, enc.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient %s: %w", enc.PatientID, err)
	}
	loc, inst := s.location(ctx, enc.InstitutionID)
	rows, err := s.components.ListByEncounter(ctx, id)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*component.UnionRow{}
	}
	summary, err := s.Summary(ctx, id)
	if err != nil {
		return nil, err
	}

	v := &View{
		Encounter:        enc,
		Code:             enc.Code(),
		RecName:          s.RecName(enc, p, loc),
		PatientName:      p.Name,
		UPI:              p.PUID,
		MedicalRecordNum: p.MedicalRecordNum,
		SexDisplay:       p.SexDisplay(),
		Age:              p.Age(s.now()),
		SignedByName:     s.directory.ProfessionalName(ctx, enc.SignedBy),
		Components:       rows,
		Summary:          summary,
	}
	if inst != nil {
		v.InstitutionName = inst.Name
	}
	return v, nil
}

// ComponentEncounter lets components check the encounter they belong to.
func (s *Service) ComponentEncounter(ctx context.Context, id uuid.UUID) (*component.EncounterInfo, error) {
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info := &component.EncounterInfo{ID: enc.ID, StartTime: enc.StartTime, State: enc.State}
	if inst, err := s.directory.GetInstitution(ctx, enc.InstitutionID); err == nil {
		info.Timezone = inst.Timezone
	}
	return info, nil
}

// EncounterForAppointment finds the encounter opened for an appointment.
func (s *Service) EncounterForAppointment(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, bool, error) {
	enc, err := s.repo.FindByAppointment(ctx, appointmentID)
	if errors.Is(err, ErrNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return enc.ID, true, nil
}

func (s *Service) emit(ctx context.Context, eventType string, enc *Encounter, hp *directory.Professional) {
	ev := events.EncounterEvent{
		EncounterID: enc.ID.String(),
		Number:      enc.Number,
		PatientID:   enc.PatientID.String(),
		State:       enc.State,
	}
	if hp != nil {
		ev.ActorID = hp.ID.String()
	}
	events.Emit(ctx, s.publisher, s.logger, eventType, ev)
}
