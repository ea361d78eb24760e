package component

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ehr/encounter/internal/domain/componenttype"
)

// Choice is one entry of the new component selector.
type Choice struct {
	State  string    `json:"state"`
	Label  string    `json:"label"`
	TypeID uuid.UUID `json:"type_id"`
	Model  string    `json:"model"`
}

// Draft is a component together with the form used to edit it.
type Draft struct {
	Kind      Kind      `json:"kind"`
	State     string    `json:"state,omitempty"`
	Component Component `json:"component"`
	Form      *Form     `json:"form"`
}

// Editor drives the select, fill in, save or sign flow for components.
type Editor struct {
	svc   *Service
	types TypeRegistry
}

func NewEditor(svc *Service, types TypeRegistry) *Editor {
	return &Editor{svc: svc, types: types}
}

// Selector lists the component types that can be added to the encounter.
func (e *Editor) Selector(ctx context.Context, encounterID uuid.UUID) ([]Choice, error) {
	enc, err := e.svc.encounter(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if !enc.AcceptsNew() {
		return nil, ErrEncounterLocked
	}
	list, err := e.types.SelectionList(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Choice, 0, len(list))
	for _, sel := range list {
		out = append(out, Choice{State: sel.State(), Label: sel.Name, TypeID: sel.ID, Model: sel.Model})
	}
	return out, nil
}

// Draft prepares an unsaved component of the type selected by state.
func (e *Editor) Draft(ctx context.Context, encounterID uuid.UUID, state string) (*Draft, error) {
	enc, err := e.svc.encounter(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if !enc.AcceptsNew() {
		return nil, ErrEncounterLocked
	}
	hp, err := e.svc.professionals.CurrentProfessional(ctx)
	if err != nil {
		return nil, err
	}
	sel, err := e.types.ByState(ctx, state)
	if err != nil {
		return nil, err
	}
	model, viewForm, err := e.types.ModelView(ctx, sel.ID, "")
	if err != nil {
		return nil, err
	}
	kind, err := ParseKind(model)
	if err != nil {
		return nil, err
	}
	c, err := New(kind)
	if err != nil {
		return nil, err
	}
	h := c.Header()
	h.EncounterID = enc.ID
	h.StartTime = e.svc.now()
	h.PerformedBy = &hp.ID
	h.PerformedByName = hp.Name
	c.Compute()

	form, err := FormFor(viewForm, c)
	if err != nil {
		return nil, err
	}
	return &Draft{Kind: kind, State: state, Component: c, Form: form}, nil
}

// Open loads a saved component with its form.
func (e *Editor) Open(ctx context.Context, kind Kind, id uuid.UUID) (*Draft, error) {
	c, err := e.svc.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return e.draftOf(ctx, c)
}

// OpenByID is Open for a union row id.
func (e *Editor) OpenByID(ctx context.Context, id uuid.UUID) (*Draft, error) {
	c, err := e.svc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.draftOf(ctx, c)
}

// Save stores c, signing it when sign is set, and returns it reopened.
func (e *Editor) Save(ctx context.Context, c Component, sign bool) (*Draft, error) {
	var err error
	if sign {
		err = e.svc.SaveAndSign(ctx, c)
	} else {
		err = e.svc.Save(ctx, c)
	}
	if err != nil {
		return nil, err
	}
	return e.Open(ctx, c.Kind(), c.Header().ID)
}

func (e *Editor) draftOf(ctx context.Context, c Component) (*Draft, error) {
	_, viewForm, err := e.types.ModelView(ctx, uuid.Nil, string(c.Kind()))
	if errors.Is(err, componenttype.ErrUnknownComponentType) {
		viewForm = DefaultForm(c.Kind())
	} else if err != nil {
		return nil, err
	}
	form, err := FormFor(viewForm, c)
	if err != nil {
		return nil, err
	}
	return &Draft{Kind: c.Kind(), Component: c, Form: form}, nil
}
