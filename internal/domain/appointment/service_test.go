package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repository --

type mockRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) SetState(_ context.Context, id uuid.UUID, state string) error {
	a, ok := m.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.State = state
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

type fakeFinder struct {
	byAppt map[uuid.UUID]uuid.UUID
}

func (f *fakeFinder) EncounterForAppointment(_ context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
	encID, ok := f.byAppt[id]
	return encID, ok, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func TestCreate_DefaultsToConfirmed(t *testing.T) {
	svc, _ := newTestService()
	a := &Appointment{PatientID: uuid.New(), AppointmentDate: time.Now()}

	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.State != StateConfirmed {
		t.Errorf("expected confirmed, got %s", a.State)
	}
}

func TestCreate_RejectsUnknownState(t *testing.T) {
	svc, _ := newTestService()
	a := &Appointment{PatientID: uuid.New(), AppointmentDate: time.Now(), State: "maybe"}

	if err := svc.Create(context.Background(), a); err == nil {
		t.Error("expected validation error")
	}
}

func TestSetState(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	a := &Appointment{PatientID: uuid.New(), AppointmentDate: time.Now()}
	svc.Create(ctx, a)

	if err := svc.SetState(ctx, a.ID, StateProcessing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.appts[a.ID].State != StateProcessing {
		t.Errorf("expected processing, got %s", repo.appts[a.ID].State)
	}
	if err := svc.SetState(ctx, uuid.New(), StateDone); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenEncounter(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	inst := uuid.New()
	a := &Appointment{PatientID: uuid.New(), InstitutionID: &inst, AppointmentDate: time.Now()}
	svc.Create(ctx, a)

	tmpl, err := svc.OpenEncounter(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tmpl.ExistingID != nil || tmpl.PatientID != a.PatientID || *tmpl.InstitutionID != inst {
		t.Errorf("unexpected template %+v", tmpl)
	}

	encID := uuid.New()
	svc.SetEncounterFinder(&fakeFinder{byAppt: map[uuid.UUID]uuid.UUID{a.ID: encID}})
	tmpl, _ = svc.OpenEncounter(ctx, a.ID)
	if tmpl.ExistingID == nil || *tmpl.ExistingID != encID {
		t.Errorf("expected existing encounter %s, got %+v", encID, tmpl.ExistingID)
	}
}
