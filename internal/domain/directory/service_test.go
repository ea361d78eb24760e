package directory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/encounter/internal/platform/auth"
	"github.com/ehr/encounter/internal/platform/validate"
)

// -- Mock Repository --

type mockRepo struct {
	institutions  map[uuid.UUID]*Institution
	patients      map[uuid.UUID]*Patient
	professionals map[uuid.UUID]*Professional
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		institutions:  make(map[uuid.UUID]*Institution),
		patients:      make(map[uuid.UUID]*Patient),
		professionals: make(map[uuid.UUID]*Professional),
	}
}

func (m *mockRepo) CreateInstitution(_ context.Context, inst *Institution) error {
	inst.ID = uuid.New()
	inst.CreatedAt = time.Now()
	m.institutions[inst.ID] = inst
	return nil
}

func (m *mockRepo) GetInstitution(_ context.Context, id uuid.UUID) (*Institution, error) {
	inst, ok := m.institutions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return inst, nil
}

func (m *mockRepo) ListInstitutions(_ context.Context) ([]*Institution, error) {
	var out []*Institution
	for _, i := range m.institutions {
		out = append(out, i)
	}
	return out, nil
}

func (m *mockRepo) CreatePatient(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetPatient(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) SearchPatients(_ context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.patients {
		if query == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) CreateProfessional(_ context.Context, hp *Professional) error {
	hp.ID = uuid.New()
	m.professionals[hp.ID] = hp
	return nil
}

func (m *mockRepo) GetProfessional(_ context.Context, id uuid.UUID) (*Professional, error) {
	hp, ok := m.professionals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return hp, nil
}

func (m *mockRepo) GetProfessionalByUserID(_ context.Context, userID string) (*Professional, error) {
	for _, hp := range m.professionals {
		if hp.UserID == userID && hp.Active {
			return hp, nil
		}
	}
	return nil, ErrNotFound
}

func newTestService() *Service {
	return NewService(newMockRepo())
}

// -- Tests --

func TestCurrentProfessional(t *testing.T) {
	svc := newTestService()
	hp := &Professional{UserID: "dr-who", Name: "John Smith"}
	if err := svc.CreateProfessional(context.Background(), hp); err != nil {
		t.Fatalf("CreateProfessional: %v", err)
	}

	ctx := auth.WithUser(context.Background(), "dr-who", []string{"physician"})
	got, err := svc.CurrentProfessional(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != hp.ID {
		t.Errorf("expected %s, got %s", hp.ID, got.ID)
	}
}

func TestCurrentProfessional_NoneBound(t *testing.T) {
	svc := newTestService()

	ctx := auth.WithUser(context.Background(), "registrar-1", nil)
	if _, err := svc.CurrentProfessional(ctx); !errors.Is(err, ErrNoProfessional) {
		t.Errorf("expected ErrNoProfessional, got %v", err)
	}
	if _, err := svc.CurrentProfessional(context.Background()); !errors.Is(err, ErrNoProfessional) {
		t.Errorf("expected ErrNoProfessional without a user, got %v", err)
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	svc := newTestService()
	err := svc.CreatePatient(context.Background(), &Patient{})
	var verrs validate.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
}

func TestProfessionalName(t *testing.T) {
	svc := newTestService()
	hp := &Professional{UserID: "u", Name: "Ana Lopez"}
	svc.CreateProfessional(context.Background(), hp)

	if got := svc.ProfessionalName(context.Background(), &hp.ID); got != "Ana Lopez" {
		t.Errorf("expected Ana Lopez, got %q", got)
	}
	if got := svc.ProfessionalName(context.Background(), nil); got != "" {
		t.Errorf("expected empty for nil, got %q", got)
	}
	missing := uuid.New()
	if got := svc.ProfessionalName(context.Background(), &missing); got != "" {
		t.Errorf("expected empty for unknown, got %q", got)
	}
}
