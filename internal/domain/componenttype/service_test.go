package componenttype

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repository --

type mockRepo struct {
	types     map[uuid.UUID]*ComponentType
	listCalls int
}

func newMockRepo() *mockRepo {
	return &mockRepo{types: make(map[uuid.UUID]*ComponentType)}
}

func (m *mockRepo) Create(_ context.Context, ct *ComponentType) error {
	ct.ID = uuid.New()
	ct.CreatedAt = time.Now()
	ct.UpdatedAt = ct.CreatedAt
	cp := *ct
	m.types[ct.ID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, ct *ComponentType) error {
	if _, ok := m.types[ct.ID]; !ok {
		return ErrNotFound
	}
	cp := *ct
	m.types[ct.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*ComponentType, error) {
	ct, ok := m.types[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ct
	return &cp, nil
}

func (m *mockRepo) FindByModelView(_ context.Context, model, viewForm string) (*ComponentType, error) {
	for _, ct := range m.types {
		if ct.Model == model && ct.ViewForm == viewForm {
			cp := *ct
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) FindByModel(ctx context.Context, model string) (*ComponentType, error) {
	all, _ := m.List(ctx, false)
	for _, ct := range all {
		if ct.Model == model {
			return ct, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, activeOnly bool) ([]*ComponentType, error) {
	m.listCalls++
	var out []*ComponentType
	for _, ct := range m.types {
		if activeOnly && !ct.Active {
			continue
		}
		cp := *ct
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ordering != out[j].Ordering {
			return out[i].Ordering < out[j].Ordering
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, nil, zerolog.Nop()), repo
}

// -- Tests --

func TestRegisterType_Creates(t *testing.T) {
	svc, _ := newTestService()

	ct, err := svc.RegisterType(context.Background(), "mental_status", "mental_status_form", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct.Name != "Mental Status" {
		t.Errorf("expected default name from model, got %q", ct.Name)
	}
	if ct.Code != "Mental Status" || !ct.Active {
		t.Errorf("unexpected registration %+v", ct)
	}
}

func TestRegisterType_TruncatesCode(t *testing.T) {
	svc, _ := newTestService()

	ct, err := svc.RegisterType(context.Background(), "anthropometry", "anthro_form", "Anthropometric Measurements")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct.Code != "Anthropometric " {
		t.Errorf("expected 15 character code, got %q", ct.Code)
	}
}

func TestRegisterType_ReactivatesExisting(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	first, _ := svc.RegisterType(ctx, "clinical", "clinical_form", "Clinical")
	if err := svc.Deactivate(ctx, first.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	again, err := svc.RegisterType(ctx, "clinical", "clinical_form", "Other Name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != first.ID {
		t.Error("expected the existing registration to be reused")
	}
	if !repo.types[first.ID].Active {
		t.Error("expected registration to be reactivated")
	}
	if len(repo.types) != 1 {
		t.Errorf("expected 1 registration, got %d", len(repo.types))
	}
}

func TestSelectionList_CachedAndInvalidated(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	svc.RegisterType(ctx, "clinical", "clinical_form", "Clinical")
	if _, err := svc.SelectionList(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.SelectionList(ctx)
	if repo.listCalls != 1 {
		t.Errorf("expected cached second read, got %d list calls", repo.listCalls)
	}

	svc.RegisterType(ctx, "procedures", "procedures_form", "Procedures")
	list, _ := svc.SelectionList(ctx)
	if len(list) != 2 {
		t.Errorf("expected cache invalidation after write, got %d entries", len(list))
	}
}

func TestSelectionList_OrderAndInactive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Seed(ctx, DefaultCatalog()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	list, _ := svc.SelectionList(ctx)
	if len(list) != 5 {
		t.Fatalf("expected 5 types, got %d", len(list))
	}
	if list[0].Model != "anthropometry" || list[4].Model != "procedures" {
		t.Errorf("unexpected order: %v", list)
	}

	svc.Deactivate(ctx, list[1].ID)
	list, _ = svc.SelectionList(ctx)
	if len(list) != 4 {
		t.Errorf("expected inactive type hidden, got %d", len(list))
	}
}

func TestSeed_Idempotent(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	svc.Seed(ctx, DefaultCatalog())
	svc.Seed(ctx, DefaultCatalog())
	if len(repo.types) != 5 {
		t.Errorf("expected 5 registrations after seeding twice, got %d", len(repo.types))
	}
}

func TestModelView(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	ct, _ := svc.RegisterType(ctx, "ambulatory", "ambulatory_form", "Vital Signs")

	model, view, err := svc.ModelView(ctx, ct.ID, "")
	if err != nil || model != "ambulatory" || view != "ambulatory_form" {
		t.Errorf("by id: got %q %q %v", model, view, err)
	}
	model, view, err = svc.ModelView(ctx, uuid.Nil, "ambulatory")
	if err != nil || model != "ambulatory" || view != "ambulatory_form" {
		t.Errorf("by model: got %q %q %v", model, view, err)
	}
	if _, _, err := svc.ModelView(ctx, uuid.Nil, "x-ray"); !errors.Is(err, ErrUnknownComponentType) {
		t.Errorf("expected ErrUnknownComponentType, got %v", err)
	}
	if _, _, err := svc.ModelView(ctx, uuid.Nil, ""); !errors.Is(err, ErrUnknownComponentType) {
		t.Errorf("expected ErrUnknownComponentType with no key, got %v", err)
	}
}

func TestViewName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	ct, _ := svc.RegisterType(ctx, "clinical", "clinical_form", "")

	if got := svc.ViewName(ctx, ct.ID); got != "clinical_form" {
		t.Errorf("expected clinical_form, got %q", got)
	}
	if got := svc.ViewName(ctx, uuid.New()); got != "" {
		t.Errorf("expected empty for unknown id, got %q", got)
	}
}

func TestByState(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.Seed(ctx, DefaultCatalog())

	sel, err := svc.ByState(ctx, "mental_status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Model != "mental_status" {
		t.Errorf("expected mental_status, got %s", sel.Model)
	}
	if _, err := svc.ByState(ctx, "nope"); !errors.Is(err, ErrUnknownComponentType) {
		t.Errorf("expected ErrUnknownComponentType, got %v", err)
	}
}
