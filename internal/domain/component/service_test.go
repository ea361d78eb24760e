package component

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/encounter/internal/domain/componenttype"
	"github.com/ehr/encounter/internal/domain/directory"
	"github.com/ehr/encounter/internal/platform/db"
	"github.com/ehr/encounter/internal/platform/tz"
	"github.com/ehr/encounter/internal/platform/validate"
)

// -- Mock Repository --

type mockRepo struct {
	items map[uuid.UUID]Component
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]Component)}
}

func clone(c Component) Component {
	out, _ := New(c.Kind())
	b, _ := json.Marshal(c)
	json.Unmarshal(b, out)
	return out
}

func (m *mockRepo) Create(_ context.Context, c Component) error {
	h := c.Header()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	h.CreatedAt = time.Now()
	h.UpdatedAt = h.CreatedAt
	m.items[h.ID] = clone(c)
	return nil
}

func (m *mockRepo) Update(_ context.Context, c Component) error {
	if _, ok := m.items[c.Header().ID]; !ok {
		return ErrNotFound
	}
	c.Header().UpdatedAt = time.Now()
	m.items[c.Header().ID] = clone(c)
	return nil
}

func (m *mockRepo) Get(_ context.Context, kind Kind, id uuid.UUID) (Component, error) {
	c, ok := m.items[id]
	if !ok || c.Kind() != kind {
		return nil, ErrNotFound
	}
	return clone(c), nil
}

func (m *mockRepo) KindOf(_ context.Context, id uuid.UUID) (Kind, error) {
	c, ok := m.items[id]
	if !ok {
		return "", ErrNotFound
	}
	return c.Kind(), nil
}

func (m *mockRepo) ListByEncounter(_ context.Context, encounterID uuid.UUID) ([]*UnionRow, error) {
	var out []*UnionRow
	for _, c := range m.items {
		h := c.Header()
		if h.EncounterID != encounterID || !h.Active {
			continue
		}
		out = append(out, &UnionRow{
			ComponentType:   c.Kind(),
			ID:              h.ID,
			EncounterID:     h.EncounterID,
			Active:          h.Active,
			StartTime:       h.StartTime,
			EndTime:         h.EndTime,
			SignTime:        h.SignTime,
			SignedBy:        h.SignedBy,
			SignedByName:    h.SignedByName,
			PerformedBy:     h.PerformedBy,
			PerformedByName: h.PerformedByName,
			CriticalInfo:    h.CriticalInfo,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// -- Fakes --

type fakeProfessionals struct {
	hp *directory.Professional
}

func (f *fakeProfessionals) CurrentProfessional(context.Context) (*directory.Professional, error) {
	if f.hp == nil {
		return nil, directory.ErrNoProfessional
	}
	return f.hp, nil
}

type fakeEncounters struct {
	encounters map[uuid.UUID]*EncounterInfo
}

func (f *fakeEncounters) ComponentEncounter(_ context.Context, id uuid.UUID) (*EncounterInfo, error) {
	enc, ok := f.encounters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return enc, nil
}

type fakeRegistry struct {
	list []componenttype.Selection
	view map[string]string
}

func newFakeRegistry() *fakeRegistry {
	r := &fakeRegistry{view: map[string]string{}}
	for _, e := range componenttype.DefaultCatalog().Types {
		r.list = append(r.list, componenttype.Selection{ID: uuid.New(), Name: e.Name, Code: e.Code, Model: e.Model})
		r.view[e.Model] = e.ViewForm
	}
	return r
}

func (r *fakeRegistry) SelectionList(context.Context) ([]componenttype.Selection, error) {
	return r.list, nil
}

func (r *fakeRegistry) ModelView(_ context.Context, id uuid.UUID, model string) (string, string, error) {
	for _, sel := range r.list {
		if sel.ID == id || (id == uuid.Nil && sel.Model == model) {
			return sel.Model, r.view[sel.Model], nil
		}
	}
	return "", "", componenttype.ErrUnknownComponentType
}

func (r *fakeRegistry) ByState(_ context.Context, state string) (*componenttype.Selection, error) {
	for i := range r.list {
		if r.list[i].State() == state {
			return &r.list[i], nil
		}
	}
	return nil, componenttype.ErrUnknownComponentType
}

type fakePublisher struct {
	types []string
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, _ any) error {
	p.types = append(p.types, eventType)
	return nil
}

// -- Fixture --

var (
	encStart = time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	testNow  = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
)

type fixture struct {
	svc    *Service
	repo   *mockRepo
	pros   *fakeProfessionals
	encs   *fakeEncounters
	pub    *fakePublisher
	encID  uuid.UUID
	editor *Editor
}

func newFixture() *fixture {
	f := &fixture{
		repo:  newMockRepo(),
		pros:  &fakeProfessionals{hp: &directory.Professional{ID: uuid.New(), UserID: "nurse-1", Name: "Nurse Joy"}},
		encs:  &fakeEncounters{encounters: map[uuid.UUID]*EncounterInfo{}},
		pub:   &fakePublisher{},
		encID: uuid.New(),
	}
	f.encs.encounters[f.encID] = &EncounterInfo{
		ID: f.encID, StartTime: encStart, State: "in_progress", Timezone: "America/Jamaica",
	}
	reg := newFakeRegistry()
	f.svc = NewService(f.repo, db.NopTransactor{}, f.pros, reg, f.pub, tz.NewResolver("UTC"), zerolog.Nop())
	f.svc.SetEncounterLookup(f.encs)
	f.svc.now = func() time.Time { return testNow }
	f.editor = NewEditor(f.svc, reg)
	return f
}

func (f *fixture) setState(state string) {
	f.encs.encounters[f.encID].State = state
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) anthropometry() *Anthropometry {
	return &Anthropometry{Base: Base{EncounterID: f.encID}, Weight: ptr(70.0), Height: ptr(175.0)}
}

// -- Tests --

func TestSave_CreatesWithDefaults(t *testing.T) {
	f := newFixture()
	a := f.anthropometry()

	if err := f.svc.Save(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == uuid.Nil {
		t.Fatal("expected id to be assigned")
	}
	if !a.StartTime.Equal(testNow) {
		t.Errorf("expected start time now, got %v", a.StartTime)
	}
	if a.PerformedBy == nil || *a.PerformedBy != f.pros.hp.ID {
		t.Errorf("expected performed_by to default to current professional")
	}
	if !strings.HasPrefix(a.CriticalInfo, "W: 70.00 kg, H: 175.0 cm = (BMI) 22.86") {
		t.Errorf("unexpected critical info %q", a.CriticalInfo)
	}
	if a.Signed() {
		t.Error("plain save must not sign")
	}
	if len(f.pub.types) != 1 || f.pub.types[0] != "component.saved" {
		t.Errorf("unexpected events %v", f.pub.types)
	}
}

func TestSave_IgnoresClientSignature(t *testing.T) {
	f := newFixture()
	a := f.anthropometry()
	other := uuid.New()
	a.SignedBy = &other

	if err := f.svc.Save(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Signed() {
		t.Error("signature must only come from signing")
	}
}

func TestSaveAndSign(t *testing.T) {
	f := newFixture()
	a := f.anthropometry()

	if err := f.svc.SaveAndSign(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.SignedBy == nil || *a.SignedBy != f.pros.hp.ID {
		t.Fatal("expected signed_by to be the current professional")
	}
	if a.SignTime == nil || !a.SignTime.Equal(testNow) {
		t.Errorf("expected sign time now, got %v", a.SignTime)
	}
	if len(f.pub.types) != 2 || f.pub.types[1] != "component.signed" {
		t.Errorf("unexpected events %v", f.pub.types)
	}
}

func TestSave_SignedIsReadOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.anthropometry()
	if err := f.svc.SaveAndSign(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.Weight = ptr(80.0)
	if err := f.svc.Save(ctx, a); !errors.Is(err, ErrComponentSigned) {
		t.Errorf("expected ErrComponentSigned, got %v", err)
	}
	if _, err := f.svc.Sign(ctx, KindAnthropometry, a.ID); !errors.Is(err, ErrComponentSigned) {
		t.Errorf("expected ErrComponentSigned on re-sign, got %v", err)
	}
	if err := f.svc.Deactivate(ctx, KindAnthropometry, a.ID); !errors.Is(err, ErrComponentSigned) {
		t.Errorf("expected ErrComponentSigned on deactivate, got %v", err)
	}
}

func TestSave_EncounterStates(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	f.setState("done")
	if err := f.svc.Save(ctx, f.anthropometry()); !errors.Is(err, ErrEncounterLocked) {
		t.Errorf("expected ErrEncounterLocked creating on done encounter, got %v", err)
	}

	f = newFixture()
	a := f.anthropometry()
	if err := f.svc.Save(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.setState("done")
	a.Weight = ptr(72.0)
	if err := f.svc.Save(ctx, a); err != nil {
		t.Errorf("editing on a done encounter should be allowed, got %v", err)
	}
	f.setState("signed")
	if err := f.svc.Save(ctx, a); !errors.Is(err, ErrEncounterLocked) {
		t.Errorf("expected ErrEncounterLocked on signed encounter, got %v", err)
	}
}

func TestSave_NoProfessional(t *testing.T) {
	f := newFixture()
	f.pros.hp = nil

	err := f.svc.Save(context.Background(), f.anthropometry())
	if !errors.Is(err, directory.ErrNoProfessional) {
		t.Errorf("expected ErrNoProfessional, got %v", err)
	}
}

func TestSave_TimeChecks(t *testing.T) {
	f := newFixture()

	a := f.anthropometry()
	a.StartTime = encStart.Add(-time.Minute)
	if err := f.svc.Save(context.Background(), a); !errors.Is(err, ErrBadStartTime) {
		t.Errorf("expected ErrBadStartTime, got %v", err)
	}

	a = f.anthropometry()
	a.StartTime = testNow
	a.EndTime = ptr(testNow.Add(-time.Second))
	if err := f.svc.Save(context.Background(), a); !errors.Is(err, ErrBadEndTime) {
		t.Errorf("expected ErrBadEndTime, got %v", err)
	}
}

func TestSave_ValidationErrors(t *testing.T) {
	f := newFixture()

	amb := &Ambulatory{Base: Base{EncounterID: f.encID}, Dehydration: "extreme"}
	err := f.svc.Save(context.Background(), amb)
	var verrs validate.Errors
	if !errors.As(err, &verrs) || verrs[0].Field != "dehydration" {
		t.Errorf("expected dehydration validation error, got %v", err)
	}

	ms := &MentalStatus{Base: Base{EncounterID: f.encID}, LocEyes: 5, LocVerbal: 5, LocMotor: 6}
	if err := f.svc.Save(context.Background(), ms); !errors.As(err, &verrs) {
		t.Errorf("expected validation error for eyes=5, got %v", err)
	}
}

func TestSave_TruncatesCriticalInfo(t *testing.T) {
	f := newFixture()
	c := &Clinical{Base: Base{EncounterID: f.encID}}
	for i := 0; i < 60; i++ {
		c.SignsSymptoms = append(c.SignsSymptoms, Coded{Code: "R50.9", Name: "Fever"})
	}
	if err := f.svc.Save(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.CriticalInfo) != 255 {
		t.Errorf("expected critical info cut to 255, got %d", len(c.CriticalInfo))
	}
}

func TestDeactivate_HidesFromEncounter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.anthropometry()
	if err := f.svc.Save(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.Deactivate(ctx, KindAnthropometry, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, _ := f.svc.ListByEncounter(ctx, f.encID)
	if len(rows) != 0 {
		t.Errorf("expected no active components, got %d", len(rows))
	}
}

func TestListByEncounter_Decorated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ms, _ := New(KindMentalStatus)
	ms.Header().EncounterID = f.encID
	ms.Header().StartTime = encStart.Add(time.Hour)
	if err := f.svc.Save(ctx, ms); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := f.anthropometry()
	a.StartTime = encStart.Add(30 * time.Minute)
	if err := f.svc.Save(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := f.svc.ListByEncounter(ctx, f.encID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0]
	if first.ComponentType != KindAnthropometry || first.TypeLabel != "Anthropometry" {
		t.Errorf("expected anthropometry first, got %s/%s", first.ComponentType, first.TypeLabel)
	}
	// 14:30 UTC in Jamaica
	if first.StartTimeTime != "09:30" {
		t.Errorf("expected local start 09:30, got %s", first.StartTimeTime)
	}
	if !first.IsUnion || first.Signed {
		t.Errorf("unexpected flags %+v", first)
	}
	if rows[1].CriticalInfo != "Glasgow: 15" {
		t.Errorf("unexpected mental status summary %q", rows[1].CriticalInfo)
	}
}

func TestComponents_Unshard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.anthropometry()
	if err := f.svc.Save(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	comps, err := f.svc.Components(ctx, f.encID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := comps[0].(*Anthropometry)
	if !ok {
		t.Fatalf("expected *Anthropometry, got %T", comps[0])
	}
	if got.BMI < 22.85 || got.BMI > 22.86 {
		t.Errorf("unexpected bmi %v", got.BMI)
	}

	byID, err := f.svc.GetByID(ctx, a.ID)
	if err != nil || byID.Kind() != KindAnthropometry {
		t.Errorf("GetByID = %v, %v", byID, err)
	}
}
