package component

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/encounter/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// table describes the kind specific columns of one component table. Text
// columns are read through COALESCE so they scan into plain strings.
type table struct {
	name   string
	cols   []string
	text   map[string]bool
	values func(Component) []any
	dests  func(Component) []any
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var tables = map[Kind]table{
	KindAnthropometry: {
		name: "encounter_anthropometry",
		cols: []string{"weight", "height", "bmi", "head_circumference", "abdominal_circ", "hip", "whr"},
		values: func(c Component) []any {
			a := c.(*Anthropometry)
			return []any{a.Weight, a.Height, a.BMI, a.HeadCircumference, a.AbdominalCirc, a.Hip, a.WHR}
		},
		dests: func(c Component) []any {
			a := c.(*Anthropometry)
			return []any{&a.Weight, &a.Height, &a.BMI, &a.HeadCircumference, &a.AbdominalCirc, &a.Hip, &a.WHR}
		},
	},
	KindAmbulatory: {
		name: "encounter_ambulatory",
		cols: []string{
			"systolic", "diastolic", "bpm", "respiratory_rate", "osat", "temperature", "pregnant",
			"lmp", "glucose", "uri_ph", "uri_specific_gravity", "uri_protein", "uri_blood",
			"uri_glucose", "uri_nitrite", "uri_bilirubin", "uri_leuko", "uri_ketone", "uri_urobili",
			"malnutrition", "dehydration",
		},
		text: map[string]bool{
			"uri_protein": true, "uri_blood": true, "uri_glucose": true, "uri_nitrite": true,
			"uri_bilirubin": true, "uri_leuko": true, "uri_ketone": true, "uri_urobili": true,
			"dehydration": true,
		},
		values: func(c Component) []any {
			a := c.(*Ambulatory)
			return []any{
				a.Systolic, a.Diastolic, a.BPM, a.RespiratoryRate, a.Osat, a.Temperature, a.Pregnant,
				a.LMP, a.Glucose, a.UriPH, a.UriSpecificGravity, nullable(a.UriProtein),
				nullable(a.UriBlood), nullable(a.UriGlucose), nullable(a.UriNitrite),
				nullable(a.UriBilirubin), nullable(a.UriLeuko), nullable(a.UriKetone),
				nullable(a.UriUrobili), a.Malnutrition, nullable(a.Dehydration),
			}
		},
		dests: func(c Component) []any {
			a := c.(*Ambulatory)
			return []any{
				&a.Systolic, &a.Diastolic, &a.BPM, &a.RespiratoryRate, &a.Osat, &a.Temperature, &a.Pregnant,
				&a.LMP, &a.Glucose, &a.UriPH, &a.UriSpecificGravity, &a.UriProtein, &a.UriBlood,
				&a.UriGlucose, &a.UriNitrite, &a.UriBilirubin, &a.UriLeuko, &a.UriKetone, &a.UriUrobili,
				&a.Malnutrition, &a.Dehydration,
			}
		},
	},
	KindMentalStatus: {
		name: "encounter_mental_status",
		cols: []string{
			"loc", "loc_eyes", "loc_verbal", "loc_motor", "tremor", "violent", "mood", "orientation",
			"memory", "knowledge_current_events", "judgement", "abstraction", "vocabulary",
			"calculation_ability", "object_recognition", "praxis",
		},
		text: map[string]bool{"mood": true},
		values: func(c Component) []any {
			m := c.(*MentalStatus)
			return []any{
				m.Loc, m.LocEyes, m.LocVerbal, m.LocMotor, m.Tremor, m.Violent, nullable(m.Mood),
				m.Orientation, m.Memory, m.KnowledgeCurrentEvents, m.Judgement, m.Abstraction,
				m.Vocabulary, m.CalculationAbility, m.ObjectRecognition, m.Praxis,
			}
		},
		dests: func(c Component) []any {
			m := c.(*MentalStatus)
			return []any{
				&m.Loc, &m.LocEyes, &m.LocVerbal, &m.LocMotor, &m.Tremor, &m.Violent, &m.Mood,
				&m.Orientation, &m.Memory, &m.KnowledgeCurrentEvents, &m.Judgement, &m.Abstraction,
				&m.Vocabulary, &m.CalculationAbility, &m.ObjectRecognition, &m.Praxis,
			}
		},
	},
	KindClinical: {
		name: "encounter_clinical",
		cols: []string{
			"diagnosis", "secondary_conditions", "diagnostic_hypothesis", "signs_symptoms",
			"directions", "treatment_plan",
		},
		text: map[string]bool{"treatment_plan": true},
		values: func(c Component) []any {
			cl := c.(*Clinical)
			return []any{
				cl.Diagnosis, cl.SecondaryConditions, cl.DiagnosticHypothesis, cl.SignsSymptoms,
				cl.Directions, nullable(cl.TreatmentPlan),
			}
		},
		dests: func(c Component) []any {
			cl := c.(*Clinical)
			return []any{
				&cl.Diagnosis, &cl.SecondaryConditions, &cl.DiagnosticHypothesis, &cl.SignsSymptoms,
				&cl.Directions, &cl.TreatmentPlan,
			}
		},
	},
	KindProcedures: {
		name: "encounter_procedures",
		cols: []string{"procedures", "anesthesia", "outcome"},
		text: map[string]bool{"anesthesia": true, "outcome": true},
		values: func(c Component) []any {
			p := c.(*Procedures)
			return []any{p.Performed, nullable(p.Anesthesia), nullable(p.Outcome)}
		},
		dests: func(c Component) []any {
			p := c.(*Procedures)
			return []any{&p.Performed, &p.Anesthesia, &p.Outcome}
		},
	},
}

func tableFor(kind Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return t, nil
}

var baseCols = []string{
	"id", "encounter_id", "active", "start_time", "end_time", "sign_time", "signed_by",
	"performed_by", "warning", "notes", "critical_info",
}

const baseSelect = `t.id, t.encounter_id, t.active, t.start_time, t.end_time, t.sign_time,
	t.signed_by, t.performed_by, t.warning, COALESCE(t.notes, ''), t.critical_info,
	t.created_at, t.updated_at, COALESCE(sp.name, ''), COALESCE(pp.name, '')`

const professionalJoins = `
	LEFT JOIN health_professional sp ON sp.id = t.signed_by
	LEFT JOIN health_professional pp ON pp.id = t.performed_by`

func baseValues(b *Base) []any {
	return []any{
		b.ID, b.EncounterID, b.Active, b.StartTime, b.EndTime, b.SignTime, b.SignedBy,
		b.PerformedBy, b.Warning, nullable(b.Notes), b.CriticalInfo,
	}
}

func baseDests(b *Base) []any {
	return []any{
		&b.ID, &b.EncounterID, &b.Active, &b.StartTime, &b.EndTime, &b.SignTime, &b.SignedBy,
		&b.PerformedBy, &b.Warning, &b.Notes, &b.CriticalInfo, &b.CreatedAt, &b.UpdatedAt,
		&b.SignedByName, &b.PerformedByName,
	}
}

func (t table) selectList() string {
	parts := make([]string, 0, len(t.cols))
	for _, col := range t.cols {
		if t.text[col] {
			parts = append(parts, "COALESCE(t."+col+", '')")
		} else {
			parts = append(parts, "t."+col)
		}
	}
	return baseSelect + ", " + strings.Join(parts, ", ")
}

func placeholders(from, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(out, ", ")
}

func (r *repoPG) Create(ctx context.Context, c Component) error {
	t, err := tableFor(c.Kind())
	if err != nil {
		return err
	}
	b := c.Header()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cols := append(append([]string{}, baseCols...), t.cols...)
	args := append(baseValues(b), t.values(c)...)
	sql := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING created_at, updated_at`,
		t.name, strings.Join(cols, ", "), placeholders(1, len(cols)))
	return r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *repoPG) Update(ctx context.Context, c Component) error {
	t, err := tableFor(c.Kind())
	if err != nil {
		return err
	}
	b := c.Header()
	// encounter_id never changes once created.
	cols := append(append([]string{}, baseCols[2:]...), t.cols...)
	args := append([]any{b.ID}, baseValues(b)[2:]...)
	args = append(args, t.values(c)...)
	sets := make([]string, 0, len(cols)+1)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+2))
	}
	sets = append(sets, "updated_at = NOW()")
	sql := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1 RETURNING updated_at`, t.name, strings.Join(sets, ", "))

	err = r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) Get(ctx context.Context, kind Kind, id uuid.UUID) (Component, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	c, err := New(kind)
	if err != nil {
		return nil, err
	}
	sql := `SELECT ` + t.selectList() + ` FROM ` + t.name + ` t` + professionalJoins + ` WHERE t.id = $1`
	dests := append(baseDests(c.Header()), t.dests(c)...)
	err = r.conn(ctx).QueryRow(ctx, sql, id).Scan(dests...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repoPG) KindOf(ctx context.Context, id uuid.UUID) (Kind, error) {
	var kind string
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT component_type FROM encounter_component WHERE id = $1`, id).Scan(&kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return Kind(kind), nil
}

func (r *repoPG) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*UnionRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT t.component_type, t.id, t.encounter_id, t.active, t.start_time, t.end_time,
			t.sign_time, t.signed_by, t.performed_by, t.warning, t.critical_info,
			COALESCE(sp.name, ''), COALESCE(pp.name, '')
		FROM encounter_component t`+professionalJoins+`
		WHERE t.encounter_id = $1 AND t.active
		ORDER BY t.start_time ASC, t.created_at ASC`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*UnionRow
	for rows.Next() {
		var u UnionRow
		var kind string
		if err := rows.Scan(&kind, &u.ID, &u.EncounterID, &u.Active, &u.StartTime, &u.EndTime,
			&u.SignTime, &u.SignedBy, &u.PerformedBy, &u.Warning, &u.CriticalInfo,
			&u.SignedByName, &u.PerformedByName); err != nil {
			return nil, err
		}
		u.ComponentType = Kind(kind)
		out = append(out, &u)
	}
	return out, rows.Err()
}
