package encounter

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

const encCols = `id, number, state, patient_id, COALESCE(primary_complaint, ''), start_time, end_time,
	institution_id, appointment_id, next_appointment_id, signed_by, sign_time, created_at, updated_at`

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *repoPG) Create(ctx context.Context, enc *Encounter) error {
	if enc.ID == uuid.Nil {
		enc.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO encounter (
			id, state, patient_id, primary_complaint, start_time, end_time, institution_id,
			appointment_id, next_appointment_id, signed_by, sign_time
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING number, created_at, updated_at`,
		enc.ID, enc.State, enc.PatientID, nullable(enc.PrimaryComplaint), enc.StartTime, enc.EndTime,
		enc.InstitutionID, enc.AppointmentID, enc.NextAppointmentID, enc.SignedBy, enc.SignTime,
	).Scan(&enc.Number, &enc.CreatedAt, &enc.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return scanEnc(r.conn(ctx).QueryRow(ctx, `SELECT `+encCols+` FROM encounter WHERE id = $1`, id))
}

func (r *repoPG) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Encounter, error) {
	return scanEnc(r.conn(ctx).QueryRow(ctx,
		`SELECT `+encCols+` FROM encounter WHERE appointment_id = $1
		 ORDER BY start_time DESC LIMIT 1`, appointmentID))
}

func (r *repoPG) Update(ctx context.Context, enc *Encounter) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE encounter SET
			state=$2, primary_complaint=$3, start_time=$4, end_time=$5, institution_id=$6,
			next_appointment_id=$7, signed_by=$8, sign_time=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		enc.ID, enc.State, nullable(enc.PrimaryComplaint), enc.StartTime, enc.EndTime,
		enc.InstitutionID, enc.NextAppointmentID, enc.SignedBy, enc.SignTime,
	).Scan(&enc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Encounter, int, error) {
	var (
		where []string
		args  []any
	)
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where = append(where, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if f.State != "" {
		args = append(args, f.State)
		where = append(where, fmt.Sprintf("state = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM encounter`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT `+encCols+` FROM encounter%s ORDER BY start_time DESC LIMIT $%d OFFSET $%d`,
		clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var encs []*Encounter
	for rows.Next() {
		e, err := scanEnc(rows)
		if err != nil {
			return nil, 0, err
		}
		encs = append(encs, e)
	}
	return encs, total, rows.Err()
}

// Status History
func (r *repoPG) AddStatusHistory(ctx context.Context, sh *EncounterStatusHistory) error {
	sh.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO encounter_status_history (id, encounter_id, from_state, to_state, changed_by)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING changed_at`,
		sh.ID, sh.EncounterID, sh.FromState, sh.ToState, sh.ChangedBy,
	).Scan(&sh.ChangedAt)
}

func (r *repoPG) GetStatusHistory(ctx context.Context, encounterID uuid.UUID) ([]*EncounterStatusHistory, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, encounter_id, from_state, to_state, changed_by, changed_at
		FROM encounter_status_history WHERE encounter_id = $1 ORDER BY changed_at`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*EncounterStatusHistory
	for rows.Next() {
		var sh EncounterStatusHistory
		if err := rows.Scan(&sh.ID, &sh.EncounterID, &sh.FromState, &sh.ToState, &sh.ChangedBy, &sh.ChangedAt); err != nil {
			return nil, err
		}
		history = append(history, &sh)
	}
	return history, rows.Err()
}

func scanEnc(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(
		&e.ID, &e.Number, &e.State, &e.PatientID, &e.PrimaryComplaint, &e.StartTime, &e.EndTime,
		&e.InstitutionID, &e.AppointmentID, &e.NextAppointmentID, &e.SignedBy, &e.SignTime,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
