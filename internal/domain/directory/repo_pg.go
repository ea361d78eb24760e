package directory

import (
	"context"
	"errors"

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

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const instCols = `id, name, COALESCE(code, ''), COALESCE(timezone, ''), created_at`

func (r *repoPG) CreateInstitution(ctx context.Context, inst *Institution) error {
	inst.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO institution (id, name, code, timezone)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		RETURNING created_at`,
		inst.ID, inst.Name, inst.Code, inst.Timezone,
	).Scan(&inst.CreatedAt)
}

func (r *repoPG) GetInstitution(ctx context.Context, id uuid.UUID) (*Institution, error) {
	var i Institution
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+instCols+` FROM institution WHERE id = $1`, id).
		Scan(&i.ID, &i.Name, &i.Code, &i.Timezone, &i.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &i, nil
}

func (r *repoPG) ListInstitutions(ctx context.Context) ([]*Institution, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+instCols+` FROM institution ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Institution
	for rows.Next() {
		var i Institution
		if err := rows.Scan(&i.ID, &i.Name, &i.Code, &i.Timezone, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &i)
	}
	return out, rows.Err()
}

const patientCols = `id, name, COALESCE(puid, ''), COALESCE(medical_record_num, ''),
	COALESCE(sex, ''), date_of_birth, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.Name, &p.PUID, &p.MedicalRecordNum, &p.Sex, &p.DateOfBirth, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) CreatePatient(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, name, puid, medical_record_num, sex, date_of_birth)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING created_at`,
		p.ID, p.Name, p.PUID, p.MedicalRecordNum, p.Sex, p.DateOfBirth,
	).Scan(&p.CreatedAt)
}

func (r *repoPG) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *repoPG) SearchPatients(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	pattern := "%" + query + "%"
	const where = ` WHERE $1 = '%%' OR name ILIKE $1 OR puid ILIKE $1 OR medical_record_num ILIKE $1`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`+where, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient`+where+` ORDER BY name LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

const profCols = `id, user_id, name, institution_id, active, created_at`

func scanProfessional(row pgx.Row) (*Professional, error) {
	var hp Professional
	if err := row.Scan(&hp.ID, &hp.UserID, &hp.Name, &hp.InstitutionID, &hp.Active, &hp.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &hp, nil
}

func (r *repoPG) CreateProfessional(ctx context.Context, hp *Professional) error {
	hp.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO health_professional (id, user_id, name, institution_id, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		hp.ID, hp.UserID, hp.Name, hp.InstitutionID, hp.Active,
	).Scan(&hp.CreatedAt)
}

func (r *repoPG) GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return scanProfessional(r.conn(ctx).QueryRow(ctx, `SELECT `+profCols+` FROM health_professional WHERE id = $1`, id))
}

func (r *repoPG) GetProfessionalByUserID(ctx context.Context, userID string) (*Professional, error) {
	return scanProfessional(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profCols+` FROM health_professional WHERE user_id = $1 AND active`, userID))
}
