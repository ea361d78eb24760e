package componenttype

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

const ctCols = `id, name, code, model, view_form, ordering, active, created_at, updated_at`

func scanType(row pgx.Row) (*ComponentType, error) {
	var ct ComponentType
	err := row.Scan(&ct.ID, &ct.Name, &ct.Code, &ct.Model, &ct.ViewForm,
		&ct.Ordering, &ct.Active, &ct.CreatedAt, &ct.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

func (r *repoPG) Create(ctx context.Context, ct *ComponentType) error {
	ct.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO encounter_component_type (id, name, code, model, view_form, ordering, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		ct.ID, ct.Name, ct.Code, ct.Model, ct.ViewForm, ct.Ordering, ct.Active,
	).Scan(&ct.CreatedAt, &ct.UpdatedAt)
}

func (r *repoPG) Update(ctx context.Context, ct *ComponentType) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounter_component_type SET
			name = $2, code = $3, model = $4, view_form = $5, ordering = $6,
			active = $7, updated_at = NOW()
		WHERE id = $1`,
		ct.ID, ct.Name, ct.Code, ct.Model, ct.ViewForm, ct.Ordering, ct.Active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*ComponentType, error) {
	return scanType(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ctCols+` FROM encounter_component_type WHERE id = $1`, id))
}

func (r *repoPG) FindByModelView(ctx context.Context, model, viewForm string) (*ComponentType, error) {
	return scanType(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ctCols+` FROM encounter_component_type WHERE model = $1 AND view_form = $2`,
		model, viewForm))
}

func (r *repoPG) FindByModel(ctx context.Context, model string) (*ComponentType, error) {
	return scanType(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ctCols+` FROM encounter_component_type WHERE model = $1
		 ORDER BY active DESC, ordering, name LIMIT 1`, model))
}

func (r *repoPG) List(ctx context.Context, activeOnly bool) ([]*ComponentType, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+ctCols+` FROM encounter_component_type
		 WHERE active OR NOT $1
		 ORDER BY ordering ASC, name ASC`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ComponentType
	for rows.Next() {
		ct, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}
