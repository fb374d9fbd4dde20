package personnel

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `no_empleado, nombre_completo, plaza_nominal, renglon_presupuestario,
	ibm, servicio, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.EmployeeNumber, &e.FullName, &e.Position, &e.BudgetLine,
		&e.IBM, &e.Service, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repoPG) collect(rows pgx.Rows) ([]*Entry, error) {
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx, `
		SELECT `+entryCols+` FROM personal_info
		WHERE ibm = $1 OR no_empleado = $1
		ORDER BY (ibm = $1) DESC
		LIMIT 1`, code))
}

func (r *repoPG) Search(ctx context.Context, term string, limit int) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM personal_info
		WHERE ibm ILIKE '%' || $1 || '%'
		   OR no_empleado ILIKE '%' || $1 || '%'
		   OR nombre_completo ILIKE '%' || $1 || '%'
		ORDER BY
			CASE WHEN ibm ILIKE $1 || '%' OR no_empleado ILIKE $1 || '%' OR nombre_completo ILIKE $1 || '%'
			     THEN 0 ELSE 1 END,
			no_empleado
		LIMIT $2`, term, limit)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM personal_info`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM personal_info
		ORDER BY no_empleado ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO personal_info (no_empleado, nombre_completo, plaza_nominal, renglon_presupuestario, ibm, servicio)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		e.EmployeeNumber, e.FullName, e.Position, e.BudgetLine, e.IBM, e.Service,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (r *repoPG) Upsert(ctx context.Context, e *Entry) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO personal_info (no_empleado, nombre_completo, plaza_nominal, renglon_presupuestario, ibm, servicio)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (no_empleado) DO UPDATE SET
			nombre_completo = EXCLUDED.nombre_completo,
			plaza_nominal = EXCLUDED.plaza_nominal,
			renglon_presupuestario = EXCLUDED.renglon_presupuestario,
			ibm = CASE WHEN EXCLUDED.ibm = '' THEN personal_info.ibm ELSE EXCLUDED.ibm END,
			servicio = CASE WHEN EXCLUDED.servicio = '' THEN personal_info.servicio ELSE EXCLUDED.servicio END,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		e.EmployeeNumber, e.FullName, e.Position, e.BudgetLine, e.IBM, e.Service,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}
