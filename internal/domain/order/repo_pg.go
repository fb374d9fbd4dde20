package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// -- Patient orders --

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, fecha, nombre_completo_paciente, afiliacion_cui, no_cama,
	servicio, tipo_dieta, desayuno, almuerzo, cena, refaccion_am, refaccion_pm,
	refaccion_nocturna, justificacion, nombre_solicitante, nombre_paciente_firma,
	created_at, updated_at`

func scanPatient(row pgx.Row) (PatientOrder, error) {
	var p PatientOrder
	err := row.Scan(&p.ID, &p.Date, &p.FullName, &p.Affiliation, &p.Bed,
		&p.Service, &p.DietType, &p.Breakfast, &p.Lunch, &p.Dinner,
		&p.MorningSnack, &p.AfternoonSnack, &p.NightSnack,
		&p.Justification, &p.RequesterName, &p.PatientSignatureName,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *patientRepoPG) List(ctx context.Context) ([]PatientOrder, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+patientCols+` FROM patient_food_orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list patient orders: %w", err)
	}
	return collect(rows, scanPatient)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (PatientOrder, error) {
	p, err := scanPatient(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patient_food_orders WHERE id = $1`, id))
	return p, notFound(err)
}

func (r *patientRepoPG) Create(ctx context.Context, p PatientOrder) (PatientOrder, error) {
	return scanPatient(conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient_food_orders (fecha, nombre_completo_paciente, afiliacion_cui,
			no_cama, servicio, tipo_dieta, desayuno, almuerzo, cena, refaccion_am,
			refaccion_pm, refaccion_nocturna, justificacion, nombre_solicitante,
			nombre_paciente_firma)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING `+patientCols,
		p.Date, p.FullName, p.Affiliation, p.Bed, p.Service, p.DietType,
		p.Breakfast, p.Lunch, p.Dinner, p.MorningSnack, p.AfternoonSnack,
		p.NightSnack, p.Justification, p.RequesterName, p.PatientSignatureName))
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM patient_food_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// -- Staff orders --

type staffRepoPG struct{ pool *pgxpool.Pool }

func NewStaffRepoPG(pool *pgxpool.Pool) StaffRepository {
	return &staffRepoPG{pool: pool}
}

const staffCols = `id, fecha, nombre_completo_personal, no_empleado, ibm, servicio,
	cargo, tipo_dieta, desayuno, almuerzo, cena, refaccion_nocturna, justificacion,
	nombre_solicitante, nombre_colaborador, nombre_aprobador, created_at, updated_at`

func scanStaff(row pgx.Row) (StaffOrder, error) {
	var s StaffOrder
	err := row.Scan(&s.ID, &s.Date, &s.FullName, &s.EmployeeNumber, &s.IBM,
		&s.Service, &s.Position, &s.DietType, &s.Breakfast, &s.Lunch, &s.Dinner,
		&s.NightSnack, &s.Justification, &s.RequesterName, &s.CollaboratorName,
		&s.ApproverName, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *staffRepoPG) List(ctx context.Context) ([]StaffOrder, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+staffCols+` FROM staff_food_orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list staff orders: %w", err)
	}
	return collect(rows, scanStaff)
}

func (r *staffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (StaffOrder, error) {
	s, err := scanStaff(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+staffCols+` FROM staff_food_orders WHERE id = $1`, id))
	return s, notFound(err)
}

func (r *staffRepoPG) Create(ctx context.Context, s StaffOrder) (StaffOrder, error) {
	return scanStaff(conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO staff_food_orders (fecha, nombre_completo_personal, no_empleado, ibm,
			servicio, cargo, tipo_dieta, desayuno, almuerzo, cena, refaccion_nocturna,
			justificacion, nombre_solicitante, nombre_colaborador, nombre_aprobador)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING `+staffCols,
		s.Date, s.FullName, s.EmployeeNumber, s.IBM, s.Service, s.Position,
		s.DietType, s.Breakfast, s.Lunch, s.Dinner, s.NightSnack, s.Justification,
		s.RequesterName, s.CollaboratorName, s.ApproverName))
}

func (r *staffRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM staff_food_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
