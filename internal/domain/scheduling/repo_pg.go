package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ris/ris/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type appointmentRepoPG struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewAppointmentRepoPG returns the PostgreSQL-backed appointment
// repository. lockTimeout bounds how long InResourceTx waits for the
// per-equipment lock before failing with ErrStoreBusy.
func NewAppointmentRepoPG(pool *pgxpool.Pool, lockTimeout time.Duration) AppointmentRepository {
	return &appointmentRepoPG{pool: pool, lockTimeout: lockTimeout}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, appointment_number, equipment_id, patient_id, order_id, technologist_id,
	start_time, duration_minutes, status, notes, created_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.AppointmentNumber, &a.EquipmentID, &a.PatientID, &a.OrderID,
		&a.TechnologistID, &a.StartTime, &a.DurationMinutes, &a.Status, &a.Notes,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, appointment_number, equipment_id, patient_id, order_id,
			technologist_id, start_time, duration_minutes, status, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.AppointmentNumber, a.EquipmentID, a.PatientID, a.OrderID,
		a.TechnologistID, a.StartTime, a.DurationMinutes, a.Status, a.Notes, a.CreatedBy)
	return mapPgError(err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET equipment_id=$2, order_id=$3, technologist_id=$4,
			start_time=$5, duration_minutes=$6, status=$7, notes=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.EquipmentID, a.OrderID, a.TechnologistID,
		a.StartTime, a.DurationMinutes, a.Status, a.Notes)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) UpdateDetails(ctx context.Context, id uuid.UUID, orderID, technologistID *uuid.UUID, notes *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET order_id=$2, technologist_id=$3, notes=$4, updated_at=NOW()
		WHERE id = $1`,
		id, orderID, technologistID, notes)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status=$2, notes=COALESCE($3, notes), updated_at=NOW()
		WHERE id = $1`,
		id, status, notes)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) HasConflict(ctx context.Context, equipmentID uuid.UUID, start time.Time, durationMinutes int, excludeID *uuid.UUID) (bool, error) {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	var conflict bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE equipment_id = $1
			  AND status NOT IN ('cancelled','completed')
			  AND start_time < $3
			  AND start_time + make_interval(mins => duration_minutes) > $2
			  AND ($4::uuid IS NULL OR id <> $4)
		)`, equipmentID, start, end, excludeID).Scan(&conflict)
	if err != nil {
		return false, mapPgError(err)
	}
	return conflict, nil
}

func (r *appointmentRepoPG) LastNumberForPrefix(ctx context.Context, prefix string) (string, error) {
	var last string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT appointment_number FROM appointment
		WHERE appointment_number LIKE $1 || '%'
		ORDER BY appointment_number DESC
		LIMIT 1`, prefix).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", mapPgError(err)
	}
	return last, nil
}

func (r *appointmentRepoPG) ListActiveInRange(ctx context.Context, equipmentID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointment
		WHERE equipment_id = $1
		  AND status NOT IN ('cancelled','completed')
		  AND start_time < $3
		  AND start_time + make_interval(mins => duration_minutes) > $2
		ORDER BY start_time`, equipmentID, from, to)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Appointment, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	idx := 1

	add := func(clause string, value interface{}) {
		where = append(where, fmt.Sprintf(clause, idx))
		args = append(args, value)
		idx++
	}
	if params.PatientID != nil {
		add("patient_id = $%d", *params.PatientID)
	}
	if params.EquipmentID != nil {
		add("equipment_id = $%d", *params.EquipmentID)
	}
	if params.Status != nil {
		add("status = $%d", *params.Status)
	}
	if params.From != nil {
		add("start_time >= $%d", *params.From)
	}
	if params.To != nil {
		add("start_time <= $%d", *params.To)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, mapPgError(err)
	}

	query := fmt.Sprintf(`SELECT %s FROM appointment WHERE %s ORDER BY start_time LIMIT $%d OFFSET $%d`,
		apptCols, cond, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

// InResourceTx serializes admissions per equipment with a
// transaction-scoped advisory lock keyed by the equipment id. The lock
// wait is bounded by SET LOCAL lock_timeout; a timeout surfaces as
// ErrStoreBusy without running fn.
func (r *appointmentRepoPG) InResourceTx(ctx context.Context, equipmentID uuid.UUID, fn func(ctx context.Context) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return mapPgError(err)
	}
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended('equipment:' || $1::text, 0))`,
		equipmentID); err != nil {
		return mapPgError(err)
	}

	if err := fn(db.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

// mapPgError translates PostgreSQL failure codes into the package's
// error taxonomy. Anything unrecognized passes through unchanged.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		if strings.Contains(pgErr.ConstraintName, "appointment_number") {
			return ErrDuplicateNumber
		}
	case "23503": // foreign_key_violation
		if strings.Contains(pgErr.ConstraintName, "patient") {
			return ErrPatientNotFound
		}
	case "55P03", "40001", "40P01": // lock timeout, serialization, deadlock
		return fmt.Errorf("%w: %s", ErrStoreBusy, pgErr.Code)
	}
	return err
}
