package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type orderRepoPG struct {
	pool *pgxpool.Pool
}

func NewOrderRepoPG(pool *pgxpool.Pool) OrderRepository {
	return &orderRepoPG{pool: pool}
}

const orderCols = `id, order_number, accession_number, patient_id, ordering_physician,
	modality, procedure_code, clinical_indication, priority, status, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.AccessionNumber, &o.PatientID,
		&o.OrderingPhysician, &o.Modality, &o.ProcedureCode, &o.ClinicalIndication,
		&o.Priority, &o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *orderRepoPG) Create(ctx context.Context, o *Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO imaging_order (id, order_number, accession_number, patient_id,
			ordering_physician, modality, procedure_code, clinical_indication,
			priority, status, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.OrderNumber, o.AccessionNumber, o.PatientID,
		o.OrderingPhysician, o.Modality, o.ProcedureCode, o.ClinicalIndication,
		o.Priority, o.Status, o.CreatedBy)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateNumber
	}
	return err
}

func (r *orderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderCols+` FROM imaging_order WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepoPG) Update(ctx context.Context, o *Order) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE imaging_order SET ordering_physician=$2, modality=$3, procedure_code=$4,
			clinical_indication=$5, priority=$6, status=$7, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.OrderingPhysician, o.Modality, o.ProcedureCode,
		o.ClinicalIndication, o.Priority, o.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepoPG) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Order, int, error) {
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
	if params.Status != "" {
		add("status = $%d", params.Status)
	}
	if params.Modality != "" {
		add("modality = $%d", params.Modality)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM imaging_order WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM imaging_order WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderCols, cond, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}
