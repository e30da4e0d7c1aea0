package equipment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type equipmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewEquipmentRepoPG(pool *pgxpool.Pool) EquipmentRepository {
	return &equipmentRepoPG{pool: pool}
}

const equipmentCols = `id, name, modality, room, manufacturer, model_number, active, created_at, updated_at`

func scanEquipment(row pgx.Row) (*Equipment, error) {
	var e Equipment
	err := row.Scan(&e.ID, &e.Name, &e.Modality, &e.Room, &e.Manufacturer,
		&e.ModelNumber, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *equipmentRepoPG) Create(ctx context.Context, e *Equipment) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO equipment (id, name, modality, room, manufacturer, model_number, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.Name, e.Modality, e.Room, e.Manufacturer, e.ModelNumber, e.Active)
	return err
}

func (r *equipmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	e, err := scanEquipment(r.pool.QueryRow(ctx,
		`SELECT `+equipmentCols+` FROM equipment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *equipmentRepoPG) Update(ctx context.Context, e *Equipment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE equipment SET name=$2, modality=$3, room=$4, manufacturer=$5,
			model_number=$6, active=$7, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.Name, e.Modality, e.Room, e.Manufacturer, e.ModelNumber, e.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *equipmentRepoPG) Bookable(ctx context.Context, id uuid.UUID) (bool, error) {
	var bookable bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM equipment WHERE id = $1 AND active)`, id).Scan(&bookable)
	return bookable, err
}

func (r *equipmentRepoPG) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Equipment, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	idx := 1

	add := func(clause string, value interface{}) {
		where = append(where, fmt.Sprintf(clause, idx))
		args = append(args, value)
		idx++
	}
	if params.Modality != "" {
		add("modality = $%d", params.Modality)
	}
	if params.Active != nil {
		add("active = $%d", *params.Active)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM equipment WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM equipment WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`,
		equipmentCols, cond, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
