package location

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wckliment/ikon-practice-sub001/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const cols = `id, name, code, address_line, city, state, zip, phone,
	customer_key, developer_key, created_at, updated_at`

func scan(row pgx.Row) (*Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.Name, &l.Code, &l.AddressLine, &l.City, &l.State,
		&l.Zip, &l.Phone, &l.CustomerKey, &l.DeveloperKey, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &l, err
}

func (r *repoPG) Create(ctx context.Context, l *Location) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO locations (id, name, code, address_line, city, state, zip, phone,
			customer_key, developer_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		l.ID, l.Name, l.Code, l.AddressLine, l.City, l.State, l.Zip, l.Phone,
		l.CustomerKey, l.DeveloperKey)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM locations WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Location, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM locations WHERE code = $1`, code))
}

func (r *repoPG) Update(ctx context.Context, l *Location) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE locations SET name=$2, code=$3, address_line=$4, city=$5, state=$6,
			zip=$7, phone=$8, customer_key=$9, developer_key=$10, updated_at=NOW()
		WHERE id = $1`,
		l.ID, l.Name, l.Code, l.AddressLine, l.City, l.State, l.Zip, l.Phone,
		l.CustomerKey, l.DeveloperKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Location, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM locations`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+cols+` FROM locations ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Location
	for rows.Next() {
		l, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}
