package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

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

const templateCols = `id, name, description, created_by, location_id, created_at, updated_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedBy, &t.LocationID,
		&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func encodeOptions(options []string) (*string, error) {
	if options == nil {
		return nil, nil
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	s := string(raw)
	return &s, nil
}

func decodeOptions(raw *string) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	var options []string
	if err := json.Unmarshal([]byte(*raw), &options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return options, nil
}

func (r *repoPG) insertField(ctx context.Context, f *Field) error {
	f.ID = uuid.New()
	options, err := encodeOptions(f.Options)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO custom_form_fields (id, form_id, label, kind, required, display_order, options, section)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		f.ID, f.TemplateID, f.Label, f.Kind, f.Required, f.DisplayOrder, options, f.Section)
	return err
}

func (r *repoPG) Create(ctx context.Context, t *Template, fields []*Field) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO custom_forms (id, name, description, created_by, location_id)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.Name, t.Description, t.CreatedBy, t.LocationID)
	if err != nil {
		return err
	}
	for _, f := range fields {
		f.TemplateID = t.ID
		if err := r.insertField(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	return scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM custom_forms WHERE id = $1`, id))
}

func (r *repoPG) GetFields(ctx context.Context, templateID uuid.UUID) ([]*Field, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, form_id, label, kind, required, display_order, options, section
		FROM custom_form_fields WHERE form_id = $1
		ORDER BY display_order ASC`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []*Field
	for rows.Next() {
		var f Field
		var options *string
		if err := rows.Scan(&f.ID, &f.TemplateID, &f.Label, &f.Kind, &f.Required,
			&f.DisplayOrder, &options, &f.Section); err != nil {
			return nil, err
		}
		if f.Options, err = decodeOptions(options); err != nil {
			return nil, err
		}
		fields = append(fields, &f)
	}
	return fields, rows.Err()
}

func (r *repoPG) ReplaceFields(ctx context.Context, templateID uuid.UUID, fields []*Field) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM custom_form_fields WHERE form_id = $1`, templateID); err != nil {
		return err
	}
	for _, f := range fields {
		f.TemplateID = templateID
		if err := r.insertField(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, t *Template) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE custom_forms SET name=$2, description=$3, location_id=$4, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Description, t.LocationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	// custom_form_fields rows go with it via ON DELETE CASCADE.
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM custom_forms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Template, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM custom_forms`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+templateCols+` FROM custom_forms ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}
