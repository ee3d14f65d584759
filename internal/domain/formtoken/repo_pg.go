package formtoken

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

const cols = `id, token, form_id, patient_id, location_id, method, created_at`

func scan(row pgx.Row) (*Token, error) {
	var t Token
	err := row.Scan(&t.ID, &t.Token, &t.TemplateID, &t.PatientID, &t.LocationID,
		&t.Method, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Token) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO custom_form_tokens (id, token, form_id, patient_id, location_id, method)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.Token, t.TemplateID, t.PatientID, t.LocationID, t.Method)
	return err
}

func (r *repoPG) GetByToken(ctx context.Context, token string) (*Token, error) {
	return scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM custom_form_tokens WHERE token = $1`, token))
}

func (r *repoPG) ListPendingForPatient(ctx context.Context, patientID string) ([]*Summary, error) {
	// Anti-join against submissions: a (form, patient) pair with any
	// submission is no longer pending, though the token row stays.
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT t.id, t.token, t.form_id, f.name, t.method, t.created_at
		FROM custom_form_tokens t
		JOIN custom_forms f ON f.id = t.form_id
		WHERE t.patient_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM form_submissions s
			WHERE s.form_id = t.form_id AND s.patient_id = t.patient_id
		  )
		ORDER BY t.created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Token, &s.FormID, &s.FormName, &s.Method, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM custom_form_tokens WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
