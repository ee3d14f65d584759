package submission

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

func (r *repoPG) Create(ctx context.Context, s *Submission, answers []*Answer) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO form_submissions (id, form_id, patient_id, submitted_by_ip)
		VALUES ($1,$2,$3,$4)`,
		s.ID, s.TemplateID, s.PatientID, s.SubmittedByIP)
	if err != nil {
		return err
	}
	for _, a := range answers {
		a.ID = uuid.New()
		a.SubmissionID = s.ID
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO form_submission_answers (id, submission_id, field_id, label, kind, value, display_order)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			a.ID, a.SubmissionID, a.FieldID, a.Label, a.Kind, a.Value, a.DisplayOrder); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Submission, []*Answer, error) {
	var s Submission
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, form_id, patient_id, submitted_by_ip, created_at
		FROM form_submissions WHERE id = $1`, id).
		Scan(&s.ID, &s.TemplateID, &s.PatientID, &s.SubmittedByIP, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	// Answers read back in the template's order, not insertion order.
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, submission_id, field_id, label, kind, value, display_order
		FROM form_submission_answers WHERE submission_id = $1
		ORDER BY display_order`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var answers []*Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.FieldID, &a.Label, &a.Kind, &a.Value, &a.DisplayOrder); err != nil {
			return nil, nil, err
		}
		answers = append(answers, &a)
	}
	return &s, answers, rows.Err()
}

func (r *repoPG) ExistsForFormPatient(ctx context.Context, formID uuid.UUID, patientID string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM form_submissions WHERE form_id = $1 AND patient_id = $2
		)`, formID, patientID).Scan(&exists)
	return exists, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Submission, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM form_submissions WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, form_id, patient_id, submitted_by_ip, created_at
		FROM form_submissions WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.TemplateID, &s.PatientID, &s.SubmittedByIP, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &s)
	}
	return items, total, rows.Err()
}
