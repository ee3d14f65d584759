package formtoken

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Token) error
	GetByToken(ctx context.Context, token string) (*Token, error)
	// ListPendingForPatient returns the patient's tokens that have no
	// submission yet for the same (form, patient) pair, newest first.
	ListPendingForPatient(ctx context.Context, patientID string) ([]*Summary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
