package submission

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the submission row and all answer rows. Callers wrap it
	// in a transaction; no partial answer set may survive a failure.
	Create(ctx context.Context, s *Submission, answers []*Answer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Submission, []*Answer, error)
	ExistsForFormPatient(ctx context.Context, formID uuid.UUID, patientID string) (bool, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Submission, int, error)
}
