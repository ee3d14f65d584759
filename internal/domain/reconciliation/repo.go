package reconciliation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	// ListPendingForPatient returns unresolved entries, newest first.
	ListPendingForPatient(ctx context.Context, patientID string, limit, offset int) ([]*Entry, int, error)
	Resolve(ctx context.Context, id uuid.UUID) error
}
