package reconciliation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("reconciliation entry not found")
	ErrValidation = errors.New("invalid reconciliation entry")
)

// Entry maps to the reconciled_form_data table. FieldName is the template's
// human-readable label, denormalized on purpose so review screens don't need
// the form to still exist. OriginalValue is nil when the directory had no
// prior value.
type Entry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      string    `db:"patient_id" json:"patient_id"`
	FieldName      string    `db:"field_name" json:"field_name"`
	SubmittedValue string    `db:"submitted_value" json:"submitted_value"`
	OriginalValue  *string   `db:"original_value" json:"original_value,omitempty"`
	FormName       string    `db:"form_name" json:"form_name"`
	Resolved       bool      `db:"resolved" json:"resolved"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
