package submission

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("submission not found")
	ErrValidation = errors.New("invalid submission")
	// ErrDuplicate is returned under the reject policy when a submission
	// already exists for the same (form, patient) pair.
	ErrDuplicate = errors.New("form already submitted for this patient")
)

// Submission maps to the form_submissions table.
type Submission struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TemplateID    uuid.UUID `db:"form_id" json:"form_id"`
	PatientID     *string   `db:"patient_id" json:"patient_id,omitempty"`
	SubmittedByIP *string   `db:"submitted_by_ip" json:"submitted_by_ip,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Answer maps to the form_submission_answers table. Label, Kind and
// DisplayOrder are denormalized from the field definition at submission time
// so stored answers survive later template edits and read back in the
// template's order. Multi-choice answers hold a JSON array in Value;
// everything else is plain text.
type Answer struct {
	ID           uuid.UUID `db:"id" json:"id"`
	SubmissionID uuid.UUID `db:"submission_id" json:"submission_id"`
	FieldID      uuid.UUID `db:"field_id" json:"field_id"`
	Label        string    `db:"label" json:"label"`
	Kind         string    `db:"kind" json:"kind"`
	Value        string    `db:"value" json:"value"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
}

// AnswerInput is one submitted answer. Values is set for multi-choice
// fields; Value for everything else.
type AnswerInput struct {
	FieldID uuid.UUID `json:"field_id"`
	Value   string    `json:"value"`
	Values  []string  `json:"values,omitempty"`
}

// Request is the input to Submit.
type Request struct {
	TemplateID    uuid.UUID
	PatientID     *string
	LocationID    *uuid.UUID
	SubmittedByIP *string
	Answers       []AnswerInput
}
