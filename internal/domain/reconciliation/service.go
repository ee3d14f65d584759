package reconciliation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wckliment/ikon-practice-sub001/internal/domain/form"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func normalize(v string) string {
	return strings.TrimSpace(v)
}

// LogIfNeeded records a discrepancy between a submitted answer and the value
// on file. It is a no-op when the submitted value is empty, equals the
// original after normalization, or the field kind never reconciles
// (signature, static text). A persistence failure is logged and swallowed:
// the audit trail must never abort the submission that feeds it.
func (s *Service) LogIfNeeded(ctx context.Context, patientID, fieldName, submittedValue string, originalValue *string, formName, fieldKind string) {
	if fieldKind == form.KindSignature || fieldKind == form.KindStatic {
		return
	}
	submitted := normalize(submittedValue)
	if submitted == "" {
		return
	}
	if originalValue != nil && normalize(*originalValue) == submitted {
		return
	}

	e := &Entry{
		PatientID:      patientID,
		FieldName:      fieldName,
		SubmittedValue: submitted,
		OriginalValue:  originalValue,
		FormName:       formName,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		s.log.Error().Err(err).
			Str("patient_id", patientID).
			Str("field_name", fieldName).
			Msg("reconciliation entry write failed")
	}
}

// Record inserts an entry directly, for the boundary endpoint that lets
// staff file a discrepancy by hand.
func (s *Service) Record(ctx context.Context, e *Entry) error {
	if e.PatientID == "" {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if e.FieldName == "" {
		return fmt.Errorf("%w: field_name is required", ErrValidation)
	}
	if normalize(e.SubmittedValue) == "" {
		return fmt.Errorf("%w: submitted_value is required", ErrValidation)
	}
	return s.repo.Create(ctx, e)
}

func (s *Service) ListPendingForPatient(ctx context.Context, patientID string, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListPendingForPatient(ctx, patientID, limit, offset)
}

// Resolve flips the resolved flag. Entries are never deleted.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) error {
	return s.repo.Resolve(ctx, id)
}
