package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wckliment/ikon-practice-sub001/internal/config"
	"github.com/wckliment/ikon-practice-sub001/internal/domain/form"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/opendental"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/pdfgen"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/snapshots"
)

// TxRunner executes fn inside one database transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// TemplateReader supplies the field definitions used to validate and shape
// the answer set.
type TemplateReader interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (*form.Template, []*form.Field, error)
}

// DiscrepancyLogger records submitted-vs-on-file mismatches. Implementations
// must swallow their own persistence failures.
type DiscrepancyLogger interface {
	LogIfNeeded(ctx context.Context, patientID, fieldName, submittedValue string, originalValue *string, formName, fieldKind string)
}

// Directory reads and writes the external patient record on behalf of a
// location.
type Directory interface {
	GetPatient(ctx context.Context, locationID uuid.UUID, patNum string) (*opendental.Patient, error)
	UpdatePatient(ctx context.Context, locationID uuid.UUID, patNum string, fields map[string]string) error
}

// Renderer builds the archival PDF for a completed form.
type Renderer interface {
	Render(patient *pdfgen.PatientInfo, fields []pdfgen.FieldValue, formTitle string) ([]byte, error)
}

type Service struct {
	repo      Repository
	tx        TxRunner
	templates TemplateReader
	recon     DiscrepancyLogger
	directory Directory
	renderer  Renderer
	store     snapshots.Store
	duplicate string
	log       zerolog.Logger
}

func NewService(repo Repository, tx TxRunner, templates TemplateReader, recon DiscrepancyLogger, directory Directory, renderer Renderer, store snapshots.Store, duplicatePolicy string, log zerolog.Logger) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	if duplicatePolicy == "" {
		duplicatePolicy = config.DuplicateAllow
	}
	return &Service{
		repo:      repo,
		tx:        tx,
		templates: templates,
		recon:     recon,
		directory: directory,
		renderer:  renderer,
		store:     store,
		duplicate: duplicatePolicy,
		log:       log,
	}
}

// Submit records one completed fill-out. The answer set is written in a
// single transaction; everything after that write (reconciliation, the PDF
// snapshot) is best effort and never rolls the submission back.
func (s *Service) Submit(ctx context.Context, req *Request) (*Submission, error) {
	tmpl, fields, err := s.templates.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if len(req.Answers) == 0 {
		return nil, fmt.Errorf("%w: no answers submitted", ErrValidation)
	}

	if s.duplicate == config.DuplicateReject && req.PatientID != nil {
		exists, err := s.repo.ExistsForFormPatient(ctx, req.TemplateID, *req.PatientID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicate
		}
	}

	answers, err := shapeAnswers(fields, req.Answers)
	if err != nil {
		return nil, err
	}

	sub := &Submission{
		TemplateID:    req.TemplateID,
		PatientID:     req.PatientID,
		SubmittedByIP: req.SubmittedByIP,
	}
	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, sub, answers)
	}); err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	// The submission is durable from here on.
	patient := s.fetchPatient(ctx, tmpl, req)
	s.reconcile(ctx, tmpl, answers, req.PatientID, patient)
	s.snapshot(ctx, tmpl, sub.ID, answers, patient)

	return sub, nil
}

// SubmitAndUpload is the staff path: after the submission is durable it also
// posts the mapped demographic answers back to the external patient record.
// The upload is best effort; its failure is logged, not surfaced.
func (s *Service) SubmitAndUpload(ctx context.Context, req *Request) (*Submission, error) {
	sub, err := s.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.PatientID == nil {
		return sub, nil
	}

	tmpl, _, err := s.templates.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return sub, nil
	}
	locID := resolveLocation(tmpl, req)
	if locID == nil {
		s.log.Warn().Str("submission_id", sub.ID.String()).
			Msg("no location for EHR upload, skipping")
		return sub, nil
	}

	_, answers, err := s.repo.GetByID(ctx, sub.ID)
	if err != nil {
		return sub, nil
	}
	upload := make(map[string]string)
	for _, a := range answers {
		if a.Kind == form.KindSignature || a.Kind == form.KindStatic || a.Kind == form.KindMultiChoice {
			continue
		}
		if v := strings.TrimSpace(a.Value); v != "" {
			if _, mapped := (&opendental.Patient{}).FieldValue(a.Label); mapped {
				upload[a.Label] = v
			}
		}
	}
	if err := s.directory.UpdatePatient(ctx, *locID, *req.PatientID, upload); err != nil {
		s.log.Error().Err(err).Str("submission_id", sub.ID.String()).
			Msg("EHR upload failed")
	}
	return sub, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Submission, []*Answer, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Submission, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// GetPDF returns the archived snapshot for a submission.
func (s *Service) GetPDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return s.store.Get(ctx, id)
}

// shapeAnswers matches inputs to field definitions, encodes multi-choice
// selections as a JSON array, and drops static display fields. Answers keep
// the template's display order.
func shapeAnswers(fields []*form.Field, inputs []AnswerInput) ([]*Answer, error) {
	byID := make(map[uuid.UUID]AnswerInput, len(inputs))
	for _, in := range inputs {
		byID[in.FieldID] = in
	}

	var answers []*Answer
	for _, f := range fields {
		in, ok := byID[f.ID]
		if !ok {
			continue
		}
		delete(byID, f.ID)
		if f.Kind == form.KindStatic {
			continue
		}

		value := in.Value
		if f.Kind == form.KindMultiChoice && in.Values != nil {
			raw, err := json.Marshal(in.Values)
			if err != nil {
				return nil, fmt.Errorf("%w: encode selections for %q", ErrValidation, f.Label)
			}
			value = string(raw)
		}
		answers = append(answers, &Answer{
			FieldID:      f.ID,
			Label:        f.Label,
			Kind:         f.Kind,
			Value:        value,
			DisplayOrder: f.DisplayOrder,
		})
	}
	if len(byID) > 0 {
		for id := range byID {
			return nil, fmt.Errorf("%w: answer references unknown field %s", ErrValidation, id)
		}
	}
	return answers, nil
}

func resolveLocation(tmpl *form.Template, req *Request) *uuid.UUID {
	if req.LocationID != nil {
		return req.LocationID
	}
	return tmpl.LocationID
}

func (s *Service) fetchPatient(ctx context.Context, tmpl *form.Template, req *Request) *opendental.Patient {
	if req.PatientID == nil {
		return nil
	}
	locID := resolveLocation(tmpl, req)
	if locID == nil {
		return nil
	}
	patient, err := s.directory.GetPatient(ctx, *locID, *req.PatientID)
	if err != nil {
		s.log.Error().Err(err).Str("patient_id", *req.PatientID).
			Msg("patient directory fetch failed, reconciling without original values")
		return nil
	}
	return patient
}

// DisplayValue renders an answer value for humans: multi-choice JSON arrays
// come back as a comma-separated listing, everything else verbatim.
func DisplayValue(a *Answer) string {
	if a.Kind != form.KindMultiChoice {
		return a.Value
	}
	var values []string
	if err := json.Unmarshal([]byte(a.Value), &values); err != nil {
		return a.Value
	}
	return strings.Join(values, ", ")
}

func (s *Service) reconcile(ctx context.Context, tmpl *form.Template, answers []*Answer, patientID *string, patient *opendental.Patient) {
	if patientID == nil {
		return
	}
	for _, a := range answers {
		var original *string
		if patient != nil {
			if v, ok := patient.FieldValue(a.Label); ok {
				val := v
				original = &val
			}
		}
		s.recon.LogIfNeeded(ctx, *patientID, a.Label, DisplayValue(a), original, tmpl.Name, a.Kind)
	}
}

func (s *Service) snapshot(ctx context.Context, tmpl *form.Template, submissionID uuid.UUID, answers []*Answer, patient *opendental.Patient) {
	var info *pdfgen.PatientInfo
	if patient != nil {
		info = &pdfgen.PatientInfo{
			LastName:  patient.LName,
			FirstName: patient.FName,
			Birthdate: patient.Birthdate,
		}
	}
	fields := make([]pdfgen.FieldValue, 0, len(answers))
	for _, a := range answers {
		fields = append(fields, pdfgen.FieldValue{
			Name:      a.Label,
			Value:     DisplayValue(a),
			Signature: a.Kind == form.KindSignature,
		})
	}

	pdf, err := s.renderer.Render(info, fields, tmpl.Name)
	if err != nil {
		s.log.Error().Err(err).Str("submission_id", submissionID.String()).
			Msg("pdf render failed, submission kept without snapshot")
		return
	}
	if err := s.store.Put(ctx, submissionID, pdf); err != nil {
		s.log.Error().Err(err).Str("submission_id", submissionID.String()).
			Msg("pdf archive write failed")
	}
}
