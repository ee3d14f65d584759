package formtoken

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wckliment/ikon-practice-sub001/internal/domain/form"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/opendental"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/realtime"
)

// TemplateReader supplies the form definition a token points at.
type TemplateReader interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (*form.Template, []*form.Field, error)
}

// Directory reads patients from the external system of record on behalf of a
// location. Implementations resolve the location's credential pair and fail
// fast when it is incomplete.
type Directory interface {
	GetPatient(ctx context.Context, locationID uuid.UUID, patNum string) (*opendental.Patient, error)
}

type Service struct {
	repo      Repository
	templates TemplateReader
	directory Directory
	publisher realtime.Publisher
	baseURL   string
	log       zerolog.Logger
}

func NewService(repo Repository, templates TemplateReader, directory Directory, publisher realtime.Publisher, baseURL string, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		templates: templates,
		directory: directory,
		publisher: publisher,
		baseURL:   baseURL,
		log:       log,
	}
}

func (s *Service) link(token string) string {
	return s.baseURL + "/forms/" + token
}

// Issue creates a token for a form, optionally bound to a patient and
// location, and returns it with its share link.
func (s *Service) Issue(ctx context.Context, templateID uuid.UUID, patientID *string, locationID *uuid.UUID, method string) (*Issued, error) {
	if templateID == uuid.Nil {
		return nil, fmt.Errorf("%w: form id is required", ErrValidation)
	}
	if method == "" {
		method = MethodWebsite
	}
	if !validMethods[method] {
		return nil, fmt.Errorf("%w: unknown delivery method %q", ErrValidation, method)
	}
	if _, _, err := s.templates.GetTemplate(ctx, templateID); err != nil {
		return nil, err
	}

	t := &Token{
		Token:      uuid.NewString(),
		TemplateID: templateID,
		PatientID:  patientID,
		LocationID: locationID,
		Method:     method,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return &Issued{Token: t, Link: s.link(t.Token)}, nil
}

// Resolve joins the token to its form definition and, when a patient is
// attached, enriches the bundle with directory demographics. A directory
// failure is logged and the bundle returned without patient data; the form
// must stay fillable when the EHR is down.
func (s *Service) Resolve(ctx context.Context, token string) (*Resolved, error) {
	t, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	tmpl, fields, err := s.templates.GetTemplate(ctx, t.TemplateID)
	if err != nil {
		return nil, err
	}

	resolved := &Resolved{Form: tmpl, Fields: fields, Method: t.Method}

	if t.PatientID != nil {
		locID := t.LocationID
		if locID == nil {
			// Fall back to the authoring location denormalized on the form.
			locID = tmpl.LocationID
		}
		if locID == nil {
			s.log.Warn().Str("token", t.Token).Msg("token has no resolvable location, patient data omitted")
			return resolved, nil
		}
		patient, err := s.directory.GetPatient(ctx, *locID, *t.PatientID)
		if err != nil {
			s.log.Error().Err(err).Str("token", t.Token).Str("patient_id", *t.PatientID).
				Msg("patient directory fetch failed, patient data omitted")
			return resolved, nil
		}
		resolved.Patient = patient
	}
	return resolved, nil
}

// ListPendingForPatient returns the patient's not-yet-submitted tokens,
// newest first.
func (s *Service) ListPendingForPatient(ctx context.Context, patientID string) ([]*Summary, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient id is required", ErrValidation)
	}
	return s.repo.ListPendingForPatient(ctx, patientID)
}

// Delete hard-deletes a token row. Staff cancel action; submissions never
// delete tokens implicitly.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

type tabletAssignment struct {
	Token       string `json:"token"`
	FormID      string `json:"form_id"`
	FormName    string `json:"form_name"`
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name,omitempty"`
}

// SendTablet issues a tablet token. Unlike Issue, both the patient and the
// location are mandatory, and a notification is published to the location's
// channel so an idle tablet picks the form up. Publishing is
// fire-and-forget.
func (s *Service) SendTablet(ctx context.Context, templateID uuid.UUID, patientID string, locationID uuid.UUID) (*Issued, string, error) {
	if templateID == uuid.Nil {
		return nil, "", fmt.Errorf("%w: form id is required", ErrValidation)
	}
	if patientID == "" {
		return nil, "", fmt.Errorf("%w: patient id is required for tablet delivery", ErrValidation)
	}
	if locationID == uuid.Nil {
		return nil, "", fmt.Errorf("%w: location id is required for tablet delivery", ErrValidation)
	}

	tmpl, _, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, "", err
	}

	// Tablet delivery needs a working directory client up front; a location
	// without its credential pair fails here, not on the tablet.
	patient, err := s.directory.GetPatient(ctx, locationID, patientID)
	if err != nil {
		return nil, "", err
	}

	issued, err := s.Issue(ctx, templateID, &patientID, &locationID, MethodTablet)
	if err != nil {
		return nil, "", err
	}

	payload, _ := json.Marshal(tabletAssignment{
		Token:       issued.Token.Token,
		FormID:      templateID.String(),
		FormName:    tmpl.Name,
		PatientID:   patientID,
		PatientName: patient.DisplayName(),
	})
	event := realtime.Event{
		Type:  realtime.EventFormAssigned,
		Topic: realtime.LocationTopic(locationID.String()),
		Data:  payload,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error().Err(err).Str("location_id", locationID.String()).
			Msg("tablet notification publish failed")
	}

	message := fmt.Sprintf("%s sent to tablet for %s", tmpl.Name, patient.DisplayName())
	return issued, message, nil
}
