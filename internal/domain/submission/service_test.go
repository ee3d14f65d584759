package submission

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wckliment/ikon-practice-sub001/internal/config"
	"github.com/wckliment/ikon-practice-sub001/internal/domain/form"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/opendental"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/pdfgen"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/snapshots"
)

// ── Mocks ──

type mockRepo struct {
	submissions map[uuid.UUID]*Submission
	answers     map[uuid.UUID][]*Answer
	createErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		submissions: make(map[uuid.UUID]*Submission),
		answers:     make(map[uuid.UUID][]*Answer),
	}
}

func (m *mockRepo) Create(_ context.Context, s *Submission, answers []*Answer) error {
	if m.createErr != nil {
		return m.createErr
	}
	s.ID = uuid.New()
	for _, a := range answers {
		a.ID = uuid.New()
		a.SubmissionID = s.ID
	}
	m.submissions[s.ID] = s
	m.answers[s.ID] = answers
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Submission, []*Answer, error) {
	s, ok := m.submissions[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return s, m.answers[id], nil
}

func (m *mockRepo) ExistsForFormPatient(_ context.Context, formID uuid.UUID, patientID string) (bool, error) {
	for _, s := range m.submissions {
		if s.TemplateID == formID && s.PatientID != nil && *s.PatientID == patientID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID string, limit, offset int) ([]*Submission, int, error) {
	var out []*Submission
	for _, s := range m.submissions {
		if s.PatientID != nil && *s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

type mockTemplates struct {
	templates map[uuid.UUID]*form.Template
	fields    map[uuid.UUID][]*form.Field
}

func (m *mockTemplates) GetTemplate(_ context.Context, id uuid.UUID) (*form.Template, []*form.Field, error) {
	if t, ok := m.templates[id]; ok {
		return t, m.fields[id], nil
	}
	return nil, nil, form.ErrNotFound
}

type reconCall struct {
	patientID string
	fieldName string
	submitted string
	original  *string
	kind      string
}

type mockRecon struct {
	calls []reconCall
}

func (m *mockRecon) LogIfNeeded(_ context.Context, patientID, fieldName, submittedValue string, originalValue *string, formName, fieldKind string) {
	m.calls = append(m.calls, reconCall{
		patientID: patientID,
		fieldName: fieldName,
		submitted: submittedValue,
		original:  originalValue,
		kind:      fieldKind,
	})
}

type mockDirectory struct {
	patient   *opendental.Patient
	getErr    error
	updateErr error
	uploaded  map[string]string
}

func (m *mockDirectory) GetPatient(_ context.Context, locationID uuid.UUID, patNum string) (*opendental.Patient, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.patient, nil
}

func (m *mockDirectory) UpdatePatient(_ context.Context, locationID uuid.UUID, patNum string, fields map[string]string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.uploaded = fields
	return nil
}

type mockRenderer struct {
	err    error
	called int
}

func (m *mockRenderer) Render(patient *pdfgen.PatientInfo, fields []pdfgen.FieldValue, formTitle string) ([]byte, error) {
	m.called++
	if m.err != nil {
		return nil, m.err
	}
	return []byte("%PDF-1.4 fake " + formTitle), nil
}

type testEnv struct {
	svc       *Service
	repo      *mockRepo
	recon     *mockRecon
	directory *mockDirectory
	renderer  *mockRenderer
	store     *snapshots.MemoryStore

	formID   uuid.UUID
	locID    uuid.UUID
	emailID  uuid.UUID
	allergID uuid.UUID
	sigID    uuid.UUID
	staticID uuid.UUID
}

func newTestEnv(policy string) *testEnv {
	env := &testEnv{
		repo:      newMockRepo(),
		recon:     &mockRecon{},
		renderer:  &mockRenderer{},
		store:     snapshots.NewMemoryStore(),
		formID:    uuid.New(),
		locID:     uuid.New(),
		emailID:   uuid.New(),
		allergID:  uuid.New(),
		sigID:     uuid.New(),
		staticID:  uuid.New(),
	}
	env.directory = &mockDirectory{patient: &opendental.Patient{
		PatNum: "42", FName: "Jane", LName: "Doe", Email: "old@example.com",
	}}
	templates := &mockTemplates{
		templates: map[uuid.UUID]*form.Template{
			env.formID: {ID: env.formID, Name: "Medical History Update", LocationID: &env.locID},
		},
		fields: map[uuid.UUID][]*form.Field{
			env.formID: {
				{ID: env.staticID, Label: "Instructions", Kind: form.KindStatic, DisplayOrder: 1},
				{ID: env.emailID, Label: "Email", Kind: form.KindText, DisplayOrder: 2},
				{ID: env.allergID, Label: "Allergies", Kind: form.KindMultiChoice, DisplayOrder: 3,
					Options: []string{"Penicillin", "Latex", "None, that I know of"}},
				{ID: env.sigID, Label: "Signature", Kind: form.KindSignature, DisplayOrder: 4},
			},
		},
	}
	env.svc = NewService(env.repo, nil, templates, env.recon, env.directory, env.renderer, env.store, policy, zerolog.Nop())
	return env
}

func (env *testEnv) request(patientID string) *Request {
	req := &Request{
		TemplateID: env.formID,
		Answers: []AnswerInput{
			{FieldID: env.emailID, Value: "new@example.com"},
			{FieldID: env.allergID, Values: []string{"Penicillin", "None, that I know of"}},
			{FieldID: env.sigID, Value: "data:image/png;base64,AAAA"},
		},
	}
	if patientID != "" {
		req.PatientID = &patientID
	}
	return req
}

// ── Submit ──

func TestSubmit(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	sub, err := env.svc.Submit(context.Background(), env.request("42"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	answers := env.repo.answers[sub.ID]
	if len(answers) != 3 {
		t.Fatalf("expected 3 answers (static dropped), got %d", len(answers))
	}
	if answers[0].Label != "Email" {
		t.Errorf("answers must keep template display order, got %q first", answers[0].Label)
	}
	if answers[1].Value != `["Penicillin","None, that I know of"]` {
		t.Errorf("multi-choice not JSON encoded: %q", answers[1].Value)
	}

	if _, err := env.store.Get(context.Background(), sub.ID); err != nil {
		t.Errorf("expected a pdf snapshot: %v", err)
	}
}

func TestSubmit_AnswersCarryFieldOrdinals(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	req := env.request("42")
	// Arrival order must not matter; the stored ordinal comes from the field
	// definition so reads can sort by it.
	req.Answers[0], req.Answers[2] = req.Answers[2], req.Answers[0]

	sub, err := env.svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	answers := env.repo.answers[sub.ID]
	want := map[string]int{"Email": 2, "Allergies": 3, "Signature": 4}
	for _, a := range answers {
		if a.DisplayOrder != want[a.Label] {
			t.Errorf("%s: expected display order %d, got %d", a.Label, want[a.Label], a.DisplayOrder)
		}
	}
}

func TestSubmit_UnknownForm(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	req := env.request("42")
	req.TemplateID = uuid.New()
	if _, err := env.svc.Submit(context.Background(), req); !errors.Is(err, form.ErrNotFound) {
		t.Errorf("expected form.ErrNotFound, got %v", err)
	}
}

func TestSubmit_NoAnswers(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	req := &Request{TemplateID: env.formID}
	if _, err := env.svc.Submit(context.Background(), req); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestSubmit_UnknownFieldID(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	req := env.request("42")
	req.Answers = append(req.Answers, AnswerInput{FieldID: uuid.New(), Value: "stray"})

	if _, err := env.svc.Submit(context.Background(), req); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(env.repo.submissions) != 0 {
		t.Error("nothing may be stored when an answer references an unknown field")
	}
}

func TestSubmit_RepoFailure(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	env.repo.createErr = fmt.Errorf("deadlock detected")

	_, err := env.svc.Submit(context.Background(), env.request("42"))
	if err == nil {
		t.Fatal("expected error")
	}
	if env.renderer.called != 0 {
		t.Error("no snapshot may be rendered for a failed submission")
	}
	if len(env.recon.calls) != 0 {
		t.Error("no reconciliation may run for a failed submission")
	}
}

// ── Duplicate policy ──

func TestSubmit_DuplicateRejected(t *testing.T) {
	env := newTestEnv(config.DuplicateReject)
	if _, err := env.svc.Submit(context.Background(), env.request("42")); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	_, err := env.svc.Submit(context.Background(), env.request("42"))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestSubmit_DuplicateAllowed(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	if _, err := env.svc.Submit(context.Background(), env.request("42")); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if _, err := env.svc.Submit(context.Background(), env.request("42")); err != nil {
		t.Errorf("allow policy must accept a second submission: %v", err)
	}
}

func TestSubmit_RejectPolicyIgnoresAnonymous(t *testing.T) {
	env := newTestEnv(config.DuplicateReject)
	if _, err := env.svc.Submit(context.Background(), env.request("")); err != nil {
		t.Fatalf("first anonymous submission failed: %v", err)
	}
	if _, err := env.svc.Submit(context.Background(), env.request("")); err != nil {
		t.Errorf("anonymous submissions are never duplicates: %v", err)
	}
}

// ── Reconciliation ──

func TestSubmit_ReconcilesWithOriginals(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	if _, err := env.svc.Submit(context.Background(), env.request("42")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var email *reconCall
	for i := range env.recon.calls {
		if env.recon.calls[i].fieldName == "Email" {
			email = &env.recon.calls[i]
		}
	}
	if email == nil {
		t.Fatal("expected a reconciliation call for Email")
	}
	if email.original == nil || *email.original != "old@example.com" {
		t.Errorf("expected on-file value as original, got %v", email.original)
	}
	if email.submitted != "new@example.com" {
		t.Errorf("wrong submitted value %q", email.submitted)
	}
}

func TestSubmit_MultiChoiceReconcilesAsListing(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	if _, err := env.svc.Submit(context.Background(), env.request("42")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, call := range env.recon.calls {
		if call.fieldName == "Allergies" {
			if call.submitted != "Penicillin, None, that I know of" {
				t.Errorf("expected human-readable listing, got %q", call.submitted)
			}
			return
		}
	}
	t.Fatal("expected a reconciliation call for Allergies")
}

func TestSubmit_DirectoryDownReconcilesWithoutOriginals(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	env.directory.getErr = opendental.ErrUpstream

	sub, err := env.svc.Submit(context.Background(), env.request("42"))
	if err != nil {
		t.Fatalf("EHR outage must not block a submission: %v", err)
	}
	if len(env.recon.calls) == 0 {
		t.Fatal("reconciliation must still run without directory data")
	}
	for _, call := range env.recon.calls {
		if call.original != nil {
			t.Errorf("expected nil originals during an outage, got %v for %s", *call.original, call.fieldName)
		}
	}
	if _, ok := env.repo.submissions[sub.ID]; !ok {
		t.Error("submission must be durable despite the outage")
	}
}

func TestSubmit_AnonymousSkipsReconciliation(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	if _, err := env.svc.Submit(context.Background(), env.request("")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.recon.calls) != 0 {
		t.Errorf("anonymous submissions never reconcile, got %d calls", len(env.recon.calls))
	}
}

// ── Snapshot ──

func TestSubmit_RenderFailureKeepsSubmission(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	env.renderer.err = fmt.Errorf("font missing")

	sub, err := env.svc.Submit(context.Background(), env.request("42"))
	if err != nil {
		t.Fatalf("render failure must not abort: %v", err)
	}
	if _, err := env.store.Get(context.Background(), sub.ID); !errors.Is(err, snapshots.ErrNotFound) {
		t.Error("expected no snapshot after a render failure")
	}
	if _, ok := env.repo.submissions[sub.ID]; !ok {
		t.Error("submission must survive a render failure")
	}
}

// ── SubmitAndUpload ──

func TestSubmitAndUpload(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	if _, err := env.svc.SubmitAndUpload(context.Background(), env.request("42")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.directory.uploaded == nil {
		t.Fatal("expected an EHR upload")
	}
	if env.directory.uploaded["Email"] != "new@example.com" {
		t.Errorf("expected Email uploaded, got %v", env.directory.uploaded)
	}
	if _, ok := env.directory.uploaded["Allergies"]; ok {
		t.Error("multi-choice answers must not be uploaded")
	}
	if _, ok := env.directory.uploaded["Signature"]; ok {
		t.Error("signatures must not be uploaded")
	}
}

func TestSubmitAndUpload_UploadFailureKeepsSubmission(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	env.directory.updateErr = opendental.ErrUpstream

	sub, err := env.svc.SubmitAndUpload(context.Background(), env.request("42"))
	if err != nil {
		t.Fatalf("upload failure must not abort: %v", err)
	}
	if _, ok := env.repo.submissions[sub.ID]; !ok {
		t.Error("submission must survive an upload failure")
	}
}

func TestSubmitAndUpload_AnonymousSkipsUpload(t *testing.T) {
	env := newTestEnv(config.DuplicateAllow)
	if _, err := env.svc.SubmitAndUpload(context.Background(), env.request("")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.directory.uploaded != nil {
		t.Error("no upload may happen without a patient")
	}
}

// ── DisplayValue ──

func TestDisplayValue(t *testing.T) {
	plain := &Answer{Kind: form.KindText, Value: "hello"}
	if got := DisplayValue(plain); got != "hello" {
		t.Errorf("plain value mangled: %q", got)
	}

	multi := &Answer{Kind: form.KindMultiChoice, Value: `["Latex","None, that I know of"]`}
	if got := DisplayValue(multi); got != "Latex, None, that I know of" {
		t.Errorf("multi-choice listing wrong: %q", got)
	}

	// A value that never went through JSON encoding comes back verbatim.
	broken := &Answer{Kind: form.KindMultiChoice, Value: "not json"}
	if got := DisplayValue(broken); got != "not json" {
		t.Errorf("unparseable value mangled: %q", got)
	}
}
