package formtoken

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wckliment/ikon-practice-sub001/internal/domain/form"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/opendental"
)

var (
	ErrNotFound   = errors.New("form token not found")
	ErrValidation = errors.New("invalid form token request")
)

// Delivery methods. Website is the default for links handed out ad hoc.
const (
	MethodWebsite = "website"
	MethodSMS     = "sms"
	MethodTablet  = "tablet"
)

var validMethods = map[string]bool{
	MethodWebsite: true, MethodSMS: true, MethodTablet: true,
}

// Token maps to the custom_form_tokens table. The token string itself is a
// 128-bit random value in UUID text form; PatientID is the external
// directory's identifier, not a local foreign key. The row survives
// submission; only an explicit staff delete removes it.
type Token struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Token      string     `db:"token" json:"token"`
	TemplateID uuid.UUID  `db:"form_id" json:"form_id"`
	PatientID  *string    `db:"patient_id" json:"patient_id,omitempty"`
	LocationID *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	Method     string     `db:"method" json:"method"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Summary is the pending-list row: the token joined with its form's name.
type Summary struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Token     string    `db:"token" json:"token"`
	FormID    uuid.UUID `db:"form_id" json:"form_id"`
	FormName  string    `db:"form_name" json:"form_name"`
	Method    string    `db:"method" json:"method"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Resolved is the bundle handed to a form-filling client. Patient is nil
// when the token has no patient or the directory was unreachable.
type Resolved struct {
	Form    *form.Template      `json:"form"`
	Fields  []*form.Field       `json:"fields"`
	Patient *opendental.Patient `json:"patient,omitempty"`
	Method  string              `json:"method"`
}

// Issued pairs a new token with its shareable fill-out link.
type Issued struct {
	Token *Token `json:"token"`
	Link  string `json:"link"`
}
