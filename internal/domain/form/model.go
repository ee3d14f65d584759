package form

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("form template not found")
	ErrValidation = errors.New("invalid form template")
)

// Field kinds. Signature and static fields carry no reconcilable input.
const (
	KindText         = "text"
	KindMultiline    = "multiline"
	KindSingleChoice = "single_choice"
	KindMultiChoice  = "multi_choice"
	KindDate         = "date"
	KindSignature    = "signature"
	KindStatic       = "static_text"
)

var validKinds = map[string]bool{
	KindText: true, KindMultiline: true, KindSingleChoice: true,
	KindMultiChoice: true, KindDate: true, KindSignature: true, KindStatic: true,
}

// ValidKind reports whether kind is a known field kind.
func ValidKind(kind string) bool { return validKinds[kind] }

// ChoiceKind reports whether a kind carries an enumerated option set.
func ChoiceKind(kind string) bool {
	return kind == KindSingleChoice || kind == KindMultiChoice
}

// Template maps to the custom_forms table. LocationID is the authoring
// location, denormalized at creation time so token resolution never has to
// chase a creator's user row.
type Template struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedBy   *string    `db:"created_by" json:"created_by,omitempty"`
	LocationID  *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Field maps to the custom_form_fields table. Options is stored as JSON text;
// a SQL NULL decodes to nil, not an empty slice. DisplayOrder is the sole
// sort key when rendering and is unique within a template.
type Field struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TemplateID   uuid.UUID `db:"form_id" json:"form_id"`
	Label        string    `db:"label" json:"label"`
	Kind         string    `db:"kind" json:"kind"`
	Required     bool      `db:"required" json:"required"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	Options      []string  `db:"options" json:"options,omitempty"`
	Section      *string   `db:"section" json:"section,omitempty"`
}
