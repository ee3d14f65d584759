package location

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("location not found")
	ErrValidation = errors.New("invalid location")
)

// Location maps to the locations table. CustomerKey and DeveloperKey are the
// opaque credential pair used to reach Open Dental on behalf of this
// location; both must be present for any directory call scoped here to
// succeed. Code is the short unique code used for public lookup.
type Location struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	AddressLine  *string   `db:"address_line" json:"address_line,omitempty"`
	City         *string   `db:"city" json:"city,omitempty"`
	State        *string   `db:"state" json:"state,omitempty"`
	Zip          *string   `db:"zip" json:"zip,omitempty"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	CustomerKey  *string   `db:"customer_key" json:"-"`
	DeveloperKey *string   `db:"developer_key" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HasCredentials reports whether the directory credential pair is complete.
func (l *Location) HasCredentials() bool {
	return l.CustomerKey != nil && *l.CustomerKey != "" &&
		l.DeveloperKey != nil && *l.DeveloperKey != ""
}
