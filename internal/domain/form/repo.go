package form

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the template row and all field rows. Callers wrap it in
	// a transaction so a failed field insert rolls the template back too.
	Create(ctx context.Context, t *Template, fields []*Field) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	// GetFields returns the template's fields sorted ascending by display order.
	GetFields(ctx context.Context, templateID uuid.UUID) ([]*Field, error)
	ReplaceFields(ctx context.Context, templateID uuid.UUID, fields []*Field) error
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Template, int, error)
}
