package form

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// TxRunner executes fn inside one database transaction. The production
// wiring binds it to db.WithTx; tests use a passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo Repository
	tx   TxRunner
}

func NewService(repo Repository, tx TxRunner) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{repo: repo, tx: tx}
}

func validateFields(fields []*Field) error {
	for i, f := range fields {
		if f.Label == "" {
			return fmt.Errorf("%w: field %d has no label", ErrValidation, i)
		}
		if !ValidKind(f.Kind) {
			return fmt.Errorf("%w: field %q has unknown kind %q", ErrValidation, f.Label, f.Kind)
		}
		if ChoiceKind(f.Kind) && len(f.Options) == 0 {
			return fmt.Errorf("%w: choice field %q has no options", ErrValidation, f.Label)
		}
	}
	return nil
}

// assignOrder fills in display order monotonically for fields that don't
// carry one, and rejects duplicates among those that do.
func assignOrder(fields []*Field) error {
	seen := make(map[int]bool)
	next := 1
	for _, f := range fields {
		if f.DisplayOrder == 0 {
			for seen[next] {
				next++
			}
			f.DisplayOrder = next
		}
		if seen[f.DisplayOrder] {
			return fmt.Errorf("%w: duplicate display order %d", ErrValidation, f.DisplayOrder)
		}
		seen[f.DisplayOrder] = true
	}
	return nil
}

// Create inserts the template and its fields atomically: if any field insert
// fails, nothing from this call survives.
func (s *Service) Create(ctx context.Context, t *Template, fields []*Field) error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: at least one field is required", ErrValidation)
	}
	if err := validateFields(fields); err != nil {
		return err
	}
	if err := assignOrder(fields); err != nil {
		return err
	}
	return s.tx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, t, fields)
	})
}

// GetTemplate returns the template and its fields sorted by display order.
func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, []*Field, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	fields, err := s.repo.GetFields(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return t, fields, nil
}

// Update replaces the template row and its entire field list in one
// transaction. Partial field patches are not supported.
func (s *Service) Update(ctx context.Context, t *Template, fields []*Field) error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := validateFields(fields); err != nil {
		return err
	}
	if err := assignOrder(fields); err != nil {
		return err
	}
	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}
		return s.repo.ReplaceFields(ctx, t.ID, fields)
	})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Template, int, error) {
	return s.repo.List(ctx, limit, offset)
}
