package location

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, l *Location) error {
	if l.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	l.Code = strings.ToLower(strings.TrimSpace(l.Code))
	if l.Code == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}
	return s.repo.Create(ctx, l)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Location, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByCode resolves a location from its short public code. Used by the
// self-service form request flow, which has no staff session.
func (s *Service) GetByCode(ctx context.Context, code string) (*Location, error) {
	return s.repo.GetByCode(ctx, strings.ToLower(strings.TrimSpace(code)))
}

func (s *Service) Update(ctx context.Context, l *Location) error {
	if l.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	return s.repo.Update(ctx, l)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Location, int, error) {
	return s.repo.List(ctx, limit, offset)
}
