package report

import (
	"context"
	"fmt"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=report
type Repository interface {
	SaveReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context, filter ListFilter) ([]*Report, error)
}

type ListFilter struct {
	Label      *string
	DocumentID *string
	Limit      int
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Save(ctx context.Context, r *Report) error {
	if err := s.repo.SaveReport(ctx, r); err != nil {
		return fmt.Errorf("saving report %s: %w", r.ID, err)
	}

	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Report, error) {
	return s.repo.GetReport(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Report, error) {
	return s.repo.ListReports(ctx, filter)
}
