package job

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"sitecost/internal/domain"
)

type Service struct {
	jobs Repository
}

func NewService(jobs Repository) *Service {
	return &Service{jobs: jobs}
}

func (s *Service) Create(ctx context.Context, companyID int64, req CreateRequest) (*domain.Job, error) {
	j := &domain.Job{
		CompanyID: companyID,
		Code:      strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:      strings.TrimSpace(req.Name),
		Address:   strings.TrimSpace(req.Address),
		Status:    domain.JobStatusActive,
	}

	if err := s.jobs.Create(ctx, j); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return j, nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (*domain.Job, error) {
	return s.jobs.GetByID(ctx, companyID, id)
}

func (s *Service) List(ctx context.Context, companyID int64, status string) ([]*domain.Job, error) {
	return s.jobs.List(ctx, companyID, status)
}

func (s *Service) Update(ctx context.Context, companyID, id int64, req UpdateRequest) (*domain.Job, error) {
	j, err := s.jobs.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		j.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		j.Address = strings.TrimSpace(*req.Address)
	}
	if req.Status != nil {
		j.Status = *req.Status
	}

	if err := s.jobs.Update(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	return s.jobs.Delete(ctx, companyID, id)
}

// isUniqueViolation detects a duplicate job code. Postgres reports SQLSTATE
// 23505; sqlite in local development reports a UNIQUE constraint message.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
