package job

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"sitecost/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, j *domain.Job) error
	GetByID(ctx context.Context, companyID, id int64) (*domain.Job, error)
	List(ctx context.Context, companyID int64, status string) ([]*domain.Job, error)
	Update(ctx context.Context, j *domain.Job) error
	Delete(ctx context.Context, companyID, id int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, j *domain.Job) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *repository) GetByID(ctx context.Context, companyID, id int64) (*domain.Job, error) {
	var j domain.Job
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *repository) List(ctx context.Context, companyID int64, status string) ([]*domain.Job, error) {
	q := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var jobs []*domain.Job
	err := q.Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

func (r *repository) Update(ctx context.Context, j *domain.Job) error {
	return r.db.WithContext(ctx).Save(j).Error
}

func (r *repository) Delete(ctx context.Context, companyID, id int64) error {
	res := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Delete(&domain.Job{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}
