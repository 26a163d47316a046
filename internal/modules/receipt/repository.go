package receipt

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"sitecost/internal/domain"
)

type ListFilter struct {
	JobID    *int64
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PerPage  int
}

type Repository interface {
	Create(ctx context.Context, r *domain.Receipt) error
	GetByID(ctx context.Context, companyID, id int64) (*domain.Receipt, error)
	Update(ctx context.Context, r *domain.Receipt) error
	List(ctx context.Context, companyID int64, f ListFilter) ([]*domain.Receipt, int64, error)
	SoftDelete(ctx context.Context, companyID, id int64) error
	HardDelete(ctx context.Context, id int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rec *domain.Receipt) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *repository) GetByID(ctx context.Context, companyID, id int64) (*domain.Receipt, error) {
	var rec domain.Receipt
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) Update(ctx context.Context, rec *domain.Receipt) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *repository) List(ctx context.Context, companyID int64, f ListFilter) ([]*domain.Receipt, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Receipt{}).Where("company_id = ?", companyID)

	if f.JobID != nil {
		q = q.Where("job_id = ?", *f.JobID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DateFrom != nil {
		q = q.Where("receipt_date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("receipt_date <= ?", *f.DateTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var receipts []*domain.Receipt
	err := q.Order("receipt_date DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&receipts).Error
	return receipts, total, err
}

func (r *repository) SoftDelete(ctx context.Context, companyID, id int64) error {
	res := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Delete(&domain.Receipt{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReceiptNotFound
	}
	return nil
}

func (r *repository) HardDelete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&domain.Receipt{}, id).Error
}
