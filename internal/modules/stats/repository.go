package stats

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"sitecost/internal/domain"
)

type StatusTotal struct {
	Status string  `json:"status"`
	Count  int64   `json:"count"`
	Total  float64 `json:"total"`
}

type JobTotal struct {
	JobID   *int64  `json:"job_id"`
	JobName string  `json:"job_name"`
	Count   int64   `json:"count"`
	Total   float64 `json:"total"`
	Tax     float64 `json:"tax"`
}

type MonthTotal struct {
	Month string  `json:"month"`
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

type Repository interface {
	Summary(ctx context.Context, companyID int64, approvedOnly bool) ([]StatusTotal, error)
	ByJob(ctx context.Context, companyID int64, approvedOnly bool) ([]JobTotal, error)
	Monthly(ctx context.Context, companyID int64, year int, approvedOnly bool) ([]MonthTotal, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) base(ctx context.Context, companyID int64, approvedOnly bool) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.Receipt{}).Where("company_id = ?", companyID)
	if approvedOnly {
		q = q.Where("status = ?", domain.ReceiptStatusApproved)
	}
	return q
}

func (r *repository) Summary(ctx context.Context, companyID int64, approvedOnly bool) ([]StatusTotal, error) {
	var rows []StatusTotal
	err := r.base(ctx, companyID, approvedOnly).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total").
		Group("status").
		Order("status").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ByJob(ctx context.Context, companyID int64, approvedOnly bool) ([]JobTotal, error) {
	var rows []JobTotal
	err := r.base(ctx, companyID, approvedOnly).
		Select(`receipts.job_id AS job_id,
			COALESCE(jobs.name, 'Unassigned') AS job_name,
			COUNT(*) AS count,
			COALESCE(SUM(receipts.total_amount), 0) AS total,
			COALESCE(SUM(receipts.tax), 0) AS tax`).
		Joins("LEFT JOIN jobs ON jobs.id = receipts.job_id").
		Group("receipts.job_id, jobs.name").
		Order("total DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) Monthly(ctx context.Context, companyID int64, year int, approvedOnly bool) ([]MonthTotal, error) {
	// Month bucketing has no portable SQL spelling, so pick per dialect.
	monthExpr := "strftime('%Y-%m', receipt_date)"
	if r.db.Dialector.Name() == "postgres" {
		monthExpr = "to_char(receipt_date, 'YYYY-MM')"
	}

	var rows []MonthTotal
	err := r.base(ctx, companyID, approvedOnly).
		Where("receipt_date >= ? AND receipt_date < ?",
			fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-01-01", year+1)).
		Select(monthExpr + " AS month, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total").
		Group(monthExpr).
		Order("month").
		Scan(&rows).Error
	return rows, err
}
