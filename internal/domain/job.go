package domain

import "time"

const (
	JobStatusActive = "active"
	JobStatusClosed = "closed"
)

// Job is a construction site / project that expenses are booked against.
// Code is unique within a company (enforced by the composite index).
type Job struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CompanyID int64     `gorm:"column:company_id;not null;uniqueIndex:idx_jobs_company_code" json:"company_id"`
	Code      string    `gorm:"column:code;not null;uniqueIndex:idx_jobs_company_code" json:"code"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Address   string    `gorm:"column:address" json:"address,omitempty"`
	Status    string    `gorm:"column:status;not null;default:active" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"-"`
}

func (Job) TableName() string { return "jobs" }
