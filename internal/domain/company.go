package domain

import "time"

// Company is the tenant boundary. Every job, user and receipt belongs to
// exactly one company, and no query may cross that line.
type Company struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	TaxNumber string    `gorm:"column:tax_number" json:"tax_number,omitempty"`
	Address   string    `gorm:"column:address" json:"address,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"-"`
}

func (Company) TableName() string { return "companies" }
