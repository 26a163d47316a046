package domain

import (
	"time"

	"gorm.io/gorm"
)

// Receipt status machine:
//
//	pending -> processing -> processed | failed
//	processed -> approved | rejected   (admin only)
//	failed    -> processing            (reprocess)
//
// Manually entered receipts (no image) start out processed.
const (
	ReceiptStatusPending    = "pending"
	ReceiptStatusProcessing = "processing"
	ReceiptStatusProcessed  = "processed"
	ReceiptStatusFailed     = "failed"
	ReceiptStatusApproved   = "approved"
	ReceiptStatusRejected   = "rejected"
)

// ReceiptMetaSchemaVersion is stamped on every row so future metadata fields
// can be added without breaking older readers.
const ReceiptMetaSchemaVersion = 1

// Receipt is an expense record. ImageKey and ThumbnailKey are object-store
// keys, never URLs — the handler signs them on the way out. ThumbnailKey is
// nullable: a receipt whose thumbnail generation failed is still valid.
type Receipt struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CompanyID   int64     `gorm:"column:company_id;not null;index" json:"company_id"`
	JobID       *int64    `gorm:"column:job_id;index" json:"job_id,omitempty"`
	UserID      int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	Vendor      string    `gorm:"column:vendor;not null" json:"vendor"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	Amount      float64   `gorm:"column:amount;not null" json:"amount"`
	Tax         *float64  `gorm:"column:tax" json:"tax,omitempty"`
	TotalAmount float64   `gorm:"column:total_amount;not null" json:"total_amount"`
	ReceiptDate time.Time `gorm:"column:receipt_date" json:"receipt_date"`

	ImageKey     *string `gorm:"column:image_key" json:"-"`
	ThumbnailKey *string `gorm:"column:thumbnail_key" json:"-"`

	ImageWidth        int    `gorm:"column:image_width" json:"image_width,omitempty"`
	ImageHeight       int    `gorm:"column:image_height" json:"image_height,omitempty"`
	ImageFormat       string `gorm:"column:image_format" json:"image_format,omitempty"`
	ImageSize         int64  `gorm:"column:image_size" json:"image_size,omitempty"`
	MetaSchemaVersion int    `gorm:"column:meta_schema_version;default:1" json:"-"`

	Status    string         `gorm:"column:status;not null;default:pending;index" json:"status"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Receipt) TableName() string { return "receipts" }

// RecomputeTotal re-derives TotalAmount from Amount and Tax. Must be called
// after every mutation of either field.
func (r *Receipt) RecomputeTotal() {
	total := r.Amount
	if r.Tax != nil {
		total += *r.Tax
	}
	r.TotalAmount = total
}

// CanApproveOrReject reports whether the receipt is in a state from which an
// admin may approve or reject it.
func (r *Receipt) CanApproveOrReject() bool {
	return r.Status == ReceiptStatusProcessed
}

// CanReprocess reports whether the image pipeline may be re-run.
func (r *Receipt) CanReprocess() bool {
	return r.Status == ReceiptStatusFailed && r.ImageKey != nil
}
