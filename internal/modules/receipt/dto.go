package receipt

import "time"

type CreateManualRequest struct {
	Vendor      string     `json:"vendor" binding:"required"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount" binding:"required,gt=0"`
	Tax         *float64   `json:"tax" binding:"omitempty,gte=0"`
	JobID       *int64     `json:"job_id"`
	ReceiptDate *time.Time `json:"receipt_date"`
}

type UpdateRequest struct {
	Vendor      *string    `json:"vendor"`
	Description *string    `json:"description"`
	Amount      *float64   `json:"amount" binding:"omitempty,gt=0"`
	Tax         *float64   `json:"tax" binding:"omitempty,gte=0"`
	JobID       *int64     `json:"job_id"`
	ReceiptDate *time.Time `json:"receipt_date"`
}

type DuplicateRequest struct {
	JobID *int64 `json:"job_id"`
}

// Response is the wire shape of one receipt. ImageURL and ThumbnailURL are
// signed, time-limited URLs — object keys never leave the server.
type Response struct {
	ID           int64      `json:"id"`
	JobID        *int64     `json:"job_id,omitempty"`
	UserID       int64      `json:"user_id"`
	Vendor       string     `json:"vendor"`
	Description  string     `json:"description,omitempty"`
	Amount       float64    `json:"amount"`
	Tax          *float64   `json:"tax,omitempty"`
	TotalAmount  float64    `json:"total_amount"`
	ReceiptDate  time.Time  `json:"receipt_date"`
	Status       string     `json:"status"`
	ImageURL     string     `json:"image_url,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	ImageWidth   int        `json:"image_width,omitempty"`
	ImageHeight  int        `json:"image_height,omitempty"`
	ImageFormat  string     `json:"image_format,omitempty"`
	ImageSize    int64      `json:"image_size,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
