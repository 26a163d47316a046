package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"sitecost/internal/database"
	"sitecost/internal/domain"
)

func setupStats(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return NewRepository(db), db
}

func seedReceipt(t *testing.T, db *gorm.DB, companyID int64, jobID *int64, amount float64, tax *float64, status string, date time.Time) {
	t.Helper()
	rec := &domain.Receipt{
		CompanyID:   companyID,
		JobID:       jobID,
		UserID:      1,
		Vendor:      "Vendor",
		Amount:      amount,
		Tax:         tax,
		ReceiptDate: date,
		Status:      status,
	}
	rec.RecomputeTotal()
	require.NoError(t, db.Create(rec).Error)
}

func TestSummary(t *testing.T) {
	repo, db := setupStats(t)
	now := time.Now().UTC()
	tax := 10.0

	seedReceipt(t, db, 1, nil, 100, &tax, domain.ReceiptStatusApproved, now)
	seedReceipt(t, db, 1, nil, 50, nil, domain.ReceiptStatusApproved, now)
	seedReceipt(t, db, 1, nil, 30, nil, domain.ReceiptStatusProcessed, now)
	seedReceipt(t, db, 2, nil, 999, nil, domain.ReceiptStatusApproved, now)

	rows, err := repo.Summary(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, rows, 2, "grouped by status, other tenants excluded")

	byStatus := map[string]StatusTotal{}
	for _, row := range rows {
		byStatus[row.Status] = row
	}
	assert.Equal(t, int64(2), byStatus[domain.ReceiptStatusApproved].Count)
	assert.InDelta(t, 160.0, byStatus[domain.ReceiptStatusApproved].Total, 0.001)
	assert.Equal(t, int64(1), byStatus[domain.ReceiptStatusProcessed].Count)

	approved, err := repo.Summary(context.Background(), 1, true)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, domain.ReceiptStatusApproved, approved[0].Status)
}

func TestByJob(t *testing.T) {
	repo, db := setupStats(t)
	now := time.Now().UTC()
	tax := 5.0

	job := &domain.Job{CompanyID: 1, Code: "JOB-001", Name: "Riverside", Status: domain.JobStatusActive}
	require.NoError(t, db.Create(job).Error)

	seedReceipt(t, db, 1, &job.ID, 100, &tax, domain.ReceiptStatusApproved, now)
	seedReceipt(t, db, 1, &job.ID, 40, nil, domain.ReceiptStatusApproved, now)
	seedReceipt(t, db, 1, nil, 25, nil, domain.ReceiptStatusApproved, now)

	rows, err := repo.ByJob(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Ordered by total descending, so the job comes first.
	assert.Equal(t, "Riverside", rows[0].JobName)
	assert.Equal(t, int64(2), rows[0].Count)
	assert.InDelta(t, 145.0, rows[0].Total, 0.001)
	assert.InDelta(t, 5.0, rows[0].Tax, 0.001)

	assert.Nil(t, rows[1].JobID)
	assert.Equal(t, "Unassigned", rows[1].JobName)
	assert.InDelta(t, 25.0, rows[1].Total, 0.001)
}

func TestMonthly(t *testing.T) {
	repo, db := setupStats(t)

	jan := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	prevYear := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)

	seedReceipt(t, db, 1, nil, 100, nil, domain.ReceiptStatusApproved, jan)
	seedReceipt(t, db, 1, nil, 60, nil, domain.ReceiptStatusApproved, jan)
	seedReceipt(t, db, 1, nil, 40, nil, domain.ReceiptStatusProcessed, feb)
	seedReceipt(t, db, 1, nil, 500, nil, domain.ReceiptStatusApproved, prevYear)

	rows, err := repo.Monthly(context.Background(), 1, 2026, false)
	require.NoError(t, err)
	require.Len(t, rows, 2, "only the requested year is bucketed")

	assert.Equal(t, "2026-01", rows[0].Month)
	assert.Equal(t, int64(2), rows[0].Count)
	assert.InDelta(t, 160.0, rows[0].Total, 0.001)

	assert.Equal(t, "2026-02", rows[1].Month)
	assert.Equal(t, int64(1), rows[1].Count)

	approved, err := repo.Monthly(context.Background(), 1, 2026, true)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "2026-01", approved[0].Month)
}

func TestSummary_EmptyCompany(t *testing.T) {
	repo, _ := setupStats(t)

	rows, err := repo.Summary(context.Background(), 77, false)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
