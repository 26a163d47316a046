package job

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitecost/internal/database"
	"sitecost/internal/domain"
)

func setupJobs(t *testing.T) *Service {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return NewService(NewRepository(db))
}

func TestCreate_NormalizesCode(t *testing.T) {
	svc := setupJobs(t)

	j, err := svc.Create(context.Background(), 1, CreateRequest{Code: "  job-001 ", Name: " Riverside Apartments "})
	require.NoError(t, err)

	assert.Equal(t, "JOB-001", j.Code)
	assert.Equal(t, "Riverside Apartments", j.Name)
	assert.Equal(t, domain.JobStatusActive, j.Status)
}

func TestCreate_DuplicateCodeWithinCompany(t *testing.T) {
	ctx := context.Background()
	svc := setupJobs(t)

	_, err := svc.Create(ctx, 1, CreateRequest{Code: "JOB-001", Name: "First"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, 1, CreateRequest{Code: "job-001", Name: "Second"})
	assert.ErrorIs(t, err, ErrDuplicateCode)

	// Codes are unique per company, not globally.
	_, err = svc.Create(ctx, 2, CreateRequest{Code: "JOB-001", Name: "Other tenant"})
	assert.NoError(t, err)
}

func TestGet_IsCompanyScoped(t *testing.T) {
	ctx := context.Background()
	svc := setupJobs(t)

	j, err := svc.Create(ctx, 1, CreateRequest{Code: "JOB-001", Name: "Depot"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, j.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestList_FiltersByStatus(t *testing.T) {
	ctx := context.Background()
	svc := setupJobs(t)

	a, err := svc.Create(ctx, 1, CreateRequest{Code: "JOB-001", Name: "Active site"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, 1, CreateRequest{Code: "JOB-002", Name: "Finished site"})
	require.NoError(t, err)

	closed := domain.JobStatusClosed
	_, err = svc.Update(ctx, 1, b.ID, UpdateRequest{Status: &closed})
	require.NoError(t, err)

	active, err := svc.List(ctx, 1, domain.JobStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	all, err := svc.List(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc := setupJobs(t)

	j, err := svc.Create(ctx, 1, CreateRequest{Code: "JOB-001", Name: "Depot", Address: "4 Yard Ln"})
	require.NoError(t, err)

	name := " Depot Renovation "
	updated, err := svc.Update(ctx, 1, j.ID, UpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Depot Renovation", updated.Name)
	assert.Equal(t, "4 Yard Ln", updated.Address, "untouched fields survive")

	_, err = svc.Update(ctx, 2, j.ID, UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := setupJobs(t)

	j, err := svc.Create(ctx, 1, CreateRequest{Code: "JOB-001", Name: "Depot"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, 2, j.ID), ErrJobNotFound)
	require.NoError(t, svc.Delete(ctx, 1, j.ID))

	_, err = svc.Get(ctx, 1, j.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}
