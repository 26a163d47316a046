package receipt

import (
	"context"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"sitecost/internal/database"
	"sitecost/internal/domain"
	"sitecost/internal/storage"
)

type publishedEvent struct {
	companyID int64
	event     string
	receiptID int64
}

type eventRecorder struct {
	events []publishedEvent
}

func (r *eventRecorder) PublishReceipt(companyID int64, event string, rec *domain.Receipt) {
	r.events = append(r.events, publishedEvent{companyID: companyID, event: event, receiptID: rec.ID})
}

type serviceFixture struct {
	svc    *Service
	db     *gorm.DB
	store  *storage.Memory
	events *eventRecorder
	admin  Actor
	member Actor
}

func setupService(t *testing.T) *serviceFixture {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	store := storage.NewMemory()
	events := &eventRecorder{}
	svc := NewService(NewRepository(db), testUploader(store), events)

	return &serviceFixture{
		svc:    svc,
		db:     db,
		store:  store,
		events: events,
		admin:  Actor{UserID: 1, CompanyID: 10, Role: domain.RoleAdmin},
		member: Actor{UserID: 2, CompanyID: 10, Role: domain.RoleMember},
	}
}

func (f *serviceFixture) receiptCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.Receipt{}).Count(&n).Error)
	return n
}

func TestUpload_Success(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	fh := makeFileHeader(t, "buildmart.jpg", "image/jpeg", jpegBytes(t, 1200, 900))
	tax := 9.50
	req := CreateManualRequest{Vendor: "BuildMart", Amount: 118.40, Tax: &tax}

	rec, err := f.svc.Upload(ctx, f.member, req, fh)
	require.NoError(t, err)

	assert.Equal(t, domain.ReceiptStatusProcessed, rec.Status)
	assert.InDelta(t, 127.90, rec.TotalAmount, 0.001)
	require.NotNil(t, rec.ImageKey)
	require.NotNil(t, rec.ThumbnailKey)
	assert.Equal(t, 1200, rec.ImageWidth)
	assert.Equal(t, 900, rec.ImageHeight)
	assert.Equal(t, "jpeg", rec.ImageFormat)
	assert.Equal(t, 2, f.store.Len())

	require.Len(t, f.events.events, 1)
	assert.Equal(t, "receipt.processed", f.events.events[0].event)
	assert.Equal(t, f.member.CompanyID, f.events.events[0].companyID)
}

func TestUpload_ProcessingFailureLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	cases := []struct {
		name string
		fh   *multipart.FileHeader
		want error
	}{
		{"pdf", makeFileHeader(t, "invoice.pdf", "application/pdf", []byte("%PDF-1.7")), ErrUnsupportedFormat},
		{"too small", makeFileHeader(t, "tiny.png", "image/png", pngBytes(t, 40, 40)), ErrDimensionsTooSmall},
		{"corrupt", makeFileHeader(t, "broken.jpg", "image/jpeg", []byte("noise")), ErrUnreadableImage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Upload(ctx, f.member, CreateManualRequest{Vendor: "X", Amount: 1}, tc.fh)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, 0, f.store.Len(), "failed originals must be cleaned up")
	assert.Equal(t, int64(0), f.receiptCount(t), "no record may exist for an unprocessed file")
	assert.Empty(t, f.events.events)
}

func TestUpload_CreateFailureCompensatesBlobs(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	// Dropping the table makes Create fail after the blobs are stored.
	require.NoError(t, f.db.Migrator().DropTable(&domain.Receipt{}))

	fh := makeFileHeader(t, "ok.jpg", "image/jpeg", jpegBytes(t, 800, 600))
	_, err := f.svc.Upload(ctx, f.member, CreateManualRequest{Vendor: "X", Amount: 1}, fh)

	require.Error(t, err)
	assert.Equal(t, 0, f.store.Len(), "blobs must not outlive a record that never existed")
}

func TestUploadBatch_PartialFailurePersistsOnlySuccesses(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	good := jpegBytes(t, 800, 600)
	receipts, failed := f.svc.UploadBatch(ctx, f.member, nil, []*multipart.FileHeader{
		makeFileHeader(t, "lumber.jpg", "image/jpeg", good),
		makeFileHeader(t, "scan.pdf", "application/pdf", []byte("%PDF-1.4")),
		makeFileHeader(t, "paint.jpg", "image/jpeg", good),
	})

	require.Len(t, receipts, 2)
	require.Len(t, failed, 1)
	assert.Equal(t, "scan.pdf", failed[0].Filename)

	assert.Equal(t, int64(2), f.receiptCount(t))
	assert.Equal(t, 4, f.store.Len())

	// Vendor defaults to the filename stem until the user edits it.
	vendors := []string{receipts[0].Vendor, receipts[1].Vendor}
	assert.ElementsMatch(t, []string{"lumber", "paint"}, vendors)
}

func TestCreateManual_TotalInvariant(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	rec, err := f.svc.CreateManual(ctx, f.member, CreateManualRequest{Vendor: "ToolHire", Amount: 75})
	require.NoError(t, err)
	assert.Equal(t, 75.0, rec.TotalAmount, "nil tax contributes nothing")
	assert.Equal(t, domain.ReceiptStatusProcessed, rec.Status)
	assert.Nil(t, rec.ImageKey)

	tax := 15.0
	rec, err = f.svc.CreateManual(ctx, f.member, CreateManualRequest{Vendor: "ToolHire", Amount: 75, Tax: &tax})
	require.NoError(t, err)
	assert.Equal(t, 90.0, rec.TotalAmount)
}

func TestUpdate_RecomputesTotal(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	rec, err := f.svc.CreateManual(ctx, f.member, CreateManualRequest{Vendor: "A", Amount: 100})
	require.NoError(t, err)

	amount := 200.0
	tax := 38.0
	updated, err := f.svc.Update(ctx, f.member, rec.ID, UpdateRequest{Amount: &amount, Tax: &tax})
	require.NoError(t, err)
	assert.Equal(t, 238.0, updated.TotalAmount)

	vendor := "B"
	updated, err = f.svc.Update(ctx, f.member, rec.ID, UpdateRequest{Vendor: &vendor})
	require.NoError(t, err)
	assert.Equal(t, "B", updated.Vendor)
	assert.Equal(t, 238.0, updated.TotalAmount, "untouched amount and tax keep the total")
}

func TestUpdate_OwnershipAndImmutability(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	rec, err := f.svc.CreateManual(ctx, f.member, CreateManualRequest{Vendor: "A", Amount: 10})
	require.NoError(t, err)

	other := Actor{UserID: 3, CompanyID: 10, Role: domain.RoleMember}
	vendor := "hijack"
	_, err = f.svc.Update(ctx, other, rec.ID, UpdateRequest{Vendor: &vendor})
	assert.ErrorIs(t, err, ErrNotOwner)

	// Admins may edit anyone's receipt.
	_, err = f.svc.Update(ctx, f.admin, rec.ID, UpdateRequest{Vendor: &vendor})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, f.admin, rec.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.admin, rec.ID, UpdateRequest{Vendor: &vendor})
	assert.ErrorIs(t, err, ErrInvalidStatus, "approved receipts are immutable")
}

func TestApprove_OnlyFromProcessed(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	pending := &domain.Receipt{CompanyID: 10, UserID: 2, Vendor: "X", Amount: 1, Status: domain.ReceiptStatusPending}
	pending.RecomputeTotal()
	require.NoError(t, f.db.Create(pending).Error)

	_, err := f.svc.Approve(ctx, f.admin, pending.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	rec, err := f.svc.CreateManual(ctx, f.member, CreateManualRequest{Vendor: "Y", Amount: 2})
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, f.admin, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptStatusApproved, approved.Status)

	_, err = f.svc.Reject(ctx, f.admin, rec.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus, "an approved receipt cannot flip to rejected")
}

func TestReprocess_RebuildsThumbnailFromStoredOriginal(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	key := storage.ReceiptKey(10, 2, "site.jpg")
	require.NoError(t, f.store.Put(ctx, key, jpegBytes(t, 900, 700), storage.PutOptions{ContentType: "image/jpeg"}))

	rec := &domain.Receipt{CompanyID: 10, UserID: 2, Vendor: "X", Amount: 5, Status: domain.ReceiptStatusFailed, ImageKey: &key}
	rec.RecomputeTotal()
	require.NoError(t, f.db.Create(rec).Error)

	out, err := f.svc.Reprocess(ctx, f.member, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptStatusProcessed, out.Status)
	require.NotNil(t, out.ThumbnailKey)

	exists, err := f.store.Exists(ctx, *out.ThumbnailKey)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReprocess_FailureKeepsOriginalAndStaysRetriable(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	key := storage.ReceiptKey(10, 2, "broken.jpg")
	require.NoError(t, f.store.Put(ctx, key, []byte("still not an image"), storage.PutOptions{}))

	rec := &domain.Receipt{CompanyID: 10, UserID: 2, Vendor: "X", Amount: 5, Status: domain.ReceiptStatusFailed, ImageKey: &key}
	rec.RecomputeTotal()
	require.NoError(t, f.db.Create(rec).Error)

	_, err := f.svc.Reprocess(ctx, f.member, rec.ID)
	require.Error(t, err)

	var reloaded domain.Receipt
	require.NoError(t, f.db.First(&reloaded, rec.ID).Error)
	assert.Equal(t, domain.ReceiptStatusFailed, reloaded.Status)
	assert.True(t, reloaded.CanReprocess(), "a failed receipt must stay retriable")

	exists, err := f.store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists, "reprocess failure must never delete the original")
}

func TestReprocess_RejectsNonFailedReceipt(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	rec, err := f.svc.CreateManual(ctx, f.member, CreateManualRequest{Vendor: "X", Amount: 1})
	require.NoError(t, err)

	_, err = f.svc.Reprocess(ctx, f.member, rec.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDuplicate_CopiesBlobsUnderFreshKeys(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	fh := makeFileHeader(t, "materials.jpg", "image/jpeg", jpegBytes(t, 800, 600))
	src, err := f.svc.Upload(ctx, f.member, CreateManualRequest{Vendor: "BuildMart", Amount: 50}, fh)
	require.NoError(t, err)

	jobID := int64(99)
	dup, err := f.svc.Duplicate(ctx, f.member, src.ID, DuplicateRequest{JobID: &jobID})
	require.NoError(t, err)

	assert.NotEqual(t, src.ID, dup.ID)
	require.NotNil(t, dup.JobID)
	assert.Equal(t, jobID, *dup.JobID)
	assert.Equal(t, src.Vendor, dup.Vendor)
	assert.Equal(t, src.TotalAmount, dup.TotalAmount)

	require.NotNil(t, dup.ImageKey)
	require.NotNil(t, dup.ThumbnailKey)
	assert.NotEqual(t, *src.ImageKey, *dup.ImageKey, "duplicates never share storage")
	assert.NotEqual(t, *src.ThumbnailKey, *dup.ThumbnailKey)
	assert.Equal(t, 4, f.store.Len())

	// Deleting the duplicate leaves the source's blobs untouched.
	require.NoError(t, f.svc.Delete(ctx, f.member, dup.ID))
	exists, err := f.store.Exists(ctx, *src.ImageKey)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDelete_TwoPhase(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	fh := makeFileHeader(t, "gone.jpg", "image/jpeg", jpegBytes(t, 800, 600))
	rec, err := f.svc.Upload(ctx, f.member, CreateManualRequest{Vendor: "X", Amount: 1}, fh)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.member, rec.ID))

	assert.Equal(t, 0, f.store.Len())

	// Both blobs confirmed gone, so the row was hard-deleted.
	var n int64
	require.NoError(t, f.db.Unscoped().Model(&domain.Receipt{}).Where("id = ?", rec.ID).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestDelete_UnconfirmedBlobKeepsSoftDeletedRow(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	fh := makeFileHeader(t, "stuck.jpg", "image/jpeg", jpegBytes(t, 800, 600))
	rec, err := f.svc.Upload(ctx, f.member, CreateManualRequest{Vendor: "X", Amount: 1}, fh)
	require.NoError(t, err)

	f.store.FailDelete = func(key string) bool { return key == *rec.ImageKey }

	require.NoError(t, f.svc.Delete(ctx, f.member, rec.ID), "blob failures are swept later, not surfaced")

	// The record is hidden from normal queries but kept for the sweep.
	_, err = f.svc.Get(ctx, f.member, rec.ID)
	assert.ErrorIs(t, err, ErrReceiptNotFound)

	var reloaded domain.Receipt
	require.NoError(t, f.db.Unscoped().First(&reloaded, rec.ID).Error)
	assert.True(t, reloaded.DeletedAt.Valid, "row must stay soft-deleted while blobs may survive")
}

func TestDelete_Ownership(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	rec, err := f.svc.CreateManual(ctx, f.member, CreateManualRequest{Vendor: "X", Amount: 1})
	require.NoError(t, err)

	other := Actor{UserID: 3, CompanyID: 10, Role: domain.RoleMember}
	assert.ErrorIs(t, f.svc.Delete(ctx, other, rec.ID), ErrNotOwner)

	require.NoError(t, f.svc.Delete(ctx, f.admin, rec.ID))
}

func TestGet_IsCompanyScoped(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	rec, err := f.svc.CreateManual(ctx, f.member, CreateManualRequest{Vendor: "X", Amount: 1})
	require.NoError(t, err)

	outsider := Actor{UserID: 9, CompanyID: 11, Role: domain.RoleAdmin}
	_, err = f.svc.Get(ctx, outsider, rec.ID)
	assert.ErrorIs(t, err, ErrReceiptNotFound, "other companies must not see the receipt exists")
}

func TestList_FiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	jobA, jobB := int64(1), int64(2)
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateManual(ctx, f.member, CreateManualRequest{Vendor: "A", Amount: 10, JobID: &jobA})
		require.NoError(t, err)
	}
	_, err := f.svc.CreateManual(ctx, f.member, CreateManualRequest{Vendor: "B", Amount: 10, JobID: &jobB})
	require.NoError(t, err)

	receipts, total, err := f.svc.List(ctx, f.member, ListFilter{JobID: &jobA, Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, receipts, 2)

	receipts, total, err = f.svc.List(ctx, f.member, ListFilter{Status: domain.ReceiptStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, receipts)
}
