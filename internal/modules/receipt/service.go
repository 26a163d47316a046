package receipt

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"path"
	"time"

	"sitecost/internal/domain"
	"sitecost/internal/storage"
)

// EventPublisher pushes receipt lifecycle events to connected clients.
// Best-effort: publishing never fails a request.
type EventPublisher interface {
	PublishReceipt(companyID int64, event string, receipt *domain.Receipt)
}

// Actor identifies the authenticated caller of a service method.
type Actor struct {
	UserID    int64
	CompanyID int64
	Role      string
}

func (a Actor) isAdmin() bool { return a.Role == domain.RoleAdmin }

// Service contains all business logic for receipts. The upload pipeline
// itself lives in Uploader; Service composes it with persistence and is the
// component responsible for cleaning up the original when processing fails.
type Service struct {
	receipts Repository
	uploader *Uploader
	events   EventPublisher
}

func NewService(receipts Repository, uploader *Uploader, events EventPublisher) *Service {
	return &Service{receipts: receipts, uploader: uploader, events: events}
}

// Upload runs the full single-file pipeline and persists the receipt.
// Validation failures reject before anything is stored; processing failures
// remove the already-stored original and surface the processing error — no
// business record is created for a file that never processed.
func (s *Service) Upload(ctx context.Context, actor Actor, req CreateManualRequest, fh *multipart.FileHeader) (*domain.Receipt, error) {
	key, err := s.uploader.StoreOriginal(ctx, actor.CompanyID, actor.UserID, fh)
	if err != nil {
		return nil, err
	}

	processed, err := s.uploader.Process(ctx, key)
	if err != nil {
		s.uploader.Cleanup(ctx, []string{key})
		return nil, err
	}

	rec := s.buildReceipt(actor, req)
	rec.Status = domain.ReceiptStatusProcessed
	applyProcessed(rec, processed)

	if err := s.receipts.Create(ctx, rec); err != nil {
		// Compensate: the blobs must not outlive a record that never existed.
		s.uploader.Cleanup(ctx, []string{key})
		return nil, fmt.Errorf("save receipt: %w", err)
	}

	s.publish("receipt.processed", rec)
	return rec, nil
}

// UploadBatch processes all files concurrently with partial-failure
// semantics: each success becomes a receipt, each failure is reported with
// its cause, and no failure reverts another file's success.
func (s *Service) UploadBatch(ctx context.Context, actor Actor, jobID *int64, files []*multipart.FileHeader) ([]*domain.Receipt, []BatchError) {
	result := s.uploader.ProcessBatch(ctx, actor.CompanyID, actor.UserID, files)

	receipts := make([]*domain.Receipt, 0, len(result.Succeeded))
	failed := result.Failed

	for _, item := range result.Succeeded {
		rec := &domain.Receipt{
			CompanyID:         actor.CompanyID,
			UserID:            actor.UserID,
			JobID:             jobID,
			Vendor:            vendorFromFilename(item.Filename),
			ReceiptDate:       time.Now().UTC(),
			Status:            domain.ReceiptStatusProcessed,
			MetaSchemaVersion: domain.ReceiptMetaSchemaVersion,
		}
		rec.RecomputeTotal()
		applyProcessed(rec, item.Processed)

		if err := s.receipts.Create(ctx, rec); err != nil {
			s.uploader.Cleanup(ctx, []string{item.Processed.OriginalKey})
			failed = append(failed, BatchError{Filename: item.Filename, Key: item.Processed.OriginalKey, Err: err})
			continue
		}

		s.publish("receipt.processed", rec)
		receipts = append(receipts, rec)
	}

	return receipts, failed
}

// CreateManual records an expense without an image. There is nothing to
// process, so the receipt is immediately in its processed state.
func (s *Service) CreateManual(ctx context.Context, actor Actor, req CreateManualRequest) (*domain.Receipt, error) {
	rec := s.buildReceipt(actor, req)
	rec.Status = domain.ReceiptStatusProcessed

	if err := s.receipts.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("save receipt: %w", err)
	}

	s.publish("receipt.created", rec)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, actor Actor, id int64) (*domain.Receipt, error) {
	return s.receipts.GetByID(ctx, actor.CompanyID, id)
}

func (s *Service) List(ctx context.Context, actor Actor, f ListFilter) ([]*domain.Receipt, int64, error) {
	return s.receipts.List(ctx, actor.CompanyID, f)
}

// Update mutates editable fields and recomputes the total whenever amount or
// tax changes. Approved and rejected receipts are immutable.
func (s *Service) Update(ctx context.Context, actor Actor, id int64, req UpdateRequest) (*domain.Receipt, error) {
	rec, err := s.receipts.GetByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if !actor.isAdmin() && rec.UserID != actor.UserID {
		return nil, ErrNotOwner
	}
	if rec.Status == domain.ReceiptStatusApproved || rec.Status == domain.ReceiptStatusRejected {
		return nil, ErrInvalidStatus
	}

	if req.Vendor != nil {
		rec.Vendor = *req.Vendor
	}
	if req.Description != nil {
		rec.Description = *req.Description
	}
	if req.Amount != nil {
		rec.Amount = *req.Amount
	}
	if req.Tax != nil {
		rec.Tax = req.Tax
	}
	if req.JobID != nil {
		rec.JobID = req.JobID
	}
	if req.ReceiptDate != nil {
		rec.ReceiptDate = *req.ReceiptDate
	}
	rec.RecomputeTotal()

	if err := s.receipts.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Approve moves a processed receipt to approved. Role gating happens in the
// route middleware; the status gate lives here.
func (s *Service) Approve(ctx context.Context, actor Actor, id int64) (*domain.Receipt, error) {
	return s.review(ctx, actor, id, domain.ReceiptStatusApproved)
}

func (s *Service) Reject(ctx context.Context, actor Actor, id int64) (*domain.Receipt, error) {
	return s.review(ctx, actor, id, domain.ReceiptStatusRejected)
}

func (s *Service) review(ctx context.Context, actor Actor, id int64, status string) (*domain.Receipt, error) {
	rec, err := s.receipts.GetByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if !rec.CanApproveOrReject() {
		return nil, ErrInvalidStatus
	}

	rec.Status = status
	if err := s.receipts.Update(ctx, rec); err != nil {
		return nil, err
	}

	s.publish("receipt."+status, rec)
	return rec, nil
}

// Reprocess re-runs the image pipeline for a receipt whose processing
// failed. The original is still stored, so only the thumbnail is rebuilt.
func (s *Service) Reprocess(ctx context.Context, actor Actor, id int64) (*domain.Receipt, error) {
	rec, err := s.receipts.GetByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if !rec.CanReprocess() {
		return nil, ErrInvalidStatus
	}

	rec.Status = domain.ReceiptStatusProcessing
	if err := s.receipts.Update(ctx, rec); err != nil {
		return nil, err
	}

	processed, err := s.uploader.Process(ctx, *rec.ImageKey)
	if err != nil {
		// Keep the original: a failed receipt stays retriable. Drop any
		// partially written thumbnail.
		if thumbKey, kerr := storage.ThumbnailKey(*rec.ImageKey); kerr == nil {
			s.uploader.Store().DeleteMany(ctx, []string{thumbKey})
		}
		rec.Status = domain.ReceiptStatusFailed
		if uerr := s.receipts.Update(ctx, rec); uerr != nil {
			log.Printf("receipt: failed to mark receipt %d failed: %v", rec.ID, uerr)
		}
		s.publish("receipt.failed", rec)
		return nil, err
	}

	applyProcessed(rec, processed)
	rec.Status = domain.ReceiptStatusProcessed
	if err := s.receipts.Update(ctx, rec); err != nil {
		return nil, err
	}

	s.publish("receipt.processed", rec)
	return rec, nil
}

// Duplicate copies a receipt (record and blobs) onto another job. Blobs are
// copied server-side under fresh keys so the two receipts never share
// storage.
func (s *Service) Duplicate(ctx context.Context, actor Actor, id int64, req DuplicateRequest) (*domain.Receipt, error) {
	src, err := s.receipts.GetByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}

	dup := *src
	dup.ID = 0
	dup.UserID = actor.UserID
	dup.JobID = req.JobID
	dup.CreatedAt = time.Time{}
	dup.UpdatedAt = time.Time{}
	if dup.Status == domain.ReceiptStatusApproved || dup.Status == domain.ReceiptStatusRejected {
		dup.Status = domain.ReceiptStatusProcessed
	}

	var copied []string
	if src.ImageKey != nil {
		newKey := storage.ReceiptKey(actor.CompanyID, actor.UserID, path.Base(*src.ImageKey))
		if err := s.uploader.Store().Copy(ctx, *src.ImageKey, newKey); err != nil {
			return nil, err
		}
		copied = append(copied, newKey)
		dup.ImageKey = &newKey

		if src.ThumbnailKey != nil {
			newThumbKey, kerr := storage.ThumbnailKey(newKey)
			if kerr != nil {
				s.uploader.Cleanup(ctx, copied)
				return nil, kerr
			}
			if err := s.uploader.Store().Copy(ctx, *src.ThumbnailKey, newThumbKey); err != nil {
				s.uploader.Cleanup(ctx, copied)
				return nil, err
			}
			dup.ThumbnailKey = &newThumbKey
		}
	}

	if err := s.receipts.Create(ctx, &dup); err != nil {
		s.uploader.Cleanup(ctx, copied)
		return nil, fmt.Errorf("save receipt: %w", err)
	}

	return &dup, nil
}

// Delete removes a receipt in two phases: soft-delete the record, then
// best-effort delete the blobs, and hard-delete the record only once the
// store confirms both blobs are gone. A row whose blobs could not be
// confirmed deleted stays soft-deleted for a later sweep — the record is
// never considered gone while its storage may survive.
func (s *Service) Delete(ctx context.Context, actor Actor, id int64) error {
	rec, err := s.receipts.GetByID(ctx, actor.CompanyID, id)
	if err != nil {
		return err
	}
	if !actor.isAdmin() && rec.UserID != actor.UserID {
		return ErrNotOwner
	}

	if err := s.receipts.SoftDelete(ctx, actor.CompanyID, id); err != nil {
		return err
	}

	if rec.ImageKey == nil {
		return s.receipts.HardDelete(ctx, id)
	}

	s.uploader.Cleanup(ctx, []string{*rec.ImageKey})

	confirmed := true
	keys := []string{*rec.ImageKey}
	if thumbKey, kerr := storage.ThumbnailKey(*rec.ImageKey); kerr == nil {
		keys = append(keys, thumbKey)
	}
	for _, key := range keys {
		exists, eerr := s.uploader.Store().Exists(ctx, key)
		if eerr != nil || exists {
			confirmed = false
			break
		}
	}

	if !confirmed {
		log.Printf("receipt: blobs for receipt %d not confirmed deleted, row kept for sweep", id)
		return nil
	}
	return s.receipts.HardDelete(ctx, id)
}

func (s *Service) buildReceipt(actor Actor, req CreateManualRequest) *domain.Receipt {
	receiptDate := time.Now().UTC()
	if req.ReceiptDate != nil {
		receiptDate = *req.ReceiptDate
	}

	rec := &domain.Receipt{
		CompanyID:         actor.CompanyID,
		UserID:            actor.UserID,
		JobID:             req.JobID,
		Vendor:            req.Vendor,
		Description:       req.Description,
		Amount:            req.Amount,
		Tax:               req.Tax,
		ReceiptDate:       receiptDate,
		Status:            domain.ReceiptStatusPending,
		MetaSchemaVersion: domain.ReceiptMetaSchemaVersion,
	}
	rec.RecomputeTotal()
	return rec
}

func (s *Service) publish(event string, rec *domain.Receipt) {
	if s.events != nil {
		s.events.PublishReceipt(rec.CompanyID, event, rec)
	}
}

func applyProcessed(rec *domain.Receipt, p *Processed) {
	rec.ImageKey = &p.OriginalKey
	rec.ThumbnailKey = &p.ThumbnailKey
	rec.ImageWidth = p.Meta.Width
	rec.ImageHeight = p.Meta.Height
	rec.ImageFormat = p.Meta.Format
	rec.ImageSize = p.Meta.Size
	rec.MetaSchemaVersion = p.Meta.SchemaVersion
}

func vendorFromFilename(name string) string {
	base := path.Base(name)
	if ext := path.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	if base == "" {
		return "Unknown vendor"
	}
	return base
}
