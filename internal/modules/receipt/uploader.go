package receipt

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path"
	"strings"
	"sync"
	"time"

	"sitecost/internal/images"
	"sitecost/internal/storage"
)

// thumbnails are immutable (a new upload gets a new key), so clients may
// cache them for a year.
const thumbnailCacheControl = "public, max-age=31536000"

type UploaderConfig struct {
	MaxBytes       int64
	MinDimension   int
	ThumbnailWidth int
	SignedURLTTL   time.Duration
	BatchWorkers   int
}

// Uploader orchestrates the receipt image pipeline: stream the original into
// the object store, read it back, derive a thumbnail, and clean up after
// failures. It owns no database state.
type Uploader struct {
	store storage.Storage
	cfg   UploaderConfig
}

func NewUploader(store storage.Storage, cfg UploaderConfig) *Uploader {
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 10
	}
	if cfg.ThumbnailWidth <= 0 {
		cfg.ThumbnailWidth = 400
	}
	return &Uploader{store: store, cfg: cfg}
}

// Processed is the transient result of one file's pipeline. The caller turns
// it into a persistent Receipt and discards it.
type Processed struct {
	OriginalKey  string
	ThumbnailKey string
	ThumbnailURL string
	Meta         *images.Meta
}

// StoreOriginal validates the multipart header and streams the file into the
// store under a fresh receipt key. Nothing is written when validation fails.
func (u *Uploader) StoreOriginal(ctx context.Context, companyID, userID int64, fh *multipart.FileHeader) (string, error) {
	if err := ValidateHeader(fh, u.cfg.MaxBytes); err != nil {
		return "", err
	}

	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	// Size is re-checked while reading: the declared size is client input.
	data, err := io.ReadAll(io.LimitReader(file, u.cfg.MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > u.cfg.MaxBytes {
		return "", fmt.Errorf("%w: stream exceeded declared size", ErrFileTooLarge)
	}

	key := storage.ReceiptKey(companyID, userID, fh.Filename)
	err = u.store.Put(ctx, key, data, storage.PutOptions{
		ContentType: contentTypeFor(fh),
	})
	if err != nil {
		return "", fmt.Errorf("store original: %w", err)
	}
	return key, nil
}

// Process runs the pipeline for an already-stored original: fetch, decode
// metadata, check dimensions, build the thumbnail and store it under the
// derived key. On error nothing visible is left behind except possibly the
// thumbnail object, which the caller removes via Cleanup — this function
// never deletes the original, because only the caller knows whether an
// original without a thumbnail should survive.
func (u *Uploader) Process(ctx context.Context, key string) (*Processed, error) {
	data, err := u.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	meta, err := images.DecodeMeta(data)
	if err != nil {
		return nil, err
	}
	if err := ValidateDimensions(meta, u.cfg.MinDimension); err != nil {
		return nil, err
	}

	thumb, err := images.Thumbnail(data, u.cfg.ThumbnailWidth)
	if err != nil {
		return nil, err
	}

	thumbKey, err := storage.ThumbnailKey(key)
	if err != nil {
		return nil, err
	}

	err = u.store.Put(ctx, thumbKey, thumb, storage.PutOptions{
		ContentType:  "image/jpeg",
		CacheControl: thumbnailCacheControl,
		Meta: &storage.ObjectMeta{
			SchemaVersion: storage.MetaSchemaVersion,
			SourceKey:     key,
			Width:         meta.Width,
			Height:        meta.Height,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store thumbnail: %w", err)
	}

	thumbURL, err := u.store.SignedURL(ctx, thumbKey, u.cfg.SignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("sign thumbnail url: %w", err)
	}

	return &Processed{
		OriginalKey:  key,
		ThumbnailKey: thumbKey,
		ThumbnailURL: thumbURL,
		Meta:         meta,
	}, nil
}

// BatchItem is one successfully processed file of a batch.
type BatchItem struct {
	Filename  string
	Processed *Processed
}

// BatchError is one failed file of a batch. Key is empty when the original
// was never stored.
type BatchError struct {
	Filename string
	Key      string
	Err      error
}

// BatchResult separates successes from failures. A failed file never reverts
// another file's success.
type BatchResult struct {
	Succeeded []BatchItem
	Failed    []BatchError
}

// ProcessBatch runs the full pipeline for each file concurrently and
// independently, bounded by BatchWorkers. After the batch completes, every
// key belonging to a failed file is submitted for best-effort cleanup.
func (u *Uploader) ProcessBatch(ctx context.Context, companyID, userID int64, files []*multipart.FileHeader) BatchResult {
	type slot struct {
		item *BatchItem
		fail *BatchError
	}
	slots := make([]slot, len(files))

	var wg sync.WaitGroup
	sem := make(chan struct{}, u.cfg.BatchWorkers)

	for i, fh := range files {
		wg.Add(1)
		go func(i int, fh *multipart.FileHeader) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			key, err := u.StoreOriginal(ctx, companyID, userID, fh)
			if err != nil {
				slots[i].fail = &BatchError{Filename: fh.Filename, Err: err}
				return
			}

			processed, err := u.Process(ctx, key)
			if err != nil {
				slots[i].fail = &BatchError{Filename: fh.Filename, Key: key, Err: err}
				return
			}

			slots[i].item = &BatchItem{Filename: fh.Filename, Processed: processed}
		}(i, fh)
	}
	wg.Wait()

	var result BatchResult
	var orphaned []string
	for _, s := range slots {
		switch {
		case s.item != nil:
			result.Succeeded = append(result.Succeeded, *s.item)
		case s.fail != nil:
			result.Failed = append(result.Failed, *s.fail)
			if s.fail.Key != "" {
				orphaned = append(orphaned, s.fail.Key)
			}
		}
	}

	if len(orphaned) > 0 {
		u.Cleanup(ctx, orphaned)
	}
	return result
}

// Cleanup expands each original key with its derived thumbnail key and issues
// one best-effort bulk delete. Keys that were never stored are fine, and
// delete failures are logged, never returned — cleanup must not mask the
// error that triggered it.
func (u *Uploader) Cleanup(ctx context.Context, keys []string) {
	expanded := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		expanded = append(expanded, key)
		if thumbKey, err := storage.ThumbnailKey(key); err == nil {
			expanded = append(expanded, thumbKey)
		}
	}

	if failed := u.store.DeleteMany(ctx, expanded); len(failed) > 0 {
		log.Printf("receipt: cleanup incomplete keys=%s", strings.Join(failed, ","))
	}
}

// SignedURL exposes the store's URL signing so handlers never return raw keys.
func (u *Uploader) SignedURL(ctx context.Context, key string) (string, error) {
	return u.store.SignedURL(ctx, key, u.cfg.SignedURLTTL)
}

// Store returns the underlying object store for operations outside the
// pipeline (copy, existence checks during deletion).
func (u *Uploader) Store() storage.Storage {
	return u.store
}

func contentTypeFor(fh *multipart.FileHeader) string {
	if ct := strings.TrimSpace(fh.Header.Get("Content-Type")); ct != "" {
		return strings.Split(ct, ";")[0]
	}
	switch strings.ToLower(path.Ext(fh.Filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
