package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Object key layout:
//
//	{category}/{companyID}/{YYYY}/{MM}/{userID}/{uuid}{ext}
//
// A thumbnail key differs from its original only in the category segment, so
// either can be derived from the other without a lookup. Cleanup relies on
// this.
const (
	CategoryReceipts   = "receipts"
	CategoryThumbnails = "thumbnails"
	CategoryTemp       = "temp"
)

// ErrInvalidKey is returned when a key does not match the expected layout.
var ErrInvalidKey = errors.New("invalid object key")

// ReceiptKey builds a fresh key for an uploaded receipt. Two calls for the
// same filename produce different keys: every upload is a new blob.
func ReceiptKey(companyID, userID int64, filename string) string {
	now := time.Now().UTC()
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%d/%d/%02d/%d/%s%s",
		CategoryReceipts, companyID, now.Year(), int(now.Month()), userID, uuid.New().String(), ext)
}

// TempKey builds a key under the temp category for objects that must be
// staged before validation. Temp objects are deleted on rejection.
func TempKey(companyID, userID int64, filename string) string {
	return CategoryTemp + strings.TrimPrefix(ReceiptKey(companyID, userID, filename), CategoryReceipts)
}

// ThumbnailKey derives the thumbnail key from an original receipt key by
// substituting the category segment. Any key not under "receipts/" is
// rejected — deriving from a thumbnail key must fail fast, not chain.
func ThumbnailKey(originalKey string) (string, error) {
	rest, ok := strings.CutPrefix(originalKey, CategoryReceipts+"/")
	if !ok || rest == "" {
		return "", fmt.Errorf("%w: %q is not a receipt key", ErrInvalidKey, originalKey)
	}
	return CategoryThumbnails + "/" + rest, nil
}

// OriginalKey maps a thumbnail key back to the receipt key it was derived
// from. The inverse of ThumbnailKey.
func OriginalKey(thumbnailKey string) (string, error) {
	rest, ok := strings.CutPrefix(thumbnailKey, CategoryThumbnails+"/")
	if !ok || rest == "" {
		return "", fmt.Errorf("%w: %q is not a thumbnail key", ErrInvalidKey, thumbnailKey)
	}
	return CategoryReceipts + "/" + rest, nil
}
