package receipt

import (
	"errors"

	"sitecost/internal/images"
	"sitecost/internal/storage"
)

var (
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrNotOwner        = errors.New("receipt belongs to another user")
	ErrInvalidStatus   = errors.New("operation not allowed in current status")

	ErrInvalidFileType    = errors.New("file type is not allowed")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrEmptyFile          = errors.New("file is empty")
	ErrDimensionsTooSmall = errors.New("image dimensions are below the minimum")

	// Re-exported so handlers can switch on one package.
	ErrUnreadableImage   = images.ErrUnreadable
	ErrUnsupportedFormat = images.ErrUnsupportedFormat
	ErrConversionFailed  = images.ErrConversionFailed
	ErrObjectNotFound    = storage.ErrNotFound
)
