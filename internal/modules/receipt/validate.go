package receipt

import (
	"fmt"
	"mime/multipart"
	"path"
	"strings"

	"sitecost/internal/images"
)

// Pre-storage validation is content-blind: extension, declared MIME type and
// declared size only. It runs before any byte reaches permanent storage so
// rejected uploads are never stored. Real dimensions can only be checked
// after the object is retrievable (ValidateDimensions).

// AllowedExtensions defines which file extensions are accepted.
var AllowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
	".heic": true,
	".heif": true,
}

// AllowedMimeTypes defines which declared content types are accepted.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/heic":      true,
	"image/heif":      true,
	"application/pdf": true,
}

// ValidateHeader runs the pre-storage checkpoint against a multipart header.
func ValidateHeader(fh *multipart.FileHeader, maxBytes int64) error {
	if fh.Size == 0 {
		return ErrEmptyFile
	}
	if fh.Size > maxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, fh.Size, maxBytes)
	}

	ext := strings.ToLower(path.Ext(fh.Filename))
	if !AllowedExtensions[ext] {
		return fmt.Errorf("%w: %q", ErrInvalidFileType, ext)
	}

	contentType := strings.Split(fh.Header.Get("Content-Type"), ";")[0]
	contentType = strings.TrimSpace(strings.ToLower(contentType))
	if contentType != "" && !AllowedMimeTypes[contentType] {
		return fmt.Errorf("%w: %q", ErrInvalidFileType, contentType)
	}

	return nil
}

// ValidateDimensions runs the post-decode checkpoint. It only reports — the
// orchestrator's caller decides what to delete.
func ValidateDimensions(meta *images.Meta, minDimension int) error {
	if meta.Width < minDimension || meta.Height < minDimension {
		return fmt.Errorf("%w: %dx%d (minimum %dx%d)",
			ErrDimensionsTooSmall, meta.Width, meta.Height, minDimension, minDimension)
	}
	return nil
}
