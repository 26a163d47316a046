// Package images decodes receipt photos, extracts their metadata and derives
// normalized JPEG renditions. Thumbnails are always JPEG so downstream
// consumers never need format sniffing.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

var (
	// ErrUnreadable means the buffer is not a decodable raster image.
	ErrUnreadable = errors.New("unreadable image")
	// ErrUnsupportedFormat marks formats we deliberately do not process
	// (PDF). Distinct from ErrUnreadable so the caller can say so.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrConversionFailed means the source format was recognized (HEIC/HEIF)
	// but no codec on this platform can decode it.
	ErrConversionFailed = errors.New("conversion failed")
)

const (
	thumbnailQuality = 80
	convertQuality   = 90
)

// MetaSchemaVersion versions Meta so fields can be added without breaking
// older readers.
const MetaSchemaVersion = 1

// Meta describes a decoded original image.
type Meta struct {
	SchemaVersion int    `json:"schema_version"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	Size          int64  `json:"size"`
}

// DecodeMeta extracts dimensions and format without decoding full pixel data.
// PDF input fails with ErrUnsupportedFormat — rasterizing documents is out of
// scope, and that must not look like a corrupt upload. HEIC input fails with
// ErrConversionFailed when the platform has no codec for it.
func DecodeMeta(buf []byte) (*Meta, error) {
	if isPDF(buf) {
		return nil, fmt.Errorf("%w: PDF receipts are not processed", ErrUnsupportedFormat)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		if isHEIC(buf) {
			return nil, fmt.Errorf("%w: no HEIC codec available on this platform", ErrConversionFailed)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	return &Meta{
		SchemaVersion: MetaSchemaVersion,
		Width:         cfg.Width,
		Height:        cfg.Height,
		Format:        format,
		Size:          int64(len(buf)),
	}, nil
}

// Thumbnail downsizes buf so its width is at most maxWidth, preserving aspect
// ratio, and re-encodes as JPEG. Images narrower than maxWidth keep their
// size — thumbnails are never upscaled.
func Thumbnail(buf []byte, maxWidth int) ([]byte, error) {
	img, err := decode(buf)
	if err != nil {
		return nil, err
	}

	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	return encodeJPEG(img, thumbnailQuality)
}

// ConvertToJPEG re-encodes a decodable raster image into the normalized JPEG
// used for direct serving. Fails with ErrConversionFailed when the source
// cannot be decoded by any codec on this platform.
func ConvertToJPEG(buf []byte) ([]byte, error) {
	img, err := decode(buf)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	return encodeJPEG(img, convertQuality)
}

func decode(buf []byte) (image.Image, error) {
	if isPDF(buf) {
		return nil, fmt.Errorf("%w: PDF receipts are not processed", ErrUnsupportedFormat)
	}

	img, err := imaging.Decode(bytes.NewReader(buf), imaging.AutoOrientation(true))
	if err != nil {
		if isHEIC(buf) {
			return nil, fmt.Errorf("%w: no HEIC codec available on this platform", ErrConversionFailed)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return img, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

func isPDF(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte("%PDF-"))
}

// isHEIC checks the ISO base media ftyp box for HEIC/HEIF brands.
func isHEIC(buf []byte) bool {
	if len(buf) < 12 || !bytes.Equal(buf[4:8], []byte("ftyp")) {
		return false
	}
	switch string(buf[8:12]) {
	case "heic", "heix", "hevc", "hevx", "heif", "mif1", "msf1":
		return true
	}
	return false
}
