// Package preprocess turns uploaded media into the ordered unit sequence the
// analysis pipeline consumes. One uploaded image is one unit; a PDF travels
// whole as a single unit to a document-capable backend. Page rasterization
// and image decoding are deliberately not done here.
package preprocess

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"

	"visara/internal/domain"
)

// Unit is one independently analyzable item within a batch.
type Unit struct {
	MediaB64 string
	MimeType string
	Filename string
	Size     int64
}

// Limits bounds what a single request may carry.
type Limits struct {
	MaxUnits      int
	MaxFileSizeMB int64
}

// FromUploads validates and converts multipart file headers into ordered
// units. Order follows the upload order; it determines unit indexes
// downstream.
func FromUploads(files []*multipart.FileHeader, limits Limits) ([]Unit, error) {
	if len(files) == 0 {
		return nil, domain.ErrNoFilesUploaded
	}
	if limits.MaxUnits > 0 && len(files) > limits.MaxUnits {
		return nil, fmt.Errorf("%w: got %d files, max %d", domain.ErrTooManyUnits, len(files), limits.MaxUnits)
	}

	maxBytes := limits.MaxFileSizeMB * 1024 * 1024

	units := make([]Unit, 0, len(files))
	for _, fh := range files {
		contentType := fh.Header.Get("Content-Type")
		if _, ok := domain.AllowedContentTypes[contentType]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, contentType)
		}
		if maxBytes > 0 && fh.Size > maxBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes", domain.ErrFileTooLarge, fh.Filename, fh.Size)
		}

		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
		}

		data := make([]byte, fh.Size)
		if _, err := io.ReadFull(f, data); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("reading upload %s: %w", fh.Filename, err)
		}
		_ = f.Close()

		units = append(units, Unit{
			MediaB64: base64.StdEncoding.EncodeToString(data),
			MimeType: contentType,
			Filename: fh.Filename,
			Size:     fh.Size,
		})
	}

	return units, nil
}

// FromBytes builds a single unit from raw bytes, for callers that already
// hold the payload (tests, re-analysis of archived media).
func FromBytes(data []byte, contentType, filename string) (Unit, error) {
	if _, ok := domain.AllowedContentTypes[contentType]; !ok {
		return Unit{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, contentType)
	}
	return Unit{
		MediaB64: base64.StdEncoding.EncodeToString(data),
		MimeType: contentType,
		Filename: filename,
		Size:     int64(len(data)),
	}, nil
}
