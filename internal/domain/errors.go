package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrNoFilesUploaded     = errors.New("no files uploaded")
	ErrTooManyUnits        = errors.New("upload exceeds maximum unit count")
	ErrInvalidMode         = errors.New("invalid analysis mode")
	ErrUploadFailed        = errors.New("file upload to storage failed")

	// Surfaced only by the single-unit path when the first backend call
	// exhausts its budget; batch analysis degrades instead.
	ErrBackendTimeout = errors.New("model backend timed out")
	ErrInvalidOutput  = errors.New("model backend returned invalid output")
	ErrBackendFailure = errors.New("model backend failed")
)
