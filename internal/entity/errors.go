package entity

import "errors"

type FailureKind string

const (
	KindExceedsSizeLimit        FailureKind = "ExceedsSizeLimit"
	KindUnsupportedFormat       FailureKind = "UnsupportedFormat"
	KindInternalProcessingError FailureKind = "InternalProcessingError"
)

var (
	// Client input errors
	ErrExceedsSizeLimit  = errors.New("file size too large")
	ErrUnsupportedFormat = errors.New("file type not allowed")
	ErrEmptyUpload       = errors.New("no file selected")

	// Processing degradations, never returned to the caller
	ErrDecodeFailed    = errors.New("decode failed")
	ErrTooManyPixels   = errors.New("image has too many pixels")
	ErrTransformFailed = errors.New("transform failed")
	ErrEncodeFailed    = errors.New("encode failed")

	// Storage failures
	ErrInternalProcessing = errors.New("an error occurred while uploading the image")
	ErrNameCollision      = errors.New("stored name already exists")
	ErrInvalidName        = errors.New("invalid stored name")
	ErrImageNotFound      = errors.New("image not found")
)

// KindOf classifies an error returned by the upload service.
func KindOf(err error) FailureKind {
	switch {
	case errors.Is(err, ErrExceedsSizeLimit):
		return KindExceedsSizeLimit
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrEmptyUpload):
		return KindUnsupportedFormat
	default:
		return KindInternalProcessingError
	}
}
