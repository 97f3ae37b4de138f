package entity

import (
	"errors"
	"fmt"
)

var (
	// Request errors
	ErrImageURLRequired = errors.New("image_url is required")

	// Filter errors, one per FilterError kind
	ErrImageNotFound    = errors.New("image not found")
	ErrUndecodableImage = errors.New("undecodable image")
	ErrTransport        = errors.New("image transport failed")

	// Content errors
	ErrImageTooLarge     = errors.New("image exceeds size limit")
	ErrTooManyPixels     = errors.New("image dimensions exceed pixel limit")
	ErrUnknownFormat     = errors.New("unknown content format")
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// Storage errors
	ErrOutsideStorage = errors.New("path is outside the storage area")
)

type FilterErrorKind int

const (
	KindTransport FilterErrorKind = iota
	KindNotFound
	KindDecode
)

func (k FilterErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDecode:
		return "decode"
	default:
		return "transport"
	}
}

func (k FilterErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrImageNotFound
	case KindDecode:
		return ErrUndecodableImage
	default:
		return ErrTransport
	}
}

// FilterError is returned by the fetch and filter steps. Callers classify it
// with errors.Is against ErrImageNotFound, ErrUndecodableImage or ErrTransport.
type FilterError struct {
	Kind FilterErrorKind
	URL  string
	Err  error
}

func NewFilterError(kind FilterErrorKind, url string, err error) *FilterError {
	return &FilterError{Kind: kind, URL: url, Err: err}
}

func (e *FilterError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind.sentinel(), e.URL)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind.sentinel(), e.URL, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

func (e *FilterError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf reports the FilterError kind carried by err. Errors that are not a
// FilterError are treated as transport failures.
func KindOf(err error) FilterErrorKind {
	var fe *FilterError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransport
}
