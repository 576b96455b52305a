// Package errors classifies pass-build failures into a stable taxonomy so
// the serving layer can map them to HTTP statuses and operators can alert on
// stage-level codes.
package errors

import "errors"

type Category string

const (
	CategoryInvalidInput    Category = "invalid_input"
	CategoryAssetResolution Category = "asset_resolution"
	CategorySigning         Category = "signing"
	CategoryPackaging       Category = "packaging"
	CategoryTimeout         Category = "timeout"
	CategoryInternalFailure Category = "internal_failure"
)

// Sentinel errors for every failure the pipeline can surface. All build
// errors wrap exactly one of these, so callers branch with errors.Is.
var (
	ErrInvalidConfig          = errors.New("invalid wallet config")
	ErrEmptyFieldSet          = errors.New("pass has no displayable content")
	ErrAssetFetch             = errors.New("asset fetch failed")
	ErrAssetTooLarge          = errors.New("asset exceeds size limit")
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	ErrSigningKey             = errors.New("signing key unusable")
	ErrCertificateExpired     = errors.New("signing certificate outside validity window")
	ErrSignatureFailure       = errors.New("signature generation failed")
	ErrPackaging              = errors.New("bundle packaging failed")
	ErrBuildTimeout           = errors.New("pass build timed out")
)

type classifiedError struct {
	category  Category
	code      string
	hint      string
	retryable bool
	sentinel  error
	cause     error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return e.sentinel.Error()
	}
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *classifiedError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.sentinel}
	}
	return []error{e.sentinel, e.cause}
}

func (e *classifiedError) Category() Category {
	return e.category
}

func (e *classifiedError) Code() string {
	return e.code
}

func (e *classifiedError) Hint() string {
	return e.hint
}

func (e *classifiedError) Retryable() bool {
	return e.retryable
}

// Classify binds a cause to one of the sentinel errors with a category and a
// stable code. A nil sentinel is treated as an internal failure.
func Classify(sentinel error, cause error, category Category, code, hint string, retryable bool) error {
	if sentinel == nil {
		sentinel = errors.New("internal failure")
		category = CategoryInternalFailure
	}
	return &classifiedError{
		category:  category,
		code:      code,
		hint:      hint,
		retryable: retryable,
		sentinel:  sentinel,
		cause:     cause,
	}
}

func CategoryOf(err error) Category {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.category
	}
	return ""
}

func CodeOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.code
	}
	return ""
}

func HintOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.hint
	}
	return ""
}

func RetryableOf(err error) bool {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.retryable
	}
	return false
}
