package apperrors

import "errors"

// Error kinds. Every concrete error of the service unwraps to exactly one of these,
// so callers can branch with errors.Is(err, apperrors.ErrConflict).
var (
	ErrValidation        = errors.New("validation failed")
	ErrAuthorization     = errors.New("not authorized")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrLimitExceeded     = errors.New("limit exceeded")
	ErrInternalInvariant = errors.New("internal invariant violated")
	ErrPersistence       = errors.New("persistence failure")
	ErrLockService       = errors.New("lock service failure")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// New returns an error with the given message that unwraps to kind.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Validation builds a one-off validation error, e.g. for a rejected field.
func Validation(msg string) error {
	return New(ErrValidation, msg)
}

// Persistence marks err as a storage failure unless it already carries a kind.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	return &wrappedError{kind: ErrPersistence, err: err}
}

type wrappedError struct {
	kind error
	err  error
}

func (e *wrappedError) Error() string { return e.kind.Error() + ": " + e.err.Error() }

func (e *wrappedError) Unwrap() []error { return []error{e.kind, e.err} }

var kinds = []error{
	ErrValidation,
	ErrAuthorization,
	ErrNotFound,
	ErrConflict,
	ErrLimitExceeded,
	ErrInternalInvariant,
	ErrPersistence,
	ErrLockService,
}

// Kind reports the kind err belongs to, or nil for foreign errors.
func Kind(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Message returns the text of the most specific error in err's chain,
// without the operation prefixes added while it propagated.
func Message(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	if kind := Kind(err); kind != nil {
		return kind.Error()
	}
	return err.Error()
}
