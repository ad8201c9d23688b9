package service

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/lib/logger/sl"
)

// newValidator returns a validator with the "notblank" tag registered.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// storeErr wraps a store failure, tagging it as persistence unless it
// already carries a kind.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, apperrors.Persistence(err))
}

// logFailure logs caller mistakes as warnings and everything else as errors.
func logFailure(log *slog.Logger, msg string, err error) {
	switch apperrors.Kind(err) {
	case apperrors.ErrValidation, apperrors.ErrAuthorization, apperrors.ErrNotFound,
		apperrors.ErrConflict, apperrors.ErrLimitExceeded:
		log.Warn(msg, sl.Err(err))
	default:
		log.Error(msg, sl.Err(err))
	}
}
