package apperrors

import "errors"

// Sentinel errors for the failure categories the API distinguishes.
// Services wrap these with %w and context; handlers map them to status codes.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrPermission = errors.New("permission denied")
)

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsPermission(err error) bool { return errors.Is(err, ErrPermission) }
