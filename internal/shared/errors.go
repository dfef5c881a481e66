package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks input or state preconditions the caller can fix.
	ErrValidation = errors.New("validation failed")
	// ErrBusinessRule marks requests rejected by a business rule such as shift capacity.
	ErrBusinessRule = errors.New("business rule violated")
	// ErrConflict indicates the record changed or is referenced elsewhere.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the caller may not touch the record.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates missing or invalid credentials on the request.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Validationf builds an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// BusinessRulef builds an error wrapping ErrBusinessRule.
func BusinessRulef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBusinessRule, fmt.Sprintf(format, args...))
}

// UserSafeMessage strips the sentinel prefix so the message can be shown to end users.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, sentinel := range []error{ErrValidation, ErrBusinessRule, ErrConflict, ErrNotFound} {
		if errors.Is(err, sentinel) {
			msg := err.Error()
			prefix := sentinel.Error() + ": "
			if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
				return msg[len(prefix):]
			}
			return msg
		}
	}
	return "unexpected error"
}
