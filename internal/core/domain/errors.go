package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRoleForbidden     = errors.New("role forbidden")
	ErrAlreadyClaimed    = errors.New("donation already claimed")
	ErrNotEditable       = errors.New("donation not editable")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrConcurrentUpdate  = errors.New("concurrent update, retry later")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrUnauthenticated   = errors.New("not authenticated")
)

// Donation and claim errors
var (
	ErrDonationNotFound = fmt.Errorf("donation %w", ErrNotFound)
	ErrClaimNotFound    = fmt.Errorf("claim %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrDonationExpired  = fmt.Errorf("%w: donation has expired", ErrAlreadyClaimed)
)

// UserErrors
var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrUserAlreadyExists  = fmt.Errorf("user %w", ErrDuplicateEntry)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrUserInactive       = errors.New("user account is inactive")
)

// InvalidInput wraps ErrInvalidInput with a field-level message
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
