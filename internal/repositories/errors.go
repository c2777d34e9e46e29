package repositories

import "errors"

// Domain-level errors so callers never have to inspect driver errors or
// match on message strings.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateSlug is returned when saving a store whose slug collides
	// with an existing one (unique index violation).
	ErrDuplicateSlug = errors.New("store slug already exists")

	// ErrDuplicateEmail is returned when creating a user whose email is
	// already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidResetToken is returned when a password-reset token does not
	// match any user or has expired.
	ErrInvalidResetToken = errors.New("password reset token is invalid or has expired")
)
