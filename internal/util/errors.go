// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input provided")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEntry     = errors.New("duplicate entry") // For cases like registering an existing user name
	ErrInvalidCredentials = errors.New("invalid user name or password")
	ErrUnavailable        = errors.New("storage unavailable") // Pool could not be initialized or a connection acquired
)

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
