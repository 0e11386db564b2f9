package errors

import (
	"errors"
	"fmt"
)

// Errors shared by the command line tools.
var (
	// Configuration errors
	ErrMissingIssuer   = errors.New("issuer not configured")
	ErrMissingClientID = errors.New("client ID not configured")

	// Session errors
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrSessionExpired  = errors.New("session expired, log in again")
	ErrSessionNotFound = errors.New("session not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
