package authstate

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRefreshToken is returned when a refresh is needed but the state holds no refresh token.
	ErrNoRefreshToken = errors.New("unable to refresh token: no refresh token available")

	// ErrNoTokenExchanger is returned when a refresh is needed but no TokenExchanger was configured.
	ErrNoTokenExchanger = errors.New("unable to refresh token: no token exchanger configured")

	// ErrEmptyTokenResponse is returned when the token exchanger reports neither a response nor an error.
	ErrEmptyTokenResponse = errors.New("token exchanger returned no response")
)

// CorruptPersistedStateError is returned by Unmarshal when the persisted data does not
// match the expected encoding.
type CorruptPersistedStateError struct {
	Reason string
	Err    error
}

func (e *CorruptPersistedStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt persisted auth state: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt persisted auth state: %s", e.Reason)
}

func (e *CorruptPersistedStateError) Unwrap() error {
	return e.Err
}
