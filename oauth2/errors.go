package oauth2

import "fmt"

// ErrorDomain partitions errors by where they came from.
type ErrorDomain string

const (
	// AuthorizationDomain errors are OAuth error responses from the authorization endpoint
	// (RFC 6749 §4.1.2.1), returned in place of an AuthorizationResponse.
	AuthorizationDomain ErrorDomain = "oauth_authorization"

	// TokenDomain errors are OAuth error responses from the token endpoint
	// (RFC 6749 §5.2), returned in place of a TokenResponse.
	TokenDomain ErrorDomain = "oauth_token"

	// GeneralDomain covers transport, parsing and everything else.
	GeneralDomain ErrorDomain = "general"
)

// Error is an OAuth protocol error tagged with its domain.
type Error struct {
	Domain      ErrorDomain
	Code        string // e.g. "invalid_grant"
	Description string
	URI         string

	// Payload holds the raw error response fields. It is never persisted.
	Payload map[string]any
}

// NewAuthorizationError creates an authorization endpoint error.
func NewAuthorizationError(code, description string) *Error {
	return &Error{Domain: AuthorizationDomain, Code: code, Description: description}
}

// NewTokenError creates a token endpoint error.
func NewTokenError(code, description string) *Error {
	return &Error{Domain: TokenDomain, Code: code, Description: description}
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s: %s", e.Domain, e.Code, e.Description)
	}
	return fmt.Sprintf("%s: %s", e.Domain, e.Code)
}

// Is matches another *Error with the same domain and code so sentinel
// comparisons work through errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Domain == t.Domain && e.Code == t.Code
}
