package authstate

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// redacted replaces every token value in human readable output. It has a fixed width so
// nothing about the token, including its length, is revealed.
const redacted = "[REDACTED]"

func redact(v *string) string {
	if v == nil {
		return "<nil>"
	}
	return redacted
}

func formatOptional(v *string) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%q", *v)
}

// String implements fmt.Stringer with all tokens redacted.
func (s *AuthState) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiration := "<nil>"
	if exp := s.accessTokenExpiration(); exp != nil {
		expiration = exp.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf(
		"AuthState{isAuthorized: %t, accessToken: %s, accessTokenExpiration: %s, idToken: %s, refreshToken: %s, scope: %s, needsForcedRefresh: %t, authorizationError: %v}",
		s.isAuthorized(),
		redact(s.accessToken()),
		expiration,
		redact(s.idToken()),
		redact(s.refreshToken),
		formatOptional(s.scope),
		s.needsForcedRefresh,
		s.authorizationError,
	)
}

// GoString keeps %#v from printing the raw fields.
func (s *AuthState) GoString() string {
	return s.String()
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler with all tokens redacted.
func (s *AuthState) MarshalZerologObject(e *zerolog.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e.Bool("is_authorized", s.isAuthorized()).
		Str("access_token", redact(s.accessToken())).
		Str("id_token", redact(s.idToken())).
		Str("refresh_token", redact(s.refreshToken)).
		Bool("needs_forced_refresh", s.needsForcedRefresh)
	if s.scope != nil {
		e.Str("scope", *s.scope)
	}
	if exp := s.accessTokenExpiration(); exp != nil {
		e.Time("access_token_expiration", *exp)
	}
	if s.authorizationError != nil {
		e.AnErr("authorization_error", s.authorizationError)
	}
}
