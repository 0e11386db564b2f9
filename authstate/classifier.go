package authstate

import (
	"errors"

	"github.com/jrsteele09/go-auth-state/oauth2"
)

// ErrorClass says how an incoming error is handled.
type ErrorClass int

const (
	// OtherError is anything outside the OAuth protocol domains: network failures,
	// timeouts, malformed transport responses. Never persisted.
	OtherError ErrorClass = iota

	// AuthorizationProtocolError is an OAuth error returned in place of an authorization response.
	AuthorizationProtocolError

	// TokenProtocolError is an OAuth error returned in place of a token response.
	TokenProtocolError
)

func (c ErrorClass) String() string {
	switch c {
	case AuthorizationProtocolError:
		return "authorization_protocol"
	case TokenProtocolError:
		return "token_protocol"
	default:
		return "other"
	}
}

// Classify returns the class of err based on the domain of the first *oauth2.Error in its chain.
func Classify(err error) ErrorClass {
	var oauthErr *oauth2.Error
	if !errors.As(err, &oauthErr) {
		return OtherError
	}
	switch oauthErr.Domain {
	case oauth2.AuthorizationDomain:
		return AuthorizationProtocolError
	case oauth2.TokenDomain:
		return TokenProtocolError
	default:
		return OtherError
	}
}
