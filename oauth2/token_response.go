package oauth2

import "time"

// TokenResponse represents the response from an OAuth2 token request,
// either a code exchange or a refresh (RFC 6749 §5.1).
// Optional fields are pointers: nil means the server did not send the field,
// which for RefreshToken and Scope means "unchanged" during a refresh.
type TokenResponse struct {
	// Request is the token request this response answers.
	Request *TokenRequest `json:"request,omitempty"`

	// AccessToken is the token used to access protected resources.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken *string `json:"access_token,omitempty"`

	// TokenType indicates how to use the access token, typically "Bearer".
	TokenType *string `json:"token_type,omitempty"`

	// IDToken is the OpenID Connect ID token.
	// Only present: When "openid" scope was requested
	IDToken *string `json:"id_token,omitempty"`

	// AccessTokenExpiration is the absolute expiry computed from expires_in
	// at the time the response was received.
	AccessTokenExpiration *time.Time `json:"access_token_expiration,omitempty"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	// Security: Should be stored securely, may rotate on each use
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope is the granted scope; may be narrower than requested.
	Scope *string `json:"scope,omitempty"`

	// AdditionalParameters holds any non-standard string response fields.
	AdditionalParameters map[string]string `json:"additional_parameters,omitempty"`
}
