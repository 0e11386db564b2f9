package oauth2

import "strings"

// AuthorizationRequest holds the parameters sent to the authorization endpoint.
// It is kept alongside the authorization response so later requests (code exchange,
// refresh) can reuse the client identity and fall back to the requested scope.
type AuthorizationRequest struct {
	// ClientID identifies the application requesting authorization.
	ClientID string `json:"client_id"`

	// ClientSecret is only set for confidential clients.
	// Security: Never log or expose this value
	ClientSecret string `json:"client_secret,omitempty"`

	// ResponseType is the space separated response_type, e.g. "code" or "code id_token".
	ResponseType string `json:"response_type"`

	// RedirectURI is where the authorization response will be sent.
	RedirectURI string `json:"redirect_uri,omitempty"`

	// Scope is the space separated list of requested scopes.
	Scope string `json:"scope,omitempty"`

	// State is the CSRF token echoed back in the redirect.
	State string `json:"state,omitempty"`

	// Nonce associates the client session with the ID token (OIDC).
	Nonce string `json:"nonce,omitempty"`

	// CodeVerifier is the PKCE secret. Only the derived challenge is sent to the server.
	CodeVerifier string `json:"code_verifier,omitempty"`

	// CodeChallenge is the PKCE challenge derived from CodeVerifier.
	CodeChallenge string `json:"code_challenge,omitempty"`

	// CodeChallengeMethod is "S256" or "plain".
	CodeChallengeMethod CodeMethodType `json:"code_challenge_method,omitempty"`

	// AdditionalParameters are sent verbatim with the request.
	AdditionalParameters map[string]string `json:"additional_parameters,omitempty"`
}

// ResponseTypes returns the individual response types of the request.
func (r *AuthorizationRequest) ResponseTypes() []ResponseType {
	fields := strings.Fields(r.ResponseType)
	types := make([]ResponseType, 0, len(fields))
	for _, f := range fields {
		types = append(types, ResponseType(f))
	}
	return types
}

// IsCodeFlow reports whether the request is a pure authorization code flow
// (response_type=code with nothing else).
func (r *AuthorizationRequest) IsCodeFlow() bool {
	types := r.ResponseTypes()
	return len(types) == 1 && types[0] == CodeResponseType
}

// TokenRequest holds the parameters sent to the token endpoint.
type TokenRequest struct {
	// GrantType is authorization_code or refresh_token.
	GrantType GrantType `json:"grant_type"`

	// ClientID identifies the OAuth2 client making the request.
	ClientID string `json:"client_id"`

	// ClientSecret is the secret credential for confidential clients.
	// Security: Never log or expose this value
	ClientSecret string `json:"client_secret,omitempty"`

	// RedirectURI must match the authorization request for the code grant.
	RedirectURI string `json:"redirect_uri,omitempty"`

	// Code is the authorization code (authorization_code grant only).
	Code string `json:"code,omitempty"`

	// CodeVerifier is the PKCE verifier matching the authorization request's challenge.
	CodeVerifier string `json:"code_verifier,omitempty"`

	// RefreshToken is used for the refresh_token grant.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope optionally narrows the scope of a refresh.
	Scope string `json:"scope,omitempty"`

	// AdditionalParameters are sent verbatim with the request.
	AdditionalParameters map[string]string `json:"additional_parameters,omitempty"`
}

// RegistrationRequest holds the client metadata sent for dynamic client registration (RFC 7591).
type RegistrationRequest struct {
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}
