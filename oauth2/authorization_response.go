package oauth2

import "time"

// AuthorizationResponse is the result of the interactive authorization step.
// For the pure code flow only AuthorizationCode and State are set; hybrid and
// implicit flows may also carry token material straight from the authorization endpoint.
type AuthorizationResponse struct {
	// Request is the authorization request this response answers.
	Request *AuthorizationRequest `json:"request,omitempty"`

	// AuthorizationCode is exchanged once for tokens.
	AuthorizationCode *string `json:"code,omitempty"`

	// State echoes the request state.
	State *string `json:"state,omitempty"`

	AccessToken           *string    `json:"access_token,omitempty"`
	TokenType             *string    `json:"token_type,omitempty"`
	IDToken               *string    `json:"id_token,omitempty"`
	AccessTokenExpiration *time.Time `json:"access_token_expiration,omitempty"`

	// Scope is the granted scope. Nil means the server granted what was requested.
	Scope *string `json:"scope,omitempty"`

	AdditionalParameters map[string]string `json:"additional_parameters,omitempty"`
}
