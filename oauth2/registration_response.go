package oauth2

import "time"

// RegistrationResponse is the result of dynamic client registration (RFC 7591).
type RegistrationResponse struct {
	Request *RegistrationRequest

	ClientID string

	// ClientSecret is only issued to confidential clients.
	// Security: Never log or expose this value
	ClientSecret *string

	ClientIDIssuedAt      *time.Time
	ClientSecretExpiresAt *time.Time

	RegistrationAccessToken *string
	RegistrationClientURI   *string
	TokenEndpointAuthMethod *string

	AdditionalParameters map[string]string
}
