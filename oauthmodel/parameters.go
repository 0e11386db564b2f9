package oauthmodel

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-state/oauth2"
	xoauth2 "golang.org/x/oauth2"
)

// AuthorizationParameters are the caller supplied inputs for a new authorization request.
// State, nonce and the PKCE pair are generated by NewAuthorizationRequest.
type AuthorizationParameters struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// ResponseType defaults to "code".
	ResponseType string

	Scopes []string

	AdditionalParameters map[string]string
}

// NewAuthorizationRequest builds an authorization request with a random state and nonce
// and an S256 PKCE challenge.
func NewAuthorizationRequest(params AuthorizationParameters) (*oauth2.AuthorizationRequest, error) {
	responseType := params.ResponseType
	if strings.TrimSpace(responseType) == "" {
		responseType = string(oauth2.CodeResponseType)
	}

	verifier := xoauth2.GenerateVerifier()
	req := &oauth2.AuthorizationRequest{
		ClientID:             params.ClientID,
		ClientSecret:         params.ClientSecret,
		ResponseType:         responseType,
		RedirectURI:          params.RedirectURI,
		Scope:                strings.Join(params.Scopes, " "),
		State:                uuid.New().String(),
		Nonce:                uuid.New().String(),
		CodeVerifier:         verifier,
		CodeChallenge:        xoauth2.S256ChallengeFromVerifier(verifier),
		CodeChallengeMethod:  oauth2.CodeMethodTypeS256,
		AdditionalParameters: params.AdditionalParameters,
	}

	if err := ValidateAuthorizationRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// ValidateAuthorizationRequest checks that the request can be sent to an authorization endpoint.
func ValidateAuthorizationRequest(req *oauth2.AuthorizationRequest) error {
	if strings.TrimSpace(req.ClientID) == "" {
		return ErrMissingClientID
	}

	// RFC 7636 §4.1: 43 to 128 characters
	if req.CodeChallenge != "" && (len(req.CodeChallenge) < 43 || len(req.CodeChallenge) > 128) {
		return ErrInvalidCodeChallenge
	}

	if !codeChallengeMethodValid(req.CodeChallenge, req.CodeChallengeMethod) {
		return ErrInvalidCodeChallengeMethod
	}

	if !redirectURIValid(req.RedirectURI) {
		return ErrInvalidRedirectUri
	}

	if !responseTypeValid(req) {
		return ErrInvalidResponseType
	}
	return nil
}

func codeChallengeMethodValid(codeChallenge string, challengeMethod oauth2.CodeMethodType) bool {
	if strings.TrimSpace(codeChallenge) == "" {
		return true
	}
	switch challengeMethod {
	case oauth2.CodeMethodTypeS256, oauth2.CodeMethodTypeNone:
		return true
	}
	return false
}

func redirectURIValid(redirectURI string) bool {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func responseTypeValid(req *oauth2.AuthorizationRequest) bool {
	types := req.ResponseTypes()
	if len(types) == 0 {
		return false
	}
	for _, t := range types {
		switch t {
		case oauth2.CodeResponseType, oauth2.TokenResponseType, oauth2.IDTokenResponseType:
		default:
			return false
		}
	}
	return true
}
