package oauthmodel

import (
	"strings"

	"github.com/jrsteele09/go-auth-state/internal/utils"
	"github.com/jrsteele09/go-auth-state/oauth2"
)

// CodeExchangeRequest builds the authorization_code token request that completes
// the given authorization response.
func CodeExchangeRequest(resp *oauth2.AuthorizationResponse, additional map[string]string) (*oauth2.TokenRequest, error) {
	if resp == nil || resp.Request == nil {
		return nil, ErrMissingClientID
	}
	code := utils.Value(resp.AuthorizationCode)
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingAuthorizationCode
	}
	return &oauth2.TokenRequest{
		GrantType:            oauth2.AuthorizationCodeGrant,
		ClientID:             resp.Request.ClientID,
		ClientSecret:         resp.Request.ClientSecret,
		RedirectURI:          resp.Request.RedirectURI,
		Code:                 code,
		CodeVerifier:         resp.Request.CodeVerifier,
		AdditionalParameters: additional,
	}, nil
}

// RefreshRequest builds a refresh_token token request.
// Scope is left empty so the server keeps the originally granted scope (RFC 6749 §6).
func RefreshRequest(clientID, clientSecret, redirectURI, refreshToken string, additional map[string]string) (*oauth2.TokenRequest, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrMissingRefreshToken
	}
	if strings.TrimSpace(clientID) == "" {
		return nil, ErrMissingClientID
	}
	return &oauth2.TokenRequest{
		GrantType:            oauth2.RefreshTokenGrant,
		ClientID:             clientID,
		ClientSecret:         clientSecret,
		RedirectURI:          redirectURI,
		RefreshToken:         refreshToken,
		AdditionalParameters: additional,
	}, nil
}
