package authstate

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/jrsteele09/go-auth-state/oauth2"
)

// encodingVersion is bumped whenever the persisted layout changes incompatibly.
const encodingVersion = 1

// persistedError keeps only the domain and code of an authorization error.
// Descriptions and payloads come from the server and are not persisted.
type persistedError struct {
	Domain oauth2.ErrorDomain `json:"domain"`
	Code   string             `json:"code"`
}

type persistedState struct {
	Version                   int                           `json:"version"`
	RefreshToken              *string                       `json:"refresh_token,omitempty"`
	NeedsForcedRefresh        bool                          `json:"needs_forced_refresh"`
	Scope                     *string                       `json:"scope,omitempty"`
	LastAuthorizationResponse *oauth2.AuthorizationResponse `json:"last_authorization_response,omitempty"`
	LastTokenResponse         *oauth2.TokenResponse         `json:"last_token_response,omitempty"`
	AuthorizationError        *persistedError               `json:"authorization_error,omitempty"`
}

// Marshal encodes the durable fields of s. The registration response is not included, and
// request secrets that can no longer be used are dropped.
func Marshal(s *AuthState) ([]byte, error) {
	snap := s.Snapshot()
	p := persistedState{
		Version:                   encodingVersion,
		RefreshToken:              snap.RefreshToken,
		NeedsForcedRefresh:        snap.NeedsForcedRefresh,
		Scope:                     snap.Scope,
		LastAuthorizationResponse: durableAuthorizationResponse(snap.LastAuthorizationResponse, snap.LastTokenResponse != nil),
		LastTokenResponse:         durableTokenResponse(snap.LastTokenResponse, snap.LastAuthorizationResponse == nil),
	}
	if snap.AuthorizationError != nil {
		p.AuthorizationError = toPersistedError(snap.AuthorizationError)
	}
	return json.Marshal(p)
}

// durableAuthorizationResponse drops the PKCE verifier once the code has been exchanged.
func durableAuthorizationResponse(resp *oauth2.AuthorizationResponse, exchanged bool) *oauth2.AuthorizationResponse {
	if resp == nil || resp.Request == nil || !exchanged {
		return resp
	}
	out := *resp
	req := *resp.Request
	req.CodeVerifier = ""
	out.Request = &req
	return &out
}

// durableTokenResponse drops the spent grant material of the request. The client secret is
// kept only when no authorization request carries it for the next refresh.
func durableTokenResponse(resp *oauth2.TokenResponse, keepClientSecret bool) *oauth2.TokenResponse {
	if resp == nil || resp.Request == nil {
		return resp
	}
	out := *resp
	req := *resp.Request
	req.Code = ""
	req.CodeVerifier = ""
	req.RefreshToken = ""
	if !keepClientSecret {
		req.ClientSecret = ""
	}
	out.Request = &req
	return &out
}

// Unmarshal decodes data produced by Marshal. Unknown fields, wrong value types, an unknown
// version or trailing data are reported as *CorruptPersistedStateError.
func Unmarshal(data []byte, options ...Option) (*AuthState, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var p persistedState
	if err := dec.Decode(&p); err != nil {
		return nil, &CorruptPersistedStateError{Reason: "decode", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &CorruptPersistedStateError{Reason: "trailing data after state"}
	}
	if p.Version != encodingVersion {
		return nil, &CorruptPersistedStateError{Reason: "unsupported version"}
	}

	var authErr error
	if p.AuthorizationError != nil {
		e, err := fromPersistedError(p.AuthorizationError)
		if err != nil {
			return nil, err
		}
		authErr = e
	}

	s := newAuthState(options...)
	s.lastAuthorizationResponse = p.LastAuthorizationResponse
	s.lastTokenResponse = p.LastTokenResponse
	s.scope = p.Scope
	s.refreshToken = p.RefreshToken
	s.needsForcedRefresh = p.NeedsForcedRefresh
	s.authorizationError = authErr
	return s, nil
}

func toPersistedError(err error) *persistedError {
	var oauthErr *oauth2.Error
	if errors.As(err, &oauthErr) {
		return &persistedError{Domain: oauthErr.Domain, Code: oauthErr.Code}
	}
	return &persistedError{Domain: oauth2.GeneralDomain, Code: "unknown_error"}
}

func fromPersistedError(p *persistedError) (*oauth2.Error, error) {
	switch p.Domain {
	case oauth2.AuthorizationDomain, oauth2.TokenDomain, oauth2.GeneralDomain:
	default:
		return nil, &CorruptPersistedStateError{Reason: "unknown error domain " + string(p.Domain)}
	}
	if p.Code == "" {
		return nil, &CorruptPersistedStateError{Reason: "authorization error without code"}
	}
	return &oauth2.Error{Domain: p.Domain, Code: p.Code}, nil
}
