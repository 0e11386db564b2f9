package authstate

import (
	"errors"

	"github.com/jrsteele09/go-auth-state/internal/utils"
	"github.com/jrsteele09/go-auth-state/oauth2"
)

// UpdateWithRegistrationResponse resets the session to a freshly registered client.
// All token material and any authorization error are discarded.
func (s *AuthState) UpdateWithRegistrationResponse(resp *oauth2.RegistrationResponse) {
	if resp == nil {
		return
	}
	s.mu.Lock()
	s.applyRegistrationResponse(resp)
	s.mu.Unlock()
	s.notifyStateChanged()
}

// UpdateWithAuthorizationResponse applies the outcome of an authorization request.
// An authorization protocol error is stored via UpdateWithAuthorizationError; any other
// error and a nil response leave the state untouched.
func (s *AuthState) UpdateWithAuthorizationResponse(resp *oauth2.AuthorizationResponse, err error) {
	if err != nil && Classify(err) == AuthorizationProtocolError {
		s.UpdateWithAuthorizationError(err)
		return
	}
	if resp == nil {
		return
	}
	s.mu.Lock()
	s.applyAuthorizationResponse(resp)
	s.mu.Unlock()
	s.notifyStateChanged()
}

// UpdateWithTokenResponse applies the outcome of a token request (code exchange or refresh).
// A token protocol error is stored via UpdateWithAuthorizationError; any other error and a nil
// response leave the token material untouched.
func (s *AuthState) UpdateWithTokenResponse(resp *oauth2.TokenResponse, err error) {
	s.updateWithTokenResponse(resp, err, false)
}

// UpdateWithAuthorizationError stores err. Derived tokens read as nil until the next
// successful authorization or token response.
func (s *AuthState) UpdateWithAuthorizationError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.authorizationError = err
	s.mu.Unlock()
	s.notifyStateChanged()
	s.notifyAuthorizationError(err)
}

// updateWithTokenResponse returns the tokens derived right after resp was applied, so a refresh
// hands its waiters the outcome of its own response even if another transition follows.
func (s *AuthState) updateWithTokenResponse(resp *oauth2.TokenResponse, err error, clearForcedRefresh bool) (accessToken, idToken *string) {
	s.mu.Lock()
	changed := false
	if s.authorizationError != nil {
		s.warnStaleAuthorizationError()
		s.authorizationError = nil
		changed = true
	}
	if clearForcedRefresh && s.needsForcedRefresh {
		s.needsForcedRefresh = false
		changed = true
	}

	if err != nil && Classify(err) == TokenProtocolError {
		s.authorizationError = err
		s.mu.Unlock()
		s.notifyStateChanged()
		s.notifyAuthorizationError(err)
		return nil, nil
	}
	if resp == nil {
		s.mu.Unlock()
		if changed {
			s.notifyStateChanged()
		}
		return nil, nil
	}
	s.applyTokenResponse(resp)
	accessToken, idToken = utils.Clone(s.accessToken()), utils.Clone(s.idToken())
	s.mu.Unlock()
	s.notifyStateChanged()
	return accessToken, idToken
}

// warnStaleAuthorizationError logs that a token response arrived while an authorization error
// was still set, i.e. a token was obtained without first reporting the new authorization.
func (s *AuthState) warnStaleAuthorizationError() {
	event := s.logger.Warn()
	var oauthErr *oauth2.Error
	if errors.As(s.authorizationError, &oauthErr) {
		event = event.Str("error_domain", string(oauthErr.Domain)).Str("error_code", oauthErr.Code)
	}
	event.Msg("AuthState: token response applied while an authorization error was set; clearing the stale error")
}

// The apply functions below require s.mu to be held for writing.

func (s *AuthState) applyRegistrationResponse(resp *oauth2.RegistrationResponse) {
	s.lastRegistrationResponse = resp
	s.refreshToken = nil
	s.scope = nil
	s.lastAuthorizationResponse = nil
	s.lastTokenResponse = nil
	s.authorizationError = nil
}

func (s *AuthState) applyAuthorizationResponse(resp *oauth2.AuthorizationResponse) {
	if resp == nil {
		return
	}
	s.lastAuthorizationResponse = resp

	// token material of a superseded authorization is no longer valid
	s.lastTokenResponse = nil
	s.refreshToken = nil
	s.authorizationError = nil

	// an omitted scope means the requested scope was granted (RFC 6749 §5.1)
	switch {
	case resp.Scope != nil:
		s.scope = utils.Clone(resp.Scope)
	case resp.Request != nil && resp.Request.Scope != "":
		s.scope = utils.Ptr(resp.Request.Scope)
	default:
		s.scope = nil
	}
}

func (s *AuthState) applyTokenResponse(resp *oauth2.TokenResponse) {
	s.lastTokenResponse = resp

	// the server may rotate the refresh token or narrow the scope (RFC 6749 §5.1, §6)
	if resp.Scope != nil {
		s.scope = utils.Clone(resp.Scope)
	}
	if resp.RefreshToken != nil {
		s.refreshToken = utils.Clone(resp.RefreshToken)
	}
	s.authorizationError = nil
}
