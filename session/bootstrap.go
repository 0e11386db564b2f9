// Package session composes an AuthState with an authorization service and a store.
package session

import (
	"context"

	"github.com/jrsteele09/go-auth-state/authstate"
	"github.com/jrsteele09/go-auth-state/oauth2"
	"github.com/pkg/errors"
)

// AuthorizationService presents authorization requests and performs token requests.
type AuthorizationService interface {
	authstate.TokenExchanger
	PresentAuthorizationRequest(ctx context.Context, req *oauth2.AuthorizationRequest) (*oauth2.AuthorizationResponse, error)
}

// Authorize presents req and builds an AuthState from the response.
//
// For a pure code flow the authorization code is exchanged straight away and the token
// response (or token error) is applied to the returned state. Any other flow returns a state
// holding only the authorization response; the caller completes it.
//
// An authorization error returns no state. A failed code exchange returns the state together
// with the error.
func Authorize(ctx context.Context, svc AuthorizationService, req *oauth2.AuthorizationRequest, options ...authstate.Option) (*authstate.AuthState, error) {
	authResp, err := svc.PresentAuthorizationRequest(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "[Authorize] present authorization request")
	}
	if authResp == nil {
		return nil, errors.New("[Authorize] empty authorization response")
	}

	options = append([]authstate.Option{authstate.WithTokenExchanger(svc)}, options...)
	state := authstate.NewFromAuthorization(authResp, nil, options...)
	if req == nil || !req.IsCodeFlow() {
		return state, nil
	}

	tokenReq, err := state.CodeExchangeRequest(nil)
	if err != nil {
		return state, errors.Wrap(err, "[Authorize]")
	}
	tokenResp, err := svc.PerformTokenRequest(ctx, tokenReq)
	state.UpdateWithTokenResponse(tokenResp, err)
	if err != nil {
		return state, errors.Wrap(err, "[Authorize] code exchange")
	}
	return state, nil
}
