package authstate

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-state/internal/utils"
	"github.com/jrsteele09/go-auth-state/oauth2"
	"github.com/jrsteele09/go-auth-state/oauthmodel"
	"github.com/pkg/errors"
)

// FreshTokenAction receives the outcome of PerformWithFreshToken.
// On success accessToken holds a fresh token and err is nil; on failure both tokens are nil.
type FreshTokenAction func(accessToken, idToken *string, err error)

// PerformOption configures a single PerformWithFreshToken call.
type PerformOption func(*performConfig)

type performConfig struct {
	additionalParameters map[string]string
	executor             Executor
}

// WithAdditionalParameters adds parameters to the refresh request, if one is made.
func WithAdditionalParameters(params map[string]string) PerformOption {
	return func(c *performConfig) {
		c.additionalParameters = params
	}
}

// WithCallbackExecutor sets the executor the action runs on, overriding the state's default.
func WithCallbackExecutor(e Executor) PerformOption {
	return func(c *performConfig) {
		c.executor = e
	}
}

type pendingAction struct {
	action   FreshTokenAction
	executor Executor
}

// refreshCoordinator queues the callers waiting for the refresh in flight.
// A nil queue means no refresh is in flight.
type refreshCoordinator struct {
	mu      sync.Mutex
	pending []pendingAction
}

// join adds a to the queue and reports whether the caller must start the refresh.
func (c *refreshCoordinator) join(a pendingAction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.pending = append(c.pending, a)
		return false
	}
	c.pending = []pendingAction{a}
	return true
}

// drain takes the queued actions and marks the refresh as finished, so later callers
// start a new refresh instead of joining this one.
func (c *refreshCoordinator) drain() []pendingAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	actions := c.pending
	c.pending = nil
	return actions
}

// PerformWithFreshToken calls action with a fresh access token, refreshing it first if needed.
//
// If the token is fresh the action is dispatched immediately. Without a refresh token it is
// dispatched with ErrNoRefreshToken. Otherwise the caller either starts a refresh or joins the
// one already in flight; every caller of the same refresh receives the same outcome. The refresh
// request is built by the caller that starts it, from the state at that moment, and runs on its
// own goroutine. It is not cancelled when ctx is.
func (s *AuthState) PerformWithFreshToken(ctx context.Context, action FreshTokenAction, options ...PerformOption) {
	cfg := performConfig{executor: s.executor}
	for _, opt := range options {
		opt(&cfg)
	}

	s.mu.RLock()
	fresh := s.isTokenFresh()
	canRefresh := s.refreshToken != nil
	accessToken, idToken := utils.Clone(s.accessToken()), utils.Clone(s.idToken())
	s.mu.RUnlock()

	if fresh {
		cfg.executor.Execute(func() { action(accessToken, idToken, nil) })
		return
	}
	if !canRefresh {
		cfg.executor.Execute(func() { action(nil, nil, ErrNoRefreshToken) })
		return
	}

	if !s.refresher.join(pendingAction{action: action, executor: cfg.executor}) {
		return
	}

	go s.refresh(context.WithoutCancel(ctx), cfg.additionalParameters)
}

// FreshToken is the blocking form of PerformWithFreshToken. Returning early because ctx
// is done does not cancel the shared refresh.
func (s *AuthState) FreshToken(ctx context.Context, options ...PerformOption) (accessToken, idToken *string, err error) {
	type result struct {
		accessToken, idToken *string
		err                  error
	}
	done := make(chan result, 1)
	options = append(options, WithCallbackExecutor(InlineExecutor))
	s.PerformWithFreshToken(ctx, func(accessToken, idToken *string, err error) {
		done <- result{accessToken, idToken, err}
	}, options...)

	select {
	case r := <-done:
		return r.accessToken, r.idToken, r.err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// TokenRefreshRequest builds a refresh request from the stored refresh token and the client
// identity of the authorization (or registration) that started the session.
func (s *AuthState) TokenRefreshRequest(additional map[string]string) (*oauth2.TokenRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.refreshToken == nil {
		return nil, ErrNoRefreshToken
	}

	var clientID, clientSecret, redirectURI string
	switch {
	case s.lastAuthorizationResponse != nil && s.lastAuthorizationResponse.Request != nil:
		r := s.lastAuthorizationResponse.Request
		clientID, clientSecret, redirectURI = r.ClientID, r.ClientSecret, r.RedirectURI
	case s.lastTokenResponse != nil && s.lastTokenResponse.Request != nil:
		r := s.lastTokenResponse.Request
		clientID, clientSecret, redirectURI = r.ClientID, r.ClientSecret, r.RedirectURI
	case s.lastRegistrationResponse != nil:
		clientID = s.lastRegistrationResponse.ClientID
		clientSecret = utils.Value(s.lastRegistrationResponse.ClientSecret)
	}

	req, err := oauthmodel.RefreshRequest(clientID, clientSecret, redirectURI, *s.refreshToken, additional)
	if err != nil {
		return nil, errors.Wrap(err, "[TokenRefreshRequest]")
	}
	return req, nil
}

// CodeExchangeRequest builds the code exchange request for the last authorization response.
func (s *AuthState) CodeExchangeRequest(additional map[string]string) (*oauth2.TokenRequest, error) {
	resp := s.LastAuthorizationResponse()
	req, err := oauthmodel.CodeExchangeRequest(resp, additional)
	if err != nil {
		return nil, errors.Wrap(err, "[CodeExchangeRequest]")
	}
	return req, nil
}

// refresh runs one refresh cycle for the caller that started it and delivers the outcome to
// every queued action.
func (s *AuthState) refresh(ctx context.Context, additional map[string]string) {
	// a refresh that completed after this caller checked the state may have rotated the token
	req, err := s.TokenRefreshRequest(additional)
	if err != nil {
		s.deliver(nil, nil, err)
		return
	}

	var resp *oauth2.TokenResponse
	err = ErrNoTokenExchanger
	if s.tokens != nil {
		resp, err = s.tokens.PerformTokenRequest(ctx, req)
		if err == nil && resp == nil {
			err = ErrEmptyTokenResponse
		}
	}

	var accessToken, idToken *string
	switch {
	case err == nil:
		accessToken, idToken = s.updateWithTokenResponse(resp, nil, true)
	case Classify(err) == TokenProtocolError:
		s.updateWithTokenResponse(nil, err, true)
	default:
		s.logger.Debug().Err(err).Msg("AuthState: token refresh failed, state left unchanged")
		s.notifyTransientError(err)
	}
	s.deliver(accessToken, idToken, err)
}

// deliver ends the refresh in flight and hands its outcome to every queued action.
func (s *AuthState) deliver(accessToken, idToken *string, err error) {
	for _, a := range s.refresher.drain() {
		a.executor.Execute(func() { a.action(accessToken, idToken, err) })
	}
}
