package authstate

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-state/internal/utils"
	"github.com/jrsteele09/go-auth-state/oauth2"
	"github.com/jrsteele09/go-auth-state/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultFreshnessTolerance is subtracted from the access token expiry when deciding
// whether the token is still fresh. It absorbs clock skew and request latency.
const DefaultFreshnessTolerance = 60 * time.Second

// TokenExchanger performs token requests against the token endpoint.
// PerformWithFreshToken calls it at most once per refresh cycle.
type TokenExchanger interface {
	PerformTokenRequest(ctx context.Context, req *oauth2.TokenRequest) (*oauth2.TokenResponse, error)
}

// AuthState is the authorization state of one session.
// All methods are safe for concurrent use.
type AuthState struct {
	mu                        sync.RWMutex
	lastAuthorizationResponse *oauth2.AuthorizationResponse
	lastTokenResponse         *oauth2.TokenResponse
	lastRegistrationResponse  *oauth2.RegistrationResponse
	scope                     *string
	refreshToken              *string
	authorizationError        error
	needsForcedRefresh        bool

	observerMu    sync.RWMutex
	stateObserver StateChangeObserver
	errorObserver ErrorObserver

	tokens    TokenExchanger
	tolerance time.Duration
	nowFunc   func() time.Time
	executor  Executor
	logger    zerolog.Logger

	refresher refreshCoordinator
}

// Option configures an AuthState.
type Option func(*AuthState)

// WithTokenExchanger sets the collaborator used to refresh tokens.
func WithTokenExchanger(tokens TokenExchanger) Option {
	return func(s *AuthState) {
		s.tokens = tokens
	}
}

// WithStateChangeObserver registers the state change observer.
func WithStateChangeObserver(o StateChangeObserver) Option {
	return func(s *AuthState) {
		s.stateObserver = o
	}
}

// WithErrorObserver registers the error observer.
func WithErrorObserver(o ErrorObserver) Option {
	return func(s *AuthState) {
		s.errorObserver = o
	}
}

// WithFreshnessTolerance overrides DefaultFreshnessTolerance.
func WithFreshnessTolerance(tolerance time.Duration) Option {
	return func(s *AuthState) {
		s.tolerance = tolerance
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(s *AuthState) {
		s.nowFunc = now
	}
}

// WithExecutor sets the default executor for PerformWithFreshToken callbacks.
func WithExecutor(e Executor) Option {
	return func(s *AuthState) {
		s.executor = e
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *AuthState) {
		s.logger = logger
	}
}

func newAuthState(options ...Option) *AuthState {
	s := &AuthState{
		tolerance: DefaultFreshnessTolerance,
		nowFunc:   time.Now,
		executor:  GoroutineExecutor,
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// NewFromAuthorization creates a state from an authorization response and, when the code
// was already exchanged, the matching token response. No observer is notified.
func NewFromAuthorization(authResp *oauth2.AuthorizationResponse, tokenResp *oauth2.TokenResponse, options ...Option) *AuthState {
	s := newAuthState(options...)
	s.mu.Lock()
	s.applyAuthorizationResponse(authResp)
	if tokenResp != nil {
		s.applyTokenResponse(tokenResp)
	}
	s.mu.Unlock()
	return s
}

// NewFromRegistration creates a state from a client registration response. No observer is notified.
func NewFromRegistration(regResp *oauth2.RegistrationResponse, options ...Option) *AuthState {
	s := newAuthState(options...)
	s.mu.Lock()
	s.applyRegistrationResponse(regResp)
	s.mu.Unlock()
	return s
}

// AccessToken returns the current access token, or nil if there is none or an
// authorization error is set.
func (s *AuthState) AccessToken() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return utils.Clone(s.accessToken())
}

// TokenType returns the current token type.
func (s *AuthState) TokenType() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.authorizationError != nil {
		return nil
	}
	if s.lastTokenResponse != nil {
		return utils.Clone(s.lastTokenResponse.TokenType)
	}
	if s.lastAuthorizationResponse != nil {
		return utils.Clone(s.lastAuthorizationResponse.TokenType)
	}
	return nil
}

// IDToken returns the current ID token.
func (s *AuthState) IDToken() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return utils.Clone(s.idToken())
}

// AccessTokenExpiration returns the expiry of the current access token.
func (s *AuthState) AccessTokenExpiration() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return utils.Clone(s.accessTokenExpiration())
}

// RefreshToken returns the stored refresh token.
func (s *AuthState) RefreshToken() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return utils.Clone(s.refreshToken)
}

// Scope returns the space delimited scope granted to the session.
func (s *AuthState) Scope() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return utils.Clone(s.scope)
}

// AuthorizationError returns the persisted protocol error, if any.
func (s *AuthState) AuthorizationError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authorizationError
}

// LastAuthorizationResponse returns the most recent authorization response.
// Responses are immutable once received and must not be modified.
func (s *AuthState) LastAuthorizationResponse() *oauth2.AuthorizationResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAuthorizationResponse
}

// LastTokenResponse returns the most recent token response.
func (s *AuthState) LastTokenResponse() *oauth2.TokenResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTokenResponse
}

// LastRegistrationResponse returns the most recent registration response.
func (s *AuthState) LastRegistrationResponse() *oauth2.RegistrationResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRegistrationResponse
}

// IsAuthorized reports whether the session holds usable token material and no authorization error.
func (s *AuthState) IsAuthorized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAuthorized()
}

// NeedsTokenRefresh reports whether the next PerformWithFreshToken will refresh regardless of expiry.
func (s *AuthState) NeedsTokenRefresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.needsForcedRefresh
}

// SetNeedsTokenRefresh forces (or stops forcing) a refresh on the next PerformWithFreshToken,
// e.g. after a resource server rejected the access token. Observers are notified when the
// flag changes, since it is persisted.
func (s *AuthState) SetNeedsTokenRefresh(needsRefresh bool) {
	s.mu.Lock()
	changed := s.needsForcedRefresh != needsRefresh
	s.needsForcedRefresh = needsRefresh
	s.mu.Unlock()
	if changed {
		s.notifyStateChanged()
	}
}

// IsTokenFresh reports whether the access token can be used without refreshing.
func (s *AuthState) IsTokenFresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isTokenFresh()
}

// IDTokenClaims returns the unverified claims of the current ID token.
func (s *AuthState) IDTokenClaims() (*token.IDTokenClaims, error) {
	raw := s.IDToken()
	if raw == nil {
		return nil, token.ErrNoIDToken
	}
	return token.ParseIDTokenClaims(*raw)
}

// Snapshot is a consistent copy of the state's fields.
type Snapshot struct {
	LastAuthorizationResponse *oauth2.AuthorizationResponse
	LastTokenResponse         *oauth2.TokenResponse
	LastRegistrationResponse  *oauth2.RegistrationResponse
	Scope                     *string
	RefreshToken              *string
	AuthorizationError        error
	NeedsForcedRefresh        bool
}

// Snapshot returns all stored fields read under a single lock.
func (s *AuthState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		LastAuthorizationResponse: s.lastAuthorizationResponse,
		LastTokenResponse:         s.lastTokenResponse,
		LastRegistrationResponse:  s.lastRegistrationResponse,
		Scope:                     utils.Clone(s.scope),
		RefreshToken:              utils.Clone(s.refreshToken),
		AuthorizationError:        s.authorizationError,
		NeedsForcedRefresh:        s.needsForcedRefresh,
	}
}

// Derived values below require s.mu to be held.

func (s *AuthState) accessToken() *string {
	if s.authorizationError != nil {
		return nil
	}
	if s.lastTokenResponse != nil {
		return s.lastTokenResponse.AccessToken
	}
	if s.lastAuthorizationResponse != nil {
		return s.lastAuthorizationResponse.AccessToken
	}
	return nil
}

func (s *AuthState) idToken() *string {
	if s.authorizationError != nil {
		return nil
	}
	if s.lastTokenResponse != nil {
		return s.lastTokenResponse.IDToken
	}
	if s.lastAuthorizationResponse != nil {
		return s.lastAuthorizationResponse.IDToken
	}
	return nil
}

func (s *AuthState) accessTokenExpiration() *time.Time {
	if s.authorizationError != nil {
		return nil
	}
	if s.lastTokenResponse != nil {
		return s.lastTokenResponse.AccessTokenExpiration
	}
	if s.lastAuthorizationResponse != nil {
		return s.lastAuthorizationResponse.AccessTokenExpiration
	}
	return nil
}

func (s *AuthState) isAuthorized() bool {
	if s.authorizationError != nil {
		return false
	}
	return s.accessToken() != nil || s.idToken() != nil || s.refreshToken != nil
}

func (s *AuthState) isTokenFresh() bool {
	if s.needsForcedRefresh {
		return false
	}
	if s.accessToken() == nil {
		return false
	}
	expiration := s.accessTokenExpiration()
	if expiration == nil {
		// no expiry was given, the token never expires
		return true
	}
	return expiration.Sub(s.nowFunc()) > s.tolerance
}
