// Package provider talks to an OAuth 2.0 / OpenID Connect authorization server.
//
// Service is the Authorization Service collaborator of an AuthState: it presents authorization
// requests through a UserAgent and performs token requests with golang.org/x/oauth2. Endpoints
// come from OIDC discovery unless they are configured explicitly.
package provider

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-auth-state/authstate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoEndpoint             = errors.New("no issuer or endpoint configured")
	ErrNoUserAgent            = errors.New("no user agent configured")
	ErrNoRegistrationEndpoint = errors.New("server does not support dynamic client registration")
	ErrUnsupportedGrantType   = errors.New("unsupported grant type")
)

var _ authstate.TokenExchanger = (*Service)(nil)

// Service performs authorization and token requests against one authorization server.
type Service struct {
	issuer               string
	endpoint             *xoauth2.Endpoint
	registrationEndpoint string
	httpClient           *http.Client
	userAgent            UserAgent
	verifyIDTokens       bool
	nowFunc              func() time.Time
	logger               zerolog.Logger

	discovery singleflight.Group
	lock      sync.RWMutex
	provider  *oidc.Provider
}

type Option func(*Service)

// WithEndpoint sets the authorization and token endpoints, bypassing discovery for them.
func WithEndpoint(authURL, tokenURL string) Option {
	return func(s *Service) {
		s.endpoint = &xoauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	}
}

// WithRegistrationEndpoint sets the RFC 7591 registration endpoint.
func WithRegistrationEndpoint(registrationURL string) Option {
	return func(s *Service) {
		s.registrationEndpoint = registrationURL
	}
}

// WithHTTPClient sets the client used for discovery, token and registration requests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

// WithUserAgent sets the user agent that presents authorization requests.
func WithUserAgent(ua UserAgent) Option {
	return func(s *Service) {
		s.userAgent = ua
	}
}

// WithIDTokenVerification verifies the signature, issuer, audience and expiry of every ID token
// returned by the token endpoint. Requires discovery.
func WithIDTokenVerification(verify bool) Option {
	return func(s *Service) {
		s.verifyIDTokens = verify
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a Service for issuer. The issuer may be empty when WithEndpoint is used.
func New(issuer string, options ...Option) *Service {
	s := &Service{
		issuer:  issuer,
		nowFunc: time.Now,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Discover fetches the issuer's discovery document once. Concurrent callers share one fetch
// and later callers get the cached provider.
func (s *Service) Discover(ctx context.Context) (*oidc.Provider, error) {
	if s.issuer == "" {
		return nil, ErrNoEndpoint
	}
	if p := s.cachedProvider(); p != nil {
		return p, nil
	}

	v, err, _ := s.discovery.Do(s.issuer, func() (interface{}, error) {
		if p := s.cachedProvider(); p != nil {
			return p, nil
		}
		// Shared by every waiter, so one caller's cancellation must not fail the others.
		p, err := oidc.NewProvider(s.clientContext(context.WithoutCancel(ctx)), s.issuer)
		if err != nil {
			return nil, err
		}
		s.lock.Lock()
		s.provider = p
		s.lock.Unlock()
		s.logger.Debug().Str("issuer", s.issuer).Msg("provider: discovery document loaded")
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oidc.Provider), nil
}

func (s *Service) cachedProvider() *oidc.Provider {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.provider
}

func (s *Service) resolveEndpoint(ctx context.Context) (xoauth2.Endpoint, error) {
	if s.endpoint != nil {
		return *s.endpoint, nil
	}
	p, err := s.Discover(ctx)
	if err != nil {
		return xoauth2.Endpoint{}, err
	}
	return p.Endpoint(), nil
}

func (s *Service) clientContext(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return oidc.ClientContext(ctx, s.httpClient)
}

func (s *Service) client() *http.Client {
	if s.httpClient == nil {
		return http.DefaultClient
	}
	return s.httpClient
}
