package authstate_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-auth-state/authstate"
	"github.com/jrsteele09/go-auth-state/internal/utils"
	"github.com/jrsteele09/go-auth-state/oauth2"
)

const (
	testClientID    = "test-client-1"
	testRedirectURI = "http://127.0.0.1:3000/callback"
	testScope       = "openid profile"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func authRequest() *oauth2.AuthorizationRequest {
	return &oauth2.AuthorizationRequest{
		ClientID:     testClientID,
		ResponseType: "code",
		RedirectURI:  testRedirectURI,
		Scope:        testScope,
		State:        "random-state-value",
		CodeVerifier: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
	}
}

func authResponse(accessToken string, expiresIn time.Duration) *oauth2.AuthorizationResponse {
	resp := &oauth2.AuthorizationResponse{
		Request:           authRequest(),
		AuthorizationCode: utils.Ptr("SplxlOBeZQQYbYS6WxSbIA"),
		State:             utils.Ptr("random-state-value"),
	}
	if accessToken != "" {
		resp.AccessToken = utils.Ptr(accessToken)
		resp.TokenType = utils.Ptr("Bearer")
		resp.AccessTokenExpiration = utils.Ptr(testNow.Add(expiresIn))
	}
	return resp
}

func tokenResponse(accessToken, refreshToken string, expiresIn time.Duration) *oauth2.TokenResponse {
	return &oauth2.TokenResponse{
		AccessToken:           utils.Ptr(accessToken),
		TokenType:             utils.Ptr("Bearer"),
		IDToken:               utils.Ptr("id-" + accessToken),
		AccessTokenExpiration: utils.Ptr(testNow.Add(expiresIn)),
		RefreshToken:          utils.NonEmpty(refreshToken),
	}
}

// fakeTokenExchanger answers token requests with a fixed outcome and counts the calls.
// When gate is set, every call blocks until the gate is closed.
type fakeTokenExchanger struct {
	calls    atomic.Int32
	gate     chan struct{}
	started  chan struct{}
	once     sync.Once
	resp     *oauth2.TokenResponse
	err      error
	requests chan *oauth2.TokenRequest
}

func newFakeTokenExchanger(resp *oauth2.TokenResponse, err error) *fakeTokenExchanger {
	return &fakeTokenExchanger{
		resp:     resp,
		err:      err,
		started:  make(chan struct{}),
		requests: make(chan *oauth2.TokenRequest, 100),
	}
}

func (f *fakeTokenExchanger) withGate() *fakeTokenExchanger {
	f.gate = make(chan struct{})
	return f
}

func (f *fakeTokenExchanger) PerformTokenRequest(ctx context.Context, req *oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	f.calls.Add(1)
	f.requests <- req
	f.once.Do(func() { close(f.started) })
	if f.gate != nil {
		<-f.gate
	}
	return f.resp, f.err
}

// recordingObserver records every notification it receives.
type recordingObserver struct {
	mu        sync.Mutex
	changes   int
	authErrs  []error
	transient []error
}

func (o *recordingObserver) OnStateChanged(s *authstate.AuthState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes++
}

func (o *recordingObserver) OnAuthorizationError(s *authstate.AuthState, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.authErrs = append(o.authErrs, err)
}

func (o *recordingObserver) OnTransientError(s *authstate.AuthState, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transient = append(o.transient, err)
}

func (o *recordingObserver) counts() (changes, authErrs, transient int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.changes, len(o.authErrs), len(o.transient)
}

// authErrorOnlyObserver does not implement TransientErrorObserver.
type authErrorOnlyObserver struct {
	calls atomic.Int32
}

func (o *authErrorOnlyObserver) OnAuthorizationError(s *authstate.AuthState, err error) {
	o.calls.Add(1)
}

// setupAuthorizedState returns a state holding a token response with the given refresh token.
func setupAuthorizedState(refreshToken string, expiresIn time.Duration, options ...authstate.Option) *authstate.AuthState {
	options = append([]authstate.Option{authstate.WithNowFunc(fixedNow)}, options...)
	return authstate.NewFromAuthorization(
		authResponse("", 0),
		tokenResponse("A1", refreshToken, expiresIn),
		options...,
	)
}
