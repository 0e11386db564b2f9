package provider_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-state/authstate"
	"github.com/jrsteele09/go-auth-state/internal/utils"
	"github.com/jrsteele09/go-auth-state/oauth2"
	"github.com/jrsteele09/go-auth-state/oauthmodel"
	"github.com/jrsteele09/go-auth-state/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodeExchange(t *testing.T, code string) *oauth2.TokenRequest {
	t.Helper()
	authReq, err := oauthmodel.NewAuthorizationRequest(oauthmodel.AuthorizationParameters{
		ClientID:    testClientID,
		RedirectURI: "http://127.0.0.1:3000/callback",
		Scopes:      []string{oauth2.ScopeOpenID, oauth2.ScopeProfile},
	})
	require.NoError(t, err)
	req, err := oauthmodel.CodeExchangeRequest(&oauth2.AuthorizationResponse{
		Request:           authReq,
		AuthorizationCode: utils.Ptr(code),
	}, nil)
	require.NoError(t, err)
	return req
}

func TestDiscover_SharedAndCached(t *testing.T) {
	server := setupFakeAuthServer(t)
	svc := provider.New(server.URL)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := svc.Discover(context.Background())
			if assert.NoError(t, err) {
				assert.Equal(t, server.URL+"/token", p.Endpoint().TokenURL)
			}
		}()
	}
	wg.Wait()

	_, err := svc.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), server.discoveryHits.Load())
}

func TestDiscover_NoIssuer(t *testing.T) {
	_, err := provider.New("").Discover(context.Background())
	require.ErrorIs(t, err, provider.ErrNoEndpoint)

	_, err = provider.New("").PerformTokenRequest(context.Background(), &oauth2.TokenRequest{GrantType: oauth2.RefreshTokenGrant})
	require.ErrorIs(t, err, provider.ErrNoEndpoint)
}

func TestPerformTokenRequest_CodeExchange(t *testing.T) {
	server := setupFakeAuthServer(t)
	svc := provider.New(server.URL, provider.WithIDTokenVerification(true))
	req := newCodeExchange(t, "good-code")

	resp, err := svc.PerformTokenRequest(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "A1", utils.Value(resp.AccessToken))
	require.Equal(t, "Bearer", utils.Value(resp.TokenType))
	require.Equal(t, "R1", utils.Value(resp.RefreshToken))
	require.Equal(t, "openid profile", utils.Value(resp.Scope))
	require.NotNil(t, resp.IDToken)
	require.NotNil(t, resp.AccessTokenExpiration)
	require.WithinDuration(t, time.Now().Add(time.Hour), *resp.AccessTokenExpiration, time.Minute)
	require.Same(t, req, resp.Request)

	form := server.lastTokenForm.Load().(url.Values)
	require.Equal(t, req.CodeVerifier, form.Get("code_verifier"))
	require.Equal(t, req.RedirectURI, form.Get("redirect_uri"))
}

func TestPerformTokenRequest_IDTokenVerificationFails(t *testing.T) {
	server := setupFakeAuthServer(t)
	server.idTokenAud = "some-other-client"
	svc := provider.New(server.URL, provider.WithIDTokenVerification(true))

	resp, err := svc.PerformTokenRequest(context.Background(), newCodeExchange(t, "good-code"))
	require.Error(t, err)
	require.Nil(t, resp)
	require.Equal(t, authstate.OtherError, authstate.Classify(err))
}

func TestPerformTokenRequest_ProtocolError(t *testing.T) {
	server := setupFakeAuthServer(t)
	svc := provider.New(server.URL)

	_, err := svc.PerformTokenRequest(context.Background(), newCodeExchange(t, "expired-code"))
	require.Error(t, err)
	require.Equal(t, authstate.TokenProtocolError, authstate.Classify(err))

	var oauthErr *oauth2.Error
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, oauth2.TokenDomain, oauthErr.Domain)
	require.Equal(t, "invalid_grant", oauthErr.Code)
	require.Equal(t, "code expired", oauthErr.Description)
	require.Equal(t, "https://example.com/errors/invalid_grant", oauthErr.URI)
	require.Equal(t, 400, oauthErr.Payload["status"])
}

func TestPerformTokenRequest_ServerErrorIsTransient(t *testing.T) {
	server := setupFakeAuthServer(t)
	svc := provider.New(server.URL)

	_, err := svc.PerformTokenRequest(context.Background(), newCodeExchange(t, "server-error"))
	require.Error(t, err)
	require.Equal(t, authstate.OtherError, authstate.Classify(err))
}

func TestPerformTokenRequest_Refresh(t *testing.T) {
	server := setupFakeAuthServer(t)
	svc := provider.New("", provider.WithEndpoint(server.URL+"/authorize", server.URL+"/token"))

	req, err := oauthmodel.RefreshRequest(testClientID, "", "", "R1", nil)
	require.NoError(t, err)
	resp, err := svc.PerformTokenRequest(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "A2", utils.Value(resp.AccessToken))
	require.Equal(t, int32(0), server.discoveryHits.Load())

	req, err = oauthmodel.RefreshRequest(testClientID, "", "", "revoked", nil)
	require.NoError(t, err)
	_, err = svc.PerformTokenRequest(context.Background(), req)
	require.ErrorIs(t, err, oauth2.NewTokenError("invalid_grant", ""))
}

func TestPerformTokenRequest_RefreshSendsAdditionalParameters(t *testing.T) {
	server := setupFakeAuthServer(t)
	svc := provider.New("", provider.WithEndpoint(server.URL+"/authorize", server.URL+"/token"))

	req, err := oauthmodel.RefreshRequest(testClientID, "", "http://127.0.0.1:3000/callback", "R1",
		map[string]string{"resource": "https://api.example.com"})
	require.NoError(t, err)
	resp, err := svc.PerformTokenRequest(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "A2", utils.Value(resp.AccessToken))

	form := server.lastTokenForm.Load().(url.Values)
	require.Equal(t, "refresh_token", form.Get("grant_type"))
	require.Equal(t, "R1", form.Get("refresh_token"))
	require.Equal(t, "https://api.example.com", form.Get("resource"))
	require.Empty(t, form.Get("redirect_uri"))
}

func TestPerformTokenRequest_UnsupportedGrant(t *testing.T) {
	server := setupFakeAuthServer(t)
	svc := provider.New(server.URL)
	_, err := svc.PerformTokenRequest(context.Background(), &oauth2.TokenRequest{GrantType: "password"})
	require.ErrorIs(t, err, provider.ErrUnsupportedGrantType)
}

func TestService_DrivesAuthStateRefresh(t *testing.T) {
	server := setupFakeAuthServer(t)
	svc := provider.New(server.URL)
	req := newCodeExchange(t, "good-code")

	tokenResp, err := svc.PerformTokenRequest(context.Background(), req)
	require.NoError(t, err)
	state := authstate.NewFromAuthorization(&oauth2.AuthorizationResponse{
		Request:           &oauth2.AuthorizationRequest{ClientID: testClientID, RedirectURI: req.RedirectURI, ResponseType: "code"},
		AuthorizationCode: utils.Ptr("good-code"),
	}, tokenResp, authstate.WithTokenExchanger(svc))
	state.SetNeedsTokenRefresh(true)

	accessToken, _, err := state.FreshToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "A2", utils.Value(accessToken))
	require.Equal(t, "R1", utils.Value(state.RefreshToken()))
	require.False(t, state.NeedsTokenRefresh())
}
