package provider_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-state/authstate"
	"github.com/jrsteele09/go-auth-state/internal/utils"
	"github.com/jrsteele09/go-auth-state/oauth2"
	"github.com/jrsteele09/go-auth-state/oauthmodel"
	"github.com/jrsteele09/go-auth-state/provider"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

// fakeUserAgent answers every authorization URL with a fixed redirect.
type fakeUserAgent struct {
	authURL  string
	redirect func(authURL *url.URL) url.Values
}

func (f *fakeUserAgent) Present(ctx context.Context, authURL string) (url.Values, error) {
	f.authURL = authURL
	u, err := url.Parse(authURL)
	if err != nil {
		return nil, err
	}
	return f.redirect(u), nil
}

func newAuthRequest(t *testing.T) *oauth2.AuthorizationRequest {
	t.Helper()
	req, err := oauthmodel.NewAuthorizationRequest(oauthmodel.AuthorizationParameters{
		ClientID:             testClientID,
		RedirectURI:          "http://127.0.0.1:3000/callback",
		Scopes:               []string{oauth2.ScopeOpenID, oauth2.ScopeOfflineAccess},
		AdditionalParameters: map[string]string{"prompt": "consent"},
	})
	require.NoError(t, err)
	return req
}

func TestAuthorizationURL(t *testing.T) {
	server := setupFakeAuthServer(t)
	svc := provider.New(server.URL)
	req := newAuthRequest(t)

	authURL, err := svc.AuthorizationURL(context.Background(), req)
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "/authorize", u.Path)
	q := u.Query()
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "openid offline_access", q.Get("scope"))
	require.Equal(t, req.State, q.Get("state"))
	require.Equal(t, req.Nonce, q.Get("nonce"))
	require.Equal(t, req.CodeChallenge, q.Get("code_challenge"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.Equal(t, "consent", q.Get("prompt"))
	require.Empty(t, q.Get("code_verifier"))
	require.Empty(t, q.Get("response_mode"), "the code flow redirects with a query")
}

func TestAuthorizationURL_ResponseMode(t *testing.T) {
	server := setupFakeAuthServer(t)
	svc := provider.New(server.URL)

	t.Run("hybrid flow posts the response", func(t *testing.T) {
		req := newAuthRequest(t)
		req.ResponseType = "code id_token"

		authURL, err := svc.AuthorizationURL(context.Background(), req)
		require.NoError(t, err)
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		require.Equal(t, "code id_token", u.Query().Get("response_type"))
		require.Equal(t, provider.ResponseModeFormPost, u.Query().Get("response_mode"))
	})

	t.Run("explicit response mode is kept", func(t *testing.T) {
		req := newAuthRequest(t)
		req.ResponseType = "code id_token"
		req.AdditionalParameters["response_mode"] = "query"

		authURL, err := svc.AuthorizationURL(context.Background(), req)
		require.NoError(t, err)
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		require.Equal(t, "query", u.Query().Get("response_mode"))
	})
}

func TestPresentAuthorizationRequest(t *testing.T) {
	server := setupFakeAuthServer(t)

	t.Run("code redirect", func(t *testing.T) {
		ua := &fakeUserAgent{redirect: func(u *url.URL) url.Values {
			return url.Values{"code": {"good-code"}, "state": {u.Query().Get("state")}, "iss": {server.URL}}
		}}
		svc := provider.New(server.URL, provider.WithUserAgent(ua))
		req := newAuthRequest(t)

		resp, err := svc.PresentAuthorizationRequest(context.Background(), req)
		require.NoError(t, err)
		require.Same(t, req, resp.Request)
		require.Equal(t, "good-code", utils.Value(resp.AuthorizationCode))
		require.Equal(t, req.State, utils.Value(resp.State))
		require.Nil(t, resp.AccessToken)
		require.Equal(t, map[string]string{"iss": server.URL}, resp.AdditionalParameters)
	})

	t.Run("error redirect", func(t *testing.T) {
		ua := &fakeUserAgent{redirect: func(u *url.URL) url.Values {
			return url.Values{"error": {"access_denied"}, "error_description": {"user declined"}, "state": {u.Query().Get("state")}}
		}}
		svc := provider.New(server.URL, provider.WithUserAgent(ua))

		resp, err := svc.PresentAuthorizationRequest(context.Background(), newAuthRequest(t))
		require.Nil(t, resp)
		require.Equal(t, authstate.AuthorizationProtocolError, authstate.Classify(err))
		require.ErrorIs(t, err, oauth2.NewAuthorizationError("access_denied", ""))
	})

	t.Run("state mismatch", func(t *testing.T) {
		ua := &fakeUserAgent{redirect: func(u *url.URL) url.Values {
			return url.Values{"code": {"good-code"}, "state": {"forged"}}
		}}
		svc := provider.New(server.URL, provider.WithUserAgent(ua))

		_, err := svc.PresentAuthorizationRequest(context.Background(), newAuthRequest(t))
		require.ErrorIs(t, err, oauth2.NewAuthorizationError(provider.StateMismatchCode, ""))
	})

	t.Run("no user agent", func(t *testing.T) {
		_, err := provider.New(server.URL).PresentAuthorizationRequest(context.Background(), newAuthRequest(t))
		require.ErrorIs(t, err, provider.ErrNoUserAgent)
	})
}

func TestParseAuthorizationResponse_Hybrid(t *testing.T) {
	svc := provider.New("", provider.WithNowFunc(func() time.Time { return testNow }))
	req := &oauth2.AuthorizationRequest{ClientID: testClientID, ResponseType: "code token", State: "s1"}

	resp, err := svc.ParseAuthorizationResponse(req, url.Values{
		"code":         {"c1"},
		"state":        {"s1"},
		"access_token": {"A0"},
		"token_type":   {"Bearer"},
		"expires_in":   {"600"},
		"scope":        {"openid"},
	})
	require.NoError(t, err)
	require.Equal(t, "A0", utils.Value(resp.AccessToken))
	require.Equal(t, "openid", utils.Value(resp.Scope))
	require.Equal(t, testNow.Add(10*time.Minute), utils.Value(resp.AccessTokenExpiration))
	require.Nil(t, resp.AdditionalParameters)
}
