package provider_test

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-state/oauth2"
	"github.com/jrsteele09/go-auth-state/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redirectingOpener plays the browser: it follows the authorization URL straight to the
// loopback redirect URI with the given query.
func redirectingOpener(t *testing.T, ua *provider.LoopbackUserAgent, query string) func(string) error {
	return func(string) error {
		go func() {
			resp, err := http.Get(ua.RedirectURI() + "?" + query)
			if assert.NoError(t, err) {
				_ = resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestLoopbackUserAgent_ReceivesRedirect(t *testing.T) {
	var ua *provider.LoopbackUserAgent
	ua = provider.NewLoopbackUserAgent(0,
		provider.WithOutput(io.Discard),
		provider.WithBrowserOpener(func(u string) error { return redirectingOpener(t, ua, "code=c1&state=s1")(u) }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redirectURI, err := ua.Start(ctx)
	require.NoError(t, err)
	defer ua.Stop()
	require.True(t, strings.HasPrefix(redirectURI, "http://127.0.0.1:"))
	require.True(t, strings.HasSuffix(redirectURI, "/callback"))

	values, err := ua.Present(ctx, "https://auth.example.com/authorize")
	require.NoError(t, err)
	require.Equal(t, "c1", values.Get("code"))
	require.Equal(t, "s1", values.Get("state"))

	resp, err := http.Get(redirectURI + "?code=c2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoopbackUserAgent_ErrorRedirect(t *testing.T) {
	var ua *provider.LoopbackUserAgent
	ua = provider.NewLoopbackUserAgent(0,
		provider.WithOutput(io.Discard),
		provider.WithBrowserOpener(func(u string) error {
			return redirectingOpener(t, ua, "error=access_denied&error_description=nope")(u)
		}),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := ua.Start(ctx)
	require.NoError(t, err)
	defer ua.Stop()

	values, err := ua.Present(ctx, "https://auth.example.com/authorize")
	require.NoError(t, err)
	require.Equal(t, "access_denied", values.Get("error"))
}

func TestLoopbackUserAgent_Timeout(t *testing.T) {
	ua := provider.NewLoopbackUserAgent(0,
		provider.WithOutput(io.Discard),
		provider.WithBrowserOpener(func(string) error { return nil }),
		provider.WithCallbackTimeout(50*time.Millisecond),
	)
	_, err := ua.Start(context.Background())
	require.NoError(t, err)
	defer ua.Stop()

	_, err = ua.Present(context.Background(), "https://auth.example.com/authorize")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoopbackUserAgent_NotStarted(t *testing.T) {
	ua := provider.NewLoopbackUserAgent(0, provider.WithOutput(io.Discard))
	_, err := ua.Present(context.Background(), "https://auth.example.com/authorize")
	require.ErrorIs(t, err, provider.ErrUserAgentNotStarted)
}

// formPostingOpener plays a browser handling response_mode=form_post: it posts the response,
// with the state taken from the authorization URL, to the loopback redirect URI.
func formPostingOpener(t *testing.T, ua *provider.LoopbackUserAgent, values url.Values) func(string) error {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		require.Equal(t, provider.ResponseModeFormPost, u.Query().Get("response_mode"))

		form := url.Values{"state": {u.Query().Get("state")}}
		for k, v := range values {
			form[k] = v
		}
		go func() {
			resp, err := http.PostForm(ua.RedirectURI(), form)
			if assert.NoError(t, err) {
				_ = resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestLoopbackUserAgent_HybridFormPost(t *testing.T) {
	server := setupFakeAuthServer(t)

	var ua *provider.LoopbackUserAgent
	ua = provider.NewLoopbackUserAgent(0,
		provider.WithOutput(io.Discard),
		provider.WithBrowserOpener(func(u string) error {
			return formPostingOpener(t, ua, url.Values{"code": {"c1"}, "id_token": {"x.y.z"}})(u)
		}),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	redirectURI, err := ua.Start(ctx)
	require.NoError(t, err)
	defer ua.Stop()

	req := newAuthRequest(t)
	req.RedirectURI = redirectURI
	req.ResponseType = string(oauth2.CodeResponseType) + " " + string(oauth2.IDTokenResponseType)
	svc := provider.New(server.URL, provider.WithUserAgent(ua))

	resp, err := svc.PresentAuthorizationRequest(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "c1", *resp.AuthorizationCode)
	require.Equal(t, "x.y.z", *resp.IDToken)
	require.Equal(t, req.State, *resp.State)
	require.False(t, resp.Request.IsCodeFlow())
}
