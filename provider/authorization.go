package provider

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-auth-state/internal/utils"
	"github.com/jrsteele09/go-auth-state/oauth2"
	"github.com/pkg/errors"
	xoauth2 "golang.org/x/oauth2"
)

// StateMismatchCode is the authorization error code used when the redirect's state does not
// match the request.
const StateMismatchCode = "state_mismatch"

// UserAgent shows an authorization URL to the user and returns the parameters of the
// redirect that ends the interaction, from the query or a form_post body.
type UserAgent interface {
	Present(ctx context.Context, authURL string) (url.Values, error)
}

// ResponseModeFormPost asks the server to POST the response to the redirect URI.
// A loopback server never sees a URL fragment, so flows other than the pure code flow
// request it unless the caller set response_mode explicitly.
const ResponseModeFormPost = "form_post"

// AuthorizationURL builds the authorization endpoint URL for req.
func (s *Service) AuthorizationURL(ctx context.Context, req *oauth2.AuthorizationRequest) (string, error) {
	endpoint, err := s.resolveEndpoint(ctx)
	if err != nil {
		return "", errors.Wrap(err, "[AuthorizationURL] resolve endpoint")
	}
	cfg := &xoauth2.Config{
		ClientID:    req.ClientID,
		Endpoint:    endpoint,
		RedirectURL: req.RedirectURI,
		Scopes:      utils.SplitScopes(req.Scope),
	}

	options := []xoauth2.AuthCodeOption{
		xoauth2.SetAuthURLParam("response_type", req.ResponseType),
	}
	if req.Nonce != "" {
		options = append(options, xoauth2.SetAuthURLParam("nonce", req.Nonce))
	}
	if req.CodeChallenge != "" {
		options = append(options,
			xoauth2.SetAuthURLParam("code_challenge", req.CodeChallenge),
			xoauth2.SetAuthURLParam("code_challenge_method", string(req.CodeChallengeMethod)),
		)
	}
	if _, ok := req.AdditionalParameters["response_mode"]; !ok && !req.IsCodeFlow() {
		options = append(options, xoauth2.SetAuthURLParam("response_mode", ResponseModeFormPost))
	}
	for k, v := range req.AdditionalParameters {
		options = append(options, xoauth2.SetAuthURLParam(k, v))
	}
	return cfg.AuthCodeURL(req.State, options...), nil
}

// PresentAuthorizationRequest sends the user through the authorization endpoint and returns
// the resulting response. An error redirect becomes an authorization-domain *oauth2.Error.
func (s *Service) PresentAuthorizationRequest(ctx context.Context, req *oauth2.AuthorizationRequest) (*oauth2.AuthorizationResponse, error) {
	if s.userAgent == nil {
		return nil, ErrNoUserAgent
	}
	authURL, err := s.AuthorizationURL(ctx, req)
	if err != nil {
		return nil, err
	}
	values, err := s.userAgent.Present(ctx, authURL)
	if err != nil {
		return nil, errors.Wrap(err, "[PresentAuthorizationRequest]")
	}
	return s.ParseAuthorizationResponse(req, values)
}

// ParseAuthorizationResponse converts redirect parameters into the response to req.
func (s *Service) ParseAuthorizationResponse(req *oauth2.AuthorizationRequest, values url.Values) (*oauth2.AuthorizationResponse, error) {
	if code := values.Get("error"); code != "" {
		authErr := oauth2.NewAuthorizationError(code, values.Get("error_description"))
		authErr.URI = values.Get("error_uri")
		return nil, authErr
	}
	if req.State != "" && values.Get("state") != req.State {
		return nil, oauth2.NewAuthorizationError(StateMismatchCode, "redirect state does not match the request")
	}

	resp := &oauth2.AuthorizationResponse{
		Request:           req,
		AuthorizationCode: utils.NonEmpty(values.Get("code")),
		State:             utils.NonEmpty(values.Get("state")),
		AccessToken:       utils.NonEmpty(values.Get("access_token")),
		TokenType:         utils.NonEmpty(values.Get("token_type")),
		IDToken:           utils.NonEmpty(values.Get("id_token")),
		Scope:             utils.NonEmpty(values.Get("scope")),
	}
	if seconds, err := strconv.Atoi(values.Get("expires_in")); err == nil && seconds > 0 {
		resp.AccessTokenExpiration = utils.Ptr(s.nowFunc().Add(time.Duration(seconds) * time.Second))
	}

	known := map[string]bool{
		"code": true, "state": true, "access_token": true, "token_type": true,
		"id_token": true, "scope": true, "expires_in": true,
	}
	for k := range values {
		if known[k] {
			continue
		}
		if resp.AdditionalParameters == nil {
			resp.AdditionalParameters = make(map[string]string)
		}
		resp.AdditionalParameters[k] = values.Get(k)
	}
	return resp, nil
}
