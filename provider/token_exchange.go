package provider

import (
	"context"
	stderrors "errors"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-auth-state/oauth2"
	"github.com/pkg/errors"
	xoauth2 "golang.org/x/oauth2"
)

// PerformTokenRequest sends req to the token endpoint.
//
// OAuth error responses come back as token-domain *oauth2.Error values. Transport failures,
// malformed responses and failed ID token verification are returned wrapped and are never
// token-domain errors, so an AuthState treats them as transient.
//
// Additional parameters are sent with both grants.
func (s *Service) PerformTokenRequest(ctx context.Context, req *oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	endpoint, err := s.resolveEndpoint(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[PerformTokenRequest] resolve endpoint")
	}
	cfg := &xoauth2.Config{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  req.RedirectURI,
	}
	ctx = s.clientContext(ctx)

	var tok *xoauth2.Token
	switch req.GrantType {
	case oauth2.AuthorizationCodeGrant:
		tok, err = cfg.Exchange(ctx, req.Code, exchangeOptions(req)...)
	case oauth2.RefreshTokenGrant:
		tok, err = refresh(ctx, cfg, req)
	default:
		return nil, errors.Wrapf(ErrUnsupportedGrantType, "[PerformTokenRequest] %q", req.GrantType)
	}
	if err != nil {
		return nil, tokenError(err)
	}

	resp := oauth2.FromOAuth2Token(tok, req)
	if s.verifyIDTokens && resp.IDToken != nil {
		if err := s.verifyIDToken(ctx, req.ClientID, *resp.IDToken); err != nil {
			return nil, errors.Wrap(err, "[PerformTokenRequest] verify id token")
		}
	}
	return resp, nil
}

func exchangeOptions(req *oauth2.TokenRequest) []xoauth2.AuthCodeOption {
	options := make([]xoauth2.AuthCodeOption, 0, len(req.AdditionalParameters)+1)
	if req.CodeVerifier != "" {
		options = append(options, xoauth2.VerifierOption(req.CodeVerifier))
	}
	for k, v := range req.AdditionalParameters {
		options = append(options, xoauth2.SetAuthURLParam(k, v))
	}
	return options
}

// refresh posts the refresh_token grant. The TokenSource has no way to add parameters, so a
// request carrying them goes through Exchange with every grant value overridden. The code is
// then sent empty, which RFC 6749 §3.1 treats as omitted.
func refresh(ctx context.Context, cfg *xoauth2.Config, req *oauth2.TokenRequest) (*xoauth2.Token, error) {
	cfg.RedirectURL = ""
	if len(req.AdditionalParameters) == 0 {
		return cfg.TokenSource(ctx, &xoauth2.Token{RefreshToken: req.RefreshToken}).Token()
	}

	options := make([]xoauth2.AuthCodeOption, 0, len(req.AdditionalParameters)+2)
	for k, v := range req.AdditionalParameters {
		options = append(options, xoauth2.SetAuthURLParam(k, v))
	}
	options = append(options,
		xoauth2.SetAuthURLParam("grant_type", string(oauth2.RefreshTokenGrant)),
		xoauth2.SetAuthURLParam("refresh_token", req.RefreshToken),
	)
	return cfg.Exchange(ctx, "", options...)
}

// tokenError maps an RFC 6749 §5.2 error response to a token-domain error.
func tokenError(err error) error {
	var re *xoauth2.RetrieveError
	if !stderrors.As(err, &re) || re.ErrorCode == "" {
		return errors.Wrap(err, "[PerformTokenRequest]")
	}
	tokenErr := oauth2.NewTokenError(re.ErrorCode, re.ErrorDescription)
	tokenErr.URI = re.ErrorURI
	if re.Response != nil {
		tokenErr.Payload = map[string]any{"status": re.Response.StatusCode}
	}
	return tokenErr
}

func (s *Service) verifyIDToken(ctx context.Context, clientID, rawIDToken string) error {
	p, err := s.Discover(ctx)
	if err != nil {
		return err
	}
	verifier := p.Verifier(&oidc.Config{
		ClientID: clientID,
		Now:      s.nowFunc,
	})
	_, err = verifier.Verify(ctx, rawIDToken)
	return err
}
