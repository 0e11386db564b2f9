package oauth2

import (
	"github.com/jrsteele09/go-auth-state/internal/utils"
	xoauth2 "golang.org/x/oauth2"
)

// FromOAuth2Token converts a golang.org/x/oauth2 token into a TokenResponse.
// Empty strings become nil so that an omitted refresh_token or scope keeps
// the "unchanged" meaning.
func FromOAuth2Token(tok *xoauth2.Token, req *TokenRequest) *TokenResponse {
	if tok == nil {
		return nil
	}
	resp := &TokenResponse{
		Request:      req,
		AccessToken:  utils.NonEmpty(tok.AccessToken),
		TokenType:    utils.NonEmpty(tok.TokenType),
		RefreshToken: utils.NonEmpty(tok.RefreshToken),
		IDToken:      extraString(tok, "id_token"),
		Scope:        extraString(tok, "scope"),
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		resp.AccessTokenExpiration = &expiry
	}
	return resp
}

// ToOAuth2Token converts the TokenResponse to an oauth2.Token for use with
// golang.org/x/oauth2 HTTP clients.
func (t *TokenResponse) ToOAuth2Token() *xoauth2.Token {
	tok := &xoauth2.Token{
		AccessToken:  utils.Value(t.AccessToken),
		TokenType:    utils.Value(t.TokenType),
		RefreshToken: utils.Value(t.RefreshToken),
	}
	if t.AccessTokenExpiration != nil {
		tok.Expiry = *t.AccessTokenExpiration
	}
	if t.IDToken != nil {
		tok = tok.WithExtra(map[string]interface{}{
			"id_token": *t.IDToken,
		})
	}
	return tok
}

func extraString(tok *xoauth2.Token, key string) *string {
	v, ok := tok.Extra(key).(string)
	if !ok {
		return nil
	}
	return utils.NonEmpty(v)
}
