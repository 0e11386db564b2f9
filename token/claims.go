package token

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoIDToken      = errors.New("no id token")
	ErrMalformedToken = errors.New("malformed id token")
)

// IDTokenClaims are the identity claims of an OpenID Connect ID token.
// They are read WITHOUT signature verification and are only fit for display and diagnostics.
type IDTokenClaims struct {
	Issuer    string
	Subject   string
	Audience  []string
	Email     string
	Name      string
	Nonce     string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// ParseIDTokenClaims extracts the claims of a compact serialized JWT without verifying it.
func ParseIDTokenClaims(rawToken string) (*IDTokenClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrNoIDToken
	}

	unverifiedToken, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}

	claims, ok := unverifiedToken.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}

	c := &IDTokenClaims{}
	c.Issuer, _ = claims.GetIssuer()
	c.Subject, _ = claims.GetSubject()
	if aud, err := claims.GetAudience(); err == nil {
		c.Audience = aud
	}
	c.Email, _ = claims["email"].(string)
	c.Name, _ = claims["name"].(string)
	c.Nonce, _ = claims["nonce"].(string)
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		c.IssuedAt = &t
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		c.ExpiresAt = &t
	}
	return c, nil
}
