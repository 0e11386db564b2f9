package config

import (
	"strconv"
	"time"

	"github.com/jrsteele09/go-auth-state/internal/utils"
	"github.com/rs/zerolog/log"
)

const (
	issuerVar             = "OAUTH_ISSUER"
	clientIDVar           = "OAUTH_CLIENT_ID"
	clientSecretVar       = "OAUTH_CLIENT_SECRET"
	redirectPortVar       = "OAUTH_REDIRECT_PORT"
	scopesVar             = "OAUTH_SCOPES"
	freshnessToleranceVar = "TOKEN_FRESHNESS_TOLERANCE"
)

type OAuthConfig interface {
	GetIssuer() string
	GetClientID() string
	GetClientSecret() string
	GetRedirectPort() int
	GetScopes() []string
	GetFreshnessTolerance() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetIssuer() string {
	return GetEnv(issuerVar, "")
}

func (OAuth) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

// GetClientSecret is empty for public clients.
func (OAuth) GetClientSecret() string {
	return GetEnv(clientSecretVar, "")
}

// GetRedirectPort is the loopback callback port. 0 picks a free port.
func (OAuth) GetRedirectPort() int {
	value := GetEnv(redirectPortVar, "0")
	port, err := strconv.Atoi(value)
	if err != nil || port < 0 || port > 65535 {
		log.Warn().Str("value", value).Msgf("Invalid %s, using a random port", redirectPortVar)
		return 0
	}
	return port
}

func (OAuth) GetScopes() []string {
	return utils.SplitScopes(GetEnv(scopesVar, "openid profile email offline_access"))
}

// GetFreshnessTolerance is how long before expiry a token is refreshed, e.g. "60s" or "2m".
func (OAuth) GetFreshnessTolerance() time.Duration {
	value := GetEnv(freshnessToleranceVar, "60s")
	tolerance, err := time.ParseDuration(value)
	if err != nil || tolerance < 0 {
		log.Warn().Str("value", value).Msgf("Invalid %s, using 60s", freshnessToleranceVar)
		return 60 * time.Second
	}
	return tolerance
}
