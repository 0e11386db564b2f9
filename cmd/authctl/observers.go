package main

import (
	"github.com/jrsteele09/go-auth-state/authstate"
	"github.com/rs/zerolog/log"
)

var _ authstate.TransientErrorObserver = errorLogger{}

type errorLogger struct{}

func (errorLogger) OnAuthorizationError(s *authstate.AuthState, err error) {
	log.Warn().Err(err).Str("class", authstate.Classify(err).String()).Msg("Authorization lost, log in again")
}

func (errorLogger) OnTransientError(s *authstate.AuthState, err error) {
	log.Warn().Err(err).Msg("Token refresh failed, will retry on next use")
}
