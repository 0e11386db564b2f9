package main

import (
	"github.com/jrsteele09/go-auth-state/authstate"
	"github.com/jrsteele09/go-auth-state/internal/config"
	apperrors "github.com/jrsteele09/go-auth-state/internal/errors"
	"github.com/jrsteele09/go-auth-state/provider"
	"github.com/jrsteele09/go-auth-state/session"
	"github.com/jrsteele09/go-auth-state/store"
	"github.com/jrsteele09/go-auth-state/store/filerepo"
)

// app holds what every command needs.
type app struct {
	config      config.Config
	sessionName string
}

func (a *app) repo() (store.Repo, error) {
	key, err := a.config.GetStateEncryptionKey()
	if err != nil {
		return nil, err
	}
	repo, err := filerepo.New(a.config.GetDataFolder(), key)
	if err != nil {
		return nil, apperrors.Wrapf(err, "opening state folder %s", a.config.GetDataFolder())
	}
	return repo, nil
}

func (a *app) service(options ...provider.Option) (*provider.Service, error) {
	if a.config.GetIssuer() == "" {
		return nil, apperrors.ErrMissingIssuer
	}
	options = append([]provider.Option{
		provider.WithIDTokenVerification(a.config.GetVerifyIDTokens()),
	}, options...)
	return provider.New(a.config.GetIssuer(), options...), nil
}

func (a *app) stateOptions(svc *provider.Service) []authstate.Option {
	return []authstate.Option{
		authstate.WithTokenExchanger(svc),
		authstate.WithFreshnessTolerance(a.config.GetFreshnessTolerance()),
		authstate.WithErrorObserver(errorLogger{}),
	}
}

// restore loads the named session wired to the provider.
func (a *app) restore() (*session.Session, error) {
	repo, err := a.repo()
	if err != nil {
		return nil, err
	}
	svc, err := a.service()
	if err != nil {
		return nil, err
	}
	s, err := session.Restore(repo, a.sessionName, a.stateOptions(svc))
	if apperrors.Is(err, store.ErrNotFound) {
		return nil, apperrors.ErrNotLoggedIn
	}
	return s, err
}
