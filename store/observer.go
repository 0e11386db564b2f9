package store

import (
	"github.com/jrsteele09/go-auth-state/authstate"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var _ authstate.StateChangeObserver = (*Observer)(nil)

// Observer writes the auth state to a Repo every time it changes.
type Observer struct {
	repo      Repo
	sessionID string
	onError   func(error)
}

// ObserverOption configures an Observer.
type ObserverOption func(*Observer)

// WithSaveErrorHandler is called when saving fails. By default failures are logged.
func WithSaveErrorHandler(fn func(error)) ObserverOption {
	return func(o *Observer) {
		o.onError = fn
	}
}

// NewObserver creates an Observer persisting the state of sessionID into repo.
func NewObserver(repo Repo, sessionID string, options ...ObserverOption) *Observer {
	o := &Observer{
		repo:      repo,
		sessionID: sessionID,
		onError: func(err error) {
			log.Err(err).Str("session_id", sessionID).Msg("Failed to persist auth state")
		},
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// OnStateChanged implements authstate.StateChangeObserver.
func (o *Observer) OnStateChanged(s *authstate.AuthState) {
	if err := Save(o.repo, o.sessionID, s); err != nil {
		o.onError(err)
	}
}

// Save encodes s and stores it under sessionID.
func Save(repo Repo, sessionID string, s *authstate.AuthState) error {
	data, err := authstate.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "[Save] marshal")
	}
	if err := repo.Upsert(sessionID, data); err != nil {
		return errors.Wrap(err, "[Save] upsert")
	}
	return nil
}

// Load reads and decodes the state of sessionID.
func Load(repo Repo, sessionID string, options ...authstate.Option) (*authstate.AuthState, error) {
	data, err := repo.Get(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "[Load] get")
	}
	s, err := authstate.Unmarshal(data, options...)
	if err != nil {
		return nil, errors.Wrap(err, "[Load] unmarshal")
	}
	return s, nil
}
