package session

import (
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-state/authstate"
	"github.com/jrsteele09/go-auth-state/store"
	"github.com/pkg/errors"
)

// Session is an AuthState persisted under an ID. Every state change is saved to the repo.
type Session struct {
	ID    string
	State *authstate.AuthState

	repo store.Repo
}

type Option func(*config)

type config struct {
	id        string
	observers []authstate.StateChangeObserver
	persist   []store.ObserverOption
}

// WithID uses id instead of a generated one.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}

// WithStateChangeObserver is notified after the state has been persisted.
func WithStateChangeObserver(o authstate.StateChangeObserver) Option {
	return func(c *config) {
		c.observers = append(c.observers, o)
	}
}

// WithPersistOptions configures the persisting observer.
func WithPersistOptions(options ...store.ObserverOption) Option {
	return func(c *config) {
		c.persist = append(c.persist, options...)
	}
}

// New stores state under a new session and keeps it persisted.
func New(repo store.Repo, state *authstate.AuthState, options ...Option) (*Session, error) {
	c := newConfig(options)
	if c.id == "" {
		c.id = uuid.New().String()
	}
	s := &Session{ID: c.id, State: state, repo: repo}
	if err := s.Save(); err != nil {
		return nil, errors.Wrap(err, "[session.New]")
	}
	s.attach(c)
	return s, nil
}

// Restore loads the session id from repo. The state options apply to the decoded state.
func Restore(repo store.Repo, id string, stateOptions []authstate.Option, options ...Option) (*Session, error) {
	state, err := store.Load(repo, id, stateOptions...)
	if err != nil {
		return nil, errors.Wrapf(err, "[session.Restore] %s", id)
	}
	c := newConfig(options)
	s := &Session{ID: id, State: state, repo: repo}
	s.attach(c)
	return s, nil
}

// Save persists the current state.
func (s *Session) Save() error {
	return store.Save(s.repo, s.ID, s.State)
}

// Delete removes the session from the repo and stops persisting changes.
func (s *Session) Delete() error {
	s.State.SetStateChangeObserver(nil)
	if err := s.repo.Delete(s.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return errors.Wrapf(err, "[session.Delete] %s", s.ID)
	}
	return nil
}

func newConfig(options []Option) *config {
	c := &config{}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (s *Session) attach(c *config) {
	persist := store.NewObserver(s.repo, s.ID, c.persist...)
	if len(c.observers) == 0 {
		s.State.SetStateChangeObserver(persist)
		return
	}
	observers := append([]authstate.StateChangeObserver{persist}, c.observers...)
	s.State.SetStateChangeObserver(authstate.StateChangeFunc(func(state *authstate.AuthState) {
		for _, o := range observers {
			o.OnStateChanged(state)
		}
	}))
}
