package store

import "errors"

// ErrNotFound is returned by Repo.Get when nothing is stored for the session.
var ErrNotFound = errors.New("auth state not found")

// Repo stores encoded auth states keyed by session ID.
// Implementations only see the output of authstate.Marshal and never inspect it.
type Repo interface {
	Upsert(sessionID string, state []byte) error
	Get(sessionID string) ([]byte, error)
	Delete(sessionID string) error
}
