package staterepofake

import (
	"sync"

	"github.com/jrsteele09/go-auth-state/store"
)

var _ store.Repo = (*FakeStateRepo)(nil)

type FakeStateRepo struct {
	states map[string][]byte
	lock   sync.RWMutex
}

func NewFakeStateRepo() *FakeStateRepo {
	return &FakeStateRepo{
		states: make(map[string][]byte),
	}
}

func (r *FakeStateRepo) Upsert(sessionID string, state []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.states[sessionID] = append([]byte(nil), state...)
	return nil
}

func (r *FakeStateRepo) Get(sessionID string) ([]byte, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	state, ok := r.states[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), state...), nil
}

func (r *FakeStateRepo) Delete(sessionID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.states[sessionID]; !ok {
		return store.ErrNotFound
	}
	delete(r.states, sessionID)
	return nil
}

// Len returns the number of stored states.
func (r *FakeStateRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.states)
}
