package authstate

// StateChangeObserver is notified after a transition has changed the persisted state.
// It is called synchronously on the goroutine that applied the transition.
type StateChangeObserver interface {
	OnStateChanged(s *AuthState)
}

// ErrorObserver is notified when an OAuth protocol error has been stored in the state.
type ErrorObserver interface {
	OnAuthorizationError(s *AuthState, err error)
}

// TransientErrorObserver is an optional capability of an ErrorObserver. When the registered
// ErrorObserver implements it, non-protocol errors seen during a refresh are reported here.
// They are never stored in the state.
type TransientErrorObserver interface {
	OnTransientError(s *AuthState, err error)
}

// StateChangeFunc adapts a function to a StateChangeObserver.
type StateChangeFunc func(s *AuthState)

func (f StateChangeFunc) OnStateChanged(s *AuthState) { f(s) }

// SetStateChangeObserver registers the single state change observer. Passing nil removes it.
func (s *AuthState) SetStateChangeObserver(o StateChangeObserver) {
	s.observerMu.Lock()
	s.stateObserver = o
	s.observerMu.Unlock()
}

// SetErrorObserver registers the single error observer. Passing nil removes it.
func (s *AuthState) SetErrorObserver(o ErrorObserver) {
	s.observerMu.Lock()
	s.errorObserver = o
	s.observerMu.Unlock()
}

func (s *AuthState) notifyStateChanged() {
	s.observerMu.RLock()
	o := s.stateObserver
	s.observerMu.RUnlock()
	if o != nil {
		o.OnStateChanged(s)
	}
}

func (s *AuthState) notifyAuthorizationError(err error) {
	s.observerMu.RLock()
	o := s.errorObserver
	s.observerMu.RUnlock()
	if o != nil {
		o.OnAuthorizationError(s, err)
	}
}

func (s *AuthState) notifyTransientError(err error) {
	s.observerMu.RLock()
	o := s.errorObserver
	s.observerMu.RUnlock()
	if t, ok := o.(TransientErrorObserver); ok {
		t.OnTransientError(s, err)
	}
}
