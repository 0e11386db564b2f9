// Package authstate holds the OAuth 2.0 / OpenID Connect state of a single end-user session.
//
// An AuthState tracks the latest authorization, token and registration responses,
// derives the currently usable access and ID token from them, and coordinates token
// refreshes so that any number of concurrent PerformWithFreshToken callers cause at
// most one refresh request to be in flight.
//
// # Transitions
//
// State only changes through UpdateWithRegistrationResponse, UpdateWithAuthorizationResponse,
// UpdateWithTokenResponse and UpdateWithAuthorizationError. Every transition that changes
// persisted state notifies the registered StateChangeObserver on the calling goroutine after
// the change has been applied. Protocol errors are additionally reported to the ErrorObserver.
// Transport and other non-protocol errors seen during a refresh are never written to the state;
// they are passed to the waiting callers and, if the ErrorObserver also implements
// TransientErrorObserver, to OnTransientError.
//
// # Persistence
//
// Marshal and Unmarshal encode the durable fields as a versioned JSON document. The registration
// response and any error payload are not persisted. Tokens are never printed: String and the
// zerolog marshaler redact them.
package authstate
