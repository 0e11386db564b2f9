package oauthmodel

import "errors"

var (
	ErrMissingClientID            = errors.New("missing client id")
	ErrInvalidCodeChallenge       = errors.New("invalid code challenge")
	ErrInvalidCodeChallengeMethod = errors.New("invalid code challenge method")
	ErrInvalidRedirectUri         = errors.New("invalid or no redirect uri")
	ErrInvalidResponseType        = errors.New("unsupported response type")
	ErrMissingAuthorizationCode   = errors.New("authorization response has no code")
	ErrMissingRefreshToken        = errors.New("missing refresh token")
)
