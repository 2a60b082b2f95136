package service

import "errors"

// Terminal request errors, mapped to HTTP statuses (and OAuth error codes on
// the token endpoint) by the controllers. None of these are retried.
var (
	ErrAppNotFound   = errors.New("app not found")
	ErrGrantNotFound = errors.New("grant not found")
	ErrBadRedirect   = errors.New("bad redirect url")
	ErrForbidden     = errors.New("identity verification failed")
	ErrInvalidGrant  = errors.New("invalid grant")
	ErrInvalidClient = errors.New("invalid client")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrQuotaExceeded = errors.New("quota exceeded")

	ErrUnsupportedResponseType = errors.New("unsupported response type")
	ErrUnsupportedGrantType    = errors.New("unsupported grant type")
)
