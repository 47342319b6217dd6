package auth

import "errors"

var (
	// ErrInvalidCredential covers bad, expired and already-used tokens as
	// well as missing sessions. The distinction is deliberately not exposed
	// to callers.
	ErrInvalidCredential = errors.New("auth: invalid credential")

	// ErrUnverified marks an account that has not been verified by an
	// administrator. It is distinct from ErrInvalidCredential: the
	// underlying token may be perfectly valid.
	ErrUnverified = errors.New("auth: account not verified")
)
