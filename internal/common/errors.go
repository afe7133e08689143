// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal           = errors.New("internal error")
	ErrorUnauthorized       = errors.New("unauthorized")
	ErrorForbidden          = errors.New("forbidden")
	ErrorInvalidInput       = errors.New("invalid input")
	ErrorServiceUnavailable = errors.New("service unavailable")

	// Authentication errors.
	ErrorInvalidCredentials = errors.New("invalid email or password")
	ErrorAccountInactive    = errors.New("account is inactive")

	// Token errors (malformed, forged or expired bearer token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Object storage errors.
	ErrorEmptyObject = errors.New("downloaded file is empty")
)

// Warning records the failure of a best-effort side effect (session logging,
// orphan cleanup). It never fails the operation that produced it; callers
// decide whether to log or inspect it.
type Warning struct {
	Op  string
	Err error
}

func (w Warning) Error() string {
	return w.Op + ": " + w.Err.Error()
}
