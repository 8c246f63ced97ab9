package auth

import (
	"errors"
	"fmt"
)

// Verification failures never distinguish "user not found" from "wrong
// password": both surface as ErrInvalidCredentials.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotActive   = errors.New("account is not active")
	ErrAccountLocked      = errors.New("account is locked")

	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
	ErrNoSession    = errors.New("token carries no session reference")

	ErrInsufficientPermissions = errors.New("insufficient permissions")
)

// LockoutError reports the derived lockout state with enough detail to inform
// the user without confirming the account exists.
type LockoutError struct {
	FailedAttempts int
	MaxAttempts    int
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account locked after %d/%d failed attempts", e.FailedAttempts, e.MaxAttempts)
}

func (e *LockoutError) Unwrap() error {
	return ErrAccountLocked
}
