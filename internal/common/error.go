// Package common defines shared constants and sentinel errors used across
// the vault packages. Callers should use errors.Is / errors.As to match them.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal           = errors.New("internal error")
	ErrValidation           = errors.New("validation error")
	ErrAuthenticationFailed = errors.New("invalid username or password")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrForbidden            = errors.New("account is deactivated")
	ErrDuplicateIdentity    = errors.New("identity already exists")
	ErrRevocationDisabled   = errors.New("token revocation is not configured")

	// Cipher errors.
	ErrConfiguration = errors.New("configuration error")
	ErrDecryption    = errors.New("decryption failed")
)

// Identity fields that carry a uniqueness constraint.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
)

// DuplicateIdentityError reports a uniqueness violation. Field is empty when
// the offending column could not be determined.
type DuplicateIdentityError struct {
	Field string
}

func (e *DuplicateIdentityError) Error() string {
	if e.Field == "" {
		return ErrDuplicateIdentity.Error()
	}
	return fmt.Sprintf("%s already exists", e.Field)
}

func (e *DuplicateIdentityError) Is(target error) bool {
	return target == ErrDuplicateIdentity
}

// ValidationError names the rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
