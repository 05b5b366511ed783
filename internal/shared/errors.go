package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken indicates a registration attempt with an existing email.
	ErrEmailTaken = errors.New("email already registered")
)

// ValidationKind discriminates credential validation failures.
type ValidationKind string

const (
	// InvalidEmail marks a syntactically invalid email address.
	InvalidEmail ValidationKind = "invalid_email"
	// WeakPassword marks a password failing one or more strength rules.
	WeakPassword ValidationKind = "weak_password"
)

// ValidationError is a recoverable user-input error. Messages are safe to
// show to the end user.
type ValidationError struct {
	Kind     ValidationKind
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return string(e.Kind)
	}
	return strings.Join(e.Messages, "; ")
}

// NewValidationError builds a ValidationError from individual rule messages.
func NewValidationError(kind ValidationKind, messages ...string) *ValidationError {
	return &ValidationError{Kind: kind, Messages: messages}
}

// AuthErrorKind discriminates authentication failures.
type AuthErrorKind string

const (
	// AuthInternal marks storage or hashing infrastructure failures. The
	// cause is logged; callers surface only a generic message.
	AuthInternal AuthErrorKind = "internal"
)

// AuthError wraps an infrastructure failure raised during authentication.
// A wrong password is not an AuthError; it is reported as a nil user.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Internal wraps err as an internal AuthError.
func Internal(err error) *AuthError {
	return &AuthError{Kind: AuthInternal, Err: err}
}

// IsValidation reports whether err is a user-input validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
