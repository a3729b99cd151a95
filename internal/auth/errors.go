package auth

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken is matched by every identity failure on a protected request.
	ErrInvalidToken = errors.New("auth: could not validate credentials")
	// ErrInsufficientScope means the identity is fine but the token lacks a required scope.
	ErrInsufficientScope = errors.New("auth: not enough permissions")

	ErrTokenMissing          = errors.New("auth: bearer token missing")
	ErrTokenMalformed        = errors.New("auth: token malformed")
	ErrTokenSignatureInvalid = errors.New("auth: token signature invalid")
	ErrTokenExpired          = errors.New("auth: token expired")
	ErrTokenSubjectMissing   = errors.New("auth: token subject missing")
	ErrUserNotFoundForToken  = errors.New("auth: token subject not found")

	ErrEmptyPassword = errors.New("auth: password is empty")
	ErrInvalidConfig = errors.New("auth: invalid configuration")
)

// DecodeError reports why a token was rejected. Kind is one of the ErrToken*
// sentinels; every DecodeError also matches ErrInvalidToken.
type DecodeError struct {
	Kind error
	Err  error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() []error {
	errs := []error{ErrInvalidToken, e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Reason returns a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInsufficientScope):
		return "insufficient_scope"
	case errors.Is(err, ErrTokenMissing):
		return "token_missing"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSubjectMissing):
		return "subject_missing"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrUserNotFoundForToken):
		return "user_not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidToken):
		return "lookup_failed"
	default:
		return "internal"
	}
}
