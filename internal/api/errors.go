package api

import (
	"errors"
	"fmt"
)

// ErrorKind buckets gateway failures the way the rest of the app reacts to
// them: network failures are user-retryable, authentication failures carry a
// displayable message, session expiry forces a logout, and everything else
// is a backend error passed through.
type ErrorKind string

const (
	KindNetwork        ErrorKind = "network"
	KindAuthentication ErrorKind = "authentication"
	KindSessionExpired ErrorKind = "session_expired"
	KindBackend        ErrorKind = "backend"
)

// Error is the typed failure returned by every gateway call.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err, or "" when err is not a gateway
// error.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsSessionExpired reports whether err is a 401 from a bearer-authenticated
// call.
func IsSessionExpired(err error) bool {
	return KindOf(err) == KindSessionExpired
}
