package session

import "errors"

var (
	// ErrLoginInProgress rejects a second login attempt while one is
	// still pending; attempts are never interleaved.
	ErrLoginInProgress = errors.New("session: login already in progress")

	// ErrInvalidCredentials is returned when the authentication service
	// rejects the email/password pair.
	ErrInvalidCredentials = errors.New("session: invalid email or password")

	// ErrTokenNotFound is returned by token stores for absent or
	// mismatched tokens.
	ErrTokenNotFound = errors.New("session: token not found")

	// ErrNoSession is returned when an operation needs an active
	// session and none exists.
	ErrNoSession = errors.New("session: no active session")
)

// RestoreError wraps any failure while rehydrating a session from a
// persisted token. It is never surfaced to the user: restoration
// failures degrade to the anonymous state.
type RestoreError struct {
	Cause error
}

func (e *RestoreError) Error() string {
	return "session: restore failed: " + e.Cause.Error()
}

func (e *RestoreError) Unwrap() error {
	return e.Cause
}
