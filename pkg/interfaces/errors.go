package interfaces

import "errors"

// Common interface errors used across components
var (
	// ErrBindingNotFound means a connection handle has no bound identity;
	// callers map this to an unauthenticated outcome, distinct from other
	// lookup failures.
	ErrBindingNotFound = errors.New("connection binding not found")

	// ErrUserNotFound means the bound user id has no profile row.
	ErrUserNotFound = errors.New("user not found")

	// ErrConnectionGone is the delivery transport's signal that a handle no
	// longer corresponds to a live client. Fanout treats it as an implicit
	// leave and prunes the viewer row.
	ErrConnectionGone = errors.New("connection no longer exists")
)
