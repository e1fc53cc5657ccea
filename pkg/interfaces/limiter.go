package interfaces

import "time"

// Limiter bounds the message rate of a single connection handle.
// ARCHITECTURAL DISCOVERY: The in-process sliding window sits behind this
// interface so a distributed counter (shared key-value store with expiry)
// can be substituted without touching the gateway. The local implementation
// carries a documented weaker guarantee: its state is scoped to the instance
// handling the connection and resets when that instance recycles.
type Limiter interface {
	// Admit reports whether a message arriving at now is within budget and,
	// if so, records it against the handle's window.
	Admit(handle string, now time.Time) bool

	// Release drops all state for a handle, called on disconnect.
	Release(handle string)
}
