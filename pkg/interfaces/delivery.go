package interfaces

import "context"

// Deliverer pushes a serialized payload to the client behind an opaque
// connection handle.
// ARCHITECTURAL DISCOVERY: The gateway only depends on the three outcomes the
// contract names - success, "connection gone", or a retryable error - so the
// physical transport stays swappable.
type Deliverer interface {
	// Push delivers payload to the handle's client.
	// Returns ErrConnectionGone when the handle no longer corresponds to a
	// live client; any other error is treated as transient by callers.
	Push(ctx context.Context, handle string, payload []byte) error
}
