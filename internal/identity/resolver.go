package identity

import (
	"context"
	"errors"
	"fmt"

	"livegate/pkg/interfaces"
	"livegate/pkg/types"
)

// Resolver maps an opaque connection handle to the acting identity and its
// current moderation status. No internal state; pure lookup + classification.
type Resolver struct {
	store interfaces.Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(store interfaces.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve authenticates and authorizes one connection handle.
// FUNCTIONAL DISCOVERY: The status read happens on every message, not only at
// connect time, because an account can be suspended mid-session.
func (r *Resolver) Resolve(ctx context.Context, handle string) (*types.Identity, error) {
	if handle == "" {
		// Malformed or malicious client: the transport supplied no handle.
		// Short-circuits before any other processing.
		return nil, types.ErrNoConnectionHandle
	}

	userID, err := r.store.LookupBinding(ctx, handle)
	if err != nil {
		if errors.Is(err, interfaces.ErrBindingNotFound) {
			return nil, types.ErrUnauthenticated
		}
		return nil, fmt.Errorf("identity lookup failed: %w", err)
	}

	profile, err := r.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrUserNotFound) {
			// A binding without a profile means connect-time registration was
			// torn down underneath us; classify as unauthenticated.
			return nil, types.ErrUnauthenticated
		}
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}

	status, err := r.store.GetModerationStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("moderation status lookup failed: %w", err)
	}

	return &types.Identity{
		UserID:  userID,
		Profile: *profile,
		Status:  status,
	}, nil
}
