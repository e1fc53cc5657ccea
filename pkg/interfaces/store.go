package interfaces

import (
	"context"

	"livegate/pkg/types"
)

// Store handles all persistence the gateway depends on: connection identity
// bindings, user profiles with moderation status, and channel viewer rows.
// ARCHITECTURAL DISCOVERY: Single interface for all store operations enables
// consistent transaction handling and swapping the relational backend in tests
type Store interface {
	// Connection binding operations
	// The binding is created at connect time by the identity layer and is
	// read-only for the message path. A handle with no binding is treated as
	// unauthenticated on every action.

	// BindConnection records handle -> userID at connect time.
	BindConnection(ctx context.Context, handle, userID string) error

	// UnbindConnection removes the binding on disconnect. Idempotent.
	UnbindConnection(ctx context.Context, handle string) error

	// LookupBinding returns the bound user id for a handle.
	// Returns ErrBindingNotFound when no binding exists.
	LookupBinding(ctx context.Context, handle string) (string, error)

	// User operations

	// UpsertUser creates or refreshes the public profile for a user.
	UpsertUser(ctx context.Context, profile *types.UserProfile) error

	// GetUser returns the public profile for a user id.
	// Returns ErrUserNotFound when the user does not exist.
	GetUser(ctx context.Context, userID string) (*types.UserProfile, error)

	// GetModerationStatus returns the account status for a user id.
	// FUNCTIONAL DISCOVERY: Absent status rows classify as active so that a
	// bare profile row never locks an account out.
	GetModerationStatus(ctx context.Context, userID string) (types.ModerationStatus, error)

	// SetModerationStatus updates the account status for a user id.
	SetModerationStatus(ctx context.Context, userID string, status types.ModerationStatus) error

	// Viewer registry operations
	// All are idempotent: AddViewer is insert-or-ignore on the
	// (channel_name, connection_handle) uniqueness invariant and RemoveViewer
	// is a no-op when the row is absent.

	AddViewer(ctx context.Context, viewer *types.ChannelViewer) error
	RemoveViewer(ctx context.Context, channelName, handle string) error

	// RemoveViewersByHandle deletes every viewer row for a handle, used when
	// a connection goes away so no row outlives its connection.
	RemoveViewersByHandle(ctx context.Context, handle string) error

	// CountViewers returns a fresh post-commit count for a channel.
	// ARCHITECTURAL DISCOVERY: Always a fresh read, never a cached increment,
	// so concurrent joins cannot drift the count echoed to clients.
	CountViewers(ctx context.Context, channelName string) (int, error)

	// ListViewerHandles returns the connection handles viewing a channel.
	ListViewerHandles(ctx context.Context, channelName string) ([]string, error)

	// ListChannels returns every channel that currently has viewers.
	ListChannels(ctx context.Context) ([]types.ChannelStat, error)

	// Health and lifecycle operations

	// HealthCheck verifies store connectivity and basic operations.
	HealthCheck(ctx context.Context) error

	// Close closes the store and cleans up resources.
	Close() error
}
