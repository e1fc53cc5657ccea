package registry

import (
	"context"
	"fmt"
	"log"
	"time"

	"livegate/pkg/interfaces"
	"livegate/pkg/types"
)

// Viewers is the channel viewer registry, backed by the external store.
// ARCHITECTURAL DISCOVERY: No in-memory viewer cache - every count is a fresh
// post-commit read, so concurrently handled messages on other instances can
// never drift the number echoed to clients.
type Viewers struct {
	store interfaces.Store
}

// NewViewers creates a viewer registry over the given store.
func NewViewers(store interfaces.Store) *Viewers {
	return &Viewers{store: store}
}

// Add registers a connection as a viewer of a channel. Idempotent: a
// duplicate join leaves exactly one row.
func (v *Viewers) Add(ctx context.Context, channelName, handle, userID string) error {
	viewer := &types.ChannelViewer{
		ChannelName:      channelName,
		ConnectionHandle: handle,
		UserID:           userID,
		JoinedAt:         time.Now().UTC(),
	}
	if err := v.store.AddViewer(ctx, viewer); err != nil {
		return fmt.Errorf("failed to add viewer: %w", err)
	}
	return nil
}

// Remove deregisters a connection from a channel. No-op if absent.
func (v *Viewers) Remove(ctx context.Context, channelName, handle string) error {
	if err := v.store.RemoveViewer(ctx, channelName, handle); err != nil {
		return fmt.Errorf("failed to remove viewer: %w", err)
	}
	return nil
}

// RemoveAllForHandle clears every channel membership for a handle, used at
// disconnect so no viewer row outlives its connection.
func (v *Viewers) RemoveAllForHandle(ctx context.Context, handle string) {
	if err := v.store.RemoveViewersByHandle(ctx, handle); err != nil {
		// Cleanup is best-effort at disconnect; the row will also be pruned
		// the next time fanout reports the handle gone.
		log.Printf("Failed to clear viewer rows for handle %s: %v", handle, err)
	}
}

// Count returns the current viewer count for a channel.
func (v *Viewers) Count(ctx context.Context, channelName string) (int, error) {
	count, err := v.store.CountViewers(ctx, channelName)
	if err != nil {
		return 0, fmt.Errorf("failed to count viewers: %w", err)
	}
	return count, nil
}

// Handles returns the connection handles currently viewing a channel.
func (v *Viewers) Handles(ctx context.Context, channelName string) ([]string, error) {
	handles, err := v.store.ListViewerHandles(ctx, channelName)
	if err != nil {
		return nil, fmt.Errorf("failed to list viewer handles: %w", err)
	}
	return handles, nil
}

// Prune removes a viewer row after the delivery transport reported the handle
// gone. Logged but never surfaced as an error to the triggering request.
func (v *Viewers) Prune(ctx context.Context, channelName, handle string) {
	if err := v.store.RemoveViewer(ctx, channelName, handle); err != nil {
		log.Printf("Failed to prune gone viewer %s from %s: %v", handle, channelName, err)
		return
	}
	log.Printf("Pruned gone viewer %s from channel %s", handle, channelName)
}

// Channels returns the active channels with their viewer counts.
func (v *Viewers) Channels(ctx context.Context) ([]types.ChannelStat, error) {
	channels, err := v.store.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}
