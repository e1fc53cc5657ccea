package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"livegate/pkg/interfaces"
	"livegate/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "livegate_test.db"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedUser(t *testing.T, store *Store, id string) {
	t.Helper()
	err := store.UpsertUser(context.Background(), &types.UserProfile{
		ID:          id,
		Username:    id + "_name",
		DisplayName: "Viewer " + id,
		AvatarURL:   "https://cdn.example.com/" + id + ".png",
	})
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
}

func TestStore_BindLookupUnbind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1")

	if err := store.BindConnection(ctx, "h1", "u1"); err != nil {
		t.Fatalf("BindConnection failed: %v", err)
	}

	userID, err := store.LookupBinding(ctx, "h1")
	if err != nil {
		t.Fatalf("LookupBinding failed: %v", err)
	}
	if userID != "u1" {
		t.Errorf("expected bound user u1, got %s", userID)
	}

	if err := store.UnbindConnection(ctx, "h1"); err != nil {
		t.Fatalf("UnbindConnection failed: %v", err)
	}
	if _, err := store.LookupBinding(ctx, "h1"); !errors.Is(err, interfaces.ErrBindingNotFound) {
		t.Errorf("expected ErrBindingNotFound after unbind, got %v", err)
	}

	// Unbind of an absent handle is a no-op
	if err := store.UnbindConnection(ctx, "h1"); err != nil {
		t.Errorf("repeat unbind should be a no-op, got %v", err)
	}
}

func TestStore_LookupBinding_Absent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LookupBinding(context.Background(), "never-bound")
	if !errors.Is(err, interfaces.ErrBindingNotFound) {
		t.Errorf("expected ErrBindingNotFound, got %v", err)
	}
}

func TestStore_UserProfileRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1")

	profile, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if profile.Username != "u1_name" || profile.DisplayName != "Viewer u1" {
		t.Errorf("unexpected profile: %+v", profile)
	}

	// Upsert refreshes fields
	updated := &types.UserProfile{ID: "u1", Username: "renamed", DisplayName: "Renamed", AvatarURL: ""}
	if err := store.UpsertUser(ctx, updated); err != nil {
		t.Fatalf("UpsertUser update failed: %v", err)
	}
	profile, err = store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser after update failed: %v", err)
	}
	if profile.Username != "renamed" {
		t.Errorf("expected refreshed username, got %s", profile.Username)
	}

	if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, interfaces.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestStore_ModerationStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1")

	// Fresh user defaults to active
	status, err := store.GetModerationStatus(ctx, "u1")
	if err != nil {
		t.Fatalf("GetModerationStatus failed: %v", err)
	}
	if status != types.StatusActive {
		t.Errorf("expected active for fresh user, got %s", status)
	}

	// Absent user also classifies as active
	status, err = store.GetModerationStatus(ctx, "missing")
	if err != nil {
		t.Fatalf("GetModerationStatus for absent user failed: %v", err)
	}
	if status != types.StatusActive {
		t.Errorf("expected active for absent user, got %s", status)
	}

	if err := store.SetModerationStatus(ctx, "u1", types.StatusSuspended); err != nil {
		t.Fatalf("SetModerationStatus failed: %v", err)
	}
	status, err = store.GetModerationStatus(ctx, "u1")
	if err != nil {
		t.Fatalf("GetModerationStatus after set failed: %v", err)
	}
	if status != types.StatusSuspended {
		t.Errorf("expected suspended, got %s", status)
	}

	// Updating a user that was never stored reports not found
	if err := store.SetModerationStatus(ctx, "ghost", types.StatusBanned); err != interfaces.ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestStore_ViewerRegistry_IdempotentAdd(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1")

	viewer := &types.ChannelViewer{
		ChannelName:      "c1",
		ConnectionHandle: "h1",
		UserID:           "u1",
		JoinedAt:         time.Now().UTC(),
	}

	if err := store.AddViewer(ctx, viewer); err != nil {
		t.Fatalf("AddViewer failed: %v", err)
	}
	countAfterOne, err := store.CountViewers(ctx, "c1")
	if err != nil {
		t.Fatalf("CountViewers failed: %v", err)
	}

	// Duplicate join is insert-or-ignore
	if err := store.AddViewer(ctx, viewer); err != nil {
		t.Fatalf("duplicate AddViewer failed: %v", err)
	}
	countAfterTwo, err := store.CountViewers(ctx, "c1")
	if err != nil {
		t.Fatalf("CountViewers failed: %v", err)
	}

	if countAfterOne != 1 || countAfterTwo != 1 {
		t.Errorf("expected count 1 after one and after two joins, got %d then %d", countAfterOne, countAfterTwo)
	}
}

func TestStore_ViewerRegistry_RemoveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1")
	seedUser(t, store, "u2")

	now := time.Now().UTC()
	viewers := []*types.ChannelViewer{
		{ChannelName: "c1", ConnectionHandle: "h1", UserID: "u1", JoinedAt: now},
		{ChannelName: "c1", ConnectionHandle: "h2", UserID: "u2", JoinedAt: now.Add(time.Second)},
		{ChannelName: "c2", ConnectionHandle: "h1", UserID: "u1", JoinedAt: now},
	}
	for _, v := range viewers {
		if err := store.AddViewer(ctx, v); err != nil {
			t.Fatalf("AddViewer failed: %v", err)
		}
	}

	handles, err := store.ListViewerHandles(ctx, "c1")
	if err != nil {
		t.Fatalf("ListViewerHandles failed: %v", err)
	}
	if len(handles) != 2 || handles[0] != "h1" || handles[1] != "h2" {
		t.Errorf("unexpected c1 handles: %v", handles)
	}

	// Remove one row; the other channel's row for the same handle survives
	if err := store.RemoveViewer(ctx, "c1", "h1"); err != nil {
		t.Fatalf("RemoveViewer failed: %v", err)
	}
	if count, _ := store.CountViewers(ctx, "c1"); count != 1 {
		t.Errorf("expected 1 viewer on c1 after remove, got %d", count)
	}
	if count, _ := store.CountViewers(ctx, "c2"); count != 1 {
		t.Errorf("expected 1 viewer on c2, got %d", count)
	}

	// Remove of an absent row is a no-op
	if err := store.RemoveViewer(ctx, "c1", "never-joined"); err != nil {
		t.Errorf("remove of absent viewer should be a no-op, got %v", err)
	}
}

func TestStore_RemoveViewersByHandle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1")

	now := time.Now().UTC()
	for _, channel := range []string{"c1", "c2", "c3"} {
		err := store.AddViewer(ctx, &types.ChannelViewer{
			ChannelName: channel, ConnectionHandle: "h1", UserID: "u1", JoinedAt: now,
		})
		if err != nil {
			t.Fatalf("AddViewer failed: %v", err)
		}
	}

	if err := store.RemoveViewersByHandle(ctx, "h1"); err != nil {
		t.Fatalf("RemoveViewersByHandle failed: %v", err)
	}
	for _, channel := range []string{"c1", "c2", "c3"} {
		if count, _ := store.CountViewers(ctx, channel); count != 0 {
			t.Errorf("expected 0 viewers on %s after handle cleanup, got %d", channel, count)
		}
	}
}

func TestStore_ListChannels(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1")
	seedUser(t, store, "u2")

	now := time.Now().UTC()
	rows := []*types.ChannelViewer{
		{ChannelName: "alpha", ConnectionHandle: "h1", UserID: "u1", JoinedAt: now},
		{ChannelName: "alpha", ConnectionHandle: "h2", UserID: "u2", JoinedAt: now},
		{ChannelName: "beta", ConnectionHandle: "h3", UserID: "u1", JoinedAt: now},
	}
	for _, v := range rows {
		if err := store.AddViewer(ctx, v); err != nil {
			t.Fatalf("AddViewer failed: %v", err)
		}
	}

	channels, err := store.ListChannels(ctx)
	if err != nil {
		t.Fatalf("ListChannels failed: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(channels))
	}
	if channels[0].ChannelName != "alpha" || channels[0].ViewerCount != 2 {
		t.Errorf("unexpected first channel: %+v", channels[0])
	}
	if channels[1].ChannelName != "beta" || channels[1].ViewerCount != 1 {
		t.Errorf("unexpected second channel: %+v", channels[1])
	}
}

func TestStore_HealthCheckAndClose(t *testing.T) {
	store := newTestStore(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed on live store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	// Close is idempotent
	if err := store.Close(); err != nil {
		t.Errorf("repeat Close should be a no-op, got %v", err)
	}
}
