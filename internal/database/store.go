package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	// ARCHITECTURAL DISCOVERY: Import SQLite driver but only reference in connection string
	_ "github.com/mattn/go-sqlite3"

	"livegate/pkg/interfaces"
	"livegate/pkg/types"
)

// Store implements the interfaces.Store contract over SQLite: connection
// identity bindings, user profiles with moderation status, and the channel
// viewer registry rows.
type Store struct {
	db           *sql.DB
	writeChannel chan writeOperation // TECHNICAL: Single-writer pattern for SQLite
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex // TECHNICAL: Protect closed status
}

// writeOperation represents a queued store write
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewStore opens the database, applies schema and pragmas, and starts the
// write loop.
func NewStore(path string) (*Store, error) {
	// ARCHITECTURAL DISCOVERY: Connection string carries the same busy-timeout
	// and WAL settings as the pragma pass so early writes behave identically
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// FUNCTIONAL DISCOVERY: Connection pool configuration critical for concurrent reads
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	store := &Store{
		db:           db,
		writeChannel: make(chan writeOperation, 100), // TECHNICAL: Buffer prevents blocking during join/leave bursts
		shutdown:     make(chan struct{}),
	}

	// ARCHITECTURAL DISCOVERY: Single-writer goroutine prevents SQLite write contention
	store.wg.Add(1)
	go store.writeLoop()

	return store, nil
}

// writeLoop processes all write operations in a single goroutine.
// Failures surface to the caller unretried; retries belong to the client per
// the gateway's error contract.
func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			op.result <- op.operation(s.db)
		case <-s.shutdown:
			log.Println("Store write loop shutting down")
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion
func (s *Store) executeWrite(operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(10 * time.Second):
		return fmt.Errorf("write operation timeout")
	case <-s.shutdown:
		return fmt.Errorf("store is shutting down")
	}
}

// BindConnection records handle -> userID at connect time.
func (s *Store) BindConnection(ctx context.Context, handle, userID string) error {
	return s.executeWrite(func(db *sql.DB) error {
		query := `
			INSERT INTO connection_bindings (handle, user_id, created_at)
			VALUES (?, ?, ?)
			ON CONFLICT(handle) DO UPDATE SET user_id = excluded.user_id
		`
		if _, err := db.ExecContext(ctx, query, handle, userID, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to bind connection: %w", err)
		}
		return nil
	})
}

// UnbindConnection removes the binding on disconnect. Idempotent.
func (s *Store) UnbindConnection(ctx context.Context, handle string) error {
	return s.executeWrite(func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, `DELETE FROM connection_bindings WHERE handle = ?`, handle); err != nil {
			return fmt.Errorf("failed to unbind connection: %w", err)
		}
		return nil
	})
}

// LookupBinding returns the bound user id for a handle.
func (s *Store) LookupBinding(ctx context.Context, handle string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM connection_bindings WHERE handle = ?`, handle).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			// FUNCTIONAL DISCOVERY: No row means the connect-time registration
			// was skipped or expired - a distinct outcome from query failure
			return "", interfaces.ErrBindingNotFound
		}
		return "", fmt.Errorf("failed to query connection binding: %w", err)
	}
	return userID, nil
}

// UpsertUser creates or refreshes the public profile for a user.
func (s *Store) UpsertUser(ctx context.Context, profile *types.UserProfile) error {
	return s.executeWrite(func(db *sql.DB) error {
		query := `
			INSERT INTO users (id, username, display_name, avatar_url)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				username = excluded.username,
				display_name = excluded.display_name,
				avatar_url = excluded.avatar_url
		`
		if _, err := db.ExecContext(ctx, query, profile.ID, profile.Username, profile.DisplayName, profile.AvatarURL); err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
		return nil
	})
}

// GetUser returns the public profile for a user id.
func (s *Store) GetUser(ctx context.Context, userID string) (*types.UserProfile, error) {
	query := `SELECT id, username, display_name, avatar_url FROM users WHERE id = ?`

	var profile types.UserProfile
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.ID,
		&profile.Username,
		&profile.DisplayName,
		&profile.AvatarURL,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, interfaces.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &profile, nil
}

// GetModerationStatus returns the account status for a user id.
// FUNCTIONAL DISCOVERY: Absent rows classify as active - a bare profile row
// never locks an account out.
func (s *Store) GetModerationStatus(ctx context.Context, userID string) (types.ModerationStatus, error) {
	var status sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT moderation_status FROM users WHERE id = ?`, userID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.StatusActive, nil
		}
		return "", fmt.Errorf("failed to query moderation status: %w", err)
	}
	if !status.Valid || status.String == "" {
		return types.StatusActive, nil
	}
	return types.ModerationStatus(status.String), nil
}

// SetModerationStatus updates the account status for a user id.
func (s *Store) SetModerationStatus(ctx context.Context, userID string, status types.ModerationStatus) error {
	return s.executeWrite(func(db *sql.DB) error {
		result, err := db.ExecContext(ctx, `UPDATE users SET moderation_status = ? WHERE id = ?`, string(status), userID)
		if err != nil {
			return fmt.Errorf("failed to set moderation status: %w", err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return interfaces.ErrUserNotFound
		}
		return nil
	})
}

// AddViewer inserts a viewer row, ignoring duplicates on the
// (channel_name, connection_handle) uniqueness invariant.
/// ARCHITECTURAL DISCOVERY: INSERT OR IGNORE makes concurrent duplicate joins
// idempotent at the store, not in racy application code.
func (s *Store) AddViewer(ctx context.Context, viewer *types.ChannelViewer) error {
	return s.executeWrite(func(db *sql.DB) error {
		query := `
			INSERT OR IGNORE INTO channel_viewers (channel_name, connection_handle, user_id, joined_at)
			VALUES (?, ?, ?, ?)
		`
		_, err := db.ExecContext(ctx, query,
			viewer.ChannelName,
			viewer.ConnectionHandle,
			viewer.UserID,
			viewer.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert viewer: %w", err)
		}
		return nil
	})
}

// RemoveViewer deletes one viewer row. No-op if absent.
func (s *Store) RemoveViewer(ctx context.Context, channelName, handle string) error {
	return s.executeWrite(func(db *sql.DB) error {
		query := `DELETE FROM channel_viewers WHERE channel_name = ? AND connection_handle = ?`
		if _, err := db.ExecContext(ctx, query, channelName, handle); err != nil {
			return fmt.Errorf("failed to remove viewer: %w", err)
		}
		return nil
	})
}

// RemoveViewersByHandle deletes every viewer row for a handle.
func (s *Store) RemoveViewersByHandle(ctx context.Context, handle string) error {
	return s.executeWrite(func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, `DELETE FROM channel_viewers WHERE connection_handle = ?`, handle); err != nil {
			return fmt.Errorf("failed to remove viewer rows for handle: %w", err)
		}
		return nil
	})
}

// CountViewers returns a fresh count for a channel.
func (s *Store) CountViewers(ctx context.Context, channelName string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channel_viewers WHERE channel_name = ?`, channelName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count viewers: %w", err)
	}
	return count, nil
}

// ListViewerHandles returns the connection handles viewing a channel.
func (s *Store) ListViewerHandles(ctx context.Context, channelName string) ([]string, error) {
	query := `SELECT connection_handle FROM channel_viewers WHERE channel_name = ? ORDER BY joined_at ASC`

	rows, err := s.db.QueryContext(ctx, query, channelName)
	if err != nil {
		return nil, fmt.Errorf("failed to query viewer handles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var handles []string
	for rows.Next() {
		var handle string
		if err := rows.Scan(&handle); err != nil {
			return nil, fmt.Errorf("failed to scan viewer handle: %w", err)
		}
		handles = append(handles, handle)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating viewer rows: %w", err)
	}
	return handles, nil
}

// ListChannels returns every channel that currently has viewers.
func (s *Store) ListChannels(ctx context.Context) ([]types.ChannelStat, error) {
	query := `
		SELECT channel_name, COUNT(*)
		FROM channel_viewers
		GROUP BY channel_name
		ORDER BY channel_name ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []types.ChannelStat
	for rows.Next() {
		var stat types.ChannelStat
		if err := rows.Scan(&stat.ChannelName, &stat.ViewerCount); err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, stat)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel rows: %w", err)
	}
	return channels, nil
}

// HealthCheck validates store connectivity
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := s.db.QueryContext(ctx, "SELECT COUNT(*) FROM channel_viewers LIMIT 1"); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}
	return nil
}

// Close shuts down the store
func (s *Store) Close() error {
	// TECHNICAL DISCOVERY: Prevent multiple close operations
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil // Already closed
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait() // Wait for write loop to finish processing

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// applyPragmas applies performance settings
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",   // Write-Ahead Logging for concurrency
		"PRAGMA synchronous = NORMAL", // Balance safety and performance
		"PRAGMA temp_store = MEMORY",  // Use memory for temporary tables
		"PRAGMA foreign_keys = ON",    // Ensure referential integrity
		"PRAGMA busy_timeout = 5000",  // 5 second timeout for write coordination
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}
	return nil
}
