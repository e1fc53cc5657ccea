package database

import (
	"database/sql"
	"fmt"
)

// Schema for the three tables the gateway's narrow store contract covers:
// identity bindings, user profiles with moderation status, and the channel
// viewer registry.
// FUNCTIONAL DISCOVERY: The composite primary key on channel_viewers is what
// backs the at-most-one-row-per-(channel, handle) uniqueness invariant.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                TEXT PRIMARY KEY,
		username          TEXT NOT NULL,
		display_name      TEXT NOT NULL,
		avatar_url        TEXT NOT NULL DEFAULT '',
		moderation_status TEXT NOT NULL DEFAULT 'active'
			CHECK (moderation_status IN ('active', 'suspended', 'banned'))
	)`,

	`CREATE TABLE IF NOT EXISTS connection_bindings (
		handle     TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS channel_viewers (
		channel_name      TEXT NOT NULL,
		connection_handle TEXT NOT NULL,
		user_id           TEXT NOT NULL REFERENCES users(id),
		joined_at         TIMESTAMP NOT NULL,
		PRIMARY KEY (channel_name, connection_handle)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_channel_viewers_handle
		ON channel_viewers(connection_handle)`,

	`CREATE INDEX IF NOT EXISTS idx_bindings_user
		ON connection_bindings(user_id)`,
}

// applySchema creates tables and indexes when missing.
func applySchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
