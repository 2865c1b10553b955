/*
Package creds implements the device-local credential store.

It durably persists the (roomId, roomPassword, userName) triple that lets a
device rejoin its room automatically across restarts. The store lives in a
local SQLite file and never touches the network; credentials are per device,
not shared.
*/
package creds

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// Storage keys, matching the original local-storage layout.
const (
	keyRoomID   = "roomId"
	keyPassword = "roomPassword"
	keyUserName = "userName"
)

// Credential is the locally cached triple enabling automatic rejoin.
// If present, it always refers to the last successfully joined or created room.
type Credential struct {
	RoomID   string
	Password string
	UserName string
}

// IsComplete reports whether the triple is usable for an automatic rejoin.
func (c Credential) IsComplete() bool {
	return c.RoomID != "" && c.Password != "" && c.UserName != ""
}

// Store is the SQLite-backed credential store.
type Store struct {
	db *sql.DB
}

// Open creates or opens the credential store at dbPath, creating parent
// directories and the schema as needed.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create credential store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS credentials (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize credential store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save overwrites the full credential triple. The three writes happen in one
// transaction so a crash cannot leave the caller's view half-written.
func (s *Store) Save(ctx context.Context, cred Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin credential transaction: %w", err)
	}
	defer tx.Rollback()

	pairs := map[string]string{
		keyRoomID:   cred.RoomID,
		keyPassword: cred.Password,
		keyUserName: cred.UserName,
	}

	for key, value := range pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credentials (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("failed to save credential key %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Load returns the stored triple. Missing keys come back as empty strings;
// Load reports an error only when the store itself cannot be read.
func (s *Store) Load(ctx context.Context) (Credential, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM credentials`)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to load credentials: %w", err)
	}
	defer rows.Close()

	var cred Credential

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Credential{}, fmt.Errorf("failed to scan credential row: %w", err)
		}

		switch key {
		case keyRoomID:
			cred.RoomID = value
		case keyPassword:
			cred.Password = value
		case keyUserName:
			cred.UserName = value
		}
	}

	if err := rows.Err(); err != nil {
		return Credential{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	return cred, nil
}

// Clear removes all stored credential keys.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
