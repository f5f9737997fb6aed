package store

import (
	"database/sql"
	"errors"
	"time"
)

// UpdateCheckpoint updates a sync checkpoint value of identity.
func (db *DB) UpdateCheckpoint(identity, key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO sync_state (identity, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(identity, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		identity, key, value, now)
	return err
}

// GetCheckpoint retrieves a sync checkpoint value. A missing checkpoint
// returns "" and no error.
func (db *DB) GetCheckpoint(identity, key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM sync_state WHERE identity = ? AND key = ?`, identity, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}
