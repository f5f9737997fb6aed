package store

import (
	"database/sql"
	"errors"
	"time"
)

// GetPersistence returns whether identity opted into persistence. Identities
// without a stored preference default to false.
func (db *DB) GetPersistence(identity string) (bool, error) {
	var persist bool
	err := db.QueryRow(`SELECT persist FROM preferences WHERE identity = ?`, identity).Scan(&persist)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return persist, nil
}

// SetPersistence stores the persistence preference of identity.
func (db *DB) SetPersistence(identity string, persist bool) error {
	_, err := db.Exec(`
		INSERT INTO preferences (identity, persist, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			persist = excluded.persist,
			updated_at = excluded.updated_at`,
		identity, persist, time.Now().UnixMilli())
	return err
}
