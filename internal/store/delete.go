package store

import (
	"database/sql"
	"fmt"
)

// DeleteAllChatData removes everything stored for identity, including its
// persistence preference.
func (db *DB) DeleteAllChatData(identity string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range []Purpose{PurposeMessages, PurposeConversations, PurposeSyncState, PurposePreference} {
		if err := deleteKey(tx, Key{Identity: identity, Purpose: p}); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func deleteKey(tx *sql.Tx, k Key) error {
	var (
		query string
		args  = []any{k.Identity}
	)
	switch k.Purpose {
	case PurposePreference:
		query = `DELETE FROM preferences WHERE identity = ?`
	case PurposeConversations:
		query = `DELETE FROM conversations WHERE identity = ?`
	case PurposeSyncState:
		query = `DELETE FROM sync_state WHERE identity = ?`
	case PurposeMessages:
		query = `DELETE FROM messages WHERE identity = ?`
		if k.ConversationID != "" {
			query += ` AND conversation_id = ?`
			args = append(args, k.ConversationID)
		}
	default:
		return fmt.Errorf("delete %s: unknown purpose %q", k, k.Purpose)
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("delete %s: %w", k, err)
	}
	return nil
}
