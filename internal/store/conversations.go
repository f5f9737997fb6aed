package store

import (
	"fmt"
	"time"

	"github.com/matheus3301/vchat/internal/conversation"
)

// SaveConversations replaces the stored conversation set of identity.
func (db *DB) SaveConversations(identity string, convs []conversation.Conversation) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM conversations WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	now := time.Now().UnixMilli()
	for _, c := range convs {
		if _, err := tx.Exec(`
			INSERT INTO conversations (identity, id, name, address, unread, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			identity, c.ID, c.Name, c.Address, c.Unread, now); err != nil {
			return fmt.Errorf("insert conversation %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// LoadConversations returns the stored conversations of identity.
func (db *DB) LoadConversations(identity string) ([]conversation.Conversation, error) {
	rows, err := db.Query(`
		SELECT id, name, address, unread
		FROM conversations
		WHERE identity = ?
		ORDER BY id`, identity)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []conversation.Conversation
	for rows.Next() {
		var c conversation.Conversation
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Unread); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}
