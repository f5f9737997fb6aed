package store

import (
	"fmt"

	"github.com/matheus3301/vchat/internal/conversation"
	"github.com/shopspring/decimal"
)

// SaveMessages replaces the stored message set of one conversation. The
// slice order is kept in the position column.
func (db *DB) SaveMessages(identity, conversationID string, msgs []conversation.Message) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE identity = ? AND conversation_id = ?`, identity, conversationID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO messages (identity, conversation_id, id, position, sender, text, direction,
			amount, timestamp, confirmations, status, txid, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, m := range msgs {
		if _, err := stmt.Exec(identity, conversationID, m.ID, i, m.Sender, m.Text, string(m.Direction),
			m.Amount.String(), m.Timestamp, m.Confirmations, string(m.Status), m.TxID, m.Error); err != nil {
			return fmt.Errorf("insert message %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// LoadMessages returns the stored messages of one conversation in saved order.
func (db *DB) LoadMessages(identity, conversationID string) ([]conversation.Message, error) {
	rows, err := db.Query(`
		SELECT id, sender, text, direction, amount, timestamp, confirmations, status, txid, error
		FROM messages
		WHERE identity = ? AND conversation_id = ?
		ORDER BY position`, identity, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []conversation.Message
	for rows.Next() {
		var (
			m         conversation.Message
			direction string
			amount    string
			status    string
		)
		if err := rows.Scan(&m.ID, &m.Sender, &m.Text, &direction, &amount, &m.Timestamp,
			&m.Confirmations, &status, &m.TxID, &m.Error); err != nil {
			return nil, err
		}
		m.Direction = conversation.Direction(direction)
		m.Status = conversation.Status(status)
		m.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("message %s amount %q: %w", m.ID, amount, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// LoadAllMessages returns every stored message of identity keyed by
// conversation id.
func (db *DB) LoadAllMessages(identity string) (map[string][]conversation.Message, error) {
	convs, err := db.LoadConversations(identity)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]conversation.Message, len(convs))
	for _, c := range convs {
		msgs, err := db.LoadMessages(identity, c.ID)
		if err != nil {
			return nil, fmt.Errorf("load messages of %s: %w", c.ID, err)
		}
		out[c.ID] = msgs
	}
	return out, nil
}
