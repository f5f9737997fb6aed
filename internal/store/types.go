package store

import "fmt"

// Purpose names a class of persisted rows.
type Purpose string

const (
	PurposePreference    Purpose = "preference"
	PurposeConversations Purpose = "conversations"
	PurposeMessages      Purpose = "messages"
	PurposeSyncState     Purpose = "sync_state"
)

// Key addresses persisted data. Every field maps to its own column.
type Key struct {
	Identity       string
	Purpose        Purpose
	ConversationID string // only meaningful for PurposeMessages
}

func (k Key) String() string {
	if k.ConversationID == "" {
		return fmt.Sprintf("%s/%s", k.Identity, k.Purpose)
	}
	return fmt.Sprintf("%s/%s/%s", k.Identity, k.Purpose, k.ConversationID)
}
