package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds. Subscribers filter on the prefix before the dot.
const (
	ConversationUpserted = "conversation.upserted"
	ConversationRead     = "conversation.read"
	ConversationUnread   = "conversation.unread"

	MessageMerged     = "message.merged"
	MessageUpdated    = "message.updated"
	MessageSendAck    = "message.send_ack"
	MessageSendFailed = "message.send_failed"

	SyncPass      = "sync.pass"
	SyncDegraded  = "sync.degraded"
	SyncRecovered = "sync.recovered"

	WalletHeight         = "wallet.height"
	WalletPendingStarted = "wallet.pending_started"
	WalletPendingCleared = "wallet.pending_cleared"

	SessionStatusChanged = "session.status_changed"
	SessionLoggedIn      = "session.logged_in"
	SessionLoggedOut     = "session.logged_out"
)
