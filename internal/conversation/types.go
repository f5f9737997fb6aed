package conversation

import "github.com/shopspring/decimal"

// Self is the Sender of every outbound message.
const Self = "self"

// Direction of a message relative to the logged-in identity.
type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

// Status is the local submission outcome of an outbound message.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Conversation is a 1:1 chat keyed by the counterparty's formatted identity name.
type Conversation struct {
	ID      string
	Name    string
	Address string // counterparty shielded address, immutable once set
	Unread  bool
}

// Message is a single chat entry.
type Message struct {
	ID            string // txid, or a local uuid for an optimistic send
	Sender        string
	Text          string
	Direction     Direction
	Amount        decimal.Decimal
	Timestamp     int64 // unix ms, 0 when no block time is known
	Confirmations int64
	Status        Status
	TxID          string // set once an optimistic send was accepted by the daemon
	Error         string
}

// MergeResult counts what MergeMessages changed.
type MergeResult struct {
	Added        int
	Updated      int
	MarkedUnread bool // set only by MergeUnread
}

// Changed reports whether the merge modified the conversation.
func (r MergeResult) Changed() bool {
	return r.Added > 0 || r.Updated > 0
}
