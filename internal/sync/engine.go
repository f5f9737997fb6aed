// Package sync turns inbound shielded payments into chat messages and keeps
// the conversation store current by polling the daemon.
package sync

import (
	"errors"
	"strings"

	"github.com/matheus3301/vchat/internal/conversation"
	"github.com/matheus3301/vchat/internal/memo"
	"github.com/matheus3301/vchat/internal/rpc"
	"go.uber.org/zap"
)

// Decode maps a payment to a received message. It reports false when the
// memo is not a chat memo or the message carries neither text nor value.
// Timestamp is the block time in milliseconds, 0 while unconfirmed.
func Decode(p rpc.Payment) (conversation.Message, bool) {
	d, ok := memo.Decode(p.Memo)
	if !ok || (d.Text == "" && p.Amount.IsZero()) {
		return conversation.Message{}, false
	}
	return conversation.Message{
		ID:            p.TxID,
		Sender:        d.Sender,
		Text:          d.Text,
		Direction:     conversation.Received,
		Amount:        p.Amount,
		Timestamp:     p.BlockTime * 1000,
		Confirmations: p.Confirmations,
	}, true
}

// Result summarizes one ingestion pass.
type Result struct {
	Observed    int // payments seen
	Messages    int // chat messages routed to a conversation
	Ignored     int // non-chat memos, empty messages and malformed entries
	Unsolicited int // chat messages from senders without a conversation
	Added       int
	Updated     int
}

// Engine routes decoded payments into the conversation store.
type Engine struct {
	store  *conversation.Store
	logger *zap.Logger
}

// NewEngine creates a new sync engine.
func NewEngine(store *conversation.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger}
}

// IngestPayments merges every chat message in payments into the conversation
// of its sender. Senders without an existing conversation are dropped; no
// conversation is ever created here. A bad entry never aborts the batch. The
// only error returned is conversation.ErrClosed.
func (e *Engine) IngestPayments(payments []rpc.Payment) (Result, error) {
	res := Result{Observed: len(payments)}

	known := make(map[string]string)
	for _, c := range e.store.Conversations() {
		known[strings.ToLower(c.ID)] = c.ID
	}

	var order []string
	batches := make(map[string][]conversation.Message)
	for _, p := range payments {
		if p.TxID == "" {
			e.logger.Warn("skipping payment without txid")
			res.Ignored++
			continue
		}
		msg, ok := Decode(p)
		if !ok {
			res.Ignored++
			continue
		}
		convID, ok := known[strings.ToLower(msg.Sender)]
		if !ok {
			e.logger.Debug("dropping message from unknown sender", zap.String("sender", msg.Sender), zap.String("txid", p.TxID))
			res.Unsolicited++
			continue
		}
		msg.Sender = convID
		if _, seen := batches[convID]; !seen {
			order = append(order, convID)
		}
		batches[convID] = append(batches[convID], msg)
		res.Messages++
	}

	for _, convID := range order {
		merged, err := e.store.MergeUnread(convID, batches[convID])
		if errors.Is(err, conversation.ErrClosed) {
			return res, err
		}
		if err != nil {
			e.logger.Error("failed to merge messages", zap.Error(err), zap.String("conversation", convID))
			continue
		}
		res.Added += merged.Added
		res.Updated += merged.Updated
	}
	return res, nil
}
