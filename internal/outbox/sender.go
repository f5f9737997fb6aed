// Package outbox submits user-initiated chat messages as shielded payments.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/vchat/internal/bus"
	"github.com/matheus3301/vchat/internal/conversation"
	"github.com/matheus3301/vchat/internal/memo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEmptyMessage  = errors.New("message needs text or a positive amount")
	ErrInvalidAmount = errors.New("amount must not be negative")
)

// Payer submits a shielded payment and returns the id the daemon assigned.
type Payer interface {
	SubmitPayment(ctx context.Context, from, to string, amount decimal.Decimal, memoHex string) (string, error)
}

// PendingStarter is notified after the daemon accepted a payment.
type PendingStarter interface {
	BeginPending(ctx context.Context) error
}

// Request is one outbound message.
type Request struct {
	ConversationID string
	Text           string
	Amount         decimal.Decimal
	SenderName     string // own identity name, carried in the memo
	FromAddress    string
	ToAddress      string
}

// Result is the payload of send_ack and send_failed events.
type Result struct {
	ConversationID string
	MessageID      string
	TxID           string
	Error          string
}

// Sender applies an optimistic message, submits the payment and records
// the outcome on the same message.
type Sender struct {
	store   *conversation.Store
	payer   Payer
	pending PendingStarter
	bus     *bus.Bus
	logger  *zap.Logger
}

// NewSender creates a new sender. pending may be nil.
func NewSender(store *conversation.Store, payer Payer, pending PendingStarter, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		store:   store,
		payer:   payer,
		pending: pending,
		bus:     b,
		logger:  logger,
	}
}

// Send validates req and submits it. Validation errors leave no trace. Once
// the optimistic message is applied, a daemon error marks it failed in place
// and is returned unchanged; the returned message reflects the final state.
func (s *Sender) Send(ctx context.Context, req Request) (conversation.Message, error) {
	if req.Amount.IsNegative() {
		return conversation.Message{}, ErrInvalidAmount
	}
	if req.Text == "" && req.Amount.IsZero() {
		return conversation.Message{}, ErrEmptyMessage
	}
	memoHex, err := memo.EncodeHex(req.Text, req.SenderName)
	if err != nil {
		return conversation.Message{}, err
	}

	msg := conversation.Message{
		ID:        uuid.NewString(),
		Sender:    conversation.Self,
		Text:      req.Text,
		Direction: conversation.Sent,
		Amount:    req.Amount,
		Timestamp: time.Now().UnixMilli(),
		Status:    conversation.StatusSent,
	}
	if err := s.store.AppendOptimistic(req.ConversationID, msg); err != nil {
		return conversation.Message{}, fmt.Errorf("append optimistic message: %w", err)
	}

	txid, err := s.payer.SubmitPayment(ctx, req.FromAddress, req.ToAddress, req.Amount, memoHex)
	if err != nil {
		s.logger.Error("failed to send message", zap.Error(err),
			zap.String("conversation", req.ConversationID), zap.String("msg_id", msg.ID))
		if markErr := s.store.MarkFailed(req.ConversationID, msg.ID, err.Error()); markErr != nil {
			s.logger.Warn("failed to mark message failed", zap.Error(markErr), zap.String("msg_id", msg.ID))
		}
		msg.Status = conversation.StatusFailed
		msg.Error = err.Error()
		s.bus.Emit(bus.MessageSendFailed, Result{ConversationID: req.ConversationID, MessageID: msg.ID, Error: err.Error()})
		return msg, err
	}

	if err := s.store.MarkSubmitted(req.ConversationID, msg.ID, txid); err != nil {
		s.logger.Warn("failed to record txid", zap.Error(err), zap.String("msg_id", msg.ID))
	}
	msg.TxID = txid

	if s.pending != nil {
		if err := s.pending.BeginPending(ctx); err != nil {
			s.logger.Warn("failed to start pending window", zap.Error(err))
		}
	}

	s.logger.Info("message sent", zap.String("msg_id", msg.ID), zap.String("txid", txid))
	s.bus.Emit(bus.MessageSendAck, Result{ConversationID: req.ConversationID, MessageID: msg.ID, TxID: txid})
	return msg, nil
}
