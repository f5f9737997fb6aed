// Package backfill recovers earlier messages from a counterparty when a
// conversation is started.
package backfill

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/vchat/internal/conversation"
	"github.com/matheus3301/vchat/internal/rpc"
	"github.com/matheus3301/vchat/internal/sync"
	"go.uber.org/zap"
)

// PaymentLister lists inbound payments of a shielded address.
type PaymentLister interface {
	ListInboundPayments(ctx context.Context, address string) ([]rpc.Payment, error)
}

// Scanner performs one-shot history scans.
type Scanner struct {
	source PaymentLister
	logger *zap.Logger
}

// NewScanner creates a scanner.
func NewScanner(source PaymentLister, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{source: source, logger: logger}
}

// Scan returns every earlier message counterparty sent to ownAddress, in
// display order. Only exact name matches (ignoring case) count. Callers must
// have checked the counterparty's eligibility first.
func (s *Scanner) Scan(ctx context.Context, ownAddress, counterparty string) ([]conversation.Message, error) {
	payments, err := s.source.ListInboundPayments(ctx, ownAddress)
	if err != nil {
		return nil, fmt.Errorf("scan history of %s: %w", counterparty, err)
	}

	var msgs []conversation.Message
	for _, p := range payments {
		m, ok := sync.Decode(p)
		if !ok || !strings.EqualFold(m.Sender, counterparty) {
			continue
		}
		m.Sender = counterparty
		msgs = append(msgs, m)
	}
	conversation.SortMessages(msgs)

	s.logger.Info("history scanned", zap.String("counterparty", counterparty),
		zap.Int("payments", len(payments)), zap.Int("messages", len(msgs)))
	return msgs, nil
}
