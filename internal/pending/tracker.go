package pending

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/vchat/internal/bus"
	"github.com/matheus3301/vchat/internal/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Chain is the subset of the daemon client the tracker needs.
type Chain interface {
	CurrentBlockHeight(ctx context.Context) (int64, error)
	ListUnspentOutputs(ctx context.Context, address string) ([]rpc.Output, error)
}

// Snapshot is the tracker state reported to clients.
type Snapshot struct {
	Availability Availability
	RefreshedAt  time.Time
	State        State
	PendingSince int64
}

// Tracker combines fast-send availability with the pending-balance window.
type Tracker struct {
	chain    Chain
	address  string
	minValue decimal.Decimal
	window   Window
	bus      *bus.Bus
	logger   *zap.Logger

	mu          sync.Mutex
	avail       Availability
	refreshedAt time.Time
}

// NewTracker creates a tracker for address. A zero minValue selects
// DefaultMinValue.
func NewTracker(chain Chain, address string, minValue decimal.Decimal, b *bus.Bus, logger *zap.Logger) *Tracker {
	if minValue.IsZero() {
		minValue = DefaultMinValue
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		chain:    chain,
		address:  address,
		minValue: minValue,
		bus:      b,
		logger:   logger,
	}
}

// Refresh re-reads confirmed unspent notes and recomputes availability.
func (t *Tracker) Refresh(ctx context.Context) (Availability, error) {
	outputs, err := t.chain.ListUnspentOutputs(ctx, t.address)
	if err != nil {
		return Availability{}, fmt.Errorf("list unspent outputs: %w", err)
	}
	a := Classify(outputs, t.minValue)

	t.mu.Lock()
	t.avail = a
	t.refreshedAt = time.Now()
	t.mu.Unlock()

	t.logger.Debug("fast-send availability refreshed",
		zap.Int("usable", a.Usable), zap.Int("too_small", a.TooSmall), zap.String("largest", a.Largest.String()))
	return a, nil
}

// BeginPending records the current height as the start of a pending window.
// Called after a send was accepted by the daemon.
func (t *Tracker) BeginPending(ctx context.Context) error {
	height, err := t.chain.CurrentBlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("current block height: %w", err)
	}
	t.window.Begin(height)
	t.logger.Info("balance pending until next block", zap.Int64("since", t.window.Since()))
	t.bus.Emit(bus.WalletPendingStarted, t.window.Since())
	return nil
}

// Observe feeds a newly observed block height. When it clears the pending
// window, availability is refreshed and the clear is published.
func (t *Tracker) Observe(ctx context.Context, height int64) bool {
	if !t.window.Observe(height) {
		return false
	}
	t.logger.Info("pending balance cleared", zap.Int64("height", height))
	if _, err := t.Refresh(ctx); err != nil {
		t.logger.Warn("failed to refresh availability after pending clear", zap.Error(err))
	}
	t.bus.Emit(bus.WalletPendingCleared, height)
	return true
}

// Snapshot returns the last computed availability and the window state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	s := Snapshot{Availability: t.avail, RefreshedAt: t.refreshedAt}
	t.mu.Unlock()
	s.State = t.window.State()
	s.PendingSince = t.window.Since()
	return s
}
