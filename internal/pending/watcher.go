package pending

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/matheus3301/vchat/internal/bus"
	"go.uber.org/zap"
)

// Watcher polls the chain height and feeds it to a Tracker.
type Watcher struct {
	tracker  *Tracker
	chain    Chain
	interval time.Duration
	bus      *bus.Bus
	logger   *zap.Logger

	last   atomic.Int64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a height watcher. interval defaults to 15s.
func NewWatcher(tracker *Tracker, chain Chain, interval time.Duration, b *bus.Bus, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{tracker: tracker, chain: chain, interval: interval, bus: b, logger: logger}
}

// Start polls immediately and then on every interval until Stop.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx)
}

// Stop cancels the loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Poll(ctx)
	for {
		select {
		case <-ticker.C:
			w.Poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Poll reads the current height once. Errors are logged; the next tick
// tries again.
func (w *Watcher) Poll(ctx context.Context) {
	height, err := w.chain.CurrentBlockHeight(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		w.logger.Warn("failed to read block height", zap.Error(err))
		return
	}
	if w.last.Swap(height) != height {
		w.bus.Emit(bus.WalletHeight, height)
	}
	w.tracker.Observe(ctx, height)
}

// Height returns the last observed height.
func (w *Watcher) Height() int64 {
	return w.last.Load()
}
