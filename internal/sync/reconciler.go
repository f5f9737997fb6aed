package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/matheus3301/vchat/internal/bus"
	"github.com/matheus3301/vchat/internal/rpc"
	"github.com/matheus3301/vchat/internal/status"
	"go.uber.org/zap"
)

// ErrPassInFlight is returned by Poll when another pass is still running.
var ErrPassInFlight = errors.New("reconciliation pass already in flight")

// Checkpoint keys written after every successful pass.
const (
	CheckpointLastPoll     = "last_poll_at"
	CheckpointLastPayments = "last_poll_payments"
)

// PaymentLister lists inbound payments of a shielded address.
type PaymentLister interface {
	ListInboundPayments(ctx context.Context, address string) ([]rpc.Payment, error)
}

// Checkpointer records sync progress.
type Checkpointer interface {
	UpdateCheckpoint(identity, key, value string) error
}

// ReconcilerConfig configures a Reconciler.
type ReconcilerConfig struct {
	Identity         string
	Address          string // own private address
	Interval         time.Duration
	FailureThreshold int // consecutive failures before DEGRADED
}

// Reconciler polls the daemon for inbound payments and feeds the engine.
type Reconciler struct {
	cfg         ReconcilerConfig
	source      PaymentLister
	engine      *Engine
	machine     *status.Machine
	checkpoints Checkpointer
	bus         *bus.Bus
	logger      *zap.Logger

	inFlight atomic.Bool
	failures atomic.Int32
	degraded atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler creates a reconciler. machine and checkpoints may be nil.
func NewReconciler(cfg ReconcilerConfig, source PaymentLister, engine *Engine, machine *status.Machine,
	checkpoints Checkpointer, b *bus.Bus, logger *zap.Logger) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		cfg:         cfg,
		source:      source,
		engine:      engine,
		machine:     machine,
		checkpoints: checkpoints,
		bus:         b,
		logger:      logger,
	}
}

// Start runs a pass immediately and then on every interval until Stop or ctx
// cancellation.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.loop(ctx)
}

// Stop cancels the loop and waits for it to exit. An in-flight pass is
// abandoned and its result discarded.
func (r *Reconciler) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

func (r *Reconciler) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	_, _ = r.Poll(ctx)
	for {
		select {
		case <-ticker.C:
			_, _ = r.Poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Poll runs one reconciliation pass. A pass requested while another is
// running is skipped with ErrPassInFlight. Results that arrive after ctx was
// cancelled are discarded.
func (r *Reconciler) Poll(ctx context.Context) (Result, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.logger.Debug("skipping reconciliation pass, previous one still running")
		return Result{}, ErrPassInFlight
	}
	defer r.inFlight.Store(false)

	payments, err := r.source.ListInboundPayments(ctx, r.cfg.Address)
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if err != nil {
		r.recordFailure(err)
		return Result{}, fmt.Errorf("list inbound payments: %w", err)
	}

	res, err := r.engine.IngestPayments(payments)
	if err != nil {
		return res, err
	}
	r.recordSuccess(res)
	return res, nil
}

// Failures returns the current count of consecutive failed passes.
func (r *Reconciler) Failures() int {
	return int(r.failures.Load())
}

func (r *Reconciler) recordFailure(err error) {
	n := int(r.failures.Add(1))
	r.logger.Warn("reconciliation pass failed", zap.Error(err), zap.Int("consecutive_failures", n))
	if n < r.cfg.FailureThreshold || !r.degraded.CompareAndSwap(false, true) {
		return
	}
	r.logger.Error("daemon unreachable, sync degraded", zap.Int("consecutive_failures", n))
	if r.machine != nil {
		r.machine.TransitionIf(status.Ready, status.Degraded)
	}
	r.bus.Emit(bus.SyncDegraded, n)
}

func (r *Reconciler) recordSuccess(res Result) {
	r.failures.Store(0)
	if r.degraded.CompareAndSwap(true, false) {
		r.logger.Info("daemon reachable again, sync recovered")
		if r.machine != nil {
			r.machine.TransitionIf(status.Degraded, status.Ready)
		}
		r.bus.Emit(bus.SyncRecovered, nil)
	}

	if res.Added > 0 || res.Updated > 0 {
		r.logger.Info("reconciliation pass merged messages",
			zap.Int("added", res.Added), zap.Int("updated", res.Updated), zap.Int("unsolicited", res.Unsolicited))
	}
	r.bus.Emit(bus.SyncPass, res)

	if r.checkpoints == nil {
		return
	}
	if err := r.checkpoints.UpdateCheckpoint(r.cfg.Identity, CheckpointLastPoll, strconv.FormatInt(time.Now().UnixMilli(), 10)); err != nil {
		r.logger.Warn("failed to record checkpoint", zap.Error(err))
		return
	}
	if err := r.checkpoints.UpdateCheckpoint(r.cfg.Identity, CheckpointLastPayments, strconv.Itoa(res.Observed)); err != nil {
		r.logger.Warn("failed to record checkpoint", zap.Error(err))
	}
}
