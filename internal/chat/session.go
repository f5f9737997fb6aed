// Package chat owns the logged-in identity: its conversation state and the
// background loops that keep that state in step with the daemon.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	stdsync "sync"
	"time"

	"github.com/matheus3301/vchat/internal/backfill"
	"github.com/matheus3301/vchat/internal/bus"
	"github.com/matheus3301/vchat/internal/conversation"
	"github.com/matheus3301/vchat/internal/outbox"
	"github.com/matheus3301/vchat/internal/pending"
	"github.com/matheus3301/vchat/internal/rpc"
	"github.com/matheus3301/vchat/internal/status"
	"github.com/matheus3301/vchat/internal/sync"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Daemon is the part of the Verus daemon client a session uses.
type Daemon interface {
	Resolve(ctx context.Context, name string) (rpc.Identity, error)
	ListIdentities(ctx context.Context) ([]rpc.Identity, error)
	ListInboundPayments(ctx context.Context, address string) ([]rpc.Payment, error)
	ListUnspentOutputs(ctx context.Context, address string) ([]rpc.Output, error)
	CurrentBlockHeight(ctx context.Context) (int64, error)
	SubmitPayment(ctx context.Context, from, to string, amount decimal.Decimal, memoHex string) (string, error)
	PrivateBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Storage is the opt-in persistence of chat data, keyed by identity.
type Storage interface {
	conversation.Persister
	sync.Checkpointer
	LoadConversations(identity string) ([]conversation.Conversation, error)
	LoadAllMessages(identity string) (map[string][]conversation.Message, error)
	GetPersistence(identity string) (bool, error)
	GetCheckpoint(identity, key string) (string, error)
	SetPersistence(identity string, persist bool) error
	DeleteAllChatData(identity string) error
}

// Options tunes the background loops.
type Options struct {
	PollInterval     time.Duration
	HeightInterval   time.Duration
	FailureThreshold int
	FastMinValue     decimal.Decimal
}

// Wallet summarizes the send capacity of the logged-in identity.
type Wallet struct {
	Address string
	Balance decimal.Decimal
	Height  int64
	Pending pending.Snapshot
}

// Session is one logged-in identity. Start and Stop own every background
// task; after Stop no daemon result is applied.
type Session struct {
	identity rpc.Identity
	daemon   Daemon
	storage  Storage
	bus      *bus.Bus
	logger   *zap.Logger

	store      *conversation.Store
	reconciler *sync.Reconciler
	tracker    *pending.Tracker
	watcher    *pending.Watcher
	scanner    *backfill.Scanner
	sender     *outbox.Sender

	mu      stdsync.Mutex
	persist bool
	cancel  context.CancelFunc
}

func newSession(id rpc.Identity, daemon Daemon, storage Storage, machine *status.Machine, b *bus.Bus, logger *zap.Logger, opts Options) *Session {
	logger = logger.With(zap.String("identity", id.FormattedName))
	store := conversation.NewStore(id.IAddress, storage, b, logger.Named("conversation"))
	tracker := pending.NewTracker(daemon, id.PrivateAddress, opts.FastMinValue, b, logger.Named("pending"))

	s := &Session{
		identity: id,
		daemon:   daemon,
		storage:  storage,
		bus:      b,
		logger:   logger,
		store:    store,
		tracker:  tracker,
		watcher:  pending.NewWatcher(tracker, daemon, opts.HeightInterval, b, logger.Named("pending")),
		scanner:  backfill.NewScanner(daemon, logger.Named("backfill")),
		sender:   outbox.NewSender(store, daemon, tracker, b, logger.Named("outbox")),
	}
	s.reconciler = sync.NewReconciler(sync.ReconcilerConfig{
		Identity:         id.IAddress,
		Address:          id.PrivateAddress,
		Interval:         opts.PollInterval,
		FailureThreshold: opts.FailureThreshold,
	}, daemon, sync.NewEngine(store, logger.Named("sync")), machine, checkpoints{s}, b, logger.Named("sync"))
	return s
}

// checkpoints writes sync progress only for identities that opted into
// persistence.
type checkpoints struct{ s *Session }

func (c checkpoints) UpdateCheckpoint(identity, key, value string) error {
	if !c.s.Persistence() {
		return nil
	}
	return c.s.storage.UpdateCheckpoint(identity, key, value)
}

// Identity returns the logged-in identity.
func (s *Session) Identity() rpc.Identity {
	return s.identity
}

// Start loads persisted state when the identity opted in and starts the
// reconciliation and block-height loops.
func (s *Session) Start(ctx context.Context) {
	persist, err := s.storage.GetPersistence(s.identity.IAddress)
	if err != nil {
		s.logger.Error("failed to read persistence preference", zap.Error(err))
	}
	if persist {
		s.load()
	}
	s.mu.Lock()
	s.persist = persist
	s.mu.Unlock()
	s.store.EnablePersistence(persist)

	ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.tracker.Refresh(ctx); err != nil {
		s.logger.Warn("failed to read unspent notes", zap.Error(err))
	}
	s.reconciler.Start(ctx)
	s.watcher.Start(ctx)
	s.logger.Info("session started", zap.Bool("persist", persist))
}

func (s *Session) load() {
	convs, err := s.storage.LoadConversations(s.identity.IAddress)
	if err != nil {
		s.logger.Error("failed to load conversations", zap.Error(err))
		return
	}
	msgs, err := s.storage.LoadAllMessages(s.identity.IAddress)
	if err != nil {
		s.logger.Error("failed to load messages", zap.Error(err))
		return
	}
	s.store.Load(convs, msgs)
	s.logger.Info("loaded persisted chat data", zap.Int("conversations", len(convs)))
}

// Stop cancels both loops, waits for them and closes the store.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.reconciler.Stop()
	s.watcher.Stop()
	s.store.Close()
	s.logger.Info("session stopped")
}

// StartChat checks that name can receive private messages and creates its
// conversation. With importHistory, earlier messages from name are merged.
// It returns the conversation and the number of imported messages. A failed
// import leaves the created conversation in place.
func (s *Session) StartChat(ctx context.Context, name string, importHistory bool) (conversation.Conversation, int, error) {
	target, err := s.daemon.Resolve(ctx, name)
	if err != nil {
		return conversation.Conversation{}, 0, err
	}

	created, err := s.store.UpsertConversation(conversation.Conversation{
		ID:      target.FormattedName,
		Name:    target.FormattedName,
		Address: target.PrivateAddress,
	})
	if err != nil {
		return conversation.Conversation{}, 0, err
	}
	s.logger.Info("conversation started", zap.String("conversation", target.FormattedName), zap.Bool("created", created))

	imported := 0
	if importHistory {
		msgs, err := s.scanner.Scan(ctx, s.identity.PrivateAddress, target.FormattedName)
		if err != nil {
			c, _ := s.store.Conversation(target.FormattedName)
			return c, 0, fmt.Errorf("import history: %w", err)
		}
		if len(msgs) > 0 {
			res, err := s.store.MergeMessages(target.FormattedName, msgs)
			if err != nil {
				return conversation.Conversation{}, 0, err
			}
			imported = res.Added
		}
	}

	c, err := s.store.Conversation(target.FormattedName)
	return c, imported, err
}

// Select focuses a conversation and marks it read.
func (s *Session) Select(conversationID string) error {
	return s.store.Select(conversationID)
}

// Conversations lists conversations, most recently active first.
func (s *Session) Conversations() []conversation.Conversation {
	return s.store.Conversations()
}

// Conversation returns one conversation.
func (s *Session) Conversation(conversationID string) (conversation.Conversation, error) {
	return s.store.Conversation(conversationID)
}

// Messages lists a conversation's messages in display order.
func (s *Session) Messages(conversationID string) ([]conversation.Message, error) {
	return s.store.Messages(conversationID)
}

// Send submits a message to a conversation's counterparty.
func (s *Session) Send(ctx context.Context, conversationID, text string, amount decimal.Decimal) (conversation.Message, error) {
	c, err := s.store.Conversation(conversationID)
	if err != nil {
		return conversation.Message{}, err
	}
	return s.sender.Send(ctx, outbox.Request{
		ConversationID: c.ID,
		Text:           text,
		Amount:         amount,
		SenderName:     s.identity.FormattedName,
		FromAddress:    s.identity.PrivateAddress,
		ToAddress:      c.Address,
	})
}

// LastPoll returns when the last reconcile pass succeeded. It is zero while
// persistence is off or before the first pass.
func (s *Session) LastPoll() time.Time {
	if !s.Persistence() {
		return time.Time{}
	}
	v, err := s.storage.GetCheckpoint(s.identity.IAddress, sync.CheckpointLastPoll)
	if err != nil || v == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		s.logger.Warn("bad poll checkpoint", zap.String("value", v))
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Persistence reports whether chat data of this identity is written to disk.
func (s *Session) Persistence() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist
}

// SetPersistence stores the preference and toggles write-behind. Turning it
// on writes the current state at once; turning it off keeps what is already
// stored until DeleteChatData.
func (s *Session) SetPersistence(on bool) error {
	if err := s.storage.SetPersistence(s.identity.IAddress, on); err != nil {
		return fmt.Errorf("save persistence preference: %w", err)
	}
	s.mu.Lock()
	s.persist = on
	s.mu.Unlock()
	s.store.EnablePersistence(on)
	return nil
}

// DeleteChatData removes everything stored for this identity and turns
// persistence off. In-memory conversations are kept.
func (s *Session) DeleteChatData() error {
	s.mu.Lock()
	s.persist = false
	s.mu.Unlock()
	s.store.EnablePersistence(false)
	if err := s.storage.DeleteAllChatData(s.identity.IAddress); err != nil {
		return fmt.Errorf("delete chat data: %w", err)
	}
	return nil
}

// Wallet reads the private balance and refreshes send availability.
func (s *Session) Wallet(ctx context.Context) (Wallet, error) {
	balance, err := s.daemon.PrivateBalance(ctx, s.identity.PrivateAddress)
	if err != nil {
		return Wallet{}, fmt.Errorf("private balance: %w", err)
	}
	if _, err := s.tracker.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("failed to refresh availability", zap.Error(err))
	}
	return Wallet{
		Address: s.identity.PrivateAddress,
		Balance: balance,
		Height:  s.watcher.Height(),
		Pending: s.tracker.Snapshot(),
	}, nil
}

// Poll runs one reconciliation pass now.
func (s *Session) Poll(ctx context.Context) (sync.Result, error) {
	return s.reconciler.Poll(ctx)
}
