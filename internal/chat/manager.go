package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	stdsync "sync"

	"github.com/matheus3301/vchat/internal/bus"
	"github.com/matheus3301/vchat/internal/rpc"
	"github.com/matheus3301/vchat/internal/status"
	"go.uber.org/zap"
)

var (
	ErrNoSession       = errors.New("no identity is logged in")
	ErrAlreadyLoggedIn = errors.New("an identity is already logged in")
	ErrNotOwnIdentity  = errors.New("identity is not in this wallet or has no private address")
)

// Manager logs identities in and out. At most one session is active.
type Manager struct {
	daemon  Daemon
	storage Storage
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger
	opts    Options

	mu      stdsync.Mutex
	current *Session
}

// NewManager creates a manager and moves the status machine to LOGGED_OUT.
func NewManager(daemon Daemon, storage Storage, machine *status.Machine, b *bus.Bus, logger *zap.Logger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if machine.Current() == status.Booting {
		if err := machine.Transition(status.LoggedOut); err != nil {
			logger.Warn("failed to leave BOOTING", zap.Error(err))
		}
	}
	return &Manager{
		daemon:  daemon,
		storage: storage,
		machine: machine,
		bus:     b,
		logger:  logger,
		opts:    opts,
	}
}

// Identities lists the wallet identities that can log in.
func (m *Manager) Identities(ctx context.Context) ([]rpc.Identity, error) {
	return m.daemon.ListIdentities(ctx)
}

// Login starts a session for one of the wallet's own identities.
func (m *Manager) Login(ctx context.Context, name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyLoggedIn, m.current.identity.FormattedName)
	}
	if err := m.machine.Transition(status.Connecting); err != nil {
		return nil, err
	}

	id, err := m.findOwn(ctx, name)
	if err != nil {
		_ = m.machine.Transition(status.LoggedOut)
		return nil, err
	}

	s := newSession(id, m.daemon, m.storage, m.machine, m.bus, m.logger, m.opts)
	if err := m.machine.Transition(status.Ready); err != nil {
		_ = m.machine.Transition(status.LoggedOut)
		return nil, err
	}
	// The session outlives the login request.
	s.Start(context.Background())
	m.current = s

	m.logger.Info("logged in", zap.String("identity", id.FormattedName))
	m.bus.Emit(bus.SessionLoggedIn, id.FormattedName)
	return s, nil
}

func (m *Manager) findOwn(ctx context.Context, name string) (rpc.Identity, error) {
	ids, err := m.daemon.ListIdentities(ctx)
	if err != nil {
		return rpc.Identity{}, fmt.Errorf("list identities: %w", err)
	}
	for _, id := range ids {
		if strings.EqualFold(id.FormattedName, name) {
			return id, nil
		}
	}
	return rpc.Identity{}, fmt.Errorf("%w: %s", ErrNotOwnIdentity, name)
}

// Logout stops the active session. No poll result is applied afterwards.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoSession
	}
	name := m.current.identity.FormattedName
	m.current.Stop()
	m.current = nil

	if err := m.machine.Transition(status.LoggedOut); err != nil {
		m.logger.Warn("unexpected state at logout", zap.Error(err))
	}
	m.logger.Info("logged out", zap.String("identity", name))
	m.bus.Emit(bus.SessionLoggedOut, name)
	return nil
}

// Current returns the active session.
func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoSession
	}
	return m.current, nil
}

// Close logs out if a session is active.
func (m *Manager) Close() {
	if err := m.Logout(); err != nil && !errors.Is(err, ErrNoSession) {
		m.logger.Warn("logout on close failed", zap.Error(err))
	}
}
