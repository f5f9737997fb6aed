package daemon

import (
	"context"

	"github.com/matheus3301/vchat/internal/api"
	"github.com/matheus3301/vchat/internal/bus"
	"github.com/matheus3301/vchat/internal/chat"
	"github.com/matheus3301/vchat/internal/config"
	"github.com/matheus3301/vchat/internal/lock"
	"github.com/matheus3301/vchat/internal/logging"
	"github.com/matheus3301/vchat/internal/rpc"
	"github.com/matheus3301/vchat/internal/session"
	"github.com/matheus3301/vchat/internal/status"
	"github.com/matheus3301/vchat/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile    string
	SocketPath string // optional override for testing; empty = use default
	LogLevel   zapcore.Level
	Config     *config.Config // optional; nil = load ~/.vchat/config.toml
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideRPCClient,
			provideManager,
			provideSessionService,
			provideChatService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.Profile), p.Profile, p.LogLevel)
}

func provideConfig(p Params, logger *zap.Logger) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	path := session.ConfigPath()
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	logger.Info("config loaded", zap.String("path", path), zap.String("rpc_url", cfg.RPC.URL))
	return cfg, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(session.LockPath(p.Profile), p.Profile)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is only opened by the
// daemon that owns the profile.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRPCClient(cfg *config.Config, logger *zap.Logger) *rpc.Client {
	return rpc.New(rpc.Config{
		URL:      cfg.RPC.URL,
		User:     cfg.RPC.User,
		Password: cfg.RPC.Password,
		Timeout:  cfg.RPC.Timeout.Duration,
	}, logger.Named("rpc"))
}

func provideManager(client *rpc.Client, db *store.DB, machine *status.Machine, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *chat.Manager {
	return chat.NewManager(client, db, machine, b, logger.Named("chat"), chat.Options{
		PollInterval:     cfg.Chat.PollInterval.Duration,
		HeightInterval:   cfg.Chat.HeightInterval.Duration,
		FailureThreshold: cfg.Chat.FailureThreshold,
		FastMinValue:     cfg.Chat.FastMinValue,
	})
}

func provideSessionService(p Params, m *status.Machine, manager *chat.Manager, logger *zap.Logger) *api.SessionService {
	return api.NewSessionService(p.Profile, m, manager, logger.Named("api"))
}

func provideChatService(p Params, manager *chat.Manager, b *bus.Bus, logger *zap.Logger) *api.ChatService {
	return api.NewChatService(manager, b, p.Profile, logger.Named("api"))
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, srv *Server, db *store.DB, client *rpc.Client, manager *chat.Manager, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			// An unreachable daemon is not fatal; login reports it.
			if height, err := client.CurrentBlockHeight(ctx); err != nil {
				logger.Warn("verus daemon not reachable", zap.Error(err))
			} else {
				logger.Info("verus daemon reachable", zap.Int64("height", height))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			manager.Close()
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
