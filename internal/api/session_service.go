package api

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/matheus3301/vchat/internal/chat"
	"github.com/matheus3301/vchat/internal/pending"
	"github.com/matheus3301/vchat/internal/rpc"
	"github.com/matheus3301/vchat/internal/status"
	"go.uber.org/zap"
)

// SessionService implements vchat.v1.SessionService.
type SessionService struct {
	profile   string
	startedAt time.Time
	machine   *status.Machine
	manager   *chat.Manager
	logger    *zap.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(profile string, machine *status.Machine, manager *chat.Manager, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		profile:   profile,
		startedAt: time.Now(),
		machine:   machine,
		manager:   manager,
		logger:    logger,
	}
}

func (s *SessionService) GetStatus(_ context.Context, _ *GetStatusRequest) (*GetStatusResponse, error) {
	resp := &GetStatusResponse{
		Profile:           s.profile,
		Status:            string(s.machine.Current()),
		StatusSinceUnixMs: s.machine.Since().UnixMilli(),
		UptimeMs:          time.Since(s.startedAt).Milliseconds(),
		PID:               os.Getpid(),
	}
	if sess, err := s.manager.Current(); err == nil {
		resp.Identity = sess.Identity().FormattedName
		resp.Persistence = sess.Persistence()
		if t := sess.LastPoll(); !t.IsZero() {
			resp.LastPollUnixMs = t.UnixMilli()
		}
	}
	return resp, nil
}

func (s *SessionService) ListIdentities(ctx context.Context, _ *ListIdentitiesRequest) (*ListIdentitiesResponse, error) {
	ids, err := s.manager.Identities(ctx)
	if err != nil {
		return nil, toStatus("list identities", err)
	}
	resp := &ListIdentitiesResponse{Identities: make([]Identity, len(ids))}
	for i, id := range ids {
		resp.Identities[i] = identityToAPI(id)
	}
	return resp, nil
}

func (s *SessionService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	sess, err := s.manager.Login(ctx, req.Name)
	if err != nil {
		return nil, toStatus("login", err)
	}
	return &LoginResponse{
		Identity:    identityToAPI(sess.Identity()),
		Persistence: sess.Persistence(),
	}, nil
}

func (s *SessionService) Logout(_ context.Context, _ *LogoutRequest) (*LogoutResponse, error) {
	sess, err := s.manager.Current()
	if err != nil {
		return nil, toStatus("logout", err)
	}
	name := sess.Identity().FormattedName
	if err := s.manager.Logout(); err != nil {
		return nil, toStatus("logout", err)
	}
	return &LogoutResponse{Identity: name}, nil
}

func (s *SessionService) SetPersistence(_ context.Context, req *SetPersistenceRequest) (*SetPersistenceResponse, error) {
	sess, err := s.manager.Current()
	if err != nil {
		return nil, toStatus("set persistence", err)
	}
	if err := sess.SetPersistence(req.Enabled); err != nil {
		return nil, toStatus("set persistence", err)
	}
	s.logger.Info("persistence changed", zap.String("identity", sess.Identity().FormattedName), zap.Bool("enabled", req.Enabled))
	return &SetPersistenceResponse{Enabled: req.Enabled}, nil
}

func (s *SessionService) DeleteChatData(_ context.Context, _ *DeleteChatDataRequest) (*DeleteChatDataResponse, error) {
	sess, err := s.manager.Current()
	if err != nil {
		return nil, toStatus("delete chat data", err)
	}
	if err := sess.DeleteChatData(); err != nil {
		return nil, toStatus("delete chat data", err)
	}
	s.logger.Info("chat data deleted", zap.String("identity", sess.Identity().FormattedName))
	return &DeleteChatDataResponse{}, nil
}

func (s *SessionService) GetWallet(ctx context.Context, _ *GetWalletRequest) (*GetWalletResponse, error) {
	sess, err := s.manager.Current()
	if err != nil {
		return nil, toStatus("get wallet", err)
	}
	w, err := sess.Wallet(ctx)
	if err != nil {
		if errors.Is(err, rpc.ErrNetwork) {
			s.logger.Warn("daemon unreachable", zap.Error(err))
		}
		return nil, toStatus("get wallet", err)
	}
	a := w.Pending.Availability
	resp := &GetWalletResponse{
		Address:  w.Address,
		Balance:  w.Balance.String(),
		Height:   w.Height,
		Usable:   a.Usable,
		TooSmall: a.TooSmall,
		Largest:  a.Largest.String(),
		Smallest: a.Smallest.String(),
		Total:    a.Total.String(),
		Pending:  w.Pending.State == pending.Pending,
	}
	if resp.Pending {
		resp.PendingSince = w.Pending.PendingSince
	}
	if !w.Pending.RefreshedAt.IsZero() {
		resp.RefreshedAtUnixMs = w.Pending.RefreshedAt.UnixMilli()
	}
	return resp, nil
}

func identityToAPI(id rpc.Identity) Identity {
	return Identity{
		Name:           id.FormattedName,
		IAddress:       id.IAddress,
		PrivateAddress: id.PrivateAddress,
	}
}
