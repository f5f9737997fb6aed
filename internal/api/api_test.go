package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/vchat/internal/api"
	"github.com/matheus3301/vchat/internal/bus"
	"github.com/matheus3301/vchat/internal/chat"
	"github.com/matheus3301/vchat/internal/client"
	"github.com/matheus3301/vchat/internal/rpc"
	"github.com/matheus3301/vchat/internal/status"
	"github.com/matheus3301/vchat/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type fakeDaemon struct {
	mu        sync.Mutex
	submitErr error
}

var (
	alice = rpc.Identity{FormattedName: "alice@", IAddress: "iAlice", PrivateAddress: "zs1alice"}
	bob   = rpc.Identity{FormattedName: "bob@", IAddress: "iBob", PrivateAddress: "zs1bob"}
)

func (f *fakeDaemon) Resolve(_ context.Context, name string) (rpc.Identity, error) {
	switch name {
	case "bob@":
		return bob, nil
	case "alice@":
		return alice, nil
	}
	if name == "" || name[len(name)-1] != '@' {
		return rpc.Identity{}, rpc.ErrInvalidFormat
	}
	return rpc.Identity{}, rpc.ErrNotFoundOrIneligible
}

func (f *fakeDaemon) ListIdentities(context.Context) ([]rpc.Identity, error) {
	return []rpc.Identity{alice}, nil
}

func (f *fakeDaemon) ListInboundPayments(context.Context, string) ([]rpc.Payment, error) {
	return nil, nil
}

func (f *fakeDaemon) ListUnspentOutputs(context.Context, string) ([]rpc.Output, error) {
	return []rpc.Output{
		{TxID: "u1", Value: decimal.RequireFromString("1")},
		{TxID: "u2", Value: decimal.RequireFromString("0.00001")},
	}, nil
}

func (f *fakeDaemon) CurrentBlockHeight(context.Context) (int64, error) {
	return 100, nil
}

func (f *fakeDaemon) SubmitPayment(context.Context, string, string, decimal.Decimal, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "opid-1", nil
}

func (f *fakeDaemon) PrivateBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.RequireFromString("3.5"), nil
}

type testEnv struct {
	client  *client.Client
	daemon  *fakeDaemon
	bus     *bus.Bus
	machine *status.Machine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	// Short path for the 104-char Unix socket limit on macOS.
	tmpDir, err := os.MkdirTemp("/tmp", "vchat-api-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	db, err := store.Open(filepath.Join(tmpDir, "vchat.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zaptest.NewLogger(t)
	d := &fakeDaemon{}
	b := bus.New()
	machine := status.NewMachine(b)
	manager := chat.NewManager(d, db, machine, b, logger, chat.Options{
		PollInterval:   time.Hour,
		HeightInterval: time.Hour,
	})
	t.Cleanup(manager.Close)

	srv := grpc.NewServer()
	api.RegisterSessionServer(srv, api.NewSessionService("test", machine, manager, logger))
	api.RegisterChatServer(srv, api.NewChatService(manager, b, "test", logger))

	socketPath := filepath.Join(tmpDir, "d.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Serve(listener) }()
	t.Cleanup(srv.Stop)

	c, err := client.New(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return &testEnv{client: c, daemon: d, bus: b, machine: machine}
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp, err := e.client.Session.Login(context.Background(), &api.LoginRequest{Name: "alice@"})
	if err != nil {
		t.Fatalf("Login error = %v", err)
	}
	if resp.Identity.Name != "alice@" {
		t.Errorf("identity = %q, want alice@", resp.Identity.Name)
	}
}

func wantCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := grpcstatus.Code(err); got != want {
		t.Errorf("code = %v, want %v (%v)", got, want, err)
	}
}

func TestGetStatusLoggedOut(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.client.Session.GetStatus(context.Background(), &api.GetStatusRequest{})
	if err != nil {
		t.Fatalf("GetStatus error = %v", err)
	}
	if resp.Profile != "test" {
		t.Errorf("profile = %q, want test", resp.Profile)
	}
	if resp.Status != string(status.LoggedOut) {
		t.Errorf("status = %q, want LOGGED_OUT", resp.Status)
	}
	if resp.Identity != "" {
		t.Errorf("identity = %q, want empty", resp.Identity)
	}
	if resp.PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", resp.PID, os.Getpid())
	}
}

func TestRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.client.Chat.ListConversations(ctx, &api.ListConversationsRequest{})
	wantCode(t, err, codes.FailedPrecondition)

	_, err = env.client.Session.GetWallet(ctx, &api.GetWalletRequest{})
	wantCode(t, err, codes.FailedPrecondition)

	_, err = env.client.Session.Logout(ctx, &api.LogoutRequest{})
	wantCode(t, err, codes.FailedPrecondition)
}

func TestLoginRejectsForeignIdentity(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Session.Login(context.Background(), &api.LoginRequest{Name: "bob@"})
	wantCode(t, err, codes.NotFound)
	if got := env.machine.Current(); got != status.LoggedOut {
		t.Errorf("state = %s, want LOGGED_OUT", got)
	}
}

func TestChatFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.login(t)

	st, err := env.client.Session.GetStatus(ctx, &api.GetStatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Identity != "alice@" {
		t.Errorf("identity = %q, want alice@", st.Identity)
	}

	started, err := env.client.Chat.StartChat(ctx, &api.StartChatRequest{Name: "bob@"})
	if err != nil {
		t.Fatalf("StartChat error = %v", err)
	}
	if started.Conversation.ID != "bob@" || started.Conversation.Address != "zs1bob" {
		t.Errorf("conversation = %+v", started.Conversation)
	}

	convs, err := env.client.Chat.ListConversations(ctx, &api.ListConversationsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(convs.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs.Conversations))
	}

	sent, err := env.client.Chat.SendMessage(ctx, &api.SendMessageRequest{ConversationID: "bob@", Text: "hi", Amount: "0.5"})
	if err != nil {
		t.Fatalf("SendMessage error = %v", err)
	}
	if sent.Message.TxID != "opid-1" || sent.Message.Status != "sent" || sent.Message.Amount != "0.5" {
		t.Errorf("sent message = %+v", sent.Message)
	}

	msgs, err := env.client.Chat.ListMessages(ctx, &api.ListMessagesRequest{ConversationID: "bob@"})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs.Messages) != 1 || msgs.Messages[0].Text != "hi" || msgs.Messages[0].Direction != "sent" {
		t.Errorf("messages = %+v", msgs.Messages)
	}

	sel, err := env.client.Chat.SelectConversation(ctx, &api.SelectConversationRequest{ConversationID: "bob@"})
	if err != nil {
		t.Fatal(err)
	}
	if sel.Conversation.Unread {
		t.Error("selected conversation must be read")
	}

	wallet, err := env.client.Session.GetWallet(ctx, &api.GetWalletRequest{})
	if err != nil {
		t.Fatalf("GetWallet error = %v", err)
	}
	if wallet.Balance != "3.5" || wallet.Usable != 1 || wallet.TooSmall != 1 {
		t.Errorf("wallet = %+v", wallet)
	}
	if !wallet.Pending || wallet.PendingSince != 100 {
		t.Errorf("pending = %v since %d, want true since 100", wallet.Pending, wallet.PendingSince)
	}

	out, err := env.client.Session.Logout(ctx, &api.LogoutRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Identity != "alice@" {
		t.Errorf("logged out identity = %q", out.Identity)
	}
}

func TestStartChatErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.login(t)

	_, err := env.client.Chat.StartChat(ctx, &api.StartChatRequest{Name: "ghost@"})
	wantCode(t, err, codes.NotFound)

	_, err = env.client.Chat.StartChat(ctx, &api.StartChatRequest{Name: "bob"})
	wantCode(t, err, codes.InvalidArgument)

	_, err = env.client.Chat.ListMessages(ctx, &api.ListMessagesRequest{ConversationID: "ghost@"})
	wantCode(t, err, codes.NotFound)

	_, err = env.client.Chat.SelectConversation(ctx, &api.SelectConversationRequest{})
	wantCode(t, err, codes.InvalidArgument)

	_, err = env.client.Chat.SelectConversation(ctx, &api.SelectConversationRequest{ConversationID: "ghost@"})
	wantCode(t, err, codes.NotFound)
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.login(t)
	if _, err := env.client.Chat.StartChat(ctx, &api.StartChatRequest{Name: "bob@"}); err != nil {
		t.Fatal(err)
	}

	_, err := env.client.Chat.SendMessage(ctx, &api.SendMessageRequest{ConversationID: "bob@"})
	wantCode(t, err, codes.InvalidArgument)

	_, err = env.client.Chat.SendMessage(ctx, &api.SendMessageRequest{ConversationID: "bob@", Text: "x", Amount: "lots"})
	wantCode(t, err, codes.InvalidArgument)

	env.daemon.mu.Lock()
	env.daemon.submitErr = &rpc.Error{Code: -6, Message: "Insufficient funds"}
	env.daemon.mu.Unlock()

	resp, err := env.client.Chat.SendMessage(ctx, &api.SendMessageRequest{ConversationID: "bob@", Text: "hi"})
	if err != nil {
		t.Fatalf("a daemon rejection must come back as a failed message, got %v", err)
	}
	if resp.Message.Status != "failed" || resp.Message.Error == "" {
		t.Errorf("message = %+v, want failed with error", resp.Message)
	}

	msgs, err := env.client.Chat.ListMessages(ctx, &api.ListMessagesRequest{ConversationID: "bob@"})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs.Messages) != 1 || msgs.Messages[0].ID != resp.Message.ID {
		t.Errorf("failed message must stay in place, got %+v", msgs.Messages)
	}
}

func TestPersistenceToggle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.login(t)

	resp, err := env.client.Session.SetPersistence(ctx, &api.SetPersistenceRequest{Enabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Enabled {
		t.Error("expected enabled = true")
	}
	st, err := env.client.Session.GetStatus(ctx, &api.GetStatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if !st.Persistence {
		t.Error("status must report persistence on")
	}

	if _, err := env.client.Session.DeleteChatData(ctx, &api.DeleteChatDataRequest{}); err != nil {
		t.Fatal(err)
	}
	st, err = env.client.Session.GetStatus(ctx, &api.GetStatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Persistence {
		t.Error("delete must turn persistence off")
	}
}

func TestWatchEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := env.client.Chat.WatchEvents(ctx, &api.WatchEventsRequest{Namespaces: []string{"wallet."}})
	if err != nil {
		t.Fatal(err)
	}

	// The server subscribes after reading the request; publish until the
	// first event arrives.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			env.bus.Emit(bus.SessionLoggedIn, "ignored")
			env.bus.Emit(bus.WalletHeight, int64(101))
			select {
			case <-ticker.C:
			case <-done:
				return
			}
		}
	}()

	evt, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv error = %v", err)
	}
	if evt.Kind != bus.WalletHeight {
		t.Errorf("kind = %q, want %q", evt.Kind, bus.WalletHeight)
	}
	if _, err := uuid.Parse(evt.EventID); err != nil {
		t.Errorf("event id %q is not a uuid: %v", evt.EventID, err)
	}
	if evt.Profile != "test" || evt.PayloadVersion != 1 {
		t.Errorf("envelope = %+v", evt)
	}
	var height int64
	if err := json.Unmarshal(evt.Payload, &height); err != nil || height != 101 {
		t.Errorf("payload = %s, want 101", evt.Payload)
	}

	cancel()
	for {
		if _, err := stream.Recv(); err != nil {
			if grpcstatus.Code(err) != codes.Canceled && !errors.Is(err, context.Canceled) {
				t.Errorf("stream ended with %v, want canceled", err)
			}
			break
		}
	}
}
