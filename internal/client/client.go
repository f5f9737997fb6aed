// Package client dials a running vchatd over its Unix domain socket.
package client

import (
	"context"
	"fmt"

	"github.com/matheus3301/vchat/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn    *grpc.ClientConn
	Session *SessionClient
	Chat    *ChatClient
}

// New dials the daemon's Unix domain socket and returns typed service clients.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn:    conn,
		Session: &SessionClient{cc: conn},
		Chat:    &ChatClient{cc: conn},
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, service, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+service+"/"+method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SessionClient calls vchat.v1.SessionService.
type SessionClient struct {
	cc grpc.ClientConnInterface
}

func (c *SessionClient) GetStatus(ctx context.Context, req *api.GetStatusRequest) (*api.GetStatusResponse, error) {
	return invoke[api.GetStatusResponse](ctx, c.cc, api.SessionServiceName, "GetStatus", req)
}

func (c *SessionClient) ListIdentities(ctx context.Context, req *api.ListIdentitiesRequest) (*api.ListIdentitiesResponse, error) {
	return invoke[api.ListIdentitiesResponse](ctx, c.cc, api.SessionServiceName, "ListIdentities", req)
}

func (c *SessionClient) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	return invoke[api.LoginResponse](ctx, c.cc, api.SessionServiceName, "Login", req)
}

func (c *SessionClient) Logout(ctx context.Context, req *api.LogoutRequest) (*api.LogoutResponse, error) {
	return invoke[api.LogoutResponse](ctx, c.cc, api.SessionServiceName, "Logout", req)
}

func (c *SessionClient) SetPersistence(ctx context.Context, req *api.SetPersistenceRequest) (*api.SetPersistenceResponse, error) {
	return invoke[api.SetPersistenceResponse](ctx, c.cc, api.SessionServiceName, "SetPersistence", req)
}

func (c *SessionClient) DeleteChatData(ctx context.Context, req *api.DeleteChatDataRequest) (*api.DeleteChatDataResponse, error) {
	return invoke[api.DeleteChatDataResponse](ctx, c.cc, api.SessionServiceName, "DeleteChatData", req)
}

func (c *SessionClient) GetWallet(ctx context.Context, req *api.GetWalletRequest) (*api.GetWalletResponse, error) {
	return invoke[api.GetWalletResponse](ctx, c.cc, api.SessionServiceName, "GetWallet", req)
}

// ChatClient calls vchat.v1.ChatService.
type ChatClient struct {
	cc grpc.ClientConnInterface
}

func (c *ChatClient) ListConversations(ctx context.Context, req *api.ListConversationsRequest) (*api.ListConversationsResponse, error) {
	return invoke[api.ListConversationsResponse](ctx, c.cc, api.ChatServiceName, "ListConversations", req)
}

func (c *ChatClient) StartChat(ctx context.Context, req *api.StartChatRequest) (*api.StartChatResponse, error) {
	return invoke[api.StartChatResponse](ctx, c.cc, api.ChatServiceName, "StartChat", req)
}

func (c *ChatClient) SelectConversation(ctx context.Context, req *api.SelectConversationRequest) (*api.SelectConversationResponse, error) {
	return invoke[api.SelectConversationResponse](ctx, c.cc, api.ChatServiceName, "SelectConversation", req)
}

func (c *ChatClient) ListMessages(ctx context.Context, req *api.ListMessagesRequest) (*api.ListMessagesResponse, error) {
	return invoke[api.ListMessagesResponse](ctx, c.cc, api.ChatServiceName, "ListMessages", req)
}

func (c *ChatClient) SendMessage(ctx context.Context, req *api.SendMessageRequest) (*api.SendMessageResponse, error) {
	return invoke[api.SendMessageResponse](ctx, c.cc, api.ChatServiceName, "SendMessage", req)
}

// EventStream receives envelopes from WatchEvents.
type EventStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event.
func (s *EventStream) Recv() (*api.EventEnvelope, error) {
	m := new(api.EventEnvelope)
	if err := s.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// WatchEvents opens the event stream. Cancel ctx to end it.
func (c *ChatClient) WatchEvents(ctx context.Context, req *api.WatchEventsRequest) (*EventStream, error) {
	desc := &api.ChatServiceDesc.Streams[0]
	stream, err := c.cc.NewStream(ctx, desc, "/"+api.ChatServiceName+"/"+desc.StreamName)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}
