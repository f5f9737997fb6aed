package api

import (
	"context"

	"google.golang.org/grpc"
)

const (
	SessionServiceName = "vchat.v1.SessionService"
	ChatServiceName    = "vchat.v1.ChatService"
)

// SessionServer is the server API for vchat.v1.SessionService.
type SessionServer interface {
	GetStatus(context.Context, *GetStatusRequest) (*GetStatusResponse, error)
	ListIdentities(context.Context, *ListIdentitiesRequest) (*ListIdentitiesResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	SetPersistence(context.Context, *SetPersistenceRequest) (*SetPersistenceResponse, error)
	DeleteChatData(context.Context, *DeleteChatDataRequest) (*DeleteChatDataResponse, error)
	GetWallet(context.Context, *GetWalletRequest) (*GetWalletResponse, error)
}

// ChatServer is the server API for vchat.v1.ChatService.
type ChatServer interface {
	ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error)
	StartChat(context.Context, *StartChatRequest) (*StartChatResponse, error)
	SelectConversation(context.Context, *SelectConversationRequest) (*SelectConversationResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	WatchEvents(*WatchEventsRequest, EventStream) error
}

// EventStream is the server side of a WatchEvents call.
type EventStream interface {
	Send(*EventEnvelope) error
	Context() context.Context
}

type eventStream struct {
	grpc.ServerStream
}

func (s *eventStream) Send(m *EventEnvelope) error {
	return s.ServerStream.SendMsg(m)
}

// unaryMethod builds the method descriptor for one unary RPC.
func unaryMethod[S, Req, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// SessionServiceDesc describes vchat.v1.SessionService.
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(SessionServiceName, "GetStatus", SessionServer.GetStatus),
		unaryMethod(SessionServiceName, "ListIdentities", SessionServer.ListIdentities),
		unaryMethod(SessionServiceName, "Login", SessionServer.Login),
		unaryMethod(SessionServiceName, "Logout", SessionServer.Logout),
		unaryMethod(SessionServiceName, "SetPersistence", SessionServer.SetPersistence),
		unaryMethod(SessionServiceName, "DeleteChatData", SessionServer.DeleteChatData),
		unaryMethod(SessionServiceName, "GetWallet", SessionServer.GetWallet),
	},
	Metadata: "vchat/v1/session.json",
}

// ChatServiceDesc describes vchat.v1.ChatService.
var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(ChatServiceName, "ListConversations", ChatServer.ListConversations),
		unaryMethod(ChatServiceName, "StartChat", ChatServer.StartChat),
		unaryMethod(ChatServiceName, "SelectConversation", ChatServer.SelectConversation),
		unaryMethod(ChatServiceName, "ListMessages", ChatServer.ListMessages),
		unaryMethod(ChatServiceName, "SendMessage", ChatServer.SendMessage),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "WatchEvents",
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(WatchEventsRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(ChatServer).WatchEvents(in, &eventStream{stream})
			},
			ServerStreams: true,
		},
	},
	Metadata: "vchat/v1/chat.json",
}

// RegisterSessionServer registers srv on s.
func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

// RegisterChatServer registers srv on s.
func RegisterChatServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&ChatServiceDesc, srv)
}
