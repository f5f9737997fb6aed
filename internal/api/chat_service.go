package api

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/matheus3301/vchat/internal/bus"
	"github.com/matheus3301/vchat/internal/chat"
	"github.com/matheus3301/vchat/internal/conversation"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// ChatService implements vchat.v1.ChatService.
type ChatService struct {
	manager *chat.Manager
	bus     *bus.Bus
	profile string
	logger  *zap.Logger
}

// NewChatService creates a new chat service for the logged-in identity.
func NewChatService(manager *chat.Manager, b *bus.Bus, profile string, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{manager: manager, bus: b, profile: profile, logger: logger}
}

func (s *ChatService) ListConversations(_ context.Context, _ *ListConversationsRequest) (*ListConversationsResponse, error) {
	sess, err := s.manager.Current()
	if err != nil {
		return nil, toStatus("list conversations", err)
	}
	convs := sess.Conversations()
	resp := &ListConversationsResponse{Conversations: make([]Conversation, len(convs))}
	for i, c := range convs {
		resp.Conversations[i] = conversationToAPI(c)
	}
	return resp, nil
}

func (s *ChatService) StartChat(ctx context.Context, req *StartChatRequest) (*StartChatResponse, error) {
	sess, err := s.manager.Current()
	if err != nil {
		return nil, toStatus("start chat", err)
	}
	c, imported, err := sess.StartChat(ctx, strings.TrimSpace(req.Name), req.ImportHistory)
	if err != nil {
		return nil, toStatus("start chat", err)
	}
	return &StartChatResponse{Conversation: conversationToAPI(c), Imported: imported}, nil
}

func (s *ChatService) SelectConversation(_ context.Context, req *SelectConversationRequest) (*SelectConversationResponse, error) {
	if req.ConversationID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "select conversation: conversation_id is required")
	}
	sess, err := s.manager.Current()
	if err != nil {
		return nil, toStatus("select conversation", err)
	}
	if err := sess.Select(req.ConversationID); err != nil {
		return nil, toStatus("select conversation", err)
	}
	c, err := sess.Conversation(req.ConversationID)
	if err != nil {
		return nil, toStatus("select conversation", err)
	}
	return &SelectConversationResponse{Conversation: conversationToAPI(c)}, nil
}

// WatchEvents streams bus events until the client goes away. An empty
// namespace list subscribes to everything.
func (s *ChatService) WatchEvents(req *WatchEventsRequest, stream EventStream) error {
	ch, unsub := s.bus.SubscribeAny(req.Namespaces, 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			payload, err := marshalPayload(evt)
			if err != nil {
				s.logger.Warn("failed to encode event payload", zap.String("kind", evt.Kind), zap.Error(err))
			}
			if err := stream.Send(&EventEnvelope{
				EventID:          uuid.New().String(),
				Profile:          s.profile,
				OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
				Kind:             evt.Kind,
				PayloadVersion:   1,
				Payload:          payload,
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func conversationToAPI(c conversation.Conversation) Conversation {
	return Conversation{
		ID:      c.ID,
		Name:    c.Name,
		Address: c.Address,
		Unread:  c.Unread,
	}
}
