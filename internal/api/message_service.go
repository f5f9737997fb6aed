package api

import (
	"context"

	"github.com/matheus3301/vchat/internal/conversation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func (s *ChatService) ListMessages(_ context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	sess, err := s.manager.Current()
	if err != nil {
		return nil, toStatus("list messages", err)
	}
	msgs, err := sess.Messages(req.ConversationID)
	if err != nil {
		return nil, toStatus("list messages", err)
	}

	resp := &ListMessagesResponse{}
	if req.Limit > 0 && len(msgs) > req.Limit {
		// Newest first, so the limit keeps the most recent messages.
		msgs = msgs[:req.Limit]
		resp.HasMore = true
	}
	resp.Messages = make([]Message, len(msgs))
	for i, m := range msgs {
		resp.Messages[i] = messageToAPI(m)
	}
	return resp, nil
}

// SendMessage submits a message. A daemon rejection is not an RPC error:
// the message comes back marked failed, as it is shown in the conversation.
func (s *ChatService) SendMessage(ctx context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	amount := decimal.Zero
	if req.Amount != "" {
		var err error
		amount, err = decimal.NewFromString(req.Amount)
		if err != nil {
			return nil, grpcstatus.Errorf(codes.InvalidArgument, "send message: invalid amount %q", req.Amount)
		}
	}

	sess, err := s.manager.Current()
	if err != nil {
		return nil, toStatus("send message", err)
	}
	msg, err := sess.Send(ctx, req.ConversationID, req.Text, amount)
	if err != nil {
		if msg.ID == "" {
			return nil, toStatus("send message", err)
		}
		s.logger.Info("message failed in place", zap.String("msg_id", msg.ID), zap.Error(err))
	}
	return &SendMessageResponse{Message: messageToAPI(msg)}, nil
}

func messageToAPI(m conversation.Message) Message {
	return Message{
		ID:              m.ID,
		Sender:          m.Sender,
		Text:            m.Text,
		Direction:       string(m.Direction),
		Amount:          m.Amount.String(),
		TimestampUnixMs: m.Timestamp,
		Confirmations:   m.Confirmations,
		Status:          string(m.Status),
		TxID:            m.TxID,
		Error:           m.Error,
	}
}
