package api

import (
	"context"
	"errors"

	"github.com/matheus3301/vchat/internal/chat"
	"github.com/matheus3301/vchat/internal/conversation"
	"github.com/matheus3301/vchat/internal/memo"
	"github.com/matheus3301/vchat/internal/outbox"
	"github.com/matheus3301/vchat/internal/rpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps a domain error to a gRPC status prefixed with op.
func toStatus(op string, err error) error {
	return grpcstatus.Errorf(codeOf(err), "%s: %v", op, err)
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, chat.ErrNoSession), errors.Is(err, conversation.ErrClosed):
		return codes.FailedPrecondition
	case errors.Is(err, chat.ErrAlreadyLoggedIn):
		return codes.AlreadyExists
	case errors.Is(err, rpc.ErrNotFoundOrIneligible),
		errors.Is(err, rpc.ErrNoIdentities),
		errors.Is(err, chat.ErrNotOwnIdentity),
		errors.Is(err, conversation.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, rpc.ErrInvalidFormat),
		errors.Is(err, outbox.ErrEmptyMessage),
		errors.Is(err, outbox.ErrInvalidAmount),
		errors.Is(err, memo.ErrMemoTooLong):
		return codes.InvalidArgument
	case errors.Is(err, rpc.ErrNetwork), errors.Is(err, rpc.ErrTimeout), errors.Is(err, rpc.ErrUnauthorized):
		return codes.Unavailable
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
