package api

import (
	"encoding/json"

	"github.com/matheus3301/vchat/internal/bus"
	"github.com/matheus3301/vchat/internal/conversation"
	"github.com/matheus3301/vchat/internal/outbox"
	"github.com/matheus3301/vchat/internal/status"
	"github.com/matheus3301/vchat/internal/sync"
)

// Event payloads as they appear in EventEnvelope.Payload.

type ChangePayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id,omitempty"`
	Added          int    `json:"added,omitempty"`
	Updated        int    `json:"updated,omitempty"`
}

type SendPayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	TxID           string `json:"txid,omitempty"`
	Error          string `json:"error,omitempty"`
}

type StatusPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type SyncPayload struct {
	Observed    int `json:"observed"`
	Messages    int `json:"messages"`
	Ignored     int `json:"ignored"`
	Unsolicited int `json:"unsolicited"`
	Added       int `json:"added"`
	Updated     int `json:"updated"`
}

// marshalPayload encodes the payload of a bus event. Kinds without a payload
// encode to nil.
func marshalPayload(evt bus.Event) (json.RawMessage, error) {
	var v any
	switch p := evt.Payload.(type) {
	case nil:
		return nil, nil
	case conversation.Change:
		v = ChangePayload{ConversationID: p.ConversationID, MessageID: p.MessageID, Added: p.Added, Updated: p.Updated}
	case outbox.Result:
		v = SendPayload{ConversationID: p.ConversationID, MessageID: p.MessageID, TxID: p.TxID, Error: p.Error}
	case status.StatusChange:
		v = StatusPayload{From: string(p.From), To: string(p.To)}
	case sync.Result:
		v = SyncPayload{Observed: p.Observed, Messages: p.Messages, Ignored: p.Ignored, Unsolicited: p.Unsolicited, Added: p.Added, Updated: p.Updated}
	default:
		// heights, failure counts and identity names
		v = p
	}
	return json.Marshal(v)
}
