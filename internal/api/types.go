package api

import "encoding/json"

// Messages of the vchat.v1 control API. They travel as JSON.

type Identity struct {
	Name           string `json:"name"`
	IAddress       string `json:"i_address"`
	PrivateAddress string `json:"private_address"`
}

type Conversation struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Unread  bool   `json:"unread"`
}

type Message struct {
	ID              string `json:"id"`
	Sender          string `json:"sender"`
	Text            string `json:"text"`
	Direction       string `json:"direction"`
	Amount          string `json:"amount"`
	TimestampUnixMs int64  `json:"timestamp_unix_ms"`
	Confirmations   int64  `json:"confirmations"`
	Status          string `json:"status,omitempty"`
	TxID            string `json:"txid,omitempty"`
	Error           string `json:"error,omitempty"`
}

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Profile           string `json:"profile"`
	Status            string `json:"status"`
	StatusSinceUnixMs int64  `json:"status_since_unix_ms"`
	Identity          string `json:"identity,omitempty"`
	Persistence       bool   `json:"persistence"`
	LastPollUnixMs    int64  `json:"last_poll_unix_ms,omitempty"`
	UptimeMs          int64  `json:"uptime_ms"`
	PID               int    `json:"pid"`
}

type ListIdentitiesRequest struct{}

type ListIdentitiesResponse struct {
	Identities []Identity `json:"identities"`
}

type LoginRequest struct {
	Name string `json:"name"`
}

type LoginResponse struct {
	Identity    Identity `json:"identity"`
	Persistence bool     `json:"persistence"`
}

type LogoutRequest struct{}

type LogoutResponse struct {
	Identity string `json:"identity"`
}

type SetPersistenceRequest struct {
	Enabled bool `json:"enabled"`
}

type SetPersistenceResponse struct {
	Enabled bool `json:"enabled"`
}

type DeleteChatDataRequest struct{}

type DeleteChatDataResponse struct{}

type GetWalletRequest struct{}

type GetWalletResponse struct {
	Address           string `json:"address"`
	Balance           string `json:"balance"`
	Height            int64  `json:"height"`
	Usable            int    `json:"usable"`
	TooSmall          int    `json:"too_small"`
	Largest           string `json:"largest"`
	Smallest          string `json:"smallest"`
	Total             string `json:"total"`
	Pending           bool   `json:"pending"`
	PendingSince      int64  `json:"pending_since,omitempty"`
	RefreshedAtUnixMs int64  `json:"refreshed_at_unix_ms"`
}

type ListConversationsRequest struct{}

type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type StartChatRequest struct {
	Name          string `json:"name"`
	ImportHistory bool   `json:"import_history"`
}

type StartChatResponse struct {
	Conversation Conversation `json:"conversation"`
	Imported     int          `json:"imported"`
}

type SelectConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

type SelectConversationResponse struct {
	Conversation Conversation `json:"conversation"`
}

type ListMessagesRequest struct {
	ConversationID string `json:"conversation_id"`
	Limit          int    `json:"limit,omitempty"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	Amount         string `json:"amount,omitempty"`
}

type SendMessageResponse struct {
	Message Message `json:"message"`
}

type WatchEventsRequest struct {
	// Namespaces filters events by kind prefix, e.g. "message." or "sync.".
	// Empty means every event.
	Namespaces []string `json:"namespaces,omitempty"`
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	Profile          string          `json:"profile"`
	OccurredAtUnixMs int64           `json:"occurred_at_unix_ms"`
	Kind             string          `json:"kind"`
	PayloadVersion   int             `json:"payload_version"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}
