// Package conversation holds the in-memory conversation state of a logged-in
// identity. All mutation goes through Store so ordering, dedup and
// confirmation monotonicity hold for every caller.
package conversation

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/vchat/internal/bus"
	"go.uber.org/zap"
)

var (
	ErrNotFound         = errors.New("conversation not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrDuplicateMessage = errors.New("message id already present")
	ErrClosed           = errors.New("conversation store closed")
)

// Persister is the durable write-behind target for store mutations.
type Persister interface {
	SaveConversations(identity string, convs []Conversation) error
	SaveMessages(identity, conversationID string, msgs []Message) error
}

// Change is the payload of message and conversation events.
type Change struct {
	ConversationID string
	MessageID      string
	Added          int
	Updated        int
}

// Store is the authoritative conversation state for one identity.
type Store struct {
	mu       sync.Mutex
	identity string
	convs    map[string]*Conversation
	msgs     map[string][]Message
	focused  string
	persist  bool
	closed   bool

	saver  Persister
	bus    *bus.Bus
	logger *zap.Logger
}

// NewStore creates an empty store. saver may be nil when nothing is persisted.
func NewStore(identity string, saver Persister, b *bus.Bus, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		identity: identity,
		convs:    make(map[string]*Conversation),
		msgs:     make(map[string][]Message),
		saver:    saver,
		bus:      b,
		logger:   logger,
	}
}

// Identity returns the identity the store belongs to.
func (s *Store) Identity() string {
	return s.identity
}

// Load seeds the store from persisted state. It does not write back.
func (s *Store) Load(convs []Conversation, msgs map[string][]Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range convs {
		if c.Name == "" {
			c.Name = c.ID
		}
		s.convs[c.ID] = &c
		list := slices.Clone(msgs[c.ID])
		SortMessages(list)
		s.msgs[c.ID] = list
	}
}

// EnablePersistence turns write-behind on or off. Turning it on flushes the
// full current state.
func (s *Store) EnablePersistence(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist = on
	if !on {
		return
	}
	s.saveConversationsLocked()
	for id := range s.convs {
		s.saveMessagesLocked(id)
	}
}

// Close rejects every later mutation. Called on logout so a poll that
// returns afterwards cannot be applied.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// UpsertConversation inserts c if its id is unknown. An existing conversation
// keeps its address; an empty address may be filled in once.
func (s *Store) UpsertConversation(c Conversation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	existing, ok := s.convs[c.ID]
	if ok {
		if existing.Address != "" || c.Address == "" {
			return false, nil
		}
		existing.Address = c.Address
		s.saveConversationsLocked()
		return false, nil
	}

	if c.Name == "" {
		c.Name = c.ID
	}
	s.convs[c.ID] = &c
	s.msgs[c.ID] = nil
	s.saveConversationsLocked()
	s.bus.Emit(bus.ConversationUpserted, Change{ConversationID: c.ID})
	return true, nil
}

// MergeMessages adds unseen messages to a conversation. Known ids only have
// their confirmation count raised; it never decreases. A received message
// stored without a block time takes the first one that arrives.
func (s *Store) MergeMessages(conversationID string, incoming []Message) (MergeResult, error) {
	return s.merge(conversationID, incoming, false)
}

// MergeUnread is MergeMessages for newly discovered messages: when any are
// added and the conversation is not focused, it is flagged unread under the
// same lock.
func (s *Store) MergeUnread(conversationID string, incoming []Message) (MergeResult, error) {
	return s.merge(conversationID, incoming, true)
}

func (s *Store) merge(conversationID string, incoming []Message, markUnread bool) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return MergeResult{}, ErrClosed
	}
	conv, ok := s.convs[conversationID]
	if !ok {
		return MergeResult{}, fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}

	list := s.msgs[conversationID]
	index := make(map[string]int, len(list))
	for i, m := range list {
		index[m.ID] = i
	}

	var res MergeResult
	for _, m := range incoming {
		i, ok := index[m.ID]
		if !ok {
			index[m.ID] = len(list)
			list = append(list, m)
			res.Added++
			continue
		}
		known := &list[i]
		if known.Direction != m.Direction {
			s.logger.Warn("ignoring direction change for known message",
				zap.String("conversation", conversationID), zap.String("msg_id", m.ID))
			continue
		}
		changed := false
		if m.Confirmations > known.Confirmations {
			known.Confirmations = m.Confirmations
			changed = true
		}
		if known.Direction == Received && known.Timestamp == 0 && m.Timestamp != 0 {
			known.Timestamp = m.Timestamp
			changed = true
		}
		if changed {
			res.Updated++
		}
	}

	if !res.Changed() {
		return res, nil
	}
	SortMessages(list)
	s.msgs[conversationID] = list
	s.saveMessagesLocked(conversationID)
	s.bus.Emit(bus.MessageMerged, Change{ConversationID: conversationID, Added: res.Added, Updated: res.Updated})

	if markUnread && res.Added > 0 && s.focused != conversationID && !conv.Unread {
		conv.Unread = true
		res.MarkedUnread = true
		s.saveConversationsLocked()
		s.bus.Emit(bus.ConversationUnread, Change{ConversationID: conversationID})
	}
	return res, nil
}

// AppendOptimistic inserts a locally originated message before the network
// has seen it.
func (s *Store) AppendOptimistic(conversationID string, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.convs[conversationID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}
	list := s.msgs[conversationID]
	if slices.ContainsFunc(list, func(x Message) bool { return x.ID == m.ID }) {
		return fmt.Errorf("%w: %s", ErrDuplicateMessage, m.ID)
	}
	list = append(list, m)
	SortMessages(list)
	s.msgs[conversationID] = list
	s.saveMessagesLocked(conversationID)
	s.bus.Emit(bus.MessageMerged, Change{ConversationID: conversationID, MessageID: m.ID, Added: 1})
	return nil
}

// MarkFailed flags an outbound message as failed in place.
func (s *Store) MarkFailed(conversationID, messageID, reason string) error {
	return s.updateMessage(conversationID, messageID, func(m *Message) {
		m.Status = StatusFailed
		m.Error = reason
	})
}

// MarkSubmitted records the transaction id the daemon returned for an
// outbound message. The message id is left unchanged.
func (s *Store) MarkSubmitted(conversationID, messageID, txid string) error {
	return s.updateMessage(conversationID, messageID, func(m *Message) {
		m.Status = StatusSent
		m.TxID = txid
	})
}

func (s *Store) updateMessage(conversationID, messageID string, fn func(*Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	list, ok := s.msgs[conversationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}
	i := slices.IndexFunc(list, func(m Message) bool { return m.ID == messageID })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	fn(&list[i])
	s.saveMessagesLocked(conversationID)
	s.bus.Emit(bus.MessageUpdated, Change{ConversationID: conversationID, MessageID: messageID, Updated: 1})
	return nil
}

// Select focuses a conversation and clears its unread flag in one step. An
// empty id clears focus.
func (s *Store) Select(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if conversationID == "" {
		s.focused = ""
		return nil
	}
	c, ok := s.convs[conversationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}
	s.focused = conversationID
	if !c.Unread {
		return nil
	}
	c.Unread = false
	s.saveConversationsLocked()
	s.bus.Emit(bus.ConversationRead, Change{ConversationID: conversationID})
	return nil
}

// Focused returns the id of the focused conversation, if any.
func (s *Store) Focused() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// Has reports whether a conversation exists.
func (s *Store) Has(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.convs[conversationID]
	return ok
}

// Conversation returns a copy of one conversation.
func (s *Store) Conversation(conversationID string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[conversationID]
	if !ok {
		return Conversation{}, fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}
	return *c, nil
}

// Conversations returns all conversations, most recently active first.
func (s *Store) Conversations() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b Conversation) int {
		if c := cmp.Compare(s.latestLocked(b.ID), s.latestLocked(a.ID)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Messages returns a sorted copy of a conversation's messages.
func (s *Store) Messages(conversationID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.msgs[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}
	return slices.Clone(list), nil
}

func (s *Store) latestLocked(conversationID string) int64 {
	list := s.msgs[conversationID]
	if len(list) == 0 {
		return 0
	}
	return list[0].Timestamp
}

func (s *Store) conversationsLocked() []Conversation {
	out := make([]Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b Conversation) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *Store) saveConversationsLocked() {
	if !s.persist || s.saver == nil {
		return
	}
	if err := s.saver.SaveConversations(s.identity, s.conversationsLocked()); err != nil {
		s.logger.Error("failed to persist conversations", zap.Error(err), zap.String("identity", s.identity))
	}
}

func (s *Store) saveMessagesLocked(conversationID string) {
	if !s.persist || s.saver == nil {
		return
	}
	if err := s.saver.SaveMessages(s.identity, conversationID, slices.Clone(s.msgs[conversationID])); err != nil {
		s.logger.Error("failed to persist messages", zap.Error(err),
			zap.String("identity", s.identity), zap.String("conversation", conversationID))
	}
}
