// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"sync"
	"time"

	"github.com/jeranaias/parley-tui/internal/model"
)

// =============================================================================
// CHAT STORE
// =============================================================================

// ChatStore is the in-memory repository of conversations for one session.
//
// Mutations are total on well-formed input and never fail. The store expects
// a single logical writer (the turn driver); the mutex only keeps concurrent
// readers (list views) consistent with that writer.
type ChatStore struct {
	mu sync.Mutex

	conversations map[string]*model.Conversation
	order         []string // conversation ids, most recently touched first

	activeID  string
	streaming bool
}

// NewChatStore creates an empty store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		conversations: make(map[string]*model.Conversation),
	}
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// EnsureConversation returns the conversation for id, creating it when
// absent. A newly created conversation is inserted at the front of the
// ordering exactly once. When the conversation exists with the placeholder
// title and a title is supplied, the supplied title is adopted.
func (s *ChatStore) EnsureConversation(id, title string) *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(id, title)
}

func (s *ChatStore) ensureLocked(id, title string) *model.Conversation {
	conv, ok := s.conversations[id]
	if !ok {
		conv = model.NewConversation(id, title)
		s.conversations[id] = conv
		s.moveToFrontLocked(id)
		return conv
	}

	if title != "" && conv.HasDefaultTitle() {
		conv.Title = title
	}
	return conv
}

// Touch moves id to the front of the recency ordering. Touching an unknown
// id or an already-first id is a no-op; repeated touches never duplicate
// entries.
func (s *ChatStore) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return
	}
	s.moveToFrontLocked(id)
}

// moveToFrontLocked inserts id at the front of the order, removing any
// previous occurrence first.
func (s *ChatStore) moveToFrontLocked(id string) {
	next := make([]string, 0, len(s.order)+1)
	next = append(next, id)
	for _, existing := range s.order {
		if existing != id {
			next = append(next, existing)
		}
	}
	s.order = next
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AppendUserMessage appends a user message and returns the new message id.
// A supplied title is adopted when the conversation still carries the
// placeholder title.
func (s *ChatStore) AppendUserMessage(id, content, title string) string {
	return s.appendMessage(id, model.RoleUser, content, title)
}

// AppendAssistantMessage appends an assistant message and returns its id.
func (s *ChatStore) AppendAssistantMessage(id, content string) string {
	return s.appendMessage(id, model.RoleAssistant, content, "")
}

func (s *ChatStore) appendMessage(id string, role model.Role, content, title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.ensureLocked(id, title)
	if title != "" && conv.HasDefaultTitle() {
		conv.Title = title
	}

	msg := model.NewMessage(role, content)
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now()
	s.moveToFrontLocked(id)

	return msg.ID
}

// ReplaceAssistantMessage rewrites the content (and creation time) of an
// existing message in place. This is the one permitted message mutation,
// used to apply successive streaming fragments to the same placeholder
// without growing the history. Unknown conversation or message ids are
// no-ops.
func (s *ChatStore) ReplaceAssistantMessage(id, messageID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return
	}

	msg := conv.MessageByID(messageID)
	if msg == nil {
		return
	}

	now := time.Now()
	msg.Content = content
	msg.CreatedAt = now
	conv.UpdatedAt = now
	s.moveToFrontLocked(id)
}

// =============================================================================
// IDENTITY MIGRATION
// =============================================================================

// ReplaceConversationID atomically migrates a conversation from a
// provisional id to its server-assigned one. The full body moves to newID,
// oldID stops resolving, the ordering gets newID at the front, and the
// active pointer follows if it referenced oldID. No-op when the ids match
// or oldID is absent.
func (s *ChatStore) ReplaceConversationID(oldID, newID string) {
	if oldID == newID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[oldID]
	if !ok {
		return
	}

	conv.ID = newID
	delete(s.conversations, oldID)
	s.conversations[newID] = conv

	next := make([]string, 0, len(s.order))
	next = append(next, newID)
	for _, id := range s.order {
		if id != oldID && id != newID {
			next = append(next, id)
		}
	}
	s.order = next

	if s.activeID == oldID {
		s.activeID = newID
	}
}

// =============================================================================
// SESSION RESET
// =============================================================================

// ClearAll wipes every conversation and the session cursors. Used on
// logout.
func (s *ChatStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[string]*model.Conversation)
	s.order = nil
	s.activeID = ""
	s.streaming = false
}

// =============================================================================
// READ VIEWS
// =============================================================================

// Conversation returns the conversation for id.
func (s *ChatStore) Conversation(id string) (*model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	return conv, ok
}

// SnapshotConversation returns a deep copy of the conversation for id,
// safe to read while a turn is mutating the original.
func (s *ChatStore) SnapshotConversation(id string) (*model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, false
	}

	snap := *conv
	snap.Messages = make([]*model.Message, len(conv.Messages))
	for i, msg := range conv.Messages {
		copied := *msg
		snap.Messages[i] = &copied
	}
	return &snap, true
}

// ConversationList derives the summary view in recency order, most
// recently touched first.
func (s *ChatStore) ConversationList() []model.ConversationMeta {
	s.mu.Lock()
	defer s.mu.Unlock()

	metas := make([]model.ConversationMeta, 0, len(s.order))
	for _, id := range s.order {
		if conv, ok := s.conversations[id]; ok {
			metas = append(metas, conv.Meta())
		}
	}
	return metas
}

// Len returns the number of conversations.
func (s *ChatStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// =============================================================================
// SESSION CURSORS
// =============================================================================

// ActiveConversationID returns the active conversation id, or "" when no
// conversation is selected.
func (s *ChatStore) ActiveConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// SetActiveConversationID selects the active conversation. Empty id means
// "new chat": no conversation selected.
func (s *ChatStore) SetActiveConversationID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

// IsStreaming reports whether a streaming turn is currently in flight.
func (s *ChatStore) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// SetStreaming flips the streaming-in-flight cursor.
func (s *ChatStore) SetStreaming(streaming bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = streaming
}
