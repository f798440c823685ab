// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley-tui/internal/model"
)

// orderedIDs extracts the id column of the summary list.
func orderedIDs(s *ChatStore) []string {
	metas := s.ConversationList()
	ids := make([]string, len(metas))
	for i, m := range metas {
		ids[i] = m.ID
	}
	return ids
}

// =============================================================================
// CONVERSATION LIFECYCLE TESTS
// =============================================================================

func TestEnsureConversation_CreatesOncePerID(t *testing.T) {
	s := NewChatStore()

	first := s.EnsureConversation("conv_1", "Greetings")
	second := s.EnsureConversation("conv_1", "Other title")

	assert.Same(t, first, second, "same id must resolve to one conversation")
	assert.Equal(t, "Greetings", second.Title, "custom title must not be overwritten")
	assert.Equal(t, []string{"conv_1"}, orderedIDs(s))
}

func TestEnsureConversation_AdoptsTitleOverPlaceholder(t *testing.T) {
	s := NewChatStore()

	s.EnsureConversation("conv_1", "")
	conv := s.EnsureConversation("conv_1", "Real title")

	assert.Equal(t, "Real title", conv.Title)
}

func TestEnsureConversation_NewIDsInsertAtFront(t *testing.T) {
	s := NewChatStore()

	s.EnsureConversation("a", "")
	s.EnsureConversation("b", "")
	s.EnsureConversation("c", "")

	assert.Equal(t, []string{"c", "b", "a"}, orderedIDs(s))
}

// =============================================================================
// ORDERING TESTS
// =============================================================================

func TestTouch_MovesToFrontIdempotently(t *testing.T) {
	s := NewChatStore()
	s.EnsureConversation("a", "")
	s.EnsureConversation("b", "")
	s.EnsureConversation("c", "")

	s.Touch("a")
	assert.Equal(t, []string{"a", "c", "b"}, orderedIDs(s))

	// Touching the already-first id keeps the order and adds nothing.
	s.Touch("a")
	assert.Equal(t, []string{"a", "c", "b"}, orderedIDs(s))
}

func TestTouch_UnknownIDIsNoOp(t *testing.T) {
	s := NewChatStore()
	s.EnsureConversation("a", "")

	s.Touch("ghost")

	assert.Equal(t, []string{"a"}, orderedIDs(s))
}

// =============================================================================
// MESSAGE OPERATION TESTS
// =============================================================================

func TestAppendMessages_OrderAndTitleAdoption(t *testing.T) {
	s := NewChatStore()

	userID := s.AppendUserMessage("conv_1", "Hello", "Hello")
	assistantID := s.AppendAssistantMessage("conv_1", "Hi!")

	conv, ok := s.Conversation("conv_1")
	require.True(t, ok)
	require.Equal(t, 2, conv.MessageCount())

	assert.Equal(t, "Hello", conv.Title, "placeholder replaced by first message title")
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, userID, conv.Messages[0].ID)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, assistantID, conv.Messages[1].ID)
	assert.NotEqual(t, userID, assistantID)
}

func TestReplaceAssistantMessage_RewritesInPlace(t *testing.T) {
	s := NewChatStore()
	s.AppendUserMessage("conv_1", "Hello", "")
	msgID := s.AppendAssistantMessage("conv_1", "")

	s.ReplaceAssistantMessage("conv_1", msgID, "Hi")
	s.ReplaceAssistantMessage("conv_1", msgID, "Hi there")

	conv, _ := s.Conversation("conv_1")
	require.Equal(t, 2, conv.MessageCount(), "replacement must not grow the history")
	assert.Equal(t, "Hi there", conv.Messages[1].Content)
	assert.Equal(t, msgID, conv.Messages[1].ID)
}

func TestReplaceAssistantMessage_UnknownIDsAreNoOps(t *testing.T) {
	s := NewChatStore()
	msgID := s.AppendAssistantMessage("conv_1", "keep")

	s.ReplaceAssistantMessage("ghost", msgID, "x")
	s.ReplaceAssistantMessage("conv_1", "ghost", "x")

	conv, _ := s.Conversation("conv_1")
	assert.Equal(t, "keep", conv.Messages[0].Content)
}

// =============================================================================
// IDENTITY MIGRATION TESTS
// =============================================================================

func TestReplaceConversationID_MigratesAtomically(t *testing.T) {
	s := NewChatStore()
	s.AppendUserMessage("draft_a", "Hello", "Hello")
	s.AppendAssistantMessage("draft_a", "Hi")
	s.EnsureConversation("other", "")
	s.SetActiveConversationID("draft_a")

	s.ReplaceConversationID("draft_a", "srv_1")

	_, oldResolves := s.Conversation("draft_a")
	assert.False(t, oldResolves, "old id must stop resolving")

	conv, ok := s.Conversation("srv_1")
	require.True(t, ok)
	assert.Equal(t, "srv_1", conv.ID)
	assert.Equal(t, "Hello", conv.Title)
	require.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, "Hello", conv.Messages[0].Content)
	assert.Equal(t, "Hi", conv.Messages[1].Content)

	assert.Equal(t, "srv_1", s.ActiveConversationID(), "active pointer follows the migration")
	assert.Equal(t, []string{"srv_1", "other"}, orderedIDs(s))
}

func TestReplaceConversationID_NoOps(t *testing.T) {
	s := NewChatStore()
	s.EnsureConversation("a", "")
	s.SetActiveConversationID("a")

	s.ReplaceConversationID("a", "a")
	s.ReplaceConversationID("ghost", "b")

	// Repeating a finished migration is also a no-op.
	s.ReplaceConversationID("a", "b")
	s.ReplaceConversationID("a", "c")

	_, ok := s.Conversation("b")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, orderedIDs(s))
	assert.Equal(t, "b", s.ActiveConversationID())
}

func TestReplaceConversationID_InactivePointerUntouched(t *testing.T) {
	s := NewChatStore()
	s.EnsureConversation("a", "")
	s.EnsureConversation("cur", "")
	s.SetActiveConversationID("cur")

	s.ReplaceConversationID("a", "b")

	assert.Equal(t, "cur", s.ActiveConversationID())
}

// =============================================================================
// SESSION RESET TESTS
// =============================================================================

func TestClearAll(t *testing.T) {
	s := NewChatStore()
	s.AppendUserMessage("a", "x", "")
	s.SetActiveConversationID("a")
	s.SetStreaming(true)

	s.ClearAll()

	assert.Zero(t, s.Len())
	assert.Empty(t, orderedIDs(s))
	assert.Empty(t, s.ActiveConversationID())
	assert.False(t, s.IsStreaming())
}

// =============================================================================
// SUMMARY VIEW TESTS
// =============================================================================

func TestConversationList_DerivedSummaries(t *testing.T) {
	s := NewChatStore()
	s.AppendUserMessage("conv_1", "Hello there", "Hello there")
	s.AppendAssistantMessage("conv_1", "Hi")

	metas := s.ConversationList()
	require.Len(t, metas, 1)
	assert.Equal(t, "conv_1", metas[0].ID)
	assert.Equal(t, "Hello there", metas[0].Title)
	assert.Equal(t, 2, metas[0].MessageCount)
	assert.False(t, metas[0].UpdatedAt.IsZero())
}

func TestSnapshotConversation_IsDetached(t *testing.T) {
	s := NewChatStore()
	s.AppendUserMessage("conv_1", "Hello", "Hello")
	msgID := s.AppendAssistantMessage("conv_1", "partial")

	snap, ok := s.SnapshotConversation("conv_1")
	require.True(t, ok)
	require.Len(t, snap.Messages, 2)

	// Mutations after the snapshot must not show through.
	s.ReplaceAssistantMessage("conv_1", msgID, "final")
	s.AppendUserMessage("conv_1", "More", "")

	assert.Equal(t, "partial", snap.Messages[1].Content)
	assert.Len(t, snap.Messages, 2)

	_, ok = s.SnapshotConversation("missing")
	assert.False(t, ok)
}
