// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/parley-tui/internal/util"
)

// DefaultTitle is the placeholder title of a conversation until the first
// user message names it.
const DefaultTitle = "New conversation"

// DraftIDPrefix marks a client-minted provisional conversation id.
const DraftIDPrefix = "draft_"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a chat history with identity and metadata.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`
}

// NewConversation creates an empty conversation under the given id.
// An empty title falls back to the placeholder.
func NewConversation(id, title string) *Conversation {
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now()
	return &Conversation{
		ID:        id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// HasDefaultTitle reports whether the title is still the placeholder.
func (c *Conversation) HasDefaultTitle() bool {
	return c.Title == DefaultTitle
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// MessageByID returns the message with the given id, or nil.
func (c *Conversation) MessageByID(id string) *Message {
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// Meta returns the lightweight summary used for listing.
func (c *Conversation) Meta() ConversationMeta {
	return ConversationMeta{
		ID:           c.ID,
		Title:        c.Title,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: len(c.Messages),
	}
}

// ConversationMeta holds summary data for the conversation list.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// =============================================================================
// IDENTITY HELPERS
// =============================================================================

// NewDraftID mints a provisional conversation id. The server replaces it
// with a final id on the first successful turn.
func NewDraftID() string {
	return DraftIDPrefix + uuid.NewString()
}

// IsDraftID reports whether id is a client-minted provisional id.
func IsDraftID(id string) bool {
	return strings.HasPrefix(id, DraftIDPrefix)
}

// TitleFromMessage derives a conversation title from the first line of a
// user message, truncated for display.
func TitleFromMessage(text string) string {
	firstLine, _, _ := strings.Cut(text, "\n")
	title := util.Truncate(strings.TrimSpace(firstLine), 60)
	if title == "" {
		return DefaultTitle
	}
	return title
}
