// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn drives one chat turn end to end: it appends the user's
// message, runs the network exchange in streaming or buffered mode, applies
// fragments to the conversation store, and settles conversation identity
// when the server assigns a final id to a draft conversation.
package turn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/parley-tui/internal/api"
	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/storage"
)

// User-facing text applied to the assistant message when a turn cannot
// produce normal content.
const (
	// EmptyReplyNotice replaces an assistant reply that arrived with no text.
	EmptyReplyNotice = "The reply contains no text."

	// errorPrefix introduces a turn that failed before any text arrived.
	errorPrefix = "Error: "

	// continuationFormat is appended after partial streamed text when the
	// buffered fallback also fails. The partial text is never discarded.
	continuationFormat = "\n\n(Continuation error: %s)"
)

// ErrTurnInFlight is returned by Submit while a previous turn is still
// running. At most one turn may be in flight per driver.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// =============================================================================
// DRIVER
// =============================================================================

// Driver runs chat turns against one store and one API client.
type Driver struct {
	store  *storage.ChatStore
	client *api.Client

	mu            sync.Mutex
	busy          bool
	streamEnabled bool

	onFragment    func(delta string)
	onAuthFailure func()
}

// NewDriver creates a turn driver. Streaming mode starts enabled.
func NewDriver(store *storage.ChatStore, client *api.Client) *Driver {
	return &Driver{
		store:         store,
		client:        client,
		streamEnabled: true,
	}
}

// SetFragmentCallback sets the function called after each streamed fragment
// has been applied to the store.
func (d *Driver) SetFragmentCallback(fn func(delta string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFragment = fn
}

// SetAuthFailureCallback sets the function called when a turn fails with
// invalid credentials. Callers use it to force logout.
func (d *Driver) SetAuthFailureCallback(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onAuthFailure = fn
}

// SetStreamEnabled toggles streaming mode for subsequent turns.
func (d *Driver) SetStreamEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streamEnabled = enabled
}

// StreamEnabled reports whether turns run in streaming mode.
func (d *Driver) StreamEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streamEnabled
}

// Busy reports whether a turn is currently in flight.
func (d *Driver) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// =============================================================================
// TURN RESULT
// =============================================================================

// Result describes the outcome of one turn. The assistant message named by
// MessageID always holds Content, even when Err is set: failed turns record
// what happened in the conversation itself.
type Result struct {
	// ConversationID is the conversation's id after the turn, reflecting any
	// server-assigned replacement of a draft id.
	ConversationID string

	// MessageID is the assistant message written by this turn.
	MessageID string

	// Content is the final assistant message content.
	Content string

	// Streamed is true when the content arrived over the stream.
	Streamed bool

	// FellBack is true when a failed stream was completed by a buffered
	// retry.
	FellBack bool

	// Err is the failure that ended the turn, nil on success.
	Err error
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit runs one full turn for the active conversation.
//
// If no conversation is active, a draft conversation is created and becomes
// active; its id is replaced by the server-assigned one as soon as the server
// reports it. The user message and an assistant placeholder are appended
// before the network exchange starts, so the conversation always shows the
// turn in progress.
//
// Submit returns ErrTurnInFlight if called while a previous turn is still
// running. Any other failure is recorded both in the Result and in the
// assistant message content.
func (d *Driver) Submit(ctx context.Context, text string, creds api.Credentials) (*Result, error) {
	if !d.begin() {
		return nil, ErrTurnInFlight
	}
	defer d.end()

	conversationID := d.store.ActiveConversationID()
	title := model.TitleFromMessage(text)

	if conversationID == "" {
		conversationID = model.NewDraftID()
		d.store.EnsureConversation(conversationID, title)
		d.store.SetActiveConversationID(conversationID)
	}
	isDraft := model.IsDraftID(conversationID)

	// Draft ids are purely local; the server sees an unset conversation and
	// assigns the real id.
	wireID := conversationID
	if isDraft {
		wireID = ""
	}

	d.store.AppendUserMessage(conversationID, text, title)
	assistantID := d.store.AppendAssistantMessage(conversationID, "")

	st := &turnState{
		text:           text,
		creds:          creds,
		conversationID: conversationID,
		wireID:         wireID,
		isDraft:        isDraft,
		assistantID:    assistantID,
	}

	if d.StreamEnabled() {
		return d.runStreaming(ctx, st), nil
	}
	return d.runBuffered(ctx, st), nil
}

// turnState carries one turn's identifiers across the exchange phases.
type turnState struct {
	text  string
	creds api.Credentials

	conversationID string
	wireID         string
	isDraft        bool
	assistantID    string

	accumulated string
}

// begin claims the busy flag. Returns false if a turn is already running.
func (d *Driver) begin() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return false
	}
	d.busy = true
	return true
}

func (d *Driver) end() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
}

// =============================================================================
// STREAMING TURN
// =============================================================================

// runStreaming drains a streaming exchange into the assistant placeholder,
// falling back to one buffered request if the stream fails at any point.
func (d *Driver) runStreaming(ctx context.Context, st *turnState) *Result {
	d.store.SetStreaming(true)
	defer d.store.SetStreaming(false)

	handle, err := d.client.Stream(ctx, api.Request{
		Message:        st.text,
		ConversationID: st.wireID,
		Credentials:    st.creds,
	})
	if err != nil {
		return d.fallback(ctx, st, err)
	}

	d.adoptServerID(st, handle.ConversationID)

	for {
		fragment, recvErr := handle.Recv()
		if recvErr == io.EOF {
			break
		}
		if recvErr != nil {
			return d.fallback(ctx, st, recvErr)
		}

		st.accumulated += fragment
		d.store.ReplaceAssistantMessage(st.conversationID, st.assistantID, st.accumulated)
		d.emitFragment(fragment)
	}

	content := st.accumulated
	if strings.TrimSpace(content) == "" {
		content = EmptyReplyNotice
		d.store.ReplaceAssistantMessage(st.conversationID, st.assistantID, content)
	}

	return &Result{
		ConversationID: st.conversationID,
		MessageID:      st.assistantID,
		Content:        content,
		Streamed:       true,
	}
}

// fallback retries a failed stream with one buffered request. If the retry
// also fails, the partial streamed text is preserved with the new failure
// reason appended.
func (d *Driver) fallback(ctx context.Context, st *turnState, streamErr error) *Result {
	resp, err := d.client.Send(ctx, api.Request{
		Message:        st.text,
		ConversationID: st.wireID,
		Credentials:    st.creds,
	})
	if err != nil {
		content := errorPrefix + errorMessage(err)
		if st.accumulated != "" {
			content = st.accumulated + fmt.Sprintf(continuationFormat, errorMessage(err))
		}
		d.store.ReplaceAssistantMessage(st.conversationID, st.assistantID, content)
		d.handleAuthFailure(streamErr, err)

		return &Result{
			ConversationID: st.conversationID,
			MessageID:      st.assistantID,
			Content:        content,
			Streamed:       true,
			Err:            err,
		}
	}

	d.adoptServerID(st, resp.ConversationID)

	content := resp.Content
	if strings.TrimSpace(content) == "" {
		content = EmptyReplyNotice
	}
	d.store.ReplaceAssistantMessage(st.conversationID, st.assistantID, content)

	return &Result{
		ConversationID: st.conversationID,
		MessageID:      st.assistantID,
		Content:        content,
		FellBack:       true,
	}
}

// =============================================================================
// BUFFERED TURN
// =============================================================================

// runBuffered performs a single non-streaming exchange.
func (d *Driver) runBuffered(ctx context.Context, st *turnState) *Result {
	resp, err := d.client.Send(ctx, api.Request{
		Message:        st.text,
		ConversationID: st.wireID,
		Credentials:    st.creds,
	})
	if err != nil {
		content := errorPrefix + errorMessage(err)
		d.store.ReplaceAssistantMessage(st.conversationID, st.assistantID, content)
		d.handleAuthFailure(err)

		return &Result{
			ConversationID: st.conversationID,
			MessageID:      st.assistantID,
			Content:        content,
			Err:            err,
		}
	}

	d.adoptServerID(st, resp.ConversationID)

	content := resp.Content
	if strings.TrimSpace(content) == "" {
		content = EmptyReplyNotice
	}
	d.store.ReplaceAssistantMessage(st.conversationID, st.assistantID, content)

	return &Result{
		ConversationID: st.conversationID,
		MessageID:      st.assistantID,
		Content:        content,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// adoptServerID migrates a draft conversation to the server-assigned id.
// A caller-supplied (non-draft) id is authoritative and never replaced.
func (d *Driver) adoptServerID(st *turnState, serverID string) {
	if !st.isDraft || serverID == "" || serverID == st.conversationID {
		return
	}
	d.store.ReplaceConversationID(st.conversationID, serverID)
	st.conversationID = serverID
}

func (d *Driver) emitFragment(delta string) {
	d.mu.Lock()
	fn := d.onFragment
	d.mu.Unlock()
	if fn != nil {
		fn(delta)
	}
}

// handleAuthFailure fires the auth-failure callback if any of the turn's
// errors was an invalid-credentials rejection.
func (d *Driver) handleAuthFailure(errs ...error) {
	for _, err := range errs {
		if errors.Is(err, api.ErrInvalidCredentials) {
			d.mu.Lock()
			fn := d.onAuthFailure
			d.mu.Unlock()
			if fn != nil {
				fn()
			}
			return
		}
	}
}

// errorMessage renders an error for display inside a conversation.
func errorMessage(err error) string {
	if err == nil {
		return "request failed"
	}
	return err.Error()
}
