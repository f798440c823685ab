// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/parley-tui/internal/sse"
)

// doneSentinel terminates a stream when received as a bare data value,
// outside the named-event mechanism.
const doneSentinel = "[DONE]"

// ConversationIDHeader carries the server-assigned conversation id on a
// streaming response.
const ConversationIDHeader = "Conversation-Id"

// =============================================================================
// STREAM HANDLE
// =============================================================================

// StreamHandle is an open streaming exchange.
//
// Fragments are pulled with Recv; the underlying connection is released
// exactly once on every exit path — normal completion, stream error, or an
// early Close. A handle is single-consumer and not safe for concurrent use.
type StreamHandle struct {
	// ConversationID is the id reported by the server for this turn, or the
	// caller-supplied id when the server sent no Conversation-Id header.
	ConversationID string

	body   io.ReadCloser
	events *sse.Reader
	cancel context.CancelFunc

	releaseOnce sync.Once
	finished    bool
}

// Recv returns the next content fragment.
//
// It returns io.EOF when the stream terminated normally (a "done" event or
// the [DONE] sentinel), or a classified error: *StreamError for in-band and
// mid-stream failures. After any non-nil error the connection is released
// and subsequent calls return io.EOF.
func (h *StreamHandle) Recv() (string, error) {
	if h.finished {
		return "", io.EOF
	}

	for {
		ev, err := h.events.Next()
		if err == io.EOF {
			// Stream ended without an explicit terminator; treat as done.
			h.finish()
			return "", io.EOF
		}
		if err != nil {
			h.finish()
			return "", &StreamError{Err: err}
		}

		fragment, done, err := interpret(ev)
		if err != nil {
			h.finish()
			return "", err
		}
		if done {
			h.finish()
			return "", io.EOF
		}
		if fragment != nil {
			return *fragment, nil
		}
	}
}

// Close releases the stream early. Safe to call multiple times and after
// the stream has already finished.
func (h *StreamHandle) Close() {
	h.finish()
}

// finish cancels the request context and closes the body exactly once.
func (h *StreamHandle) finish() {
	h.finished = true
	h.releaseOnce.Do(func() {
		h.cancel()
		h.body.Close()
	})
}

// =============================================================================
// EVENT INTERPRETATION
// =============================================================================

// eventPayload is the JSON body of an unnamed stream event.
type eventPayload struct {
	Content *string `json:"content"`
	Error   string  `json:"error"`
}

// interpret classifies one protocol event.
//
// It returns a content fragment, a terminal flag, or a fatal error. Events
// that carry nothing for the caller (comment-like frames, malformed
// payloads) return all zero values and the stream continues.
func interpret(ev *sse.Event) (fragment *string, done bool, err error) {
	data := ev.Data
	trimmed := strings.TrimSpace(data)

	if ev.Name == "done" || trimmed == doneSentinel {
		return nil, true, nil
	}

	if ev.Name == "error" {
		return nil, false, &StreamError{Reason: trimmed}
	}

	if ev.Name == "content" {
		// An empty content event is an intentional blank line.
		if data == "" {
			data = "\n"
		}
		return &data, false, nil
	}

	if trimmed == "" {
		return nil, false, nil
	}

	var payload eventPayload
	if jsonErr := json.Unmarshal([]byte(data), &payload); jsonErr != nil {
		// Malformed payloads are non-fatal; skip and keep streaming.
		log.Printf("WARN: skipping malformed stream payload: %v (raw: %.120q)", jsonErr, ev.Raw)
		return nil, false, nil
	}

	if payload.Error != "" {
		return nil, false, &StreamError{Reason: payload.Error}
	}

	if payload.Content != nil {
		return payload.Content, false, nil
	}

	return nil, false, nil
}

// =============================================================================
// STREAMING EXCHANGE
// =============================================================================

// Stream opens a streaming chat request.
//
// On success it returns immediately with the negotiated conversation id and
// a handle for draining fragments. The HTTP request is bound to a
// cancellation context created here; abandoning the handle via Close (or
// draining it to completion or error) releases the connection.
func (c *Client) Stream(ctx context.Context, req Request) (*StreamHandle, error) {
	ctx, cancel := context.WithCancel(ctx)

	httpReq, err := c.newRequest(ctx, req, true)
	if err != nil {
		cancel()
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	c.logRequest(httpReq)
	start := time.Now()
	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, &ConnectError{Err: err}
	}
	c.logResponse(resp, time.Since(start))

	if err := classifyStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		// Success status with nothing to read violates the streaming
		// contract.
		cancel()
		return nil, ErrNoStream
	}

	conversationID := resp.Header.Get(ConversationIDHeader)
	if conversationID == "" {
		conversationID = req.ConversationID
	}

	return &StreamHandle{
		ConversationID: conversationID,
		body:           resp.Body,
		events:         sse.NewReader(resp.Body),
		cancel:         cancel,
	}, nil
}
