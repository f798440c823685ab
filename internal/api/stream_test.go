// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeranaias/parley-tui/internal/sse"
)

// sseEvent builds a protocol event for interpreter tests.
func sseEvent(name, data string) *sse.Event {
	return &sse.Event{Name: name, Data: data, Raw: data}
}

// streamServer serves a fixed SSE body with the given Conversation-Id header.
func streamServer(conversationID, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		if conversationID != "" {
			w.Header().Set(ConversationIDHeader, conversationID)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
}

// drain collects all fragments until the terminal condition.
func drain(t *testing.T, h *StreamHandle) ([]string, error) {
	t.Helper()
	var fragments []string
	for {
		fragment, err := h.Recv()
		if err == io.EOF {
			return fragments, nil
		}
		if err != nil {
			return fragments, err
		}
		fragments = append(fragments, fragment)
	}
}

// =============================================================================
// STREAMING EXCHANGE TESTS
// =============================================================================

func TestStream_ContentEventsAndDone(t *testing.T) {
	server := streamServer("conv_42",
		"event: content\ndata: Hi\n\n"+
			"event: content\ndata:  there\n\n"+
			"event: done\ndata: \n\n")
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{
		Message:     "Hello",
		Credentials: testCreds,
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if handle.ConversationID != "conv_42" {
		t.Errorf("ConversationID = %q, want conv_42", handle.ConversationID)
	}

	fragments, err := drain(t, handle)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(fragments) != 2 || fragments[0] != "Hi" || fragments[1] != " there" {
		t.Errorf("fragments = %q, want [Hi,  there]", fragments)
	}
}

func TestStream_RequestShape(t *testing.T) {
	var gotAccept, gotCache string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotCache = r.Header.Get("Cache-Control")
		w.Write([]byte("event: done\n\n"))
	}))
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	handle.Close()

	if gotAccept != "text/event-stream" {
		t.Errorf("Accept = %q, want text/event-stream", gotAccept)
	}
	if gotCache != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", gotCache)
	}
}

func TestStream_DoneSentinelTerminates(t *testing.T) {
	server := streamServer("conv_1",
		"data: {\"content\":\"partial\"}\n\ndata: [DONE]\n\ndata: {\"content\":\"after\"}\n\n")
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	fragments, err := drain(t, handle)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "partial" {
		t.Errorf("fragments = %q, want [partial]", fragments)
	}
}

func TestStream_EmptyContentEventYieldsNewline(t *testing.T) {
	server := streamServer("conv_1", "event: content\ndata: \n\nevent: done\n\n")
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	fragments, err := drain(t, handle)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "\n" {
		t.Errorf("fragments = %q, want [\"\\n\"]", fragments)
	}
}

func TestStream_FallsBackToCallerConversationID(t *testing.T) {
	server := streamServer("", "event: done\n\n")
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{
		Message:        "x",
		ConversationID: "conv_mine",
		Credentials:    testCreds,
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer handle.Close()

	if handle.ConversationID != "conv_mine" {
		t.Errorf("ConversationID = %q, want conv_mine", handle.ConversationID)
	}
}

func TestStream_EndsWithoutTerminator(t *testing.T) {
	// Connection closes with no done event; the stream ends normally.
	server := streamServer("conv_1", "event: content\ndata: tail\n\n")
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	fragments, err := drain(t, handle)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "tail" {
		t.Errorf("fragments = %q, want [tail]", fragments)
	}
}

// =============================================================================
// IN-BAND ERROR TESTS
// =============================================================================

func TestStream_ErrorEvent(t *testing.T) {
	server := streamServer("conv_1",
		"event: content\ndata: Partial\n\nevent: error\ndata: model overloaded\n\n")
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	fragments, err := drain(t, handle)

	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("err = %v, want *StreamError", err)
	}
	if streamErr.Error() != "model overloaded" {
		t.Errorf("error = %q, want %q", streamErr.Error(), "model overloaded")
	}
	if len(fragments) != 1 || fragments[0] != "Partial" {
		t.Errorf("fragments before error = %q, want [Partial]", fragments)
	}
}

func TestStream_EmptyErrorEventUsesGenericMessage(t *testing.T) {
	server := streamServer("conv_1", "event: error\ndata: \n\n")
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	_, err = drain(t, handle)
	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("err = %v, want *StreamError", err)
	}
	if streamErr.Error() == "" {
		t.Error("expected a generic non-empty error message")
	}
}

func TestStream_PayloadErrorField(t *testing.T) {
	server := streamServer("conv_1", "data: {\"error\":\"quota exceeded\"}\n\n")
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	_, err = drain(t, handle)
	var streamErr *StreamError
	if !errors.As(err, &streamErr) || streamErr.Error() != "quota exceeded" {
		t.Fatalf("err = %v, want stream error %q", err, "quota exceeded")
	}
}

func TestStream_MalformedPayloadSkipped(t *testing.T) {
	server := streamServer("conv_1",
		"data: {broken json\n\ndata: {\"content\":\"ok\"}\n\nevent: done\n\n")
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	fragments, err := drain(t, handle)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "ok" {
		t.Errorf("fragments = %q, want [ok]", fragments)
	}
}

// =============================================================================
// STATUS CLASSIFICATION TESTS
// =============================================================================

func TestStream_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestStream_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})

	var srvErr *ServerError
	if !errors.As(err, &srvErr) || srvErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want *ServerError{503}", err)
	}
}

func TestStream_ConnectivityError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})

	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want *ConnectError", err)
	}
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestStreamHandle_CloseIsIdempotent(t *testing.T) {
	server := streamServer("conv_1", "event: content\ndata: x\n\n")
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	handle.Close()
	handle.Close() // must not panic or error

	if _, err := handle.Recv(); err != io.EOF {
		t.Errorf("Recv after Close = %v, want io.EOF", err)
	}
}

func TestStreamHandle_CloseAfterNormalCompletion(t *testing.T) {
	server := streamServer("conv_1", "event: done\n\n")
	defer server.Close()

	handle, err := NewClient(server.URL).Stream(context.Background(), Request{Message: "x", Credentials: testCreds})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if _, err := drain(t, handle); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	handle.Close() // cancelling after normal completion must be a no-op
}

// =============================================================================
// INTERPRETER UNIT TESTS
// =============================================================================

func TestInterpret_DoneVariants(t *testing.T) {
	for _, ev := range []struct {
		name, data string
	}{
		{"done", ""},
		{"done", "anything"},
		{"message", "[DONE]"},
		{"message", "  [DONE]  "},
	} {
		_, done, err := interpret(sseEvent(ev.name, ev.data))
		if err != nil || !done {
			t.Errorf("interpret(%q, %q) = done=%v err=%v, want done", ev.name, ev.data, done, err)
		}
	}
}

func TestInterpret_EmptyUnnamedEventSkipped(t *testing.T) {
	fragment, done, err := interpret(sseEvent("message", "  "))
	if fragment != nil || done || err != nil {
		t.Errorf("blank unnamed event should be skipped, got %v/%v/%v", fragment, done, err)
	}
}

func TestInterpret_PayloadContent(t *testing.T) {
	fragment, done, err := interpret(sseEvent("message", `{"content":"hi"}`))
	if err != nil || done || fragment == nil || *fragment != "hi" {
		t.Errorf("got %v/%v/%v, want fragment hi", fragment, done, err)
	}

	// A payload with neither field is silently skipped.
	fragment, done, err = interpret(sseEvent("message", `{"other":1}`))
	if fragment != nil || done || err != nil {
		t.Errorf("payload without content/error should be skipped, got %v/%v/%v", fragment, done, err)
	}
}
