// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

var testCreds = Credentials{Username: "alice", Password: "s3cret"}

// =============================================================================
// BUFFERED REQUEST TESTS
// =============================================================================

func TestSend_Success(t *testing.T) {
	var gotBody map[string]any
	var gotAuth, gotAccept string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content": "Hi there", "conversation_id": "conv_42"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Send(context.Background(), Request{
		Message:        "Hello",
		ConversationID: "conv_42",
		Credentials:    testCreds,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if resp.Content != "Hi there" {
		t.Errorf("Content = %q, want %q", resp.Content, "Hi there")
	}
	if resp.ConversationID != "conv_42" {
		t.Errorf("ConversationID = %q, want conv_42", resp.ConversationID)
	}

	// base64("alice:s3cret")
	if gotAuth != "Basic YWxpY2U6czNjcmV0" {
		t.Errorf("Authorization = %q, want Basic YWxpY2U6czNjcmV0", gotAuth)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
	if gotBody["message"] != "Hello" {
		t.Errorf("body message = %v, want Hello", gotBody["message"])
	}
	if gotBody["conversation_id"] != "conv_42" {
		t.Errorf("body conversation_id = %v, want conv_42", gotBody["conversation_id"])
	}
	if gotBody["stream"] != false {
		t.Errorf("body stream = %v, want false", gotBody["stream"])
	}
}

func TestSend_NoConversationIDSendsNull(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.Write([]byte(`{"content": "ok", "conversation_id": "conv_new"}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Send(context.Background(), Request{
		Message:     "Hello",
		Credentials: testCreds,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if v, present := gotBody["conversation_id"]; !present || v != nil {
		t.Errorf("body conversation_id = %v (present=%v), want explicit null", v, present)
	}
	if resp.ConversationID != "conv_new" {
		t.Errorf("ConversationID = %q, want conv_new", resp.ConversationID)
	}
}

func TestSend_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Send(context.Background(), Request{Message: "x", Credentials: testCreds})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSend_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Send(context.Background(), Request{Message: "x", Credentials: testCreds})

	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("err = %v, want *ServerError", err)
	}
	if srvErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want %d", srvErr.Status, http.StatusBadGateway)
	}
}

func TestSend_ConnectivityError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	_, err := NewClient(server.URL).Send(context.Background(), Request{Message: "x", Credentials: testCreds})

	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want *ConnectError", err)
	}
}

func TestSend_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Send(context.Background(), Request{Message: "x", Credentials: testCreds})
	if err == nil {
		t.Fatal("expected error for malformed response body")
	}
}

// =============================================================================
// CREDENTIALS TESTS
// =============================================================================

func TestCredentials_IsSet(t *testing.T) {
	if (Credentials{}).IsSet() {
		t.Error("empty credentials should not be set")
	}
	if (Credentials{Username: "a"}).IsSet() {
		t.Error("credentials without password should not be set")
	}
	if !testCreds.IsSet() {
		t.Error("full credentials should be set")
	}
}
