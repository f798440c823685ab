// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Configuration constants for the proxy API.
const (
	// RequestPath is the chat endpoint path under the base URL.
	RequestPath = "/api/v1/request"

	// DefaultTimeout is the default timeout for buffered requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps buffered response bodies.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

var (
	// Shared HTTP client with connection pooling for buffered requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests. No timeout:
	// the stream lifetime is controlled via the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// Credentials carries the HTTP Basic auth pair for one request. The value is
// owned by the caller and supplied per request; the client never stores it.
type Credentials struct {
	Username string
	Password string
}

// header renders the Authorization header value.
func (c Credentials) header() string {
	token := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
	return "Basic " + token
}

// IsSet reports whether both fields are non-empty.
func (c Credentials) IsSet() bool {
	return c.Username != "" && c.Password != ""
}

// Request describes one chat turn to submit.
type Request struct {
	// Message is the user's message text.
	Message string

	// ConversationID identifies the conversation on the server. Empty means
	// the server should start a new conversation and assign an id.
	ConversationID string

	// Credentials authenticate the request.
	Credentials Credentials
}

// Response is the buffered reply for one turn.
type Response struct {
	// ConversationID is the server's id for the conversation, which may
	// differ from the one supplied (notably when none was supplied).
	ConversationID string
	Content        string
}

// wireRequest is the JSON body sent to the proxy.
type wireRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
	Stream         bool    `json:"stream"`
}

// wireResponse is the JSON body of a buffered reply.
type wireResponse struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the parley chat proxy.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	userAgent    string
}

// NewClient creates a client for the proxy at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
		userAgent:    "parley/0.3.0",
	}
}

// WithBaseURL sets a custom base URL.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithHTTPClient overrides the client used for buffered requests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithStreamClient overrides the client used for streaming requests.
func (c *Client) WithStreamClient(hc *http.Client) *Client {
	c.streamClient = hc
	return c
}

// Endpoint returns the full chat endpoint URL.
func (c *Client) Endpoint() string {
	return c.baseURL + RequestPath
}

// =============================================================================
// BUFFERED EXCHANGE
// =============================================================================

// Send performs a single buffered chat request and returns the full reply.
//
// The server may assign a conversation id different from the one supplied;
// the returned Response always carries the server's id.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req, false)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logRequest(httpReq)
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ConnectError{Err: err}
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &Response{
		ConversationID: wire.ConversationID,
		Content:        wire.Content,
	}, nil
}

// =============================================================================
// REQUEST CONSTRUCTION
// =============================================================================

// newRequest builds the POST request shared by both modes.
func (c *Client) newRequest(ctx context.Context, req Request, stream bool) (*http.Request, error) {
	wire := wireRequest{
		Message: req.Message,
		Stream:  stream,
	}
	if req.ConversationID != "" {
		id := req.ConversationID
		wire.ConversationID = &id
	}

	bodyBytes, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", req.Credentials.header())
	httpReq.Header.Set("User-Agent", c.userAgent)

	return httpReq, nil
}

// classifyStatus maps a non-success status to the client error taxonomy.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrInvalidCredentials
	case status < 200 || status > 299:
		return &ServerError{Status: status}
	default:
		return nil
	}
}

// readBody reads a buffered response body with a size cap.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// =============================================================================
// LOGGING
// =============================================================================

// logRequest logs an API request. Headers and body are never logged: the
// header carries credentials, the body carries user text.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs status and duration only.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}
