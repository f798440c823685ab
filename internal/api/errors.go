// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
)

// Error variables for common proxy client errors.
var (
	// ErrInvalidCredentials indicates the proxy rejected the Basic auth
	// header (HTTP 401). Callers must force a re-login on this error.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNoStream indicates the proxy reported success but did not open a
	// readable event stream.
	ErrNoStream = errors.New("server did not open an event stream")
)

// ServerError is a non-success HTTP status other than 401.
type ServerError struct {
	Status int
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned error: %d", e.Status)
}

// ConnectError is a transport-level failure before any response was
// received (host unreachable, DNS failure, refused connection).
type ConnectError struct {
	Err error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return "cannot reach server: " + e.Err.Error()
}

// Unwrap returns the underlying transport error.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// StreamError is a fatal in-band failure of an open stream: an explicit
// "error" event, an error field in an event payload, or a broken connection
// mid-stream. It ends the current stream only; callers may fall back to a
// buffered request for the same message.
type StreamError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return "stream failed: " + e.Err.Error()
	}
	return "stream ended with an error"
}

// Unwrap returns the underlying error, if any.
func (e *StreamError) Unwrap() error {
	return e.Err
}
