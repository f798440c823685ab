// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the parley chat proxy.
//
// The proxy exposes a single POST endpoint that answers either with a
// buffered JSON body or with an SSE stream of content fragments, selected by
// the "stream" request field. Client covers both modes:
//
//	client := api.NewClient("http://127.0.0.1:8000")
//	resp, err := client.Send(ctx, api.Request{Message: "hi", Credentials: creds})
//
//	handle, err := client.Stream(ctx, api.Request{Message: "hi", Credentials: creds})
//	for {
//		fragment, err := handle.Recv()
//		...
//	}
//
// Errors are classified so callers can react: ErrInvalidCredentials forces a
// logout, *ServerError carries the HTTP status, *ConnectError marks transport
// failure, ErrNoStream marks a violated streaming contract, and *StreamError
// is an in-band failure of the current stream (eligible for a buffered
// fallback). The client itself never retries.
package api
