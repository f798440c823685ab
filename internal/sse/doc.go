// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse parses server-sent-event streams into discrete protocol events.
//
// The proxy streams assistant replies as SSE frames:
//
//	event: content
//	data: Hello
//	<blank line>
//
// Reader consumes the response body incrementally and yields one Event per
// frame, tolerating arbitrary chunk boundaries, CRLF/CR line endings, and a
// missing trailing blank line at end of stream.
package sse
