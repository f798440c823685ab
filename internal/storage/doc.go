// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage holds the in-memory conversation state for one session.
//
// ChatStore is the single authority over conversations: a map of full
// bodies plus a recency-ordered id index, and the session cursors (active
// conversation, streaming flag). Summaries for list views are derived from
// the map on demand, never maintained separately. Nothing is persisted;
// state lives only for the lifetime of the process and is wiped on logout.
package storage
