// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// A Conversation is an ordered message history with identity and timestamps.
// Conversation ids come in two flavors: provisional ids minted client-side
// with the "draft_" prefix before the server has assigned an identity, and
// final server-assigned ids. Messages are immutable once appended, except
// for the single case of a streaming assistant message being progressively
// rewritten in place while its turn is open.
package model
