// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea chat view for the parley TUI.

The view renders the active conversation from the shared chat store and
submits turns through the turn driver. Streamed reply fragments arrive on
an internal event channel and are batched by a StreamingBuffer before the
viewport re-renders, capping redraw frequency during fast streams.

Layout:

	header (server, user)
	[sidebar] conversation transcript (viewport)
	input (textinput)
	status bar (mode, state, shortcuts)

The sidebar lists known conversations newest-first and can be toggled with
Ctrl+B. Ctrl+N starts a new conversation, Tab cycles through existing ones,
and Esc cancels an in-flight reply.
*/
package chat
