// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for the parley TUI.
//
// This file defines the Bubble Tea messages exchanged between the turn
// goroutine and the update loop.
package chat

import (
	"github.com/jeranaias/parley-tui/internal/turn"
)

// TurnDoneMsg is delivered when a submitted turn finishes, successfully
// or not. Result carries the stored assistant content and failure detail.
type TurnDoneMsg struct {
	Result *turn.Result
	Err    error
}

// StatusClearMsg clears a temporary status message after its display time.
type StatusClearMsg struct{}
