// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for the parley TUI.
//
// This file contains the update loop: key handling, turn submission, and
// streamed-fragment rendering.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley-tui/internal/api"
	"github.com/jeranaias/parley-tui/internal/turn"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamTickMsg:
		return m.handleStreamTick()

	case TurnDoneMsg:
		return m.handleTurnDone(msg)

	case StatusClearMsg:
		m.statusMsg = ""
		m.statusIsErr = false
		return m, nil

	case spinner.TickMsg:
		if m.state == StateStreaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

// updateComponents forwards unhandled messages to the focused components.
func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// Narrow terminals lose the sidebar
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		m.showSidebar = false
	}

	m.viewport.Width = m.transcriptWidth()
	m.viewport.Height = m.transcriptHeight()
	m.input.Width = m.width - 6

	m.refreshTranscript(true)
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.session.cancelTurn()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.state == StateStreaming {
			m.session.cancelTurn()
			return m.setStatus("Cancelling...", false)
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keyMap.Sidebar):
		m.showSidebar = !m.showSidebar
		m.viewport.Width = m.transcriptWidth()
		m.refreshTranscript(false)
		return m, nil

	case key.Matches(msg, m.keyMap.NewConv):
		if m.state == StateStreaming {
			return m, nil
		}
		m.session.store.SetActiveConversationID("")
		m.refreshTranscript(true)
		return m.setStatus("New conversation", false)

	case key.Matches(msg, m.keyMap.NextConv):
		if m.state == StateStreaming {
			return m, nil
		}
		m.cycleConversation()
		m.refreshTranscript(true)
		return m, nil

	case key.Matches(msg, m.keyMap.ToggleStream):
		enabled := !m.session.driver.StreamEnabled()
		m.session.driver.SetStreamEnabled(enabled)
		if enabled {
			return m.setStatus("Streaming on", false)
		}
		return m.setStatus("Streaming off", false)

	case key.Matches(msg, m.keyMap.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	return m.updateComponents(msg)
}

// cycleConversation activates the next conversation in recency order.
func (m *Model) cycleConversation() {
	list := m.session.store.ConversationList()
	if len(list) == 0 {
		return
	}

	active := m.session.store.ActiveConversationID()
	next := list[0].ID
	for i, meta := range list {
		if meta.ID == active && i+1 < len(list) {
			next = list[i+1].ID
			break
		}
	}
	m.session.store.SetActiveConversationID(next)
	m.session.store.Touch(next)
}

// =============================================================================
// TURN SUBMISSION
// =============================================================================

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	m.input.Reset()
	m.streamingBuffer.Reset()
	m.state = StateStreaming
	m.turnStart = time.Now()
	m.statusMsg = ""
	m.statusIsErr = false

	ctx, cancel := context.WithCancel(context.Background())
	m.session.setCancel(cancel)

	sess := m.session
	submitCmd := func() tea.Msg {
		result, err := sess.driver.Submit(ctx, text, sess.creds)
		return TurnDoneMsg{Result: result, Err: err}
	}

	return m, tea.Batch(submitCmd, m.spinner.Tick, streamTickCmd())
}

// handleStreamTick re-renders the transcript when a fragment batch releases.
func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}

	if _, ok := m.streamingBuffer.Flush(); ok {
		m.refreshTranscript(true)
	}
	return m, streamTickCmd()
}

// handleTurnDone finalizes the view after a turn completes.
func (m Model) handleTurnDone(msg TurnDoneMsg) (tea.Model, tea.Cmd) {
	m.state = StateReady
	m.session.setCancel(nil)
	m.streamingBuffer.ForceFlush()
	m.refreshTranscript(true)
	m.input.Focus()

	if msg.Err != nil {
		if errors.Is(msg.Err, turn.ErrTurnInFlight) {
			return m.setStatus("A reply is already in progress", true)
		}
		return m.setStatus(msg.Err.Error(), true)
	}

	result := msg.Result
	switch {
	case result.Err != nil && errors.Is(result.Err, api.ErrInvalidCredentials):
		return m.setStatus("Credentials rejected. Restart with 'parley login'.", true)
	case result.Err != nil:
		return m.setStatus(fmt.Sprintf("Request failed: %v", result.Err), true)
	case result.FellBack:
		return m.setStatus("Stream interrupted, reply completed buffered", false)
	}

	return m, tea.Batch(textinput.Blink, statusClearCmd())
}

// =============================================================================
// STATUS
// =============================================================================

// setStatus shows a transient status line message.
func (m Model) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.statusMsg = text
	m.statusIsErr = isErr
	return m, statusClearCmd()
}

// statusClearCmd clears the status message after a short display period.
func statusClearCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return StatusClearMsg{}
	})
}
