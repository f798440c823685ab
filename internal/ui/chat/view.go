// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for the parley TUI.
//
// This file renders the chat layout: header, optional sidebar, transcript
// viewport, input line, and status bar.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

const sidebarWidth = 28

// View renders the chat interface.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Starting parley..."
	}

	header := m.renderHeader()
	body := m.renderBody()
	input := m.renderInput()
	status := m.renderStatusBar()

	sections := []string{header, body, input, status}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// LAYOUT MEASUREMENTS
// =============================================================================

// transcriptWidth returns the width available for the transcript viewport.
func (m Model) transcriptWidth() int {
	w := m.width
	if m.showSidebar {
		w -= sidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// transcriptHeight returns the height available for the transcript viewport.
func (m Model) transcriptHeight() int {
	// header, input, status bar
	h := m.height - 6
	if m.showHelp {
		h -= 6
	}
	if h < 5 {
		h = 5
	}
	return h
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("parley")
	sub := ""
	if m.serverLabel != "" {
		sub = m.theme.HeaderSubtitle.Render(" " + m.serverLabel)
	}
	user := ""
	if m.userLabel != "" {
		user = m.theme.HeaderSubtitle.Render(fmt.Sprintf(" (%s)", m.userLabel))
	}

	line := title + sub + user
	return lipgloss.NewStyle().
		Width(m.width).
		Background(styles.SurfaceDim).
		Padding(0, 1).
		Render(line)
}

// =============================================================================
// BODY: SIDEBAR + TRANSCRIPT
// =============================================================================

func (m Model) renderBody() string {
	transcript := m.viewport.View()
	if !m.showSidebar {
		return transcript
	}

	sidebar := m.renderSidebar()
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, transcript)
}

// renderSidebar lists the known conversations newest-first.
func (m Model) renderSidebar() string {
	list := m.session.store.ConversationList()
	active := m.session.store.ActiveConversationID()

	var b strings.Builder
	b.WriteString(m.theme.ConversationTitle.Render("Conversations"))
	b.WriteString("\n\n")

	if len(list) == 0 {
		b.WriteString(m.theme.ConversationMeta.Render("none yet"))
	}

	maxTitle := sidebarWidth - 8
	for _, meta := range list {
		title := meta.Title
		if runes := []rune(title); len(runes) > maxTitle {
			title = string(runes[:maxTitle]) + "..."
		}

		line := fmt.Sprintf("%s (%d)", title, meta.MessageCount)
		if model.IsDraftID(meta.ID) {
			line += " *"
		}

		if meta.ID == active {
			b.WriteString(m.theme.ConversationItemSelected.Render(line))
		} else {
			b.WriteString(m.theme.ConversationItem.Render(line))
		}
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(sidebarWidth).
		Height(m.transcriptHeight()).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		Render(b.String())
}

// refreshTranscript rebuilds viewport content from the active conversation.
// When follow is true the viewport snaps to the bottom afterwards.
func (m *Model) refreshTranscript(follow bool) {
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
}

// renderTranscript renders the active conversation as message bubbles.
func (m Model) renderTranscript() string {
	activeID := m.session.store.ActiveConversationID()
	conv, ok := m.session.store.SnapshotConversation(activeID)
	if !ok || conv.MessageCount() == 0 {
		return m.renderWelcome()
	}

	width := m.transcriptWidth()
	bubbleWidth := width - 8
	if bubbleWidth < 16 {
		bubbleWidth = 16
	}

	var parts []string
	for _, msg := range conv.Messages {
		parts = append(parts, m.renderBubble(msg, width, bubbleWidth))
	}

	return strings.Join(parts, "\n\n")
}

// renderBubble renders one message, user bubbles right-aligned.
func (m Model) renderBubble(msg *model.Message, width, bubbleWidth int) string {
	content := msg.Content
	if content == "" && m.state == StateStreaming {
		content = m.spinner.View() + " thinking..."
	}

	switch msg.Role {
	case model.RoleUser:
		bubble := m.theme.UserBubble.MaxWidth(bubbleWidth).Render(content)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble)
	case model.RoleAssistant:
		label := m.theme.ConversationMeta.Render(msg.Role.DisplayName())
		bubble := m.theme.AssistantBubble.MaxWidth(bubbleWidth).Render(content)
		return label + "\n" + bubble
	default:
		return m.theme.SystemBubble.MaxWidth(bubbleWidth).Render(content)
	}
}

// renderWelcome renders the empty-conversation placeholder.
func (m Model) renderWelcome() string {
	var b strings.Builder
	b.WriteString(m.theme.WelcomeLogo.Render("parley"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.WelcomeInfo.Render("Type a message and press Enter to start a conversation."))
	b.WriteString("\n")
	b.WriteString(m.theme.WelcomeInfo.Render("Press ") +
		m.theme.WelcomeKey.Render("Ctrl+H") +
		m.theme.WelcomeInfo.Render(" for keyboard shortcuts."))

	return lipgloss.Place(
		m.transcriptWidth(), m.transcriptHeight(),
		lipgloss.Center, lipgloss.Center,
		b.String(),
	)
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.state == StateStreaming:
		left = m.theme.StatusStreaming.Render(m.spinner.View() + " streaming")
	case m.session.driver.StreamEnabled():
		left = m.theme.StreamOn.Render("stream:on")
	default:
		left = m.theme.StreamOff.Render("stream:off")
	}

	middle := ""
	if m.statusMsg != "" {
		if m.statusIsErr {
			middle = m.theme.ErrorStyle.Render(" " + m.statusMsg)
		} else {
			middle = m.theme.InfoStyle.Render(" " + m.statusMsg)
		}
	}

	var hints []string
	for _, binding := range m.keyMap.ShortHelp() {
		hints = append(hints,
			m.theme.ShortcutKey.Render(binding.Help().Key)+
				m.theme.ShortcutDesc.Render(" "+binding.Help().Desc))
	}
	right := strings.Join(hints, "  ")

	bar := left + middle + "  " + right
	return m.theme.StatusBar.Width(m.width).Render(bar)
}

// renderHelp renders the full keyboard shortcut overlay.
func (m Model) renderHelp() string {
	var rows []string
	for _, group := range m.keyMap.FullHelp() {
		var cols []string
		for _, binding := range group {
			cols = append(cols,
				m.theme.ShortcutKey.Render(fmt.Sprintf("%-10s", binding.Help().Key))+
					m.theme.ShortcutDesc.Render(binding.Help().Desc))
		}
		rows = append(rows, strings.Join(cols, "   "))
	}

	return lipgloss.NewStyle().
		Width(m.width - 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		Render(strings.Join(rows, "\n"))
}
