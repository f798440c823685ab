// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for the parley TUI.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley-tui/internal/api"
	"github.com/jeranaias/parley-tui/internal/storage"
	"github.com/jeranaias/parley-tui/internal/turn"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // A turn is in flight
)

// =============================================================================
// SESSION
// =============================================================================

// session holds the mutable parts shared with the turn goroutine. Bubble Tea
// copies the Model on every update, so anything touched from another
// goroutine lives behind this pointer.
type session struct {
	store  *storage.ChatStore
	driver *turn.Driver
	creds  api.Credentials

	mu     sync.Mutex
	cancel context.CancelFunc
}

// setCancel stores the cancel func for the in-flight turn.
func (s *session) setCancel(fn context.CancelFunc) {
	s.mu.Lock()
	s.cancel = fn
	s.mu.Unlock()
}

// cancelTurn cancels the in-flight turn, if any.
func (s *session) cancelTurn() {
	s.mu.Lock()
	fn := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State
	state State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Shared session state
	session *session

	// Fragment batching for streamed replies
	streamingBuffer *StreamingBuffer

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Key bindings
	keyMap KeyMap

	// Display
	serverLabel string
	userLabel   string
	showSidebar bool
	showHelp    bool
	statusMsg   string
	statusIsErr bool

	// Tracking for the in-flight turn
	turnStart time.Time

	quitting bool
}

// New creates a new chat model bound to the given store and driver.
func New(theme *styles.Theme, store *storage.ChatStore, driver *turn.Driver, creds api.Credentials) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	// ASCII spinner frames at the streaming frame rate
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}
	sp.Style = theme.Spinner

	sb := NewStreamingBuffer()

	// Streamed fragments land in the batching buffer; the tick loop
	// re-renders the transcript from the store when a batch releases.
	driver.SetFragmentCallback(func(delta string) {
		sb.Write(delta)
	})

	return Model{
		state: StateReady,
		theme: theme,
		session: &session{
			store:  store,
			driver: driver,
			creds:  creds,
		},
		streamingBuffer: sb,
		viewport:        vp,
		input:           ti,
		spinner:         sp,
		keyMap:          DefaultKeyMap(),
		userLabel:       creds.Username,
		showSidebar:     true,
	}
}

// SetServerLabel sets the server address shown in the header.
func (m *Model) SetServerLabel(label string) {
	m.serverLabel = label
}

// Store exposes the chat store for the embedding program.
func (m Model) Store() *storage.ChatStore {
	return m.session.store
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}
