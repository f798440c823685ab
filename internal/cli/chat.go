// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for parley CLI.
//
// Handles the "parley chat" command which provides an interactive REPL
// for conversing with the configured chat proxy.
//
// Command: chat
// Short:   Start an interactive chat session
//
// Examples:
//   parley chat                  Start interactive chat
//   parley chat --no-stream      Disable streaming for this session
//   parley chat --server URL     Talk to a different server
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new, /n            Start a new conversation
//   /list, /l           List conversations
//   /switch ID          Switch to a conversation
//   /stream [on|off]    Show or toggle streaming mode
//   /status, /s         Show session status
//   /export [md|json]   Export the active conversation
//   /clear              Forget all local conversations
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current reply
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/parley-tui/internal/api"
	"github.com/jeranaias/parley-tui/internal/config"
	"github.com/jeranaias/parley-tui/internal/export"
	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/storage"
	"github.com/jeranaias/parley-tui/internal/turn"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	// History file lives in the config directory
	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}

	cli.LoadHistory()

	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}

	return input, nil
}

// SaveHistory persists command history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	Config *config.Config
	Creds  api.Credentials
	Quiet  bool

	Store  *storage.ChatStore
	Driver *turn.Driver

	// Tracking
	StartTime   time.Time
	TurnCount   int
	StreamCount int
	FellBack    int
	Failed      int
	LoggedOut   bool

	// Cancel function for the in-flight turn
	CancelFunc context.CancelFunc

	// Input history handler
	InputCLI *ChatCLI
}

// NewChatSession creates a new chat session from parsed arguments.
func NewChatSession(args Args) *ChatSession {
	cfg := config.Global()

	baseURL := cfg.Server.BaseURL
	if args.Server != "" {
		baseURL = args.Server
	}

	client := api.NewClient(baseURL)
	store := storage.NewChatStore()
	driver := turn.NewDriver(store, client)

	streamEnabled := cfg.Chat.StreamEnabled
	if args.Stream {
		streamEnabled = true
	}
	if args.NoStream {
		streamEnabled = false
	}
	driver.SetStreamEnabled(streamEnabled)

	session := &ChatSession{
		Config:    cfg,
		Creds:     api.Credentials{Username: cfg.Auth.Username, Password: cfg.Auth.Password},
		Quiet:     args.Quiet,
		Store:     store,
		Driver:    driver,
		StartTime: time.Now(),
		InputCLI:  NewChatCLI(),
	}

	// Stream fragments print as they arrive
	driver.SetFragmentCallback(func(delta string) {
		fmt.Print(delta)
	})

	// Rejected credentials end the authenticated session
	driver.SetAuthFailureCallback(func() {
		session.LoggedOut = true
		session.Creds = api.Credentials{}
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, WarningStyle.Render("[Auth] Credentials rejected. Run 'parley login' to sign in again."))
	})

	return session
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand handles the "chat" command with full interactive support.
func HandleChatCommand(args Args) error {
	session := NewChatSession(args)

	if !session.Creds.IsSet() {
		return fmt.Errorf("no credentials configured. Run 'parley login' first")
	}

	if !session.Quiet {
		printWelcome(session)
	}

	defer session.InputCLI.Close()

	// First Ctrl+C cancels the in-flight turn
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for sig := range sigChan {
			if sig == os.Interrupt || sig == syscall.SIGTERM {
				if session.CancelFunc != nil {
					session.CancelFunc()
					session.CancelFunc = nil
					fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
				}
			}
		}
	}()

	for {
		input, err := session.InputCLI.ReadInput(PromptStyle.Render("parley> "))
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Println()
				printExitSummary(session)
				return nil
			}
			// EOF (Ctrl+D) or other error
			fmt.Println()
			printExitSummary(session)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(input, session)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !shouldContinue {
				printExitSummary(session)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(session)
			return nil
		}

		if session.LoggedOut {
			fmt.Fprintln(os.Stderr, WarningStyle.Render("[Auth] Not signed in. Run 'parley login' and restart chat."))
			continue
		}

		if err := processMessage(session, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage submits one turn and prints the reply.
func processMessage(session *ChatSession, input string) error {
	ctx, cancel := context.WithCancel(context.Background())
	session.CancelFunc = cancel
	defer func() {
		session.CancelFunc = nil
		cancel()
	}()

	startTime := time.Now()

	fmt.Println() // Space before response

	result, err := session.Driver.Submit(ctx, input, session.Creds)
	if err != nil {
		return err
	}

	// Streamed fragments were already printed by the fragment callback.
	// Buffered replies and fallback replacements print in full here.
	if !result.Streamed || result.FellBack || result.Err != nil {
		printBufferedReply(session, result)
	}

	fmt.Println()
	fmt.Println()

	session.TurnCount++
	if result.Streamed {
		session.StreamCount++
	}
	if result.FellBack {
		session.FellBack++
	}
	if result.Err != nil {
		session.Failed++
	}

	if !session.Quiet {
		showBriefStats(result, time.Since(startTime))
	}

	return nil
}

// printBufferedReply prints the assistant message as stored, clearing any
// partial streamed output line first.
func printBufferedReply(session *ChatSession, result *turn.Result) {
	if result.Streamed && result.Content != "" {
		// Partial fragments may already be on screen; start a clean line.
		fmt.Println()
	}
	fmt.Print(AssistantStyle.Render(result.Content))
}

// showBriefStats shows brief stats after a response.
func showBriefStats(result *turn.Result, duration time.Duration) {
	mode := "streamed"
	switch {
	case result.Err != nil:
		mode = ErrorStyle.Render("failed")
	case result.FellBack:
		mode = WarningStyle.Render("buffered fallback")
	case !result.Streamed:
		mode = "buffered"
	}

	fmt.Fprintf(os.Stderr, "%s %s | %s | %s\n",
		DimStyle.Render("[Turn]"),
		mode,
		shortID(result.ConversationID),
		duration.Round(time.Millisecond))
}

// shortID abbreviates a conversation id for display.
func shortID(id string) string {
	runes := []rune(id)
	if len(runes) > 12 {
		return string(runes[:12]) + "..."
	}
	return id
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func handleSlashCommand(cmd string, session *ChatSession) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?":
		printHelp()
		return true, nil

	case "/new", "/n":
		session.Store.SetActiveConversationID("")
		fmt.Println(CommandStyle.Render("[New conversation]"))
		return true, nil

	case "/list", "/l":
		printConversations(session)
		return true, nil

	case "/switch":
		return handleSwitchCommand(session, args)

	case "/stream":
		return handleStreamCommand(session, args)

	case "/status", "/s":
		printStatus(session)
		return true, nil

	case "/export":
		return handleExportCommand(session, args)

	case "/clear":
		session.Store.ClearAll()
		fmt.Println(CommandStyle.Render("[All conversations cleared]"))
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	case "/":
		printHelp()
		return true, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// handleSwitchCommand handles the /switch command.
func handleSwitchCommand(session *ChatSession, args []string) (bool, error) {
	if len(args) == 0 {
		return true, fmt.Errorf("usage: /switch CONVERSATION_ID")
	}

	id := args[0]
	if _, ok := session.Store.Conversation(id); !ok {
		return true, fmt.Errorf("unknown conversation: %s (see /list)", id)
	}

	session.Store.SetActiveConversationID(id)
	session.Store.Touch(id)
	fmt.Printf("%s Switched to %s\n", CommandStyle.Render("[OK]"), shortID(id))
	return true, nil
}

// handleExportCommand handles the /export command.
func handleExportCommand(session *ChatSession, args []string) (bool, error) {
	activeID := session.Store.ActiveConversationID()
	conv, ok := session.Store.SnapshotConversation(activeID)
	if !ok || conv.MessageCount() == 0 {
		return true, fmt.Errorf("nothing to export yet")
	}

	format := ""
	if len(args) > 0 {
		format = args[0]
	}

	opts := export.DefaultOptions()
	exporter, err := export.ByFormat(format, opts)
	if err != nil {
		return true, err
	}

	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		return true, err
	}

	fmt.Printf("%s Exported to %s\n", CommandStyle.Render("[OK]"), ValueStyle.Render(path))
	return true, nil
}

// handleStreamCommand handles the /stream command.
func handleStreamCommand(session *ChatSession, args []string) (bool, error) {
	if len(args) == 0 {
		state := "off"
		if session.Driver.StreamEnabled() {
			state = "on"
		}
		fmt.Printf("%s Streaming is %s\n", DimStyle.Render("[Stream]"), CommandStyle.Render(state))
		return true, nil
	}

	enabled, err := ParseBoolString(args[0])
	if err != nil {
		return true, fmt.Errorf("usage: /stream [on|off]")
	}

	session.Driver.SetStreamEnabled(enabled)
	state := "off"
	if enabled {
		state = "on"
	}
	fmt.Printf("%s Streaming turned %s\n", CommandStyle.Render("[OK]"), state)
	return true, nil
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printWelcome prints the welcome banner.
func printWelcome(session *ChatSession) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("parley interactive chat"))
	fmt.Println(DimStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		LabelStyle.Render("Server:"),
		ValueStyle.Render(session.Config.Server.BaseURL))
	fmt.Printf("%s %s\n",
		LabelStyle.Render("User:"),
		ValueStyle.Render(session.Config.Auth.Username))

	if session.Driver.StreamEnabled() {
		fmt.Printf("%s %s\n",
			LabelStyle.Render("Mode:"),
			SuccessStyle.Render("Streaming (buffered fallback)"))
	} else {
		fmt.Printf("%s %s\n",
			LabelStyle.Render("Mode:"),
			WarningStyle.Render("Buffered only"))
	}

	fmt.Println()
	fmt.Println(DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printHelp prints available commands.
func printHelp() {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Available Commands"))
	fmt.Println(DimStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/new, /n", "Start a new conversation"},
		{"/list, /l", "List conversations"},
		{"/switch ID", "Switch to a conversation"},
		{"/stream [on|off]", "Show or toggle streaming mode"},
		{"/status, /s", "Show session status"},
		{"/export [md|json]", "Export the active conversation"},
		{"/clear", "Forget all local conversations"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			CommandStyle.Render(fmt.Sprintf("%-18s", c.cmd)),
			DimStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(DimStyle.Render("Tip: Ctrl+C cancels the current reply, Ctrl+D exits"))
	fmt.Println()
}

// printConversations lists the locally known conversations, newest first.
func printConversations(session *ChatSession) {
	list := session.Store.ConversationList()
	if len(list) == 0 {
		fmt.Println(DimStyle.Render("[No conversations yet]"))
		return
	}

	active := session.Store.ActiveConversationID()

	fmt.Println()
	fmt.Println(TitleStyle.Render("Conversations"))
	fmt.Println(DimStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	for i, meta := range list {
		marker := "  "
		if meta.ID == active {
			marker = CommandStyle.Render("* ")
		}

		title := meta.Title
		if model.IsDraftID(meta.ID) {
			title += DimStyle.Render(" (unsynced)")
		}

		fmt.Printf("%s%d. %s %s %s\n",
			marker,
			i+1,
			ValueStyle.Render(title),
			DimStyle.Render(shortID(meta.ID)),
			DimStyle.Render(fmt.Sprintf("(%d messages)", meta.MessageCount)))
	}

	fmt.Println()
}

// printStatus prints session status.
func printStatus(session *ChatSession) {
	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(TitleStyle.Render("Session Status"))
	fmt.Println(DimStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	fmt.Printf("  %s %s\n",
		LabelStyle.Render("Server:"),
		ValueStyle.Render(session.Config.Server.BaseURL))
	fmt.Printf("  %s %s\n",
		LabelStyle.Render("Duration:"),
		elapsed.String())
	fmt.Printf("  %s %d\n",
		LabelStyle.Render("Conversations:"),
		session.Store.Len())

	stream := "off"
	if session.Driver.StreamEnabled() {
		stream = "on"
	}
	fmt.Printf("  %s %s\n",
		LabelStyle.Render("Streaming:"),
		ValueStyle.Render(stream))

	fmt.Println()
	fmt.Println(DimStyle.Render("Turns:"))
	fmt.Printf("  %s %d (%d streamed, %d fell back, %d failed)\n",
		LabelStyle.Render("Total:"),
		session.TurnCount,
		session.StreamCount,
		session.FellBack,
		session.Failed)

	fmt.Println()
}

// printExitSummary prints the session summary on exit.
func printExitSummary(session *ChatSession) {
	if session.TurnCount == 0 {
		fmt.Println(DimStyle.Render("Goodbye!"))
		return
	}

	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(TitleStyle.Render("Session Summary"))
	fmt.Println(DimStyle.Render(strings.Repeat("─", 15)))

	fmt.Printf("  %s %d (%d streamed, %d fell back, %d failed)\n",
		LabelStyle.Render("Turns:"),
		session.TurnCount,
		session.StreamCount,
		session.FellBack,
		session.Failed)
	fmt.Printf("  %s %d\n",
		LabelStyle.Render("Conversations:"),
		session.Store.Len())
	fmt.Printf("  %s %s\n",
		LabelStyle.Render("Duration:"),
		elapsed.String())

	fmt.Println()
	fmt.Println(DimStyle.Render("Goodbye!"))
}
