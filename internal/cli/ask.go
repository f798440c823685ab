// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command for parley.
//
// Command: ask
// Short:   Ask a single question and print the reply
//
// Examples:
//   parley ask "how do I revert a commit?"
//   parley ask --json "what is a goroutine?"
//   echo "question" | parley ask
//
// The reply is requested buffered; there is no streaming and no follow-up
// context. Each invocation starts a fresh conversation on the server.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jeranaias/parley-tui/internal/api"
	"github.com/jeranaias/parley-tui/internal/config"
	"github.com/jeranaias/parley-tui/internal/storage"
	"github.com/jeranaias/parley-tui/internal/turn"
)

// askReport is the JSON shape of "parley ask --json".
type askReport struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) error {
	query := strings.TrimSpace(args.Query)

	// Fall back to stdin when no query was given on the command line
	if query == "" && !IsTTY() {
		scanner := bufio.NewScanner(os.Stdin)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		query = strings.TrimSpace(strings.Join(lines, "\n"))
	}
	if query == "" {
		return fmt.Errorf("usage: parley ask \"your question\"")
	}

	cfg := config.Global()
	creds := api.Credentials{Username: cfg.Auth.Username, Password: cfg.Auth.Password}
	if !creds.IsSet() {
		return fmt.Errorf("no credentials configured. Run 'parley login' first")
	}

	baseURL := cfg.Server.BaseURL
	if args.Server != "" {
		baseURL = args.Server
	}

	store := storage.NewChatStore()
	driver := turn.NewDriver(store, api.NewClient(baseURL))
	driver.SetStreamEnabled(false)

	// Ctrl+C aborts the request
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	result, err := driver.Submit(ctx, query, creds)
	if err != nil {
		return err
	}
	if result.Err != nil {
		return result.Err
	}

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(askReport{
			ConversationID: result.ConversationID,
			Content:        result.Content,
		})
	}

	fmt.Println(result.Content)
	return nil
}
