// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// login.go - Login and logout command handlers for parley.
//
// Command: login
// Short:   Save login credentials to the config file
//
// Command: logout
// Short:   Clear saved credentials
//
// Examples:
//   parley login                  Prompt for username and password
//   parley login --server URL    Also set the server base URL
//   parley logout                 Remove stored credentials
//
// Credentials are stored in ~/.parley/config.toml with 0600 permissions.
// PARLEY_USERNAME and PARLEY_PASSWORD override the stored pair at runtime.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/parley-tui/internal/config"
)

// HandleLogin prompts for credentials and saves them to the config file.
func HandleLogin(args Args) error {
	if err := RequiresTTY("login"); err != nil {
		return err
	}

	cfg := config.Global()

	if args.Server != "" {
		cfg.Server.BaseURL = args.Server
	}

	fmt.Println(TitleStyle.Render("parley login"))
	fmt.Printf("%s %s\n\n",
		LabelStyle.Render("Server:"),
		ValueStyle.Render(cfg.Server.BaseURL))

	// Username with echo
	fmt.Print("Username: ")
	reader := bufio.NewReader(os.Stdin)
	username, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading username: %w", err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username must not be empty")
	}

	// Password without echo
	fmt.Print("Password: ")
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password := string(passBytes)
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	cfg.Auth.Username = username
	cfg.Auth.Password = password

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	config.SetGlobal(cfg)

	fmt.Println()
	fmt.Println(SuccessStyle.Render("[OK]") + " Credentials saved for " + ValueStyle.Render(username))
	return nil
}

// HandleLogout clears stored credentials from the config file.
func HandleLogout(args Args) error {
	cfg := config.Global()

	if cfg.Auth.Username == "" && cfg.Auth.Password == "" {
		fmt.Println(DimStyle.Render("No credentials stored."))
		return nil
	}

	user := cfg.Auth.Username
	cfg.Auth.Username = ""
	cfg.Auth.Password = ""

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	config.SetGlobal(cfg)

	fmt.Println(SuccessStyle.Render("[OK]") + " Logged out " + ValueStyle.Render(user))
	return nil
}
