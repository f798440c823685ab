// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// configcmd.go - Config command implementation for parley.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display current configuration
//   get <key>           Print a single value
//   set <key> <value>   Set a configuration value and save
//   list                List all configuration keys
//   path                Show configuration file path
//
// Examples:
//   parley config                               Show current config
//   parley config get server.base_url
//   parley config set server.base_url http://10.0.0.5:8080
//   parley config set chat.stream_enabled false
//   parley config set ui.theme light
//   parley config path
//
// Passwords are never printed; "config show" redacts auth.password.
package cli

import (
	"fmt"

	"github.com/jeranaias/parley-tui/internal/config"
)

// HandleConfigCommand handles the "config" command and its subcommands.
func HandleConfigCommand(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow()
	case "get":
		return configGet(args.ConfigKey)
	case "set":
		return configSet(args.ConfigKey, args.ConfigVal)
	case "list", "keys":
		return configList()
	case "path":
		return configPath()
	default:
		return fmt.Errorf("unknown config subcommand: %s (use show, get, set, list, path)", args.Subcommand)
	}
}

// configShow prints the full configuration with secrets redacted.
func configShow() error {
	cfg := config.Global()

	fmt.Println(TitleStyle.Render("parley configuration"))
	fmt.Println(RenderSeparator())

	for _, key := range config.GetAllKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}

		display := fmt.Sprintf("%v", value)
		if key == "auth.password" {
			if display != "" {
				display = "[REDACTED]"
			}
			fmt.Printf("%s %s\n",
				LabelStyle.Render(key),
				DimStyle.Render(display))
			continue
		}

		fmt.Printf("%s %s\n",
			LabelStyle.Render(key),
			ValueStyle.Render(display))
	}

	if path, err := config.ConfigPath(); err == nil {
		fmt.Println()
		fmt.Printf("%s %s\n",
			LabelStyle.Render("File:"),
			DimStyle.Render(path))
	}

	return nil
}

// configGet prints one configuration value.
func configGet(key string) error {
	if key == "" {
		return fmt.Errorf("usage: parley config get KEY")
	}

	cfg := config.Global()
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}

	if key == "auth.password" {
		return fmt.Errorf("auth.password is not readable; use 'parley login' to change it")
	}

	fmt.Printf("%v\n", value)
	return nil
}

// configSet updates one configuration value and saves the file.
func configSet(key, value string) error {
	if key == "" || value == "" {
		return fmt.Errorf("usage: parley config set KEY VALUE")
	}

	cfg := config.Global()
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	config.SetGlobal(cfg)

	fmt.Println(SuccessStyle.Render("[OK]") + fmt.Sprintf(" %s = %s", key, value))
	return nil
}

// configList prints all known configuration keys.
func configList() error {
	fmt.Println(TitleStyle.Render("Configuration keys"))
	for _, key := range config.GetAllKeys() {
		fmt.Println("  " + ValueStyle.Render(key))
	}
	return nil
}

// configPath prints the config file location.
func configPath() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
