// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command implementation for parley.
//
// Command: status
// Short:   Display connection and configuration status
// Aliases: s
//
// Examples:
//   parley status                 Show status
//   parley s                      Show status (short alias)
//   parley status --json          Status in JSON format
//
// Status Sections:
//   Server:   Configured base URL and reachability
//   Auth:     Whether credentials are stored
//   Chat:     Streaming mode, notification setting
//   Config:   Config file path
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jeranaias/parley-tui/internal/config"
)

// statusReport is the JSON shape of "parley status --json".
type statusReport struct {
	Server     string `json:"server"`
	Reachable  bool   `json:"reachable"`
	Username   string `json:"username,omitempty"`
	LoggedIn   bool   `json:"logged_in"`
	Streaming  bool   `json:"streaming"`
	ConfigPath string `json:"config_path,omitempty"`
	Version    string `json:"version"`
}

// HandleStatus handles the "status" command.
func HandleStatus(args Args) error {
	cfg := config.Global()

	baseURL := cfg.Server.BaseURL
	if args.Server != "" {
		baseURL = args.Server
	}

	report := statusReport{
		Server:    baseURL,
		Username:  cfg.Auth.Username,
		LoggedIn:  cfg.Auth.Username != "" && cfg.Auth.Password != "",
		Streaming: cfg.Chat.StreamEnabled,
		Version:   Version,
	}
	if path, err := config.ConfigPath(); err == nil {
		report.ConfigPath = path
	}
	report.Reachable = probeServer(baseURL)

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Println(TitleStyle.Render("parley status"))
	fmt.Println(RenderSeparator())

	fmt.Printf("%s %s\n",
		LabelStyle.Render("Server:"),
		ValueStyle.Render(report.Server))

	if report.Reachable {
		fmt.Printf("%s %s\n",
			LabelStyle.Render("Connection:"),
			SuccessStyle.Render("reachable"))
	} else {
		fmt.Printf("%s %s\n",
			LabelStyle.Render("Connection:"),
			ErrorStyle.Render("unreachable"))
	}

	if report.LoggedIn {
		fmt.Printf("%s %s\n",
			LabelStyle.Render("Logged in as:"),
			ValueStyle.Render(report.Username))
	} else {
		fmt.Printf("%s %s\n",
			LabelStyle.Render("Auth:"),
			WarningStyle.Render("not logged in (run 'parley login')"))
	}

	stream := "off"
	if report.Streaming {
		stream = "on"
	}
	fmt.Printf("%s %s\n",
		LabelStyle.Render("Streaming:"),
		ValueStyle.Render(stream))

	if report.ConfigPath != "" {
		fmt.Printf("%s %s\n",
			LabelStyle.Render("Config:"),
			DimStyle.Render(report.ConfigPath))
	}

	return nil
}

// probeServer reports whether the configured server answers HTTP at all.
// Any response counts, including 401 and 404.
func probeServer(baseURL string) bool {
	if baseURL == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
