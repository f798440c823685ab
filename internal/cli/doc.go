// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements parley's command line interface: argument parsing,
// command routing, the interactive REPL chat, and the login, config, and
// status commands.
package cli
