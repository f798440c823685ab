// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for parley.

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdLogin
	CmdLogout
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Server   string // --server URL override
	Quiet    bool
	Verbose  bool
	JSON     bool
	Stream   bool // --stream / --no-stream override
	NoStream bool

	// Command-specific
	Query      string
	ConfigKey  string
	ConfigVal  string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `parley - terminal chat client

Parley is a terminal client for a chat proxy. It talks to a configured
endpoint over HTTP Basic auth and streams assistant replies as they are
generated, falling back to a buffered exchange when streaming fails.

Usage:
  parley                     Start TUI (default)
  parley chat                Interactive REPL chat
  parley ask "question"      Ask a single question (buffered)
  parley login               Save login credentials
  parley logout              Clear saved credentials
  parley status, s           Show connection and session status
  parley config [show|get|set|path]  Configuration
  parley version, -v         Show version
  parley help, -h            Show this help

Global Flags:
  --server URL               Override the configured server base URL
  --stream / --no-stream     Force streaming mode on or off
  -q, --quiet                Minimal output
  --json                     Machine-readable output where supported

Config Commands:
  parley config show         Show full configuration (password redacted)
  parley config get KEY      Get a value (e.g. server.base_url)
  parley config set KEY VAL  Set a value and save
  parley config path         Print the config file path

Interactive Commands (during chat):
  /help, /h                  Show available commands
  /new, /n                   Start a new conversation
  /list, /l                  List conversations
  /switch ID                 Switch to a conversation
  /stream [on|off]           Show or toggle streaming mode
  /status, /s                Show session status
  /export [md|json]          Export the active conversation
  /clear                     Forget all local conversations
  /quit, /q                  Exit chat
  Ctrl+C                     Cancel current reply
  Ctrl+D                     Exit chat

Environment:
  PARLEY_BASE_URL            Server base URL
  PARLEY_USERNAME            Login username
  PARLEY_PASSWORD            Login password
  PARLEY_STREAM              "1"/"true" or "0"/"false"
  NO_COLOR                   Disable colored output

Configuration file: ~/.parley/config.toml
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("parley %s\n", Version)
	fmt.Printf("  commit: %s\n", GitCommit)
	fmt.Printf("  built:  %s\n", BuildDate)
	fmt.Printf("  %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args and returns the command to run plus parsed arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given arguments.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := remaining[0]
	rest := remaining[1:]
	args.Raw = rest

	switch cmd {
	case "chat":
		return CmdChat, args

	case "ask":
		args.Query = strings.Join(rest, " ")
		return CmdAsk, args

	case "login":
		return CmdLogin, args

	case "logout":
		return CmdLogout, args

	case "status", "s":
		return CmdStatus, args

	case "config":
		parseConfigArgs(&args, rest)
		return CmdConfig, args

	case "version", "-v", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	remaining := make([]string, 0, len(argv))

	i := 0
	for i < len(argv) {
		switch arg := argv[i]; arg {
		case "--server":
			if i+1 < len(argv) {
				args.Server = argv[i+1]
				i += 2
				continue
			}
			i++
		case "--stream":
			args.Stream = true
			i++
		case "--no-stream":
			args.NoStream = true
			i++
		case "-q", "--quiet":
			args.Quiet = true
			i++
		case "--verbose":
			args.Verbose = true
			i++
		case "--json":
			args.JSON = true
			i++
		default:
			remaining = append(remaining, arg)
			i++
		}
	}

	return remaining, args
}

// parseConfigArgs parses "config [show|get|set|path] [key] [value]".
func parseConfigArgs(args *Args, rest []string) {
	parser := NewArgParser(rest)
	args.Subcommand = parser.Subcommand()
	args.ConfigKey = parser.Positional(1)
	args.ConfigVal = parser.Positional(2)
}

// =============================================================================
// SIMPLE HANDLERS
// =============================================================================

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		fmt.Printf(`{"version":%q,"commit":%q,"built":%q,"platform":%q}`+"\n",
			Version, GitCommit, BuildDate, runtime.GOOS+"/"+runtime.GOARCH)
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
