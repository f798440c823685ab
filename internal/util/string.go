// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides string helpers for the parley terminal application.
package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Truncate shortens a string to a maximum display width, appending "..."
// when text was cut. Width-aware: double-width (CJK) characters count as
// two columns, so truncated output never overflows its column.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// Pad right-pads a string with spaces to the given display width.
// Strings already at or beyond the width are returned unchanged.
func Pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// Width returns the display width of a string in terminal columns.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

// FirstLine returns the text up to the first newline, trimmed.
func FirstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
