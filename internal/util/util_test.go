// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact width unchanged", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 8, "hello..."},
		{"zero width", "hello", 0, ""},
		{"tiny width no ellipsis", "hello", 2, "he"},
		{"unicode text", "привет мир и всем остальным", 10, "привет ..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxWidth); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestTruncate_CJKWidth(t *testing.T) {
	// Each CJK char occupies two columns; six columns fit three of them.
	got := Truncate("日本語テキスト", 6)
	if Width(got) > 6 {
		t.Errorf("Truncate result %q wider than 6 columns (%d)", got, Width(got))
	}
}

func TestPad(t *testing.T) {
	if got := Pad("ab", 5); got != "ab   " {
		t.Errorf("Pad = %q, want %q", got, "ab   ")
	}
	if got := Pad("abcdef", 3); got != "abcdef" {
		t.Errorf("Pad should not shorten, got %q", got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("  first line  \nsecond"); got != "first line" {
		t.Errorf("FirstLine = %q, want %q", got, "first line")
	}
	if got := FirstLine("single"); got != "single" {
		t.Errorf("FirstLine = %q, want %q", got, "single")
	}
}
