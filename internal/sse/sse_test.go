// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"io"
	"strings"
	"testing"
)

// chunkReader delivers its payload n bytes at a time to exercise frame
// reassembly across arbitrary chunk boundaries.
type chunkReader struct {
	data []byte
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.size
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

// collect drains a reader into a slice of events.
func collect(t *testing.T, r *Reader) []Event {
	t.Helper()
	var events []Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, *ev)
	}
}

// =============================================================================
// FRAME PARSING TESTS
// =============================================================================

func TestReader_BasicFrames(t *testing.T) {
	input := "event: content\ndata: Hello\n\nevent: done\ndata: \n\n"

	events := collect(t, NewReader(strings.NewReader(input)))

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Name != "content" || events[0].Data != "Hello" {
		t.Errorf("event[0] = %+v, want content/Hello", events[0])
	}
	if events[1].Name != "done" {
		t.Errorf("event[1].Name = %q, want done", events[1].Name)
	}
}

func TestReader_DefaultEventName(t *testing.T) {
	events := collect(t, NewReader(strings.NewReader("data: {\"content\":\"hi\"}\n\n")))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Name != DefaultEventName {
		t.Errorf("Name = %q, want %q", events[0].Name, DefaultEventName)
	}
}

func TestReader_LastEventNameWins(t *testing.T) {
	input := "event: first\nevent: second\ndata: x\n\n"

	events := collect(t, NewReader(strings.NewReader(input)))

	if len(events) != 1 || events[0].Name != "second" {
		t.Fatalf("got %+v, want single event named second", events)
	}
}

func TestReader_EmptyEventFieldKeepsName(t *testing.T) {
	input := "event: content\nevent:\ndata: x\n\n"

	events := collect(t, NewReader(strings.NewReader(input)))

	if len(events) != 1 || events[0].Name != "content" {
		t.Fatalf("got %+v, want event named content", events)
	}
}

func TestReader_MultiLineDataJoinedWithNewline(t *testing.T) {
	input := "data: line one\ndata: line two\ndata:line three\n\n"

	events := collect(t, NewReader(strings.NewReader(input)))

	want := "line one\nline two\nline three"
	if len(events) != 1 || events[0].Data != want {
		t.Fatalf("Data = %q, want %q", events[0].Data, want)
	}
}

func TestReader_OnlyOneLeadingSpaceStripped(t *testing.T) {
	// "data:  x" carries a significant second space.
	events := collect(t, NewReader(strings.NewReader("data:  x\n\n")))

	if len(events) != 1 || events[0].Data != " x" {
		t.Fatalf("Data = %q, want %q", events[0].Data, " x")
	}
}

func TestReader_CRLFLineEndings(t *testing.T) {
	input := "event: content\r\ndata: Hello\r\n\r\n"

	events := collect(t, NewReader(strings.NewReader(input)))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Name != "content" || events[0].Data != "Hello" {
		t.Errorf("event = %+v, want content/Hello", events[0])
	}
}

func TestReader_CommentsDiscarded(t *testing.T) {
	input := ": keep-alive\ndata: real\n: another comment\n\n"

	events := collect(t, NewReader(strings.NewReader(input)))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Data != "real" {
		t.Errorf("Data = %q, want %q", events[0].Data, "real")
	}
	if strings.Contains(events[0].Raw, "comment") || strings.Contains(events[0].Raw, "keep-alive") {
		t.Errorf("Raw contains comment lines: %q", events[0].Raw)
	}
}

func TestReader_CommentOnlyStreamYieldsNothing(t *testing.T) {
	events := collect(t, NewReader(strings.NewReader(": ping\n\n: ping\n\n")))

	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}

func TestReader_ConsecutiveBlankLinesAreNoOps(t *testing.T) {
	input := "\n\n\ndata: x\n\n\n\n"

	events := collect(t, NewReader(strings.NewReader(input)))

	if len(events) != 1 || events[0].Data != "x" {
		t.Fatalf("got %+v, want single event with data x", events)
	}
}

func TestReader_TrailingFrameWithoutBlankLine(t *testing.T) {
	// Stream ends mid-frame with no final newline at all.
	input := "event: content\ndata: tail"

	events := collect(t, NewReader(strings.NewReader(input)))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Name != "content" || events[0].Data != "tail" {
		t.Errorf("event = %+v, want content/tail", events[0])
	}
}

func TestReader_TrailingFrameStripsCarriageReturn(t *testing.T) {
	events := collect(t, NewReader(strings.NewReader("data: tail\r")))

	if len(events) != 1 || events[0].Data != "tail" {
		t.Fatalf("got %+v, want single event with data tail", events)
	}
}

func TestReader_FieldWithoutDataYieldsEmptyData(t *testing.T) {
	// A frame holding only unrecognized fields still counts as a frame.
	events := collect(t, NewReader(strings.NewReader("id: 42\n\n")))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Name != DefaultEventName || events[0].Data != "" {
		t.Errorf("event = %+v, want default name with empty data", events[0])
	}
}

// =============================================================================
// CHUNK BOUNDARY TESTS
// =============================================================================

func TestReader_ChunkSizeInvariance(t *testing.T) {
	input := "event: content\ndata: Привет\n\ndata: {\"content\":\"мир\"}\n\nevent: done\ndata: [DONE]\n\n"

	whole := collect(t, NewReader(strings.NewReader(input)))

	for _, size := range []int{1, 2, 3, 5, 7, 64} {
		split := collect(t, NewReader(&chunkReader{data: []byte(input), size: size}))

		if len(split) != len(whole) {
			t.Fatalf("chunk size %d: got %d events, want %d", size, len(split), len(whole))
		}
		for i := range whole {
			if split[i] != whole[i] {
				t.Errorf("chunk size %d: event[%d] = %+v, want %+v", size, i, split[i], whole[i])
			}
		}
	}
}

func TestReader_MultiByteRuneSplitAcrossChunks(t *testing.T) {
	// One-byte chunks split every UTF-8 sequence; the parser must not
	// corrupt the text.
	input := "data: дракон 🐉\n\n"

	events := collect(t, NewReader(&chunkReader{data: []byte(input), size: 1}))

	if len(events) != 1 || events[0].Data != "дракон 🐉" {
		t.Fatalf("Data = %q, want %q", events[0].Data, "дракон 🐉")
	}
}

func TestReader_NonRestartable(t *testing.T) {
	r := NewReader(strings.NewReader("data: x\n\n"))

	collect(t, r)

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next after EOF = %v, want io.EOF", err)
	}
}
