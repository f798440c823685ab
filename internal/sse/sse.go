// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"bytes"
	"io"
	"strings"
)

// DefaultEventName is used when a frame carries no event: field.
const DefaultEventName = "message"

// readChunkSize is the size of each read from the underlying stream.
const readChunkSize = 4096

// =============================================================================
// EVENT TYPE
// =============================================================================

// Event is a single parsed SSE frame.
type Event struct {
	// Name is the event type, taken from the last "event:" field of the
	// frame. Defaults to "message".
	Name string

	// Data is the newline-join of all "data:" field values, with at most one
	// leading space stripped from each.
	Data string

	// Raw holds the frame's non-comment lines joined by newline, for
	// diagnostics.
	Raw string
}

// =============================================================================
// READER
// =============================================================================

// Reader incrementally parses SSE frames from a byte stream.
//
// A Reader is a forward-only view over the stream: events are produced
// lazily by Next and the sequence cannot be restarted.
type Reader struct {
	src io.Reader

	buf     []byte   // undecoded carry-over between reads
	pending []string // accumulated lines of the frame under construction

	chunk []byte
	done  bool
}

// NewReader creates a Reader over src.
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src:   src,
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next event from the stream.
//
// It blocks on the underlying reader until a complete frame is available.
// At end of stream any residual buffered text is folded into the pending
// frame, which is emitted if non-empty; after that Next returns io.EOF.
// Read errors from the source are returned as-is.
func (r *Reader) Next() (*Event, error) {
	for {
		// Drain complete lines already in the buffer.
		for {
			idx := bytes.IndexByte(r.buf, '\n')
			if idx < 0 {
				break
			}
			line := string(r.buf[:idx])
			r.buf = r.buf[idx+1:]

			if ev := r.consumeLine(line); ev != nil {
				return ev, nil
			}
		}

		if r.done {
			return r.flush()
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.buf = append(r.buf, r.chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				r.done = true
				continue
			}
			return nil, err
		}
	}
}

// consumeLine folds one decoded line into the pending frame. It returns a
// finished event when the line was the frame delimiter, nil otherwise.
func (r *Reader) consumeLine(line string) *Event {
	line = strings.TrimSuffix(line, "\r")

	if line == "" {
		ev := buildEvent(r.pending)
		r.pending = nil
		return ev
	}

	// Comment lines never contribute to an event.
	if strings.HasPrefix(line, ":") {
		return nil
	}

	r.pending = append(r.pending, line)
	return nil
}

// flush emits the trailing frame once the source is exhausted.
func (r *Reader) flush() (*Event, error) {
	if len(r.buf) > 0 {
		// The stream ended without a final newline; treat the remainder as
		// one last line.
		r.pending = append(r.pending, strings.TrimSuffix(string(r.buf), "\r"))
		r.buf = nil
	}

	ev := buildEvent(r.pending)
	r.pending = nil
	if ev != nil {
		return ev, nil
	}
	return nil, io.EOF
}

// =============================================================================
// FRAME ASSEMBLY
// =============================================================================

// buildEvent reduces accumulated frame lines to a single Event.
// Returns nil for an empty frame, so consecutive blank lines are no-ops.
func buildEvent(lines []string) *Event {
	if len(lines) == 0 {
		return nil
	}

	name := DefaultEventName
	var dataLines []string

	for _, line := range lines {
		if strings.HasPrefix(line, "event:") {
			if v := strings.TrimSpace(line[len("event:"):]); v != "" {
				name = v
			}
			continue
		}

		if strings.HasPrefix(line, "data:") {
			v := line[len("data:"):]
			// The SSE field syntax allows one optional space after the colon.
			v = strings.TrimPrefix(v, " ")
			dataLines = append(dataLines, v)
		}
	}

	return &Event{
		Name: name,
		Data: strings.Join(dataLines, "\n"),
		Raw:  strings.Join(lines, "\n"),
	}
}
