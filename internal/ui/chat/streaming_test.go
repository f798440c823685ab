// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for the parley TUI.
package chat

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// STREAMING BUFFER TESTS
// =============================================================================

func TestStreamingBufferWrite(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("Hello")
	sb.Write(" ")
	sb.Write("World")

	if pending := sb.Pending(); pending != 3 {
		t.Errorf("Expected 3 pending fragments, got %d", pending)
	}
}

func TestStreamingBufferFlushBySize(t *testing.T) {
	sb := NewStreamingBufferWithConfig(3, 1) // Batch size 3, slow time threshold

	sb.Write("A")
	sb.Write("B")

	if _, hasContent := sb.Flush(); hasContent {
		t.Error("Should not flush before reaching batch size")
	}

	sb.Write("C")

	content, hasContent := sb.Flush()
	if !hasContent {
		t.Error("Should flush after reaching batch size")
	}
	if content != "ABC" {
		t.Errorf("Expected flushed content 'ABC', got '%s'", content)
	}

	if pending := sb.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending fragments after flush, got %d", pending)
	}
}

func TestStreamingBufferFlushByTime(t *testing.T) {
	sb := NewStreamingBufferWithConfig(100, 30) // Large batch, ~33ms interval

	sb.Write("slow")

	if _, hasContent := sb.Flush(); hasContent {
		t.Error("Should not flush immediately after a single fragment")
	}

	time.Sleep(50 * time.Millisecond)

	content, hasContent := sb.Flush()
	if !hasContent {
		t.Error("Should flush after the time threshold")
	}
	if content != "slow" {
		t.Errorf("Expected 'slow', got '%s'", content)
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	sb := NewStreamingBufferWithConfig(100, 1)

	sb.Write("partial")

	content, hasContent := sb.ForceFlush()
	if !hasContent {
		t.Error("ForceFlush should release content regardless of thresholds")
	}
	if content != "partial" {
		t.Errorf("Expected 'partial', got '%s'", content)
	}

	if _, hasContent := sb.ForceFlush(); hasContent {
		t.Error("ForceFlush on an empty buffer should report no content")
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("discard me")
	sb.Reset()

	if pending := sb.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending after reset, got %d", pending)
	}
	if _, hasContent := sb.ForceFlush(); hasContent {
		t.Error("Reset should discard buffered content")
	}
}

func TestStreamingBufferConcurrentWrites(t *testing.T) {
	sb := NewStreamingBufferWithConfig(10000, 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sb.Write("x")
			}
		}()
	}
	wg.Wait()

	content, hasContent := sb.ForceFlush()
	if !hasContent {
		t.Fatal("expected buffered content")
	}
	if content != strings.Repeat("x", 800) {
		t.Errorf("Expected 800 fragments, got %d bytes", len(content))
	}
}
