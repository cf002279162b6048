// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), opts...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t, WithUser(func() string { return "alice" }))
	ctx := context.Background()

	if err := s.RecordQuery(ctx, "what is attention?", 420, false); err != nil {
		t.Fatalf("RecordQuery failed: %v", err)
	}
	if err := s.RecordQuery(ctx, "explain rag", 180, true); err != nil {
		t.Fatalf("RecordQuery failed: %v", err)
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Question != "explain rag" {
		t.Errorf("first entry = %q", entries[0].Question)
	}
	if !entries[0].EvidenceInsufficient {
		t.Error("evidence flag lost")
	}
	if entries[0].Username != "alice" {
		t.Errorf("username = %q", entries[0].Username)
	}
	if entries[1].LatencyMs != 420 {
		t.Errorf("latency = %d", entries[1].LatencyMs)
	}
	if entries[0].ID == entries[1].ID {
		t.Error("duplicate entry IDs")
	}
}

func TestRecentLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.RecordQuery(ctx, "q", 1, false); err != nil {
			t.Fatalf("RecordQuery failed: %v", err)
		}
	}

	entries, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("entries = %d, want 3", len(entries))
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	s := openTestStore(t, WithMaxEntries(3))
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c", "d", "e"} {
		if err := s.RecordQuery(ctx, q, 1, false); err != nil {
			t.Fatalf("RecordQuery failed: %v", err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	for _, e := range entries {
		if e.Question == "a" || e.Question == "b" {
			t.Errorf("pruned entry %q survived", e.Question)
		}
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.RecordQuery(ctx, "q", 1, false); err != nil {
		t.Fatalf("RecordQuery failed: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Count after Clear = %d", n)
	}
}

func TestClosedStore(t *testing.T) {
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.RecordQuery(context.Background(), "q", 1, false); err != ErrClosed {
		t.Errorf("RecordQuery after Close = %v, want ErrClosed", err)
	}
	if _, err := s.Recent(context.Background(), 1); err != ErrClosed {
		t.Errorf("Recent after Close = %v, want ErrClosed", err)
	}
}
