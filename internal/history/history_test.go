package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	entries := []Entry{
		{RunID: "r1", BookID: "book-a", Kind: KindPipeline, Stage: "content", Success: true, DurationSeconds: 1.5, CostUSD: 0.01},
		{RunID: "r1", BookID: "book-a", Kind: KindPipeline, Stage: "cover", Success: false, Error: "connection refused"},
		{RunID: "r2", BookID: "book-a", Kind: KindPipeline, Stage: "content", Success: true, Skipped: true},
		{RunID: "r3", BookID: "book-b", Kind: KindWorkflow, Stage: "upload", Success: true},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := store.List(ctx, Filter{}, 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("expected 4 entries, got %d", len(got))
		}
		if got[0].RunID != "r3" || got[3].Stage != "content" {
			t.Errorf("unexpected order: %+v", got)
		}
		if got[0].CreatedAt.IsZero() {
			t.Error("CreatedAt should default to now")
		}
	})

	t.Run("filter and limit", func(t *testing.T) {
		got, err := store.List(ctx, Filter{BookID: "book-a"}, 2)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(got))
		}
		for _, e := range got {
			if e.BookID != "book-a" {
				t.Errorf("filter leaked %s", e.BookID)
			}
		}
	})

	t.Run("errors only", func(t *testing.T) {
		failed := false
		got, err := store.List(ctx, Filter{Success: &failed}, 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 || got[0].Error != "connection refused" {
			t.Errorf("unexpected entries: %+v", got)
		}
	})

	t.Run("summary", func(t *testing.T) {
		sum, err := store.GetSummary(ctx, Filter{BookID: "book-a"})
		if err != nil {
			t.Fatalf("GetSummary() error = %v", err)
		}
		if sum.Count != 3 || sum.Runs != 2 || sum.ErrorCount != 1 || sum.SkippedCount != 1 {
			t.Errorf("unexpected summary: %+v", sum)
		}
		if sum.TotalSeconds != 1.5 {
			t.Errorf("TotalSeconds = %v, want 1.5", sum.TotalSeconds)
		}
	})
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := store.Record(ctx, Entry{RunID: "r", BookID: "b", Kind: KindPipeline, Stage: "manifest", Success: true, CreatedAt: at}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer store.Close()

	got, err := store.List(ctx, Filter{RunID: "r"}, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || !got[0].CreatedAt.Equal(at) {
		t.Errorf("unexpected entries after reopen: %+v", got)
	}
}
