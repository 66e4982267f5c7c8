package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "nested", "dir", ManuscriptFile)

	if err := WriteFile(name, []byte("# Title\n")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := WriteFile(name, []byte("# Replaced\n")); err != nil {
		t.Fatalf("WriteFile() overwrite error = %v", err)
	}

	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "# Replaced\n" {
		t.Errorf("got %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(name))
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in the directory, found %d entries", len(entries))
	}
}

func TestWriteJSON(t *testing.T) {
	name := filepath.Join(t.TempDir(), StatusFile)

	if err := WriteJSON(name, map[string]string{"title": "<Cloud & Go>"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	data, _ := os.ReadFile(name)
	if !strings.Contains(string(data), "<Cloud & Go>") {
		t.Errorf("expected unescaped HTML characters, got %s", data)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	full := filepath.Join(dir, "full")
	os.WriteFile(empty, nil, 0o644)
	os.WriteFile(full, []byte("x"), 0o644)

	if Exists(filepath.Join(dir, "missing")) {
		t.Error("missing file should not exist")
	}
	if Exists(empty) {
		t.Error("empty file should not count as present")
	}
	if Exists(dir) {
		t.Error("directory should not count as present")
	}
	if !Exists(full) {
		t.Error("non-empty file should exist")
	}
}

func TestFSStore(t *testing.T) {
	ctx := context.Background()
	store := NewFSStore(t.TempDir())
	keys := Keys{BookID: "book-1"}

	if ok, _ := store.Exists(ctx, keys.Manuscript()); ok {
		t.Error("expected key to be absent")
	}
	if _, err := store.Get(ctx, keys.Manuscript()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, keys.Manuscript(), []byte("text")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	ok, err := store.Exists(ctx, keys.Manuscript())
	if err != nil || !ok {
		t.Fatalf("expected key to exist, err=%v", err)
	}
	data, err := store.Get(ctx, keys.Manuscript())
	if err != nil || string(data) != "text" {
		t.Errorf("Get() = %q, %v", data, err)
	}

	p, _ := store.Path(keys.Manuscript())
	if !strings.HasSuffix(filepath.ToSlash(p), "book-1/content/manuscript.md") {
		t.Errorf("unexpected path %s", p)
	}

	if err := store.Put(ctx, "../escape", []byte("x")); err == nil {
		t.Error("expected error for key with ..")
	}
}

func TestKeys(t *testing.T) {
	k := Keys{BookID: "b"}
	want := map[string]string{
		k.Manuscript():  "b/content/manuscript.md",
		k.CoverImage():  "b/cover/cover.png",
		k.InteriorPDF(): "b/output/interior.pdf",
		k.CoverPDF():    "b/output/cover.pdf",
		k.Manifest():    "b/output/manifest.json",
	}
	for got, expected := range want {
		if got != expected {
			t.Errorf("key %s, want %s", got, expected)
		}
	}
}
