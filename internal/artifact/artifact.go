// Package artifact persists pipeline outputs with whole-file atomic writes.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/moby/sys/atomicwriter"
)

// Artifact file names shared by the local pipeline and the workflow store.
const (
	ManuscriptFile  = "manuscript.md"
	CoverImageFile  = "cover.png"
	InteriorPDFFile = "interior.pdf"
	CoverPDFFile    = "cover.pdf"
	StatusFile      = "status.json"
	CostSummaryFile = "cost_summary.json"
	ManifestFile    = "manifest.json"
)

// ErrNotFound is returned by Store.Get for a missing key.
var ErrNotFound = errors.New("artifact not found")

// WriteFile atomically replaces path with data, creating parent directories.
// Readers see either the old content or the new, never a partial write.
func WriteFile(name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := atomicwriter.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// MarshalJSON encodes v as indented JSON without HTML escaping.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON atomically writes v as indented JSON.
func WriteJSON(name string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(name), err)
	}
	return WriteFile(name, data)
}

// Exists reports whether name is a non-empty regular file.
func Exists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Store is keyed artifact storage for workflow runs.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// FSStore is a Store rooted at a local directory. Keys use forward slashes.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at root.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

var _ Store = (*FSStore)(nil)

// Path returns the filesystem path for key.
func (s *FSStore) Path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put implements Store.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	return WriteFile(p, data)
}

// Get implements Store.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

// Exists implements Store.
func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.Path(key)
	if err != nil {
		return false, err
	}
	return Exists(p), nil
}

// Keys names the workflow object keys for one book.
type Keys struct {
	BookID string
}

func (k Keys) Manuscript() string  { return k.BookID + "/content/" + ManuscriptFile }
func (k Keys) CoverImage() string  { return k.BookID + "/cover/" + CoverImageFile }
func (k Keys) InteriorPDF() string { return k.BookID + "/output/" + InteriorPDFFile }
func (k Keys) CoverPDF() string    { return k.BookID + "/output/" + CoverPDFFile }
func (k Keys) Manifest() string    { return k.BookID + "/output/" + ManifestFile }
