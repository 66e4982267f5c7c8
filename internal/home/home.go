package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the bindery home directory.
	DefaultDirName = ".bindery"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// HistoryFileName is the sqlite run ledger.
	HistoryFileName = "history.db"
)

// Dir represents the bindery home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.bindery).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// HistoryPath returns the default run history database path.
func (d *Dir) HistoryPath() string {
	return filepath.Join(d.path, HistoryFileName)
}

// OllamaDataPath is mounted into the Ollama container so pulled models survive restarts.
func (d *Dir) OllamaDataPath() string {
	return filepath.Join(d.path, "ollama")
}

// SecretsPath is the default directory for file-backed secrets.
func (d *Dir) SecretsPath() string {
	return filepath.Join(d.path, "secrets")
}

// EnsureExists creates the home directory if it doesn't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	return nil
}

// EnsureOllamaDataPath creates the Ollama data directory.
func (d *Dir) EnsureOllamaDataPath() error {
	return os.MkdirAll(d.OllamaDataPath(), 0o755)
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
