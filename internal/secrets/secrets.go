// Package secrets resolves credentials for backends.
//
// A Source is built once per run and handed to constructors that need it;
// nothing in bindery caches secrets in package state.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when no source has the secret.
var ErrNotFound = errors.New("secret not found")

// Source looks up a named secret.
type Source interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// Env reads secrets from environment variables.
type Env struct{}

// Lookup implements Source.
func (Env) Lookup(_ context.Context, name string) (string, error) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Dir reads secrets from files named after the secret, e.g. /run/secrets/OPENAI_API_KEY.
type Dir struct {
	Path string
}

// Lookup implements Source.
func (d Dir) Lookup(_ context.Context, name string) (string, error) {
	if d.Path == "" || name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	data, err := os.ReadFile(filepath.Join(d.Path, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("failed to read secret %s: %w", name, err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}

// Chain tries each source in order and returns the first hit.
type Chain []Source

// Lookup implements Source.
func (c Chain) Lookup(ctx context.Context, name string) (string, error) {
	for _, s := range c {
		v, err := s.Lookup(ctx, name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Cached memoizes lookups for the lifetime of one run.
type Cached struct {
	src Source

	mu     sync.Mutex
	values map[string]string
}

// NewCached wraps src with a per-run cache.
func NewCached(src Source) *Cached {
	return &Cached{src: src, values: make(map[string]string)}
}

// Lookup implements Source. Misses are not cached.
func (c *Cached) Lookup(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.values[name]; ok {
		return v, nil
	}
	v, err := c.src.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	c.values[name] = v
	return v, nil
}

// Static is a fixed map of secrets, mostly for tests.
type Static map[string]string

// Lookup implements Source.
func (s Static) Lookup(_ context.Context, name string) (string, error) {
	if v, ok := s[name]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}
