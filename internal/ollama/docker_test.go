package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	m, err := NewManager(Config{})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	if m.containerName != DefaultContainerName {
		t.Errorf("containerName = %q", m.containerName)
	}
	if m.imageName != DefaultImage {
		t.Errorf("imageName = %q", m.imageName)
	}
	if m.URL() != "http://127.0.0.1:11434" {
		t.Errorf("URL() = %q", m.URL())
	}
	if m.labels[Label] != "true" {
		t.Error("default label missing")
	}
}

func TestNewManager_MergesLabels(t *testing.T) {
	m, err := NewManager(Config{Labels: map[string]string{"bindery-test": "true"}})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	if m.labels[Label] != "true" || m.labels["bindery-test"] != "true" {
		t.Errorf("labels = %v", m.labels)
	}
}

// serverManager points a manager at a fake Ollama server.
func serverManager(t *testing.T, handler http.Handler) *Manager {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	m, err := NewManager(Config{HostPort: u.Port()})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestWaitReady(t *testing.T) {
	var hits atomic.Int32
	m := serverManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		// Unhealthy on the first probe.
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"models":[]}`)
	}))

	if err := m.WaitReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 probes, got %d", hits.Load())
	}
}

func TestWaitReady_Timeout(t *testing.T) {
	m := serverManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	if err := m.WaitReady(context.Background(), time.Second); err == nil {
		t.Error("expected error from an unhealthy server")
	}
}

func TestPull(t *testing.T) {
	var pulled string
	m := serverManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			http.NotFound(w, r)
			return
		}
		pulled = r.Method
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"status":"pulling manifest"}`)
		fmt.Fprintln(w, `{"status":"downloading","completed":50,"total":100}`)
		fmt.Fprintln(w, `{"status":"success"}`)
	}))

	var statuses []string
	err := m.Pull(context.Background(), "llama3.1", func(status string, completed, total int64) {
		statuses = append(statuses, status)
	})
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if pulled != http.MethodPost {
		t.Errorf("expected POST, got %q", pulled)
	}
	if len(statuses) != 3 || statuses[2] != "success" {
		t.Errorf("statuses = %v", statuses)
	}
}

func TestPull_Error(t *testing.T) {
	m := serverManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"error":"pull model manifest: file does not exist"}`)
	}))

	if err := m.Pull(context.Background(), "missing-model", nil); err == nil {
		t.Error("expected error")
	}
}
