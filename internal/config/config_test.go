package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OutputDir != "output" {
		t.Errorf("expected output dir 'output', got %s", cfg.OutputDir)
	}
	if cfg.Backends.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("expected default ollama url, got %s", cfg.Backends.Ollama.BaseURL)
	}
	if cfg.Backends.Claude.APIKey != "${ANTHROPIC_API_KEY}" {
		t.Error("expected anthropic API key placeholder")
	}
	if r := cfg.Quality.MaxDuplicateRatio; r == nil || *r != 0.15 {
		t.Errorf("expected max duplicate ratio 0.15, got %v", r)
	}
	if cfg.Workflow.MaxRetries != 2 {
		t.Errorf("expected 2 workflow retries, got %d", cfg.Workflow.MaxRetries)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})

	t.Run("expands references inside a longer string", func(t *testing.T) {
		t.Setenv("TEST_HOST", "example.com")

		result := ResolveEnvVars("https://${TEST_HOST}/v1")
		if result != "https://example.com/v1" {
			t.Errorf("expected https://example.com/v1, got %s", result)
		}
	})
}

func TestBackendCfg_ResolveAPIKey(t *testing.T) {
	t.Setenv("TEST_CLAUDE_KEY", "sk-ant-123")

	cfg := BackendCfg{APIKey: "${TEST_CLAUDE_KEY}"}
	if got := cfg.ResolveAPIKey(); got != "sk-ant-123" {
		t.Errorf("expected sk-ant-123, got %s", got)
	}

	literal := BackendCfg{APIKey: "direct-key"}
	if got := literal.ResolveAPIKey(); got != "direct-key" {
		t.Errorf("expected direct-key, got %s", got)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file over defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
output_dir: /srv/books
backends:
  ollama:
    model: qwen2.5
quality:
  min_word_count: 500
`
		if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile, "")
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.OutputDir != "/srv/books" {
			t.Errorf("expected /srv/books, got %s", cfg.OutputDir)
		}
		if cfg.Backends.Ollama.Model != "qwen2.5" {
			t.Errorf("expected qwen2.5, got %s", cfg.Backends.Ollama.Model)
		}
		// Sibling keys keep their defaults
		if cfg.Backends.Ollama.BaseURL != "http://localhost:11434" {
			t.Errorf("expected default base url, got %s", cfg.Backends.Ollama.BaseURL)
		}
		if cfg.Quality.MinWordCount != 500 {
			t.Errorf("expected 500, got %d", cfg.Quality.MinWordCount)
		}
		if cfg.Quality.MinChapterCount != 3 {
			t.Errorf("expected default min chapters 3, got %d", cfg.Quality.MinChapterCount)
		}
		if mgr.ConfigFileUsed() != configFile {
			t.Errorf("expected config file %s, got %s", configFile, mgr.ConfigFileUsed())
		}
	})

	t.Run("explicit zero duplicate ratio is kept", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(configFile, []byte("quality:\n  max_duplicate_ratio: 0\n"), 0o644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile, "")
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if r := mgr.Get().Quality.MaxDuplicateRatio; r == nil || *r != 0 {
			t.Errorf("expected max duplicate ratio 0, got %v", r)
		}
	})

	t.Run("missing search path config falls back to defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())

		mgr, err := NewManager("", t.TempDir())
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if mgr.Get().Notify.Type != "log" {
			t.Errorf("expected default notify type log, got %s", mgr.Get().Notify.Type)
		}
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "nope.yaml"), "")
		if err == nil {
			t.Fatal("expected error for missing explicit config file")
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("BINDERY_OUTPUT_DIR", "/from/env")

		mgr, err := NewManager("", t.TempDir())
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if mgr.Get().OutputDir != "/from/env" {
			t.Errorf("expected /from/env, got %s", mgr.Get().OutputDir)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# bindery configuration") {
		t.Error("expected header comment")
	}

	mgr, err := NewManager(path, "")
	if err != nil {
		t.Fatalf("written default config does not load: %v", err)
	}
	if mgr.Get().Backends.StableDiffusion.Sampler != "DPM++ 2M Karras" {
		t.Errorf("unexpected sampler %q", mgr.Get().Backends.StableDiffusion.Sampler)
	}
}

func TestConfig_HistoryPath(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.HistoryPath("/home/u/.bindery"); got != "/home/u/.bindery/history.db" {
		t.Errorf("expected default history path, got %s", got)
	}

	cfg.History.Path = "/tmp/runs.db"
	if got := cfg.HistoryPath("/home/u/.bindery"); got != "/tmp/runs.db" {
		t.Errorf("expected configured history path, got %s", got)
	}
}

func TestConfig_ToFactoryConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg := DefaultConfig()
	fc := cfg.ToFactoryConfig()

	if fc.Claude.APIKey != "sk-ant-test" {
		t.Errorf("expected resolved claude key, got %q", fc.Claude.APIKey)
	}
	if fc.ClaudeKeySecret != "ANTHROPIC_API_KEY" {
		t.Errorf("expected claude key secret name, got %q", fc.ClaudeKeySecret)
	}
	if fc.Ollama.Timeout.Seconds() != 300 {
		t.Errorf("expected 300s ollama timeout, got %v", fc.Ollama.Timeout)
	}
	if fc.StableDiffusion.Steps != 30 {
		t.Errorf("expected 30 steps, got %d", fc.StableDiffusion.Steps)
	}
}
