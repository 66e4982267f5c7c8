package book

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/bindery/internal/providers"
)

const fullConfig = `
book:
  id: aws-guide
  title: "AWS in Practice"
  author: "Jane Doe"
  topic: "Cloud architecture on AWS"
  genre: Technology
  language: en
  llm_backend: claude
  image_backend: sd
  cover:
    style: "bold geometric"
  metadata:
    description: "A practical guide"
    keywords: [aws, cloud]
    categories: ["Computers / Cloud"]
    price: 14.99
  outline: |
    1. Foundations
    2. Networking
`

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.ID != "aws-guide" {
		t.Errorf("ID = %s", cfg.ID)
	}
	if cfg.Title != "AWS in Practice" || cfg.Author != "Jane Doe" {
		t.Errorf("unexpected identity: %s / %s", cfg.Title, cfg.Author)
	}
	if cfg.LLMBackend != providers.TextClaude {
		t.Errorf("LLMBackend = %s, want claude", cfg.LLMBackend)
	}
	if cfg.ImageBackend != providers.ImageStableDiffusion {
		t.Errorf("ImageBackend = %s, want stable_diffusion", cfg.ImageBackend)
	}
	if cfg.Cover.Style != "bold geometric" {
		t.Errorf("Cover.Style = %s", cfg.Cover.Style)
	}
	if cfg.Metadata.Price != "14.99" {
		t.Errorf("Price = %s, want 14.99", cfg.Metadata.Price)
	}
	if len(cfg.Metadata.Keywords) != 2 || cfg.Metadata.Keywords[0] != "aws" {
		t.Errorf("Keywords = %v", cfg.Metadata.Keywords)
	}
	if !strings.Contains(cfg.Outline, "2. Networking") {
		t.Errorf("Outline = %q", cfg.Outline)
	}
	if cfg.LanguageName() != "English" {
		t.Errorf("LanguageName() = %s, want English", cfg.LanguageName())
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("title: T\nauthor: A\ntopic: X\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.ID != DefaultID {
		t.Errorf("ID = %s, want %s", cfg.ID, DefaultID)
	}
	if cfg.Genre != "general" {
		t.Errorf("Genre = %s", cfg.Genre)
	}
	if cfg.Language != "ko" {
		t.Errorf("Language = %s", cfg.Language)
	}
	if cfg.LLMBackend != providers.TextOllama {
		t.Errorf("LLMBackend = %s", cfg.LLMBackend)
	}
	if cfg.ImageBackend != providers.ImageStableDiffusion {
		t.Errorf("ImageBackend = %s", cfg.ImageBackend)
	}
	if cfg.Cover.Style != "modern minimalist" {
		t.Errorf("Cover.Style = %s", cfg.Cover.Style)
	}
	if cfg.Metadata.Price != "9.99" {
		t.Errorf("Price = %s", cfg.Metadata.Price)
	}
	if cfg.Metadata.Keywords == nil || cfg.Metadata.Categories == nil {
		t.Error("expected empty, non-nil keyword and category lists")
	}
	if cfg.LanguageName() != "Korean" {
		t.Errorf("LanguageName() = %s, want Korean", cfg.LanguageName())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"empty file", "", "empty"},
		{"malformed yaml", "book: [unclosed", "YAML"},
		{"missing fields", "book:\n  title: T\n", "author, topic"},
		{"blank title", "title: '  '\nauthor: A\ntopic: X\n", "title"},
		{"keywords not a list", "title: T\nauthor: A\ntopic: X\nmetadata:\n  keywords: cloud\n", "keywords"},
		{"bad language", "title: T\nauthor: A\ntopic: X\nlanguage: '!!'\n", "language"},
		{"unsupported llm backend", "title: T\nauthor: A\ntopic: X\nllm_backend: gpt\n", "llm_backend"},
		{"unsupported image backend", "title: T\nauthor: A\ntopic: X\nimage_backend: midjourney\n", "image_backend"},
		{"scalar document", "just a string", "mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("expected ErrConfigInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error to mention %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "book.yaml")
		if err := os.WriteFile(path, []byte(fullConfig), 0o644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.ID != "aws-guide" {
			t.Errorf("ID = %s", cfg.ID)
		}
	})
}

func TestConfig_BaseLanguage(t *testing.T) {
	cfg := &Config{Language: "en-US"}
	if cfg.BaseLanguage() != "en" {
		t.Errorf("BaseLanguage() = %s, want en", cfg.BaseLanguage())
	}
}
