package providers

import (
	"context"
	"sync"
)

// TextGenerator produces text from a prompt.
type TextGenerator interface {
	// Generate runs one completion and accumulates its token usage.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)

	// Usage returns cumulative token usage since construction.
	Usage() Usage

	// Name returns the backend identifier used for cost tracking (e.g. "ollama/llama3.1").
	Name() string
}

// ImageGenerator produces image bytes from a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, size Size) ([]byte, error)
	Name() string
}

// GenerateRequest is a single text-generation call.
type GenerateRequest struct {
	Prompt      string
	System      string
	MaxTokens   int     // 0 uses the backend default
	Temperature float64 // 0 uses the backend default
}

// GenerateResult is the text and token counts of one call.
type GenerateResult struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Usage is cumulative token usage for a backend.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Size is an image size in pixels.
type Size struct {
	Width  int
	Height int
}

// CoverSize is the square size requested for cover art.
var CoverSize = Size{Width: 1024, Height: 1024}

// usageCounter accumulates token usage. Embedded by text backends.
type usageCounter struct {
	mu    sync.Mutex
	usage Usage
}

func (u *usageCounter) add(in, out int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage.InputTokens += in
	u.usage.OutputTokens += out
}

// Usage returns cumulative token usage.
func (u *usageCounter) Usage() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.usage
}
