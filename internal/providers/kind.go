package providers

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBackend is returned for a backend selector bindery does not support.
var ErrUnknownBackend = errors.New("unknown backend")

// TextKind selects a text-generation backend.
type TextKind string

const (
	TextOllama     TextKind = "ollama"
	TextClaude     TextKind = "claude"
	TextOpenAI     TextKind = "openai"
	TextCompatible TextKind = "compatible"
	TextMock       TextKind = "mock"
)

// TextKinds lists every supported text backend.
var TextKinds = []TextKind{TextOllama, TextClaude, TextOpenAI, TextCompatible, TextMock}

// ParseTextKind validates a text backend selector.
func ParseTextKind(s string) (TextKind, error) {
	k := TextKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TextKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: llm_backend %q (supported: %s)", ErrUnknownBackend, s, joinKinds(TextKinds))
}

// ImageKind selects an image-generation backend.
type ImageKind string

const (
	ImageStableDiffusion ImageKind = "stable_diffusion"
	ImageDALLE           ImageKind = "dalle"
	ImageMock            ImageKind = "mock"
)

// ImageKinds lists every supported image backend.
var ImageKinds = []ImageKind{ImageStableDiffusion, ImageDALLE, ImageMock}

// ParseImageKind validates an image backend selector. "sd" is accepted for stable_diffusion.
func ParseImageKind(s string) (ImageKind, error) {
	k := ImageKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "sd" {
		return ImageStableDiffusion, nil
	}
	for _, known := range ImageKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: image_backend %q (supported: %s)", ErrUnknownBackend, s, joinKinds(ImageKinds))
}

func joinKinds[K ~string](kinds []K) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
