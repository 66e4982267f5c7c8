package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/bindery/internal/secrets"
)

// FactoryConfig holds settings for every backend variant.
// API keys left empty are looked up by their *KeySecret name.
type FactoryConfig struct {
	Ollama          OllamaConfig
	Claude          ClaudeConfig
	ClaudeKeySecret string
	OpenAI          OpenAIConfig
	OpenAIKeySecret string
	Compatible      CompatibleConfig
	StableDiffusion StableDiffusionConfig
	DALLE           DALLEConfig
	DALLEKeySecret  string
}

// Factory constructs backends by kind. Each call returns a fresh backend,
// so usage counters are scoped to the caller.
type Factory struct {
	cfg     FactoryConfig
	secrets secrets.Source
	logger  *slog.Logger
}

// NewFactory creates a backend factory. src may be nil when no keys are needed.
func NewFactory(cfg FactoryConfig, src secrets.Source, logger *slog.Logger) *Factory {
	if src == nil {
		src = secrets.Static{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{cfg: cfg, secrets: src, logger: logger}
}

// Text creates a text backend.
func (f *Factory) Text(ctx context.Context, kind TextKind) (TextGenerator, error) {
	var (
		gen TextGenerator
		err error
	)
	switch kind {
	case TextOllama:
		gen, err = NewOllamaClient(f.cfg.Ollama)
	case TextClaude:
		cfg := f.cfg.Claude
		if cfg.APIKey, err = f.resolveKey(ctx, cfg.APIKey, f.cfg.ClaudeKeySecret); err == nil {
			gen, err = NewClaudeClient(cfg)
		}
	case TextOpenAI:
		cfg := f.cfg.OpenAI
		if cfg.APIKey, err = f.resolveKey(ctx, cfg.APIKey, f.cfg.OpenAIKeySecret); err == nil {
			gen, err = NewOpenAIClient(cfg)
		}
	case TextCompatible:
		gen, err = NewCompatibleClient(f.cfg.Compatible)
	case TextMock:
		gen = NewMockText()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", kind, err)
	}
	f.logger.Debug("created text backend", "kind", kind, "name", gen.Name())
	return gen, nil
}

// Image creates an image backend.
func (f *Factory) Image(ctx context.Context, kind ImageKind) (ImageGenerator, error) {
	var (
		gen ImageGenerator
		err error
	)
	switch kind {
	case ImageStableDiffusion:
		gen = NewStableDiffusionClient(f.cfg.StableDiffusion)
	case ImageDALLE:
		cfg := f.cfg.DALLE
		if cfg.APIKey, err = f.resolveKey(ctx, cfg.APIKey, f.cfg.DALLEKeySecret); err == nil {
			gen, err = NewDALLEClient(cfg)
		}
	case ImageMock:
		gen = NewMockImage()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", kind, err)
	}
	f.logger.Debug("created image backend", "kind", kind, "name", gen.Name())
	return gen, nil
}

func (f *Factory) resolveKey(ctx context.Context, literal, secretName string) (string, error) {
	if literal != "" || secretName == "" {
		return literal, nil
	}
	v, err := f.secrets.Lookup(ctx, secretName)
	if errors.Is(err, secrets.ErrNotFound) {
		return "", nil
	}
	return v, err
}
