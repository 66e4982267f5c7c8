package config

import (
	"time"

	"github.com/jackzampolin/bindery/internal/providers"
)

// ToFactoryConfig converts backend settings for providers.Factory.
// ${ENV_VAR} references in API keys are resolved here.
func (c *Config) ToFactoryConfig() providers.FactoryConfig {
	b := c.Backends
	return providers.FactoryConfig{
		Ollama: providers.OllamaConfig{
			BaseURL:     b.Ollama.BaseURL,
			Model:       b.Ollama.Model,
			Temperature: b.Ollama.Temperature,
			Timeout:     seconds(b.Ollama.TimeoutSeconds),
		},
		Claude: providers.ClaudeConfig{
			APIKey:      b.Claude.ResolveAPIKey(),
			Model:       b.Claude.Model,
			BaseURL:     b.Claude.BaseURL,
			MaxTokens:   b.Claude.MaxTokens,
			Temperature: b.Claude.Temperature,
			Timeout:     seconds(b.Claude.TimeoutSeconds),
		},
		ClaudeKeySecret: b.Claude.APIKeySecret,
		OpenAI: providers.OpenAIConfig{
			APIKey:      b.OpenAI.ResolveAPIKey(),
			Model:       b.OpenAI.Model,
			BaseURL:     b.OpenAI.BaseURL,
			MaxTokens:   b.OpenAI.MaxTokens,
			Temperature: b.OpenAI.Temperature,
			Timeout:     seconds(b.OpenAI.TimeoutSeconds),
		},
		OpenAIKeySecret: b.OpenAI.APIKeySecret,
		Compatible: providers.CompatibleConfig{
			BaseURL:     ResolveEnvVars(b.Compatible.BaseURL),
			APIKey:      b.Compatible.ResolveAPIKey(),
			Model:       b.Compatible.Model,
			MaxTokens:   b.Compatible.MaxTokens,
			Temperature: b.Compatible.Temperature,
			Timeout:     seconds(b.Compatible.TimeoutSeconds),
		},
		StableDiffusion: providers.StableDiffusionConfig{
			BaseURL:        b.StableDiffusion.BaseURL,
			Steps:          b.StableDiffusion.Steps,
			CFGScale:       b.StableDiffusion.CFGScale,
			Sampler:        b.StableDiffusion.Sampler,
			NegativePrompt: b.StableDiffusion.NegativePrompt,
			Timeout:        seconds(b.StableDiffusion.TimeoutSeconds),
		},
		DALLE: providers.DALLEConfig{
			APIKey:  b.DALLE.ResolveAPIKey(),
			Model:   b.DALLE.Model,
			Quality: b.DALLE.Quality,
			Style:   b.DALLE.Style,
			Timeout: seconds(b.DALLE.TimeoutSeconds),
		},
		DALLEKeySecret: b.DALLE.APIKeySecret,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
