package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

var envRefPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Manager loads configuration from defaults, a config file, and BINDERY_* env vars.
type Manager struct {
	v      *viper.Viper
	config *Config
}

// NewManager creates a config manager and loads the config.
// cfgFile may be empty, in which case ./config.yaml and {searchDir}/config.yaml are tried.
func NewManager(cfgFile, searchDir string) (*Manager, error) {
	m := &Manager{v: viper.New()}

	if err := m.initViper(cfgFile, searchDir); err != nil {
		return nil, err
	}

	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg

	return m, nil
}

// initViper seeds viper with the defaults and merges the config file over them.
func (m *Manager) initViper(cfgFile, searchDir string) error {
	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	m.v.SetConfigType("yaml")
	if err := m.v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return fmt.Errorf("failed to seed defaults: %w", err)
	}

	// Environment variables with BINDERY_ prefix, e.g. BINDERY_BACKENDS_OLLAMA_MODEL
	m.v.SetEnvPrefix("BINDERY")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	if cfgFile != "" {
		m.v.SetConfigFile(cfgFile)
	} else {
		m.v.SetConfigName("config")
		m.v.AddConfigPath(".")
		if searchDir != "" {
			m.v.AddConfigPath(searchDir)
		}
	}

	// The config file is optional
	if err := m.v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the loaded configuration.
func (m *Manager) Get() *Config {
	return m.config
}

// ConfigFileUsed returns the config file that was merged, or "" if none was found.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRefPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ResolveAPIKey returns the api_key with env references expanded.
func (c BackendCfg) ResolveAPIKey() string {
	return ResolveEnvVars(c.APIKey)
}

// ResolveAPIKey returns the api_key with env references expanded.
func (c DALLECfg) ResolveAPIKey() string {
	return ResolveEnvVars(c.APIKey)
}

// HistoryPath returns the configured history database path, defaulting under homePath.
func (c *Config) HistoryPath(homePath string) string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(homePath, "history.db")
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# bindery configuration
# API keys use ${ENV_VAR} syntax to reference environment variables.
# When api_key resolves empty, api_key_secret is looked up in secrets.dir, then the environment.
# Set these in your shell or a .env file: ANTHROPIC_API_KEY=xxx OPENAI_API_KEY=xxx

`)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, append(header, data...), 0o644)
}
