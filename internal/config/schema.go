package config

// Config holds bindery application configuration.
// Stored at: ./config.yaml or {home}/config.yaml
type Config struct {
	OutputDir string         `mapstructure:"output_dir" yaml:"output_dir"`
	Backends  BackendsConfig `mapstructure:"backends" yaml:"backends"`
	Quality   QualityConfig  `mapstructure:"quality" yaml:"quality"`
	PDF       PDFConfig      `mapstructure:"pdf" yaml:"pdf"`
	Workflow  WorkflowConfig `mapstructure:"workflow" yaml:"workflow"`
	Notify    NotifyConfig   `mapstructure:"notify" yaml:"notify"`
	Metrics   MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	History   HistoryConfig  `mapstructure:"history" yaml:"history"`
	Secrets   SecretsConfig  `mapstructure:"secrets" yaml:"secrets"`
	Ollama    OllamaConfig   `mapstructure:"ollama" yaml:"ollama"`
}

// BackendsConfig configures every text and image backend bindery can select.
type BackendsConfig struct {
	Ollama          BackendCfg `mapstructure:"ollama" yaml:"ollama"`
	Claude          BackendCfg `mapstructure:"claude" yaml:"claude"`
	OpenAI          BackendCfg `mapstructure:"openai" yaml:"openai"`
	Compatible      BackendCfg `mapstructure:"compatible" yaml:"compatible"`
	StableDiffusion SDCfg      `mapstructure:"stable_diffusion" yaml:"stable_diffusion"`
	DALLE           DALLECfg   `mapstructure:"dalle" yaml:"dalle"`
}

// BackendCfg configures a text backend.
type BackendCfg struct {
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	Model          string  `mapstructure:"model" yaml:"model"`
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`               // supports ${ENV_VAR} syntax
	APIKeySecret   string  `mapstructure:"api_key_secret" yaml:"api_key_secret"` // secret name looked up when api_key is empty
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// SDCfg configures the Stable Diffusion WebUI backend.
type SDCfg struct {
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	Steps          int     `mapstructure:"steps" yaml:"steps"`
	CFGScale       float64 `mapstructure:"cfg_scale" yaml:"cfg_scale"`
	Sampler        string  `mapstructure:"sampler" yaml:"sampler"`
	NegativePrompt string  `mapstructure:"negative_prompt" yaml:"negative_prompt"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// DALLECfg configures the OpenAI image backend.
type DALLECfg struct {
	Model          string `mapstructure:"model" yaml:"model"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	APIKeySecret   string `mapstructure:"api_key_secret" yaml:"api_key_secret"`
	Quality        string `mapstructure:"quality" yaml:"quality"`
	Style          string `mapstructure:"style" yaml:"style"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// QualityConfig overrides the quality gate thresholds.
type QualityConfig struct {
	MinWordCount    int `mapstructure:"min_word_count" yaml:"min_word_count"`
	MinChapterCount int `mapstructure:"min_chapter_count" yaml:"min_chapter_count"`

	// MaxDuplicateRatio is a pointer so an explicit 0 survives decoding.
	MaxDuplicateRatio *float64 `mapstructure:"max_duplicate_ratio" yaml:"max_duplicate_ratio"`
}

// PDFConfig controls interior rendering.
type PDFConfig struct {
	// FontPath is an optional UTF-8 TrueType font for non-Latin manuscripts.
	FontPath string `mapstructure:"font_path" yaml:"font_path"`
}

// WorkflowConfig controls the orchestrated (parallel) run.
type WorkflowConfig struct {
	ArtifactDir       string `mapstructure:"artifact_dir" yaml:"artifact_dir"`
	MaxRetries        int    `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	UploadMode        string `mapstructure:"upload_mode" yaml:"upload_mode"` // MANIFEST_ONLY or SP_API
}

// NotifyConfig selects where workflow notifications go.
type NotifyConfig struct {
	Type         string `mapstructure:"type" yaml:"type"` // log, amqp, redis
	AMQPURL      string `mapstructure:"amqp_url" yaml:"amqp_url"`
	Queue        string `mapstructure:"queue" yaml:"queue"`
	RedisAddr    string `mapstructure:"redis_addr" yaml:"redis_addr"`
	Stream       string `mapstructure:"stream" yaml:"stream"`
	StreamMaxLen int64  `mapstructure:"stream_max_len" yaml:"stream_max_len"`
}

// MetricsConfig configures optional Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" yaml:"pushgateway_url"`
	Job            string `mapstructure:"job" yaml:"job"`
}

// HistoryConfig configures the sqlite run ledger.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"` // default: {home}/history.db
}

// SecretsConfig configures file-backed secrets.
type SecretsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"` // one file per secret, e.g. /run/secrets
}

// OllamaConfig holds local Ollama container configuration.
type OllamaConfig struct {
	// ContainerName is the Docker container name (default: bindery-ollama)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: ollama/ollama:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 11434)
	Port string `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "output",
		Backends: BackendsConfig{
			Ollama: BackendCfg{
				BaseURL:        "http://localhost:11434",
				Model:          "llama3.1",
				Temperature:    0.7,
				TimeoutSeconds: 300,
			},
			Claude: BackendCfg{
				Model:          "claude-3-5-sonnet-20241022",
				APIKey:         "${ANTHROPIC_API_KEY}",
				APIKeySecret:   "ANTHROPIC_API_KEY",
				MaxTokens:      4096,
				Temperature:    0.7,
				TimeoutSeconds: 300,
			},
			OpenAI: BackendCfg{
				Model:          "gpt-4o",
				APIKey:         "${OPENAI_API_KEY}",
				APIKeySecret:   "OPENAI_API_KEY",
				MaxTokens:      3000,
				Temperature:    0.7,
				TimeoutSeconds: 300,
			},
			Compatible: BackendCfg{
				BaseURL:        "http://localhost:8000/v1",
				Model:          "meta-llama/Llama-3.1-8B-Instruct",
				MaxTokens:      4096,
				Temperature:    0.7,
				TimeoutSeconds: 300,
			},
			StableDiffusion: SDCfg{
				BaseURL:        "http://localhost:7860",
				Steps:          30,
				CFGScale:       7,
				Sampler:        "DPM++ 2M Karras",
				NegativePrompt: "blurry, low quality, distorted, watermark, text errors",
				TimeoutSeconds: 300,
			},
			DALLE: DALLECfg{
				Model:          "dall-e-3",
				APIKey:         "${OPENAI_API_KEY}",
				APIKeySecret:   "OPENAI_API_KEY",
				Quality:        "hd",
				Style:          "natural",
				TimeoutSeconds: 120,
			},
		},
		Quality: QualityConfig{
			MinWordCount:      10000,
			MinChapterCount:   3,
			MaxDuplicateRatio: ptr(0.15),
		},
		Workflow: WorkflowConfig{
			ArtifactDir:       "artifacts",
			MaxRetries:        2,
			RetryDelaySeconds: 2,
			UploadMode:        "MANIFEST_ONLY",
		},
		Notify: NotifyConfig{
			Type:         "log",
			Queue:        "bindery.notifications",
			Stream:       "bindery:notifications",
			StreamMaxLen: 10000,
		},
		Metrics: MetricsConfig{
			Job: "bindery",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Ollama: OllamaConfig{
			ContainerName: "bindery-ollama",
			Image:         "ollama/ollama:latest",
			Port:          "11434",
		},
	}
}

func ptr[T any](v T) *T { return &v }
