// Package book loads and validates book configuration files.
package book

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/bindery/internal/providers"
)

var (
	// ErrConfigNotFound is returned when the config file does not exist.
	ErrConfigNotFound = errors.New("book config not found")
	// ErrConfigInvalid is returned for malformed YAML, missing fields, or bad values.
	ErrConfigInvalid = errors.New("invalid book config")
)

//go:embed schema.json
var schemaJSON []byte

const (
	DefaultID           = "book-001"
	DefaultGenre        = "general"
	DefaultLanguage     = "ko"
	DefaultCoverStyle   = "modern minimalist"
	DefaultPrice        = "9.99"
	DefaultLLMBackend   = providers.TextOllama
	DefaultImageBackend = providers.ImageStableDiffusion
)

// Config is a validated book configuration. Treat it as read-only once loaded.
type Config struct {
	ID           string              `json:"id" yaml:"id"`
	Title        string              `json:"title" yaml:"title"`
	Author       string              `json:"author" yaml:"author"`
	Topic        string              `json:"topic" yaml:"topic"`
	Genre        string              `json:"genre" yaml:"genre"`
	Language     string              `json:"language" yaml:"language"`
	LLMBackend   providers.TextKind  `json:"llm_backend" yaml:"llm_backend"`
	ImageBackend providers.ImageKind `json:"image_backend" yaml:"image_backend"`
	Cover        Cover               `json:"cover" yaml:"cover"`
	Metadata     Metadata            `json:"metadata" yaml:"metadata"`
	Outline      string              `json:"outline,omitempty" yaml:"outline,omitempty"`
}

// Cover holds cover generation settings.
type Cover struct {
	Style string `json:"style" yaml:"style"`
}

// Metadata is the publishing metadata carried into the manifest.
type Metadata struct {
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
	Categories  []string `json:"categories" yaml:"categories"`
	Price       string   `json:"price" yaml:"price"`
}

// rawConfig mirrors the file layout before defaults are applied.
type rawConfig struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Topic        string `json:"topic"`
	Genre        string `json:"genre"`
	Language     string `json:"language"`
	LLMBackend   string `json:"llm_backend"`
	ImageBackend string `json:"image_backend"`
	Outline      string `json:"outline"`
	Cover        struct {
		Style string `json:"style"`
	} `json:"cover"`
	Metadata struct {
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
		Categories  []string `json:"categories"`
		Price       any      `json:"price"`
	} `json:"metadata"`
}

// Load reads and validates a book config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read book config: %w", err)
	}
	return Parse(data)
}

// Parse validates YAML book config content. Fields may sit under a top-level
// "book" key or at the top level.
func Parse(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: YAML parse error: %v", ErrConfigInvalid, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: config file is empty", ErrConfigInvalid)
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a mapping at the top level", ErrConfigInvalid)
	}
	bookDoc := root
	if nested, ok := root["book"].(map[string]any); ok {
		bookDoc = nested
	}

	if missing := missingRequired(bookDoc); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required fields: %s", ErrConfigInvalid, strings.Join(missing, ", "))
	}

	// Normalize to JSON values so the schema sees plain strings/numbers/arrays
	normalized, err := json.Marshal(bookDoc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := validateSchema(normalized); err != nil {
		return nil, err
	}

	var raw rawConfig
	if err := json.Unmarshal(normalized, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return fromRaw(&raw)
}

func missingRequired(doc map[string]any) []string {
	var missing []string
	for _, field := range []string{"title", "author", "topic"} {
		v, ok := doc[field]
		if !ok || v == nil {
			missing = append(missing, field)
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func validateSchema(doc []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("book.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("failed to load book schema: %w", err)
	}
	schema, err := compiler.Compile("book.json")
	if err != nil {
		return fmt.Errorf("failed to compile book schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return nil
}

func fromRaw(raw *rawConfig) (*Config, error) {
	cfg := &Config{
		ID:       orDefault(raw.ID, DefaultID),
		Title:    strings.TrimSpace(raw.Title),
		Author:   strings.TrimSpace(raw.Author),
		Topic:    strings.TrimSpace(raw.Topic),
		Genre:    orDefault(raw.Genre, DefaultGenre),
		Language: orDefault(raw.Language, DefaultLanguage),
		Outline:  raw.Outline,
		Cover:    Cover{Style: orDefault(raw.Cover.Style, DefaultCoverStyle)},
		Metadata: Metadata{
			Description: raw.Metadata.Description,
			Keywords:    nonNil(raw.Metadata.Keywords),
			Categories:  nonNil(raw.Metadata.Categories),
			Price:       priceString(raw.Metadata.Price),
		},
	}

	if _, err := language.Parse(cfg.Language); err != nil {
		return nil, fmt.Errorf("%w: language %q is not a valid BCP 47 tag", ErrConfigInvalid, cfg.Language)
	}

	var err error
	if cfg.LLMBackend, err = providers.ParseTextKind(orDefault(raw.LLMBackend, string(DefaultLLMBackend))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if cfg.ImageBackend, err = providers.ParseImageKind(orDefault(raw.ImageBackend, string(DefaultImageBackend))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	return cfg, nil
}

// LanguageName returns the English name of the book language ("ko" -> "Korean").
func (c *Config) LanguageName() string {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return c.Language
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return c.Language
}

// BaseLanguage returns the ISO 639 base of the book language ("en-US" -> "en").
func (c *Config) BaseLanguage() string {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return c.Language
	}
	base, _ := tag.Base()
	return base.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// priceString keeps prices as strings; YAML may give a number (9.99) or a string ("9.99").
func priceString(v any) string {
	switch p := v.(type) {
	case nil:
		return DefaultPrice
	case string:
		return orDefault(p, DefaultPrice)
	case float64:
		return strconv.FormatFloat(p, 'f', -1, 64)
	default:
		return fmt.Sprint(p)
	}
}
