// Package content generates book manuscripts from an outline with a text backend.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jackzampolin/bindery/internal/book"
	"github.com/jackzampolin/bindery/internal/providers"
)

// maxChapterNumber is the highest "n." marker recognized in an outline.
const maxChapterNumber = 24

var chapterMarker = regexp.MustCompile(`^\d+[.)]\s*`)

var fallbackChapters = map[string][]string{
	"en": {"Introduction", "Body", "Conclusion"},
	"ko": {"개론", "본론", "결론"},
}

// Recorder receives token usage per backend name.
type Recorder interface {
	Record(backend string, inputTokens, outputTokens int)
}

// Config configures a Generator.
type Config struct {
	LLM      providers.TextGenerator
	Recorder Recorder
	Logger   *slog.Logger
}

// Generator builds manuscripts one chapter per backend call.
type Generator struct {
	llm      providers.TextGenerator
	recorder Recorder
	logger   *slog.Logger
}

// New creates a content generator.
func New(cfg Config) (*Generator, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("text backend is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		llm:      cfg.LLM,
		recorder: cfg.Recorder,
		logger:   logger,
	}, nil
}

// GenerateOutline asks the backend for a numbered chapter outline.
func (g *Generator) GenerateOutline(ctx context.Context, cfg *book.Config) (string, error) {
	system, prompt := OutlinePrompts(cfg)
	g.logger.Info("generating outline", "backend", g.llm.Name())

	text, err := g.generate(ctx, prompt, system)
	if err != nil {
		return "", fmt.Errorf("outline generation failed: %w", err)
	}
	return text, nil
}

// GenerateChapter writes chapter n and prefixes it with its markdown heading.
func (g *Generator) GenerateChapter(ctx context.Context, cfg *book.Config, title string, n int) (string, error) {
	system, prompt := ChapterPrompts(cfg, title, n)

	text, err := g.generate(ctx, prompt, system)
	if err != nil {
		return "", fmt.Errorf("chapter %d generation failed: %w", n, err)
	}
	return fmt.Sprintf("## Chapter %d: %s\n\n%s", n, title, text), nil
}

// GenerateBook returns the full manuscript. A configured outline is used as-is;
// otherwise one is generated first.
func (g *Generator) GenerateBook(ctx context.Context, cfg *book.Config) (string, error) {
	outline := strings.TrimSpace(cfg.Outline)
	if outline == "" {
		var err error
		if outline, err = g.GenerateOutline(ctx, cfg); err != nil {
			return "", err
		}
	}

	chapters := ParseChapters(outline, cfg.BaseLanguage())
	g.logger.Info("generating chapters", "chapters", len(chapters))

	parts := make([]string, 0, len(chapters)+1)
	parts = append(parts, fmt.Sprintf("# %s\n", cfg.Title))
	for i, title := range chapters {
		n := i + 1
		g.logger.Info("generating chapter", "chapter", n, "of", len(chapters), "title", title)

		chapter, err := g.GenerateChapter(ctx, cfg, title, n)
		if err != nil {
			return "", err
		}
		parts = append(parts, chapter)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (g *Generator) generate(ctx context.Context, prompt, system string) (string, error) {
	result, err := g.llm.Generate(ctx, &providers.GenerateRequest{
		Prompt: prompt,
		System: system,
	})
	if err != nil {
		return "", err
	}
	if g.recorder != nil {
		g.recorder.Record(g.llm.Name(), result.InputTokens, result.OutputTokens)
	}
	return result.Text, nil
}

// ParseChapters extracts chapter titles from lines like "1. Title" or "2) Title".
// Only markers 1 through 24 count. With no matches, a three-chapter fallback in
// lang is returned (Korean for "ko", English otherwise).
func ParseChapters(outline, lang string) []string {
	var chapters []string
	for _, line := range strings.Split(outline, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !hasChapterMarker(line) {
			continue
		}
		if title := strings.TrimSpace(chapterMarker.ReplaceAllString(line, "")); title != "" {
			chapters = append(chapters, title)
		}
	}
	if len(chapters) == 0 {
		return FallbackChapters(lang)
	}
	return chapters
}

// FallbackChapters returns the localized default chapter list.
func FallbackChapters(lang string) []string {
	fallback, ok := fallbackChapters[lang]
	if !ok {
		fallback = fallbackChapters["en"]
	}
	return append([]string(nil), fallback...)
}

func hasChapterMarker(line string) bool {
	for i := 1; i <= maxChapterNumber; i++ {
		n := fmt.Sprint(i)
		if strings.HasPrefix(line, n+".") || strings.HasPrefix(line, n+")") {
			return true
		}
	}
	return false
}
