package content

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/jackzampolin/bindery/internal/book"
)

//go:embed prompts/outline_system.tmpl
var outlineSystemTmpl string

//go:embed prompts/outline_user.tmpl
var outlineUserTmpl string

//go:embed prompts/chapter_system.tmpl
var chapterSystemTmpl string

//go:embed prompts/chapter_user.tmpl
var chapterUserTmpl string

var (
	outlineSystemTemplate = template.Must(template.New("outline_system").Parse(outlineSystemTmpl))
	outlineUserTemplate   = template.Must(template.New("outline_user").Parse(outlineUserTmpl))
	chapterSystemTemplate = template.Must(template.New("chapter_system").Parse(chapterSystemTmpl))
	chapterUserTemplate   = template.Must(template.New("chapter_user").Parse(chapterUserTmpl))
)

type promptData struct {
	Title        string
	Topic        string
	LanguageName string
	Number       int
	ChapterTitle string
}

func newPromptData(cfg *book.Config) promptData {
	return promptData{
		Title:        cfg.Title,
		Topic:        cfg.Topic,
		LanguageName: cfg.LanguageName(),
	}
}

// OutlinePrompts returns the system and user prompts for outline generation.
func OutlinePrompts(cfg *book.Config) (system, user string) {
	data := newPromptData(cfg)
	return render(outlineSystemTemplate, data), render(outlineUserTemplate, data)
}

// ChapterPrompts returns the system and user prompts for chapter n.
func ChapterPrompts(cfg *book.Config, title string, n int) (system, user string) {
	data := newPromptData(cfg)
	data.Number = n
	data.ChapterTitle = title
	return render(chapterSystemTemplate, data), render(chapterUserTemplate, data)
}

func render(t *template.Template, data promptData) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		// Templates are parsed at init and only reference promptData fields
		panic(err)
	}
	return strings.TrimSpace(buf.String())
}
