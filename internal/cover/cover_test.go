package cover

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/jackzampolin/bindery/internal/book"
	"github.com/jackzampolin/bindery/internal/providers"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name       string
		genre      string
		wantPrefix string
	}{
		{"technology", "technology", "A minimal book cover for a technology book. Clean, futuristic design"},
		{"case insensitive", "Business", "A minimal book cover for a business book."},
		{"self-help", "self-help", "A minimal book cover for a self-help and motivation book."},
		{"unknown genre", "poetry", "A minimal professional book cover. Clean, modern design suitable for Amazon KDP publishing. "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &book.Config{Title: "Go Deep", Genre: tt.genre, Cover: book.Cover{Style: "minimal"}}
			got := BuildPrompt(cfg)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("BuildPrompt() = %q, want prefix %q", got, tt.wantPrefix)
			}
			if !strings.Contains(got, "The words 'Go Deep' should appear prominently") {
				t.Errorf("prompt missing literal title: %q", got)
			}
			if !strings.HasSuffix(got, "no watermarks.") {
				t.Errorf("prompt missing trailer: %q", got)
			}
		})
	}
}

func TestGenres_HaveTemplates(t *testing.T) {
	for _, g := range Genres() {
		if _, ok := genreTemplates[g]; !ok {
			t.Errorf("genre %q has no template", g)
		}
	}
	if len(Genres()) != len(genreTemplates) {
		t.Errorf("Genres() lists %d, templates define %d", len(Genres()), len(genreTemplates))
	}
}

func TestDesigner_GenerateCover(t *testing.T) {
	img := providers.NewMockImage()
	d := NewDesigner(img, nil)

	data, err := d.GenerateCover(context.Background(), &book.Config{ID: "b", Title: "T", Genre: "science"})
	if err != nil {
		t.Fatalf("GenerateCover() error = %v", err)
	}
	if img.Calls() != 1 {
		t.Errorf("expected exactly 1 image call, got %d", img.Calls())
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("cover is not a PNG: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 1024 || b.Dy() != 1024 {
		t.Errorf("cover size = %dx%d, want 1024x1024", b.Dx(), b.Dy())
	}
}

func TestDesigner_NoRetry(t *testing.T) {
	img := providers.NewMockImage()
	img.ShouldFail = true
	d := NewDesigner(img, nil)

	_, err := d.GenerateCover(context.Background(), &book.Config{Title: "T"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !providers.IsTransient(err) {
		t.Errorf("expected transient backend error to survive wrapping: %v", err)
	}
	if img.Calls() != 1 {
		t.Errorf("expected a single attempt, got %d", img.Calls())
	}
}
