package assembly

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/bindery/internal/providers"
)

const sampleManuscript = "# Test Book\n\n\n" +
	"## Chapter 1: Start\n\nFirst paragraph.\n\n### Section\n\n- one\n* two\n**Important**\n\n```\ncode that must not render\n```\n\n" +
	"## Chapter 2: Middle\n\nSecond paragraph.\n\n" +
	"## Chapter 3: End\n\nThird paragraph.\n"

func TestTransform(t *testing.T) {
	got := Transform("# Title\n## Ch 1\n### Sub\n- a\n* b\n```go\nx := 1\n```\n\n**Bold line**\ntext")
	want := []Block{
		{Kind: BlockChapter, Text: "Ch 1"},
		{Kind: BlockHeading, Text: "Sub"},
		{Kind: BlockBullet, Text: "a"},
		{Kind: BlockBullet, Text: "b"},
		{Kind: BlockSpace},
		{Kind: BlockBold, Text: "Bold line"},
		{Kind: BlockParagraph, Text: "text"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Transform() =\n%v\nwant\n%v", got, want)
	}
}

func TestTransform_UnclosedFenceDropsRest(t *testing.T) {
	got := Transform("before\n```\nhidden\n## not a chapter")
	want := []Block{{Kind: BlockParagraph, Text: "before"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Transform() = %v, want %v", got, want)
	}
}

func TestTransform_Idempotent(t *testing.T) {
	a := Transform(sampleManuscript)
	b := Transform(sampleManuscript)
	if !reflect.DeepEqual(a, b) {
		t.Error("Transform is not deterministic")
	}
}

func TestBuildInterior(t *testing.T) {
	a := New(Options{})

	doc, err := a.BuildInterior("Test Book", "Tester", sampleManuscript)
	if err != nil {
		t.Fatalf("BuildInterior() error = %v", err)
	}
	// title page + 3 chapters
	if doc.Pages != 4 {
		t.Errorf("Pages = %d, want 4", doc.Pages)
	}
	if !bytes.HasPrefix(doc.Data, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}

	n, err := PageCount(doc.Data)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != doc.Pages {
		t.Errorf("PageCount() = %d, renderer reported %d", n, doc.Pages)
	}
	if err := Validate(doc.Data); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestBuildInterior_Deterministic(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := New(Options{Created: created}).BuildInterior("T", "A", sampleManuscript)
	if err != nil {
		t.Fatalf("BuildInterior() error = %v", err)
	}
	second, err := New(Options{Created: created}).BuildInterior("T", "A", sampleManuscript)
	if err != nil {
		t.Fatalf("BuildInterior() error = %v", err)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Error("identical input produced different PDFs")
	}
}

func TestBuildInterior_LongChapterBreaksPages(t *testing.T) {
	long := "## Chapter 1: Long\n\n" + strings.Repeat("A body line that keeps going and going.\n", 300)
	doc, err := New(Options{}).BuildInterior("T", "A", long)
	if err != nil {
		t.Fatalf("BuildInterior() error = %v", err)
	}
	if doc.Pages <= 2 {
		t.Errorf("expected auto page breaks, got %d pages", doc.Pages)
	}
}

func TestBuildInterior_MissingFont(t *testing.T) {
	_, err := New(Options{FontPath: filepath.Join(t.TempDir(), "missing.ttf")}).BuildInterior("T", "A", "text")
	if err == nil {
		t.Error("expected error for a missing font file")
	}
}

func TestExtractText(t *testing.T) {
	doc, err := New(Options{}).BuildInterior("Test Book", "Tester", sampleManuscript)
	if err != nil {
		t.Fatalf("BuildInterior() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "interior.pdf")
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	text, err := ExtractText(path)
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if !strings.Contains(text, "paragraph") {
		t.Errorf("extracted text missing body content: %q", text)
	}
	if err := ValidateFile(path); err != nil {
		t.Errorf("ValidateFile() error = %v", err)
	}
}

func TestRenderCover(t *testing.T) {
	a := New(Options{})

	t.Run("png", func(t *testing.T) {
		img, err := providers.NewMockImage().Generate(context.Background(), "cover", providers.Size{Width: 64, Height: 64})
		if err != nil {
			t.Fatalf("mock image: %v", err)
		}
		doc, err := a.RenderCover(img)
		if err != nil {
			t.Fatalf("RenderCover() error = %v", err)
		}
		if n, err := PageCount(doc.Data); err != nil || n != 1 {
			t.Errorf("PageCount() = %d, %v; want 1", n, err)
		}
	})

	t.Run("jpeg", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 32, 32))
		for i := range src.Pix {
			src.Pix[i] = 0x80
		}
		src.Set(0, 0, color.Black)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, src, nil); err != nil {
			t.Fatalf("jpeg: %v", err)
		}
		if _, err := a.RenderCover(buf.Bytes()); err != nil {
			t.Fatalf("RenderCover() error = %v", err)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := a.RenderCover([]byte("plain text, not an image")); err == nil {
			t.Error("expected error for non-image data")
		}
	})
}

func TestBuildCover_FromFile(t *testing.T) {
	img, err := providers.NewMockImage().Generate(context.Background(), "cover", providers.Size{Width: 32, Height: 32})
	if err != nil {
		t.Fatalf("mock image: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(Options{}).BuildCover(path); err != nil {
		t.Fatalf("BuildCover() error = %v", err)
	}
	if _, err := New(Options{}).BuildCover(path + ".missing"); err == nil {
		t.Error("expected error for missing image")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("한국어제목", 3); got != "한국어" {
		t.Errorf("truncateRunes() = %q", got)
	}
	if got := truncateRunes("short", 50); got != "short" {
		t.Errorf("truncateRunes() = %q", got)
	}
}
