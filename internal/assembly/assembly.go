// Package assembly renders interior and cover PDFs from a manuscript and cover image.
package assembly

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/webp"
)

// Page geometry in millimetres (A4 portrait).
const (
	PageWidth  = 210.0
	PageHeight = 297.0

	margin          = 20.0
	headerTitleRune = 50
)

const (
	coreFont    = "Helvetica"
	unicodeFont = "BookFont"
)

// epoch pins PDF dates when no clock is configured.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Options configures an Assembler.
type Options struct {
	// FontPath is an optional UTF-8 TrueType font. Without it, text is
	// translated to cp1252 for the core Helvetica font.
	FontPath string

	// Created is written as the PDF creation and modification date.
	Created time.Time

	Logger *slog.Logger
}

// Assembler builds print PDFs. Output is byte-identical for identical input.
type Assembler struct {
	fontPath string
	created  time.Time
	logger   *slog.Logger
}

// New creates an assembler.
func New(opts Options) *Assembler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	created := opts.Created
	if created.IsZero() {
		created = epoch
	}
	return &Assembler{fontPath: opts.FontPath, created: created.UTC(), logger: logger}
}

// Document is a rendered PDF.
type Document struct {
	Data  []byte
	Pages int
}

// BuildInterior renders the interior PDF: a title page followed by the
// manuscript, one page per "## " chapter.
func (a *Assembler) BuildInterior(title, author, manuscript string) (*Document, error) {
	pdf := a.newPDF()
	pdf.SetTitle(title, true)
	pdf.SetAuthor(author, true)

	w, err := newWriter(pdf, a.fontPath)
	if err != nil {
		return nil, err
	}

	pastTitle := false
	pdf.SetHeaderFunc(func() {
		if !pastTitle {
			return
		}
		w.setFont("", 8)
		pdf.CellFormat(0, 5, w.tr(truncateRunes(title, headerTitleRune)), "", 0, "C", false, 0, "")
		pdf.Ln(8)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		w.setFont("", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.Ln(60)
	w.setFont("B", 20)
	pdf.MultiCell(0, 10, w.tr(title), "", "C", false)
	pdf.Ln(15)
	w.setFont("", 14)
	pdf.MultiCell(0, 8, w.tr("by "+author), "", "C", false)
	pastTitle = true

	for _, blk := range Transform(manuscript) {
		w.render(blk)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render interior: %w", err)
	}
	pages := pdf.PageNo()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write interior: %w", err)
	}
	a.logger.Debug("rendered interior", "pages", pages, "bytes", buf.Len())
	return &Document{Data: buf.Bytes(), Pages: pages}, nil
}

// BuildCover renders the cover PDF from an image file.
func (a *Assembler) BuildCover(imagePath string) (*Document, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cover image: %w", err)
	}
	return a.RenderCover(img)
}

// RenderCover scales img to fill a single A4 page with no borders.
// PNG and JPEG are embedded directly; WebP is converted to PNG first.
func (a *Assembler) RenderCover(img []byte) (*Document, error) {
	imgType, data, err := imageForPDF(img)
	if err != nil {
		return nil, err
	}

	pdf := a.newPDF()
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: imgType}
	pdf.RegisterImageOptionsReader("cover", opts, bytes.NewReader(data))
	pdf.ImageOptions("cover", 0, 0, PageWidth, PageHeight, false, opts, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render cover: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write cover: %w", err)
	}
	return &Document{Data: buf.Bytes(), Pages: 1}, nil
}

func (a *Assembler) newPDF() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetCreator("bindery", false)
	pdf.SetCreationDate(a.created)
	pdf.SetModificationDate(a.created)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(true)
	return pdf
}

func imageForPDF(img []byte) (string, []byte, error) {
	switch ct := http.DetectContentType(img); ct {
	case "image/png":
		return "PNG", img, nil
	case "image/jpeg":
		return "JPG", img, nil
	case "image/webp":
		decoded, err := webp.Decode(bytes.NewReader(img))
		if err != nil {
			return "", nil, fmt.Errorf("failed to decode webp cover: %w", err)
		}
		data, err := encodePNG(decoded)
		if err != nil {
			return "", nil, err
		}
		return "PNG", data, nil
	default:
		return "", nil, fmt.Errorf("unsupported cover image type %q", ct)
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode cover: %w", err)
	}
	return buf.Bytes(), nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// writer draws blocks onto a document with either the core or a UTF-8 font.
type writer struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
}

func newWriter(pdf *fpdf.Fpdf, fontPath string) (*writer, error) {
	if fontPath == "" {
		return &writer{pdf: pdf, family: coreFont, tr: pdf.UnicodeTranslatorFromDescriptor("")}, nil
	}
	font, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	// One face serves both styles; fpdf has no synthetic bold.
	pdf.AddUTF8FontFromBytes(unicodeFont, "", font)
	pdf.AddUTF8FontFromBytes(unicodeFont, "B", font)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to load font %s: %w", fontPath, err)
	}
	return &writer{pdf: pdf, family: unicodeFont, tr: func(s string) string { return s }}, nil
}

func (w *writer) setFont(style string, size float64) {
	w.pdf.SetFont(w.family, style, size)
}

func (w *writer) render(b Block) {
	pdf := w.pdf
	switch b.Kind {
	case BlockChapter:
		pdf.AddPage()
		pdf.Ln(25)
		w.setFont("B", 18)
		pdf.MultiCell(0, 9, w.tr(b.Text), "", "C", false)
		pdf.Ln(12)
	case BlockHeading:
		pdf.Ln(4)
		w.setFont("B", 13)
		pdf.MultiCell(0, 6, w.tr(b.Text), "", "L", false)
		pdf.Ln(2)
	case BlockBullet:
		w.setFont("", 11)
		pdf.MultiCell(0, 5, w.tr("  - "+b.Text), "", "L", false)
	case BlockBold:
		w.setFont("B", 11)
		pdf.MultiCell(0, 5, w.tr(b.Text), "", "L", false)
	case BlockSpace:
		pdf.Ln(3)
	case BlockParagraph:
		w.setFont("", 11)
		pdf.MultiCell(0, 5, w.tr(b.Text), "", "L", false)
	}
}

// BlockKind classifies a manuscript line.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockChapter
	BlockHeading
	BlockBullet
	BlockBold
	BlockSpace
)

func (k BlockKind) String() string {
	switch k {
	case BlockChapter:
		return "chapter"
	case BlockHeading:
		return "heading"
	case BlockBullet:
		return "bullet"
	case BlockBold:
		return "bold"
	case BlockSpace:
		return "space"
	default:
		return "paragraph"
	}
}

// Block is one rendered unit of the interior.
type Block struct {
	Kind BlockKind
	Text string
}

// Transform converts manuscript markdown into render blocks in a single pass.
// Code fences toggle a skip mode that drops their contents, and the "# " book
// title is dropped since the title page carries it.
func Transform(manuscript string) []Block {
	var (
		blocks []Block
		inCode bool
	)
	for _, line := range strings.Split(manuscript, "\n") {
		s := strings.TrimSpace(line)

		if strings.HasPrefix(s, "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}

		switch {
		case strings.HasPrefix(s, "# "):
			continue
		case strings.HasPrefix(s, "## "):
			blocks = append(blocks, Block{Kind: BlockChapter, Text: s[3:]})
		case strings.HasPrefix(s, "### "):
			blocks = append(blocks, Block{Kind: BlockHeading, Text: s[4:]})
		case strings.HasPrefix(s, "- "), strings.HasPrefix(s, "* "):
			blocks = append(blocks, Block{Kind: BlockBullet, Text: s[2:]})
		case s == "":
			blocks = append(blocks, Block{Kind: BlockSpace})
		case len(s) > 4 && strings.HasPrefix(s, "**") && strings.HasSuffix(s, "**"):
			blocks = append(blocks, Block{Kind: BlockBold, Text: s[2 : len(s)-2]})
		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: s})
		}
	}
	return blocks
}
