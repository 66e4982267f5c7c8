// Package merge builds KDP PDFs from a hand-prepared book folder:
// manuscript.md, a cover image, and an optional config.yaml.
package merge

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/bindery/internal/artifact"
	"github.com/jackzampolin/bindery/internal/assembly"
	"github.com/jackzampolin/bindery/internal/quality"
)

const (
	DefaultAuthor = "Unknown Author"
	ConfigFile    = "config.yaml"
)

var (
	ErrBookDirNotFound    = errors.New("book folder not found")
	ErrManuscriptNotFound = errors.New("manuscript.md not found")
	ErrCoverNotFound      = errors.New("cover image not found (supported: cover.png, cover.jpg, cover.jpeg, cover.webp)")
)

// coverNames are tried in order.
var coverNames = []string{"cover.png", "cover.jpg", "cover.jpeg", "cover.webp"}

// Options configures a merge.
type Options struct {
	BookDir   string
	OutputDir string // default: output/{basename of BookDir}

	Quality  quality.Thresholds
	FontPath string
	Now      func() time.Time
	Logger   *slog.Logger
}

// Result describes a finished merge.
type Result struct {
	Title       string         `json:"title" yaml:"title"`
	Author      string         `json:"author" yaml:"author"`
	OutputDir   string         `json:"output_dir" yaml:"output_dir"`
	InteriorPDF string         `json:"interior_pdf" yaml:"interior_pdf"`
	CoverPDF    string         `json:"cover_pdf" yaml:"cover_pdf"`
	Pages       int            `json:"pages" yaml:"pages"`
	Quality     quality.Result `json:"quality_check" yaml:"quality_check"`
}

// Text renders the result for terminal output.
func (r *Result) Text() string {
	return fmt.Sprintf("merge complete\n  title:    %s\n  author:   %s\n  interior: %s (%d pages)\n  cover:    %s\n%s",
		r.Title, r.Author, r.InteriorPDF, r.Pages, r.CoverPDF, r.Quality.Text())
}

// Info is the optional book metadata read from config.yaml.
type Info struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
}

// LoadInfo reads {dir}/config.yaml leniently. Missing values default to the
// title-cased folder name and DefaultAuthor.
func LoadInfo(dir string) (Info, error) {
	name := strings.ReplaceAll(filepath.Base(filepath.Clean(dir)), "-", " ")
	info := Info{
		Title:  cases.Title(language.English).String(name),
		Author: DefaultAuthor,
	}

	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if errors.Is(err, os.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}

	var doc struct {
		Book *Info `yaml:"book"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return info, fmt.Errorf("failed to parse %s: %w", ConfigFile, err)
	}
	if doc.Book != nil {
		if doc.Book.Title != "" {
			info.Title = doc.Book.Title
		}
		if doc.Book.Author != "" {
			info.Author = doc.Book.Author
		}
	}
	return info, nil
}

// FindCover returns the first cover image present in dir.
func FindCover(dir string) (string, error) {
	for _, name := range coverNames {
		p := filepath.Join(dir, name)
		if artifact.Exists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrCoverNotFound, dir)
}

// Run checks and assembles the book folder and copies the sources next to the PDFs.
func Run(opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	if info, err := os.Stat(opts.BookDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBookDirNotFound, opts.BookDir)
	}
	manuscriptPath := filepath.Join(opts.BookDir, artifact.ManuscriptFile)
	if !artifact.Exists(manuscriptPath) {
		return nil, fmt.Errorf("%w in %s", ErrManuscriptNotFound, opts.BookDir)
	}
	coverPath, err := FindCover(opts.BookDir)
	if err != nil {
		return nil, err
	}
	info, err := LoadInfo(opts.BookDir)
	if err != nil {
		return nil, err
	}

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = filepath.Join("output", filepath.Base(filepath.Clean(opts.BookDir)))
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	logger.Info("merging book", "title", info.Title, "author", info.Author, "output_dir", outDir)

	manuscript, err := os.ReadFile(manuscriptPath)
	if err != nil {
		return nil, err
	}
	q := quality.NewChecker(opts.Quality).Check(string(manuscript))
	for _, w := range q.Warnings {
		logger.Warn("quality warning", "warning", w)
	}

	asm := assembly.New(assembly.Options{FontPath: opts.FontPath, Created: now(), Logger: logger})
	interior, err := asm.BuildInterior(info.Title, info.Author, string(manuscript))
	if err != nil {
		return nil, err
	}
	coverDoc, err := asm.BuildCover(coverPath)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Title:       info.Title,
		Author:      info.Author,
		OutputDir:   outDir,
		InteriorPDF: filepath.Join(outDir, artifact.InteriorPDFFile),
		CoverPDF:    filepath.Join(outDir, artifact.CoverPDFFile),
		Pages:       interior.Pages,
		Quality:     q.Rounded(),
	}
	if err := artifact.WriteFile(res.InteriorPDF, interior.Data); err != nil {
		return nil, err
	}
	if err := artifact.WriteFile(res.CoverPDF, coverDoc.Data); err != nil {
		return nil, err
	}

	if err := copyFile(manuscriptPath, filepath.Join(outDir, artifact.ManuscriptFile)); err != nil {
		return nil, err
	}
	if err := copyFile(coverPath, filepath.Join(outDir, filepath.Base(coverPath))); err != nil {
		return nil, err
	}
	return res, nil
}

// copyFile is a no-op when src and dst are the same file.
func copyFile(src, dst string) error {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return artifact.WriteFile(dst, data)
}
