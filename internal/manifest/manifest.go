// Package manifest describes a finished book package.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackzampolin/bindery/internal/artifact"
	"github.com/jackzampolin/bindery/internal/book"
	"github.com/jackzampolin/bindery/internal/cost"
	"github.com/jackzampolin/bindery/internal/quality"
)

// Manifest is written once per successful run as manifest.json.
type Manifest struct {
	BookID       string          `json:"book_id"`
	Title        string          `json:"title"`
	Author       string          `json:"author"`
	Files        Files           `json:"files"`
	Metadata     Metadata        `json:"metadata"`
	AIGenerated  bool            `json:"ai_generated"`
	QualityCheck *quality.Result `json:"quality_check,omitempty"`
	Cost         *cost.Summary   `json:"cost,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

// Files lists artifact locations, as paths or store keys.
type Files struct {
	Manuscript  string `json:"manuscript"`
	Cover       string `json:"cover"`
	InteriorPDF string `json:"interior_pdf"`
	CoverPDF    string `json:"cover_pdf"`
}

// Metadata is the publishing metadata block.
type Metadata struct {
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Categories  []string `json:"categories"`
	PriceUSD    string   `json:"price_usd"`
	Language    string   `json:"language"`
}

// New builds a manifest for cfg. Quality and cost may be nil.
func New(cfg *book.Config, files Files, q *quality.Result, c *cost.Summary, now time.Time) *Manifest {
	m := &Manifest{
		BookID: cfg.ID,
		Title:  cfg.Title,
		Author: cfg.Author,
		Files:  files,
		Metadata: Metadata{
			Description: cfg.Metadata.Description,
			Keywords:    nonNil(cfg.Metadata.Keywords),
			Categories:  nonNil(cfg.Metadata.Categories),
			PriceUSD:    cfg.Metadata.Price,
			Language:    cfg.Language,
		},
		AIGenerated: true,
		Cost:        c,
		CreatedAt:   now.UTC().Format(time.RFC3339),
	}
	if q != nil {
		r := q.Rounded()
		m.QualityCheck = &r
	}
	return m
}

// Write atomically writes the manifest to path.
func (m *Manifest) Write(path string) error {
	return artifact.WriteJSON(path, m)
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
