package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jackzampolin/bindery/internal/artifact"
	"github.com/jackzampolin/bindery/internal/assembly"
	"github.com/jackzampolin/bindery/internal/book"
	"github.com/jackzampolin/bindery/internal/cost"
	"github.com/jackzampolin/bindery/internal/metrics"
	"github.com/jackzampolin/bindery/internal/providers"
	"github.com/jackzampolin/bindery/internal/quality"
)

// Backends creates text and image backends on demand.
// *providers.Factory satisfies it.
type Backends interface {
	Text(ctx context.Context, kind providers.TextKind) (providers.TextGenerator, error)
	Image(ctx context.Context, kind providers.ImageKind) (providers.ImageGenerator, error)
}

// Run is the state shared by stages during one pipeline invocation.
type Run struct {
	ID        string
	Book      *book.Config
	OutputDir string

	backends  Backends
	textKind  providers.TextKind
	imageKind providers.ImageKind
	tracker   *cost.Tracker
	checker   *quality.Checker
	assembler *assembly.Assembler
	metrics   *metrics.Run
	logger    *slog.Logger
	now       func() time.Time

	manuscript string
	pages      int
	quality    *quality.Result
}

// Path returns the path of an artifact in the output dir.
func (r *Run) Path(name string) string {
	return filepath.Join(r.OutputDir, name)
}

// Manuscript returns the manuscript, reading it from disk when the content
// stage was skipped.
func (r *Run) Manuscript() (string, error) {
	if r.manuscript != "" {
		return r.manuscript, nil
	}
	data, err := os.ReadFile(r.Path(artifact.ManuscriptFile))
	if err != nil {
		return "", fmt.Errorf("failed to read manuscript: %w", err)
	}
	r.manuscript = string(data)
	return r.manuscript, nil
}

// recorder sends token usage to the cost tracker and run metrics.
type recorder struct {
	tracker *cost.Tracker
	metrics *metrics.Run
}

func (rec recorder) Record(backend string, in, out int) {
	rec.tracker.Record(backend, in, out)
	rec.metrics.Tokens(backend, in, out)
}
