// Package pipeline runs the resumable book pipeline:
// content -> cover -> assembly -> quality -> manifest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackzampolin/bindery/internal/artifact"
	"github.com/jackzampolin/bindery/internal/assembly"
	"github.com/jackzampolin/bindery/internal/book"
	"github.com/jackzampolin/bindery/internal/cost"
	"github.com/jackzampolin/bindery/internal/history"
	"github.com/jackzampolin/bindery/internal/metrics"
	"github.com/jackzampolin/bindery/internal/providers"
	"github.com/jackzampolin/bindery/internal/quality"
)

var tracer = otel.Tracer("github.com/jackzampolin/bindery/internal/pipeline")

// DefaultOutputRoot is used when Config.OutputRoot is empty.
const DefaultOutputRoot = "output"

// Config configures a Pipeline.
type Config struct {
	Book *book.Config

	// OutputRoot holds one directory per book plus cost_summary.json.
	OutputRoot string

	// Backends creates backends lazily; only stages that run touch them.
	Backends Backends

	// Mock forces the mock text and image backends.
	Mock bool

	Quality  quality.Thresholds
	FontPath string

	Registry *Registry      // nil = DefaultRegistry()
	History  *history.Store // optional
	Pusher   *metrics.Pusher
	Logger   *slog.Logger

	// Now is the clock for manifest and PDF dates. Defaults to time.Now.
	Now func() time.Time
}

// Result summarizes a successful run.
type Result struct {
	Success   bool            `json:"success" yaml:"success"`
	RunID     string          `json:"run_id" yaml:"run_id"`
	BookID    string          `json:"book_id" yaml:"book_id"`
	OutputDir string          `json:"output_dir" yaml:"output_dir"`
	Cost      float64         `json:"cost" yaml:"cost"`
	Pages     int             `json:"pages,omitempty" yaml:"pages,omitempty"`
	Quality   *quality.Result `json:"quality_check,omitempty" yaml:"quality_check,omitempty"`
	Skipped   []string        `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Text renders the result for terminal output.
func (r *Result) Text() string {
	s := fmt.Sprintf("pipeline complete\n  book:   %s\n  output: %s\n  cost:   $%.4f\n", r.BookID, r.OutputDir, r.Cost)
	if r.Pages > 0 {
		s += fmt.Sprintf("  pages:  %d\n", r.Pages)
	}
	if len(r.Skipped) > 0 {
		s += fmt.Sprintf("  skipped: %v\n", r.Skipped)
	}
	if r.Quality != nil {
		s += r.Quality.Text()
	}
	return s
}

// Pipeline sequences the stages and persists status.json after every change.
type Pipeline struct {
	cfg      Config
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
}

// New validates cfg and creates a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Book == nil {
		return nil, fmt.Errorf("book config is required")
	}
	if cfg.Backends == nil {
		return nil, fmt.Errorf("backends are required")
	}
	if cfg.OutputRoot == "" {
		cfg.OutputRoot = DefaultOutputRoot
	}
	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		cfg:      cfg,
		registry: registry,
		logger:   logger.With("book_id", cfg.Book.ID),
		now:      now,
	}, nil
}

// OutputDir returns the book's output directory.
func (p *Pipeline) OutputDir() string {
	return filepath.Join(p.cfg.OutputRoot, p.cfg.Book.ID)
}

// Run executes the pipeline. With resume, stages whose state is done and
// whose artifacts all exist are skipped. Any failure is written to the
// status error before it is returned; re-running with resume is the retry.
func (p *Pipeline) Run(ctx context.Context, resume bool) (*Result, error) {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("book_id", p.cfg.Book.ID),
		attribute.String("run_id", runID),
		attribute.Bool("resume", resume),
	))
	defer span.End()

	outputDir := p.OutputDir()
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	statusPath := filepath.Join(outputDir, artifact.StatusFile)

	status := NewStatus()
	if resume {
		loaded, err := LoadStatus(statusPath)
		if err != nil {
			p.logger.Warn("ignoring unreadable status, starting fresh", "error", err)
		} else {
			status = loaded
		}
		p.logger.Info("resuming from previous status",
			"content", status.State(StageContent),
			"cover", status.State(StageCover),
			"assembly", status.State(StageAssembly),
			"completed", status.Completed())
	}
	status.Error = ""

	stages, err := p.registry.Ordered()
	if err != nil {
		return nil, err
	}

	textKind, imageKind := p.cfg.Book.LLMBackend, p.cfg.Book.ImageBackend
	if p.cfg.Mock {
		textKind, imageKind = providers.TextMock, providers.ImageMock
	}

	run := &Run{
		ID:        runID,
		Book:      p.cfg.Book,
		OutputDir: outputDir,
		backends:  p.cfg.Backends,
		textKind:  textKind,
		imageKind: imageKind,
		tracker:   cost.NewTracker(),
		checker:   quality.NewChecker(p.cfg.Quality),
		assembler: assembly.New(assembly.Options{FontPath: p.cfg.FontPath, Created: p.now(), Logger: p.logger}),
		metrics:   metrics.NewRun(),
		logger:    p.logger,
		now:       p.now,
	}

	var skipped []string
	for _, stage := range stages {
		name := stage.Name()
		if err := ctx.Err(); err != nil {
			return nil, p.fail(ctx, run, status, statusPath, name, err)
		}

		if status.Done(name) && artifactsPresent(stage.Artifacts(outputDir)) {
			p.logger.Info("stage already complete, skipping", "stage", name)
			run.metrics.StageSkipped(name)
			p.recordHistory(ctx, run, name, true, 0, nil)
			skipped = append(skipped, name)
			continue
		}

		p.logger.Info("stage starting", "stage", name, "description", stage.Description())
		if err := p.runStage(ctx, run, stage); err != nil {
			return nil, p.fail(ctx, run, status, statusPath, name, err)
		}

		if len(stage.Artifacts(outputDir)) == 0 {
			continue
		}
		status.Set(name, StateDone)
		// A re-run stage invalidates everything built from its old output.
		for _, dep := range p.registry.Downstream(name) {
			status.Set(dep, StatePending)
		}
		if err := status.Save(statusPath); err != nil {
			return nil, fmt.Errorf("failed to save status: %w", err)
		}
	}

	file, err := run.tracker.SaveSummary(p.cfg.OutputRoot)
	if err != nil {
		return nil, err
	}
	total := run.tracker.TotalCost()
	run.metrics.SetCost(total)
	if err := p.cfg.Pusher.Push(ctx, run.metrics, p.cfg.Book.ID); err != nil {
		p.logger.Warn("metrics push failed", "error", err)
	}

	p.logger.Info("pipeline complete",
		"output_dir", outputDir,
		"cost_usd", fmt.Sprintf("%.4f", total),
		"cumulative_cost_usd", fmt.Sprintf("%.4f", file.CumulativeCostUSD))

	result := &Result{
		Success:   true,
		RunID:     runID,
		BookID:    p.cfg.Book.ID,
		OutputDir: outputDir,
		Cost:      total,
		Pages:     run.pages,
		Skipped:   skipped,
	}
	if run.quality != nil {
		q := run.quality.Rounded()
		result.Quality = &q
	}
	return result, nil
}

func (p *Pipeline) runStage(ctx context.Context, run *Run, stage Stage) error {
	name := stage.Name()
	ctx, span := tracer.Start(ctx, "stage."+name, trace.WithAttributes(
		attribute.String("stage", name),
		attribute.String("book_id", run.Book.ID),
	))
	defer span.End()

	start := time.Now()
	err := stage.Run(ctx, run)
	elapsed := time.Since(start)

	run.metrics.ObserveStage(name, elapsed, err)
	p.recordHistory(ctx, run, name, false, elapsed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	p.logger.Info("stage complete", "stage", name, "elapsed", elapsed.Round(time.Millisecond))
	return nil
}

func (p *Pipeline) fail(ctx context.Context, run *Run, status *Status, statusPath, stage string, err error) error {
	err = fmt.Errorf("%s stage failed: %w", stage, err)
	status.Error = err.Error()
	if saveErr := status.Save(statusPath); saveErr != nil {
		p.logger.Error("failed to save status", "error", saveErr)
	}
	p.logger.Error("pipeline failed", "stage", stage, "error", err)

	// Usage already spent on this run still counts toward the running total.
	if _, costErr := run.tracker.SaveSummary(p.cfg.OutputRoot); costErr != nil {
		p.logger.Warn("failed to save cost summary", "error", costErr)
	}
	if pushErr := p.cfg.Pusher.Push(context.WithoutCancel(ctx), run.metrics, p.cfg.Book.ID); pushErr != nil {
		p.logger.Warn("metrics push failed", "error", pushErr)
	}
	return err
}

func (p *Pipeline) recordHistory(ctx context.Context, run *Run, stage string, skipped bool, d time.Duration, stageErr error) {
	if p.cfg.History == nil {
		return
	}
	e := history.Entry{
		RunID:           run.ID,
		BookID:          run.Book.ID,
		Kind:            history.KindPipeline,
		Stage:           stage,
		Skipped:         skipped,
		Success:         stageErr == nil,
		DurationSeconds: d.Seconds(),
		CostUSD:         run.tracker.TotalCost(),
	}
	if stageErr != nil {
		e.Error = stageErr.Error()
	}
	// History must outlive a cancelled run so interrupts are recorded.
	if err := p.cfg.History.Record(context.WithoutCancel(ctx), e); err != nil {
		p.logger.Warn("failed to record history", "error", err)
	}
}

func artifactsPresent(paths []string) bool {
	if len(paths) == 0 {
		return false
	}
	for _, path := range paths {
		if !artifact.Exists(path) {
			return false
		}
	}
	return true
}

// IsCanceled reports whether err came from an interrupted run.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
