// Package workflow runs the orchestrated book flow: content and cover in
// parallel with bounded retries, then assembly, upload and a notification.
// Artifacts live in an artifact.Store under stable per-book keys.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/bindery/internal/artifact"
	"github.com/jackzampolin/bindery/internal/assembly"
	"github.com/jackzampolin/bindery/internal/book"
	"github.com/jackzampolin/bindery/internal/content"
	"github.com/jackzampolin/bindery/internal/cost"
	"github.com/jackzampolin/bindery/internal/cover"
	"github.com/jackzampolin/bindery/internal/history"
	"github.com/jackzampolin/bindery/internal/manifest"
	"github.com/jackzampolin/bindery/internal/metrics"
	"github.com/jackzampolin/bindery/internal/notify"
	"github.com/jackzampolin/bindery/internal/pipeline"
	"github.com/jackzampolin/bindery/internal/providers"
)

var tracer = otel.Tracer("github.com/jackzampolin/bindery/internal/workflow")

var (
	// ErrMissingArtifact is returned by Upload when a PDF is absent from the store.
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrUploadNotImplemented is returned by the SP_API upload mode.
	ErrUploadNotImplemented = errors.New("SP-API upload is not implemented; use MANIFEST_ONLY")
)

// UploadMode selects what the upload step does.
type UploadMode string

const (
	UploadManifestOnly UploadMode = "MANIFEST_ONLY"
	UploadSPAPI        UploadMode = "SP_API"
)

// Upload outcome values.
const (
	StatusReadyForUpload = "READY_FOR_UPLOAD"
	ASINPending          = "PENDING"
)

// Step names, also used as metric and history labels.
const (
	StepContent  = "content"
	StepCover    = "cover"
	StepAssembly = "assembly"
	StepUpload   = "upload"
)

const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 2 * time.Second
)

// Config configures a Workflow.
type Config struct {
	Store    artifact.Store
	Backends pipeline.Backends
	Mock     bool

	// MaxRetries is the number of retries after the first attempt of a
	// branch. Negative values mean DefaultMaxRetries.
	MaxRetries int
	RetryDelay time.Duration

	UploadMode UploadMode
	FontPath   string

	Notifier notify.Notifier // nil = log notifier
	History  *history.Store
	Pusher   *metrics.Pusher
	Logger   *slog.Logger
	Now      func() time.Time
}

// Result is the outcome of a successful workflow run.
type Result struct {
	RunID       string  `json:"run_id" yaml:"run_id"`
	BookID      string  `json:"book_id" yaml:"book_id"`
	Status      string  `json:"status" yaml:"status"`
	ASIN        string  `json:"asin" yaml:"asin"`
	ManifestKey string  `json:"manifest_key" yaml:"manifest_key"`
	Pages       int     `json:"pages" yaml:"pages"`
	Cost        float64 `json:"cost" yaml:"cost"`
}

// Text renders the result for terminal output.
func (r *Result) Text() string {
	return fmt.Sprintf("workflow complete\n  book:     %s\n  status:   %s\n  asin:     %s\n  manifest: %s\n  pages:    %d\n  cost:     $%.4f\n",
		r.BookID, r.Status, r.ASIN, r.ManifestKey, r.Pages, r.Cost)
}

// UploadManifest is the manifest written by the upload step.
type UploadManifest struct {
	manifest.Manifest
	Status string `json:"status"`
	ASIN   string `json:"asin"`
}

// Workflow executes orchestrated runs. It is safe to reuse across runs.
type Workflow struct {
	cfg        Config
	notifier   notify.Notifier
	assembler  *assembly.Assembler
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// New validates cfg and creates a workflow.
func New(cfg Config) (*Workflow, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("artifact store is required")
	}
	if cfg.Backends == nil {
		return nil, fmt.Errorf("backends are required")
	}
	switch cfg.UploadMode {
	case "":
		cfg.UploadMode = UploadManifestOnly
	case UploadManifestOnly, UploadSPAPI:
	default:
		return nil, fmt.Errorf("unknown upload mode %q (want %s or %s)", cfg.UploadMode, UploadManifestOnly, UploadSPAPI)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	return &Workflow{
		cfg:        cfg,
		notifier:   notifier,
		assembler:  assembly.New(assembly.Options{FontPath: cfg.FontPath, Created: now(), Logger: logger}),
		maxRetries: maxRetries,
		retryDelay: delay,
		logger:     logger,
		now:        now,
	}, nil
}

// Input returns a copy of cfg ready for a workflow run. A missing book id
// is replaced with a random uuid.
func Input(cfg *book.Config) *book.Config {
	in := *cfg
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	return &in
}

// run carries per-run state through the steps.
type run struct {
	id      string
	book    *book.Config
	keys    artifact.Keys
	tracker *cost.Tracker
	metrics *metrics.Run
	logger  *slog.Logger
	pages   int
}

// Run executes the whole workflow for cfg. Every outcome is notified: a
// failure sends FAILED with the error before the error is returned.
func (w *Workflow) Run(ctx context.Context, cfg *book.Config) (*Result, error) {
	in := Input(cfg)
	r := &run{
		id:      uuid.NewString(),
		book:    in,
		keys:    artifact.Keys{BookID: in.ID},
		tracker: cost.NewTracker(),
		metrics: metrics.NewRun(),
		logger:  w.logger.With("book_id", in.ID),
	}

	ctx, span := tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("book_id", in.ID),
		attribute.String("run_id", r.id),
	))
	defer span.End()

	r.logger.Info("workflow starting", "run_id", r.id, "upload_mode", w.cfg.UploadMode)
	res, err := w.execute(ctx, r)

	total := r.tracker.TotalCost()
	r.metrics.SetCost(total)
	// Delivery must survive an interrupted run.
	detached := context.WithoutCancel(ctx)
	if pushErr := w.cfg.Pusher.Push(detached, r.metrics, in.ID); pushErr != nil {
		r.logger.Warn("metrics push failed", "error", pushErr)
	}

	event := notify.Event{
		ID:        r.id,
		BookID:    in.ID,
		Title:     in.Title,
		Timestamp: w.now().UTC(),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("workflow failed", "error", err)
		event.Status = notify.StatusFailed
		event.Error = err.Error()
		if nerr := w.notifier.Notify(detached, event); nerr != nil {
			r.logger.Warn("failure notification not delivered", "error", nerr)
		}
		return nil, err
	}

	event.Status = notify.StatusPublished
	event.Manifest = res.ManifestKey
	if nerr := w.notifier.Notify(detached, event); nerr != nil {
		r.logger.Warn("notification not delivered", "error", nerr)
	}
	res.Cost = total
	r.logger.Info("workflow complete", "status", res.Status, "manifest", res.ManifestKey,
		"cost_usd", fmt.Sprintf("%.4f", total))
	return res, nil
}

func (w *Workflow) execute(ctx context.Context, r *run) (*Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.step(gctx, r, StepContent, func(ctx context.Context) error {
			return w.withRetry(ctx, r, StepContent, func(ctx context.Context) error {
				return w.generateContent(ctx, r)
			})
		})
	})
	g.Go(func() error {
		return w.step(gctx, r, StepCover, func(ctx context.Context) error {
			return w.withRetry(ctx, r, StepCover, func(ctx context.Context) error {
				return w.generateCover(ctx, r)
			})
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := w.step(ctx, r, StepAssembly, func(ctx context.Context) error {
		return w.assemble(ctx, r)
	}); err != nil {
		return nil, err
	}

	var res *Result
	if err := w.step(ctx, r, StepUpload, func(ctx context.Context) error {
		var err error
		res, err = w.upload(ctx, r)
		return err
	}); err != nil {
		return nil, err
	}
	res.RunID = r.id
	res.Pages = r.pages
	return res, nil
}

// step wraps one unit of work with a span, metrics and a history row.
func (w *Workflow) step(ctx context.Context, r *run, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "step."+name, trace.WithAttributes(
		attribute.String("step", name),
		attribute.String("book_id", r.book.ID),
	))
	defer span.End()

	r.logger.Info("step starting", "step", name)
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	r.metrics.ObserveStage(name, elapsed, err)

	if w.cfg.History != nil {
		e := history.Entry{
			RunID:           r.id,
			BookID:          r.book.ID,
			Kind:            history.KindWorkflow,
			Stage:           name,
			Success:         err == nil,
			DurationSeconds: elapsed.Seconds(),
			CostUSD:         r.tracker.TotalCost(),
		}
		if err != nil {
			e.Error = err.Error()
		}
		if herr := w.cfg.History.Record(context.WithoutCancel(ctx), e); herr != nil {
			r.logger.Warn("failed to record history", "error", herr)
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s step failed: %w", name, err)
	}
	r.logger.Info("step complete", "step", name, "elapsed", elapsed.Round(time.Millisecond))
	return nil
}

// withRetry retries fn on transient backend errors only.
func (w *Workflow) withRetry(ctx context.Context, r *run, branch string, fn func(context.Context) error) error {
	return retry.Do(
		func() error { return fn(ctx) },
		retry.Context(ctx),
		retry.Attempts(uint(w.maxRetries+1)),
		retry.Delay(w.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(providers.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			r.metrics.Retry(branch)
			r.logger.Warn("transient failure, retrying", "step", branch, "attempt", n+1, "error", err)
		}),
	)
}

func (w *Workflow) textKind(r *run) providers.TextKind {
	if w.cfg.Mock {
		return providers.TextMock
	}
	return r.book.LLMBackend
}

func (w *Workflow) imageKind(r *run) providers.ImageKind {
	if w.cfg.Mock {
		return providers.ImageMock
	}
	return r.book.ImageBackend
}

func (w *Workflow) generateContent(ctx context.Context, r *run) error {
	llm, err := w.cfg.Backends.Text(ctx, w.textKind(r))
	if err != nil {
		return err
	}
	gen, err := content.New(content.Config{
		LLM:      llm,
		Recorder: usageRecorder{tracker: r.tracker, metrics: r.metrics},
		Logger:   r.logger,
	})
	if err != nil {
		return err
	}
	manuscript, err := gen.GenerateBook(ctx, r.book)
	if err != nil {
		return err
	}
	return w.cfg.Store.Put(ctx, r.keys.Manuscript(), []byte(manuscript))
}

func (w *Workflow) generateCover(ctx context.Context, r *run) error {
	img, err := w.cfg.Backends.Image(ctx, w.imageKind(r))
	if err != nil {
		return err
	}
	data, err := cover.NewDesigner(img, r.logger).GenerateCover(ctx, r.book)
	if err != nil {
		return err
	}
	return w.cfg.Store.Put(ctx, r.keys.CoverImage(), data)
}

func (w *Workflow) assemble(ctx context.Context, r *run) error {
	manuscript, err := w.cfg.Store.Get(ctx, r.keys.Manuscript())
	if err != nil {
		return err
	}
	img, err := w.cfg.Store.Get(ctx, r.keys.CoverImage())
	if err != nil {
		return err
	}

	interior, err := w.assembler.BuildInterior(r.book.Title, r.book.Author, string(manuscript))
	if err != nil {
		return err
	}
	coverDoc, err := w.assembler.RenderCover(img)
	if err != nil {
		return err
	}
	if err := w.cfg.Store.Put(ctx, r.keys.InteriorPDF(), interior.Data); err != nil {
		return err
	}
	if err := w.cfg.Store.Put(ctx, r.keys.CoverPDF(), coverDoc.Data); err != nil {
		return err
	}

	r.pages = interior.Pages
	r.metrics.SetPages(interior.Pages)
	r.logger.Info("pdfs assembled", "pages", interior.Pages)
	return nil
}

func (w *Workflow) upload(ctx context.Context, r *run) (*Result, error) {
	for _, key := range []string{r.keys.InteriorPDF(), r.keys.CoverPDF()} {
		ok, err := w.cfg.Store.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, key)
		}
	}

	if w.cfg.UploadMode == UploadSPAPI {
		return nil, ErrUploadNotImplemented
	}

	summary := r.tracker.Summary()
	m := UploadManifest{
		Manifest: *manifest.New(r.book, manifest.Files{
			Manuscript:  r.keys.Manuscript(),
			Cover:       r.keys.CoverImage(),
			InteriorPDF: r.keys.InteriorPDF(),
			CoverPDF:    r.keys.CoverPDF(),
		}, nil, &summary, w.now()),
		Status: StatusReadyForUpload,
		ASIN:   ASINPending,
	}
	data, err := artifact.MarshalJSON(m)
	if err != nil {
		return nil, err
	}
	if err := w.cfg.Store.Put(ctx, r.keys.Manifest(), data); err != nil {
		return nil, err
	}

	return &Result{
		BookID:      r.book.ID,
		Status:      m.Status,
		ASIN:        m.ASIN,
		ManifestKey: r.keys.Manifest(),
	}, nil
}

// usageRecorder sends token usage to the cost tracker and run metrics.
type usageRecorder struct {
	tracker *cost.Tracker
	metrics *metrics.Run
}

func (u usageRecorder) Record(backend string, in, out int) {
	u.tracker.Record(backend, in, out)
	u.metrics.Tokens(backend, in, out)
}
