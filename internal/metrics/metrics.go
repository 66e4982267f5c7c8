// Package metrics exposes per-run prometheus metrics and optional Pushgateway export.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "bindery"

// Run collects metrics for one pipeline or workflow run in its own registry,
// so concurrent runs in one process never share series.
type Run struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageRuns     *prometheus.CounterVec
	stageSkipped  *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	retries       *prometheus.CounterVec
	tokens        *prometheus.CounterVec
	costUSD       prometheus.Gauge
	pages         prometheus.Gauge
	qualityPassed prometheus.Gauge
}

// NewRun creates a metrics set backed by a fresh registry.
func NewRun() *Run {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Run{
		registry: reg,
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"stage"}),
		stageRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Stages executed.",
		}, []string{"stage"}),
		stageSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_skipped_total",
			Help:      "Stages skipped on resume because their artifacts were verified.",
		}, []string{"stage"}),
		stageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Stages that failed.",
		}, []string{"stage"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Workflow branch retries after transient backend errors.",
		}, []string{"branch"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens used per backend and direction.",
		}, []string{"backend", "direction"}),
		costUSD: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_cost_usd",
			Help:      "Estimated cost of the run in USD.",
		}),
		pages: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interior_pages",
			Help:      "Page count of the assembled interior PDF.",
		}),
		qualityPassed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quality_passed",
			Help:      "1 if the quality gate passed, 0 otherwise.",
		}),
	}
}

// Registry returns the run's registry.
func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records a finished stage.
func (r *Run) ObserveStage(stage string, d time.Duration, err error) {
	r.stageRuns.WithLabelValues(stage).Inc()
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		r.stageFailures.WithLabelValues(stage).Inc()
	}
}

// StageSkipped records a stage skipped on resume.
func (r *Run) StageSkipped(stage string) {
	r.stageSkipped.WithLabelValues(stage).Inc()
}

// Retry records a retry of a workflow branch.
func (r *Run) Retry(branch string) {
	r.retries.WithLabelValues(branch).Inc()
}

// Tokens records token usage for a backend.
func (r *Run) Tokens(backend string, in, out int) {
	r.tokens.WithLabelValues(backend, "input").Add(float64(in))
	r.tokens.WithLabelValues(backend, "output").Add(float64(out))
}

// SetCost sets the run's estimated cost.
func (r *Run) SetCost(usd float64) {
	r.costUSD.Set(usd)
}

// SetPages sets the interior page count.
func (r *Run) SetPages(n int) {
	r.pages.Set(float64(n))
}

// SetQuality records the quality gate outcome.
func (r *Run) SetQuality(passed bool) {
	if passed {
		r.qualityPassed.Set(1)
		return
	}
	r.qualityPassed.Set(0)
}

// Pusher sends run metrics to a Prometheus Pushgateway.
type Pusher struct {
	url string
	job string
}

// NewPusher returns nil when url is empty; a nil Pusher's Push is a no-op.
func NewPusher(url, job string) *Pusher {
	if url == "" {
		return nil
	}
	if job == "" {
		job = namespace
	}
	return &Pusher{url: url, job: job}
}

// Push sends r grouped by book_id.
func (p *Pusher) Push(ctx context.Context, r *Run, bookID string) error {
	if p == nil || r == nil {
		return nil
	}
	err := push.New(p.url, p.job).
		Gatherer(r.registry).
		Grouping("book_id", bookID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", p.url, err)
	}
	return nil
}
