// Package notify publishes workflow outcome events.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Event statuses.
const (
	StatusPublished = "PUBLISHED"
	StatusFailed    = "FAILED"
)

// Notifier types.
const (
	TypeLog   = "log"
	TypeAMQP  = "amqp"
	TypeRedis = "redis"
)

// Event is a workflow outcome.
type Event struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Title     string    `json:"title,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Manifest  string    `json:"manifest,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
	Close() error
}

// Config selects and configures a notifier.
type Config struct {
	Type string

	AMQPURL string
	Queue   string

	RedisAddr    string
	Stream       string
	StreamMaxLen int64

	Logger *slog.Logger
}

// New creates the notifier named by cfg.Type. An empty type means log.
func New(ctx context.Context, cfg Config) (Notifier, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Type) {
	case "", TypeLog:
		return NewLog(logger), nil
	case TypeAMQP:
		return NewAMQP(cfg.AMQPURL, cfg.Queue, logger)
	case TypeRedis:
		return NewRedis(ctx, cfg.RedisAddr, cfg.Stream, cfg.StreamMaxLen, logger)
	default:
		return nil, fmt.Errorf("unknown notifier type %q (want log, amqp, or redis)", cfg.Type)
	}
}

// Log writes events to a structured logger.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log notifier.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Notify implements Notifier.
func (l *Log) Notify(ctx context.Context, e Event) error {
	attrs := []any{"book_id", e.BookID, "status", e.Status}
	if e.Manifest != "" {
		attrs = append(attrs, "manifest", e.Manifest)
	}
	if e.Status == StatusFailed {
		l.logger.ErrorContext(ctx, "workflow failed", append(attrs, "error", e.Error)...)
		return nil
	}
	l.logger.InfoContext(ctx, "workflow finished", attrs...)
	return nil
}

// Close implements Notifier.
func (l *Log) Close() error { return nil }
