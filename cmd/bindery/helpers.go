package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackzampolin/bindery/internal/config"
	"github.com/jackzampolin/bindery/internal/history"
	"github.com/jackzampolin/bindery/internal/home"
	"github.com/jackzampolin/bindery/internal/metrics"
	"github.com/jackzampolin/bindery/internal/notify"
	"github.com/jackzampolin/bindery/internal/output"
	"github.com/jackzampolin/bindery/internal/providers"
	"github.com/jackzampolin/bindery/internal/quality"
	"github.com/jackzampolin/bindery/internal/secrets"
)

// printer is set in the root PersistentPreRunE.
var printer *output.Printer

func getHome() (*home.Dir, error) {
	return home.New(homeDir)
}

// loadConfig loads the application config for the current home.
func loadConfig(h *home.Dir) (*config.Config, error) {
	mgr, err := config.NewManager(appCfgFile, h.Path())
	if err != nil {
		return nil, err
	}
	if used := mgr.ConfigFileUsed(); used != "" {
		slog.Debug("loaded app config", "path", used)
	}
	return mgr.Get(), nil
}

// newFactory wires the backend factory with file secrets first, then the environment.
func newFactory(cfg *config.Config, h *home.Dir) *providers.Factory {
	dir := cfg.Secrets.Dir
	if dir == "" {
		dir = h.SecretsPath()
	}
	src := secrets.NewCached(secrets.Chain{secrets.Dir{Path: dir}, secrets.Env{}})
	return providers.NewFactory(cfg.ToFactoryConfig(), src, slog.Default())
}

// openHistory returns nil when the run ledger is disabled.
func openHistory(cfg *config.Config, h *home.Dir) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	store, err := history.Open(cfg.HistoryPath(h.Path()))
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return store, nil
}

func newPusher(cfg *config.Config) *metrics.Pusher {
	return metrics.NewPusher(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)
}

func newNotifier(ctx context.Context, cfg *config.Config) (notify.Notifier, error) {
	return notify.New(ctx, notify.Config{
		Type:         cfg.Notify.Type,
		AMQPURL:      config.ResolveEnvVars(cfg.Notify.AMQPURL),
		Queue:        cfg.Notify.Queue,
		RedisAddr:    config.ResolveEnvVars(cfg.Notify.RedisAddr),
		Stream:       cfg.Notify.Stream,
		StreamMaxLen: cfg.Notify.StreamMaxLen,
		Logger:       slog.Default(),
	})
}

func thresholds(cfg *config.Config) quality.Thresholds {
	return quality.Thresholds{
		MinWordCount:      cfg.Quality.MinWordCount,
		MinChapterCount:   cfg.Quality.MinChapterCount,
		MaxDuplicateRatio: cfg.Quality.MaxDuplicateRatio,
	}
}

func closeQuietly(name string, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to close %s: %v\n", name, err)
	}
}
