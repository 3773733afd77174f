// Package app assembles an Engine and its collaborators from Config.
package app

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/servermonitor/internal/config"
	"github.com/hamed0406/servermonitor/internal/domain"
	"github.com/hamed0406/servermonitor/internal/metrics"
	"github.com/hamed0406/servermonitor/internal/monitor"
	"github.com/hamed0406/servermonitor/internal/notify"
	"github.com/hamed0406/servermonitor/internal/probe"
	"github.com/hamed0406/servermonitor/internal/repo"
	"github.com/hamed0406/servermonitor/internal/repo/file"
	"github.com/hamed0406/servermonitor/internal/repo/memory"
	"github.com/hamed0406/servermonitor/internal/repo/postgres"
	"github.com/hamed0406/servermonitor/internal/repo/redis"
	"github.com/hamed0406/servermonitor/internal/repo/sqlite"
	"github.com/hamed0406/servermonitor/internal/scheduler"
)

type Hooks struct {
	OnStatusChange func(domain.StatusChange)
	OnCycle        func(scheduler.CycleSummary)
}

type App struct {
	Engine   *monitor.Engine
	Metrics  *metrics.Collector
	Notifier notify.Notifier

	log     *zap.Logger
	closers []func() error
}

// Build wires the engine and hydrates it from the configured state store.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger, hooks Hooks) (*App, error) {
	a := &App{log: log, Metrics: metrics.New()}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	checker, err := probe.New(probe.Options{
		Mode:       cfg.ProbeMode,
		Timeout:    cfg.ProbeTimeout,
		TCPPort:    cfg.ProbeTCPPort,
		PingPath:   cfg.PingPath,
		Privileged: cfg.ICMPPrivileged,
	}, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Notifier = NewNotifier(cfg)

	a.Engine = monitor.New(monitor.Options{
		Logger:         log,
		Checker:        checker,
		Notifier:       a.Notifier,
		Store:          store,
		Metrics:        a.Metrics,
		ProbeTimeout:   cfg.ProbeTimeout,
		NotifyTimeout:  cfg.NotifyTimeout,
		StopGrace:      cfg.StopGrace,
		OnStatusChange: hooks.OnStatusChange,
		OnCycle:        hooks.OnCycle,
	})
	_ = a.Engine.Load(ctx) // logged by the engine; a bad document starts empty

	log.Info("app_ready",
		zap.String("state_backend", cfg.StateBackend),
		zap.String("probe_mode", cfg.ProbeMode),
		zap.String("channel", a.Notifier.Name()),
		zap.Bool("alerts_enabled", a.Notifier.Usable()),
	)
	return a, nil
}

// NewNotifier fans alerts out to every configured channel.
func NewNotifier(cfg config.Config) notify.Notifier {
	return notify.Multi{
		notify.NewSMTP(cfg.SMTP),
		notify.NewSlack(cfg.SlackWebhookURL),
	}
}

func (a *App) openStore(ctx context.Context, cfg config.Config) (repo.StateStore, error) {
	switch cfg.StateBackend {
	case "", "file":
		return file.New(cfg.StateFile), nil
	case "memory":
		return memory.New(), nil
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("state backend postgres requires DATABASE_URL")
		}
		s, err := postgres.New(ctx, cfg.DatabaseURL, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { s.Close(); return nil })
		return s, nil
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("state backend redis requires REDIS_URL")
		}
		s, err := redis.New(ctx, cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

// Shutdown stops the engine, saves state and releases the store.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.Engine != nil {
		err = a.Engine.Shutdown(ctx)
	}
	return multierr.Append(err, a.Close())
}

func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
