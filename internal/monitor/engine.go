// Package monitor wires the registry, scheduler, prober, notifier and state
// store into the Engine consumed by the console and HTTP adapters.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servermonitor/internal/alert"
	"github.com/hamed0406/servermonitor/internal/domain"
	"github.com/hamed0406/servermonitor/internal/metrics"
	"github.com/hamed0406/servermonitor/internal/notify"
	"github.com/hamed0406/servermonitor/internal/probe"
	"github.com/hamed0406/servermonitor/internal/registry"
	"github.com/hamed0406/servermonitor/internal/repo"
	"github.com/hamed0406/servermonitor/internal/scheduler"
)

const saveTimeout = 10 * time.Second

type Options struct {
	Logger   *zap.Logger
	Settings domain.MonitorConfig
	Checker  probe.Checker
	Notifier notify.Notifier
	// Store is optional; without one nothing is persisted.
	Store   repo.StateStore
	Metrics *metrics.Collector

	ProbeTimeout  time.Duration
	NotifyTimeout time.Duration
	StopGrace     time.Duration

	OnStatusChange func(domain.StatusChange)
	OnCycle        func(scheduler.CycleSummary)
}

type Engine struct {
	log      *zap.Logger
	reg      *registry.Registry
	sched    *scheduler.Scheduler
	checker  probe.Checker
	notifier notify.Notifier
	store    repo.StateStore
	metrics  *metrics.Collector

	probeTimeout  time.Duration
	notifyTimeout time.Duration

	// base outlives individual requests; the runner is parented on it.
	base   context.Context
	cancel context.CancelFunc

	saveMu sync.Mutex
}

func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	settings := opts.Settings
	if settings.Validate() != nil {
		settings = domain.DefaultMonitorConfig()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Multi{}
	}
	if opts.ProbeTimeout <= 0 || opts.ProbeTimeout > probe.MaxTimeout {
		opts.ProbeTimeout = probe.MaxTimeout
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = scheduler.DefaultNotifyTimeout
	}

	e := &Engine{
		log:           opts.Logger,
		reg:           registry.New(settings),
		checker:       opts.Checker,
		notifier:      opts.Notifier,
		store:         opts.Store,
		metrics:       opts.Metrics,
		probeTimeout:  opts.ProbeTimeout,
		notifyTimeout: opts.NotifyTimeout,
	}
	e.base, e.cancel = context.WithCancel(context.Background())

	onChange := func(ev domain.StatusChange) {
		if ev.To == domain.StatusDown {
			go e.logDNS(ev.TargetID)
		}
		if opts.OnStatusChange != nil {
			opts.OnStatusChange(ev)
		}
	}
	e.sched = scheduler.New(scheduler.Options{
		Logger:         opts.Logger,
		Registry:       e.reg,
		Checker:        opts.Checker,
		Alerter:        scheduler.NewAlerter(opts.Logger, e.reg, opts.Notifier, opts.Metrics, opts.NotifyTimeout),
		Metrics:        opts.Metrics,
		ProbeTimeout:   opts.ProbeTimeout,
		StopGrace:      opts.StopGrace,
		OnStatusChange: onChange,
		OnCycle:        opts.OnCycle,
	})
	return e
}

// Load hydrates the registry from the store. Any failure leaves the registry
// empty with default settings; the error is returned for reporting only.
func (e *Engine) Load(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	st, err := e.store.Load(ctx)
	if err != nil {
		e.log.Warn("state_load_failed", zap.Error(err))
		st = domain.DefaultState()
	}
	skipped := e.reg.Restore(st)
	for _, id := range skipped {
		e.log.Warn("state_entry_skipped", zap.String("target", id))
	}
	e.metrics.SetTargets(e.reg.Len())
	e.log.Info("state_loaded",
		zap.Int("targets", e.reg.Len()),
		zap.Int("check_interval", e.reg.Settings().CheckIntervalSeconds),
		zap.Int("max_failures", e.reg.Settings().MaxConsecutiveFailures),
	)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	return nil
}

func (e *Engine) AddTarget(ctx context.Context, id string) (domain.Target, error) {
	id, err := registry.NormalizeID(id)
	if err != nil {
		return domain.Target{}, err
	}
	if err := e.reg.Add(id); err != nil {
		return domain.Target{}, err
	}
	e.log.Info("target_added", zap.String("target", id))
	e.changed(ctx)
	t, _ := e.reg.Get(id)
	return t, nil
}

func (e *Engine) RemoveTarget(ctx context.Context, id string) error {
	if err := e.reg.Remove(id); err != nil {
		return err
	}
	e.log.Info("target_removed", zap.String("target", id))
	e.changed(ctx)
	return nil
}

// ClearTargets removes every target and returns how many were removed.
func (e *Engine) ClearTargets(ctx context.Context) int {
	n := e.reg.Clear()
	e.log.Info("targets_cleared", zap.Int("count", n))
	e.changed(ctx)
	return n
}

func (e *Engine) ListTargets() []domain.Target { return e.reg.List() }

func (e *Engine) Target(id string) (domain.Target, bool) { return e.reg.Get(id) }

func (e *Engine) StartMonitoring() error {
	return e.sched.Start(e.base)
}

// StopMonitoring stops the scheduler and saves the state.
func (e *Engine) StopMonitoring(ctx context.Context) error {
	err := e.sched.Stop()
	if err == nil || errors.Is(err, domain.ErrStopTimeout) {
		e.save(ctx)
	}
	return err
}

func (e *Engine) Monitoring() bool { return e.sched.Running() }

func (e *Engine) Settings() domain.MonitorConfig { return e.reg.Settings() }

// UpdateSettings validates and stores cfg. A running cycle keeps the
// settings it started with.
func (e *Engine) UpdateSettings(ctx context.Context, cfg domain.MonitorConfig) error {
	if err := e.reg.UpdateSettings(cfg); err != nil {
		return err
	}
	e.log.Info("settings_updated",
		zap.Int("check_interval", cfg.CheckIntervalSeconds),
		zap.Int("max_failures", cfg.MaxConsecutiveFailures),
	)
	e.save(ctx)
	return nil
}

// NotifierName describes the configured notification channel(s).
func (e *Engine) NotifierName() string { return e.notifier.Name() }

func (e *Engine) NotifierUsable() bool { return e.notifier.Usable() }

// SendTestNotification delivers a test message in the background. The
// returned channel yields exactly one value: the delivery error or nil.
func (e *Engine) SendTestNotification(ctx context.Context) (<-chan error, error) {
	if !e.notifier.Usable() {
		return nil, domain.ErrChannelUnusable
	}
	out := make(chan error, 1)
	msg := alert.Test(e.notifier.Name(), time.Now())
	sctx := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(sctx, e.notifyTimeout)
		defer cancel()
		err := e.notifier.Send(ctx, msg.Title, msg.Text)
		if err != nil {
			e.log.Error("test_notification_failed", zap.String("channel", e.notifier.Name()), zap.Error(err))
		} else {
			e.log.Info("test_notification_sent", zap.String("channel", e.notifier.Name()))
		}
		out <- err
	}()
	return out, nil
}

// ProbeOnce checks id in the background without touching registry state.
// id does not need to be registered.
func (e *Engine) ProbeOnce(ctx context.Context, id string) (<-chan domain.ProbeOutcome, error) {
	id, err := registry.NormalizeID(id)
	if err != nil {
		return nil, err
	}
	out := make(chan domain.ProbeOutcome, 1)
	pctx := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(pctx, e.probeTimeout)
		res := e.checker.Check(ctx, id)
		cancel()

		o := domain.ProbeOutcome{TargetID: id, Reachable: res.Success, Message: res.Message}
		if res.Success {
			o.LatencyMS = int(math.Round(res.LatencyMS))
		} else {
			dns := probe.CheckDNS(pctx, id)
			if o.Message == "" {
				o.Message = "unreachable"
			}
			o.Message = fmt.Sprintf("%s (dns: %s)", o.Message, dns.Class)
		}
		e.log.Info("probe_once",
			zap.String("target", id),
			zap.Bool("up", o.Reachable),
			zap.Int("latency_ms", o.LatencyMS),
		)
		out <- o
	}()
	return out, nil
}

// Shutdown stops monitoring if needed and persists the final state.
func (e *Engine) Shutdown(ctx context.Context) error {
	err := e.sched.Stop()
	e.cancel()
	e.save(ctx)
	e.log.Info("engine_shutdown", zap.Int("targets", e.reg.Len()))
	if errors.Is(err, domain.ErrNotRunning) {
		return nil
	}
	return err
}

func (e *Engine) changed(ctx context.Context) {
	e.metrics.SetTargets(e.reg.Len())
	e.save(ctx)
}

// save persists the registry. Failures are logged and counted; the next
// mutation tries again.
func (e *Engine) save(ctx context.Context) {
	if e.store == nil {
		return
	}
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := e.store.Save(ctx, e.reg.State()); err != nil {
		e.metrics.SaveFailed()
		e.log.Error("state_save_failed", zap.Error(err))
	}
}

func (e *Engine) logDNS(id string) {
	st := probe.CheckDNS(e.base, id)
	e.log.Info("dns_diagnostic",
		zap.String("target", id),
		zap.String("class", st.Class),
		zap.String("resolver_error", st.ResolverError),
	)
}
