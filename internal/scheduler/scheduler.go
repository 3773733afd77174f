// Package scheduler drives the periodic check cycle: probe every registered
// target, apply the result to the registry, and alert on failure streaks.
package scheduler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servermonitor/internal/domain"
	"github.com/hamed0406/servermonitor/internal/metrics"
	"github.com/hamed0406/servermonitor/internal/probe"
	"github.com/hamed0406/servermonitor/internal/registry"
)

const DefaultStopGrace = 5 * time.Second

// CycleSummary describes one completed (or abandoned) pass over the targets.
type CycleSummary struct {
	Started  time.Time
	Duration time.Duration
	Checked  int
	Up       int
	Down     int
	Alerts   int
}

type Options struct {
	Logger       *zap.Logger
	Registry     *registry.Registry
	Checker      probe.Checker
	Alerter      *Alerter
	Metrics      *metrics.Collector
	ProbeTimeout time.Duration
	StopGrace    time.Duration
	Now          func() time.Time

	// Presentation hooks, called from the runner goroutine.
	OnStatusChange func(domain.StatusChange)
	OnCycle        func(CycleSummary)
}

// Scheduler is Idle until Start spawns the runner and Running until Stop.
// A runner that outlives Stop's grace period keeps done open, and Start
// refuses until it exits, so at most one runner exists at a time.
type Scheduler struct {
	opts Options

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	stopping bool
}

func New(opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ProbeTimeout <= 0 || opts.ProbeTimeout > probe.MaxTimeout {
		opts.ProbeTimeout = probe.MaxTimeout
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{opts: opts}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aliveLocked() {
		if s.stopping {
			return fmt.Errorf("%w: previous run still finishing its last check", domain.ErrAlreadyRunning)
		}
		return domain.ErrAlreadyRunning
	}
	if s.opts.Registry.Len() == 0 {
		return domain.ErrNoTargets
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done, s.stopping = cancel, done, false
	s.opts.Metrics.SetRunning(true)
	s.opts.Logger.Info("scheduler_started", zap.Int("targets", s.opts.Registry.Len()))

	go s.run(runCtx, done)
	return nil
}

// Stop cancels the runner and waits up to the grace period for it to exit.
// A check already in flight is allowed to finish and apply its result.
// Calling Stop again after ErrStopTimeout waits on the same runner.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.aliveLocked() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	s.stopping = true
	s.cancel()
	done := s.done
	s.mu.Unlock()

	t := time.NewTimer(s.opts.StopGrace)
	defer t.Stop()
	select {
	case <-done:
		s.opts.Logger.Info("scheduler_stopped")
		return nil
	case <-t.C:
		s.opts.Logger.Warn("scheduler_stop_timeout", zap.Duration("grace", s.opts.StopGrace))
		return domain.ErrStopTimeout
	}
}

// Running reports whether monitoring is on. It is false as soon as Stop is
// called, even while a lingering check finishes.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aliveLocked() && !s.stopping
}

func (s *Scheduler) aliveLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// release clears the runner state when done still belongs to the current
// runner, then signals exit.
func (s *Scheduler) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done {
		s.opts.Metrics.SetRunning(false)
		s.cancel()
		s.cancel, s.done, s.stopping = nil, nil, false
	}
	close(done)
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer s.release(done)

	for {
		// settings are captured once so a mid-cycle update applies next cycle
		cfg := s.opts.Registry.Settings()
		s.RunCycle(ctx, cfg)

		t := time.NewTimer(cfg.Interval())
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// RunCycle checks every target registered at the time of the call. It stops
// before the next target once ctx is cancelled.
func (s *Scheduler) RunCycle(ctx context.Context, cfg domain.MonitorConfig) CycleSummary {
	sum := CycleSummary{Started: s.opts.Now()}
	start := time.Now()

	for _, id := range s.opts.Registry.IDs() {
		if ctx.Err() != nil {
			break
		}
		up, alerted, ok := s.checkOne(ctx, id, cfg)
		if !ok {
			continue
		}
		sum.Checked++
		if up {
			sum.Up++
		} else {
			sum.Down++
		}
		if alerted {
			sum.Alerts++
		}
	}

	sum.Duration = time.Since(start)
	s.opts.Metrics.ObserveCycle(sum.Duration)
	s.opts.Logger.Info("cycle_completed",
		zap.Int("checked", sum.Checked),
		zap.Int("up", sum.Up),
		zap.Int("down", sum.Down),
		zap.Int("alerts", sum.Alerts),
		zap.Duration("duration", sum.Duration),
	)
	if s.opts.OnCycle != nil {
		s.opts.OnCycle(sum)
	}
	return sum
}

// checkOne probes id on a context detached from ctx's cancellation so a stop
// never aborts a check mid-flight. ok is false when id was removed meanwhile.
func (s *Scheduler) checkOne(ctx context.Context, id string, cfg domain.MonitorConfig) (up, alerted, ok bool) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ProbeTimeout)
	res := s.opts.Checker.Check(pctx, id)
	cancel()

	latency := 0
	if res.Success {
		latency = int(math.Round(res.LatencyMS))
	}
	tr, err := s.opts.Registry.ApplyCheckResult(id, res.Success, latency, s.opts.Now())
	if err != nil {
		s.opts.Logger.Debug("target_gone_mid_cycle", zap.String("target", id))
		return false, false, false
	}
	s.opts.Metrics.ObserveCheck(res.Success)
	s.opts.Logger.Debug("target_checked",
		zap.String("target", id),
		zap.Bool("up", res.Success),
		zap.Int("latency_ms", latency),
		zap.Int("consecutive_failures", tr.Target.ConsecutiveFailures),
		zap.String("reason", res.Message),
	)

	if ev, changed := tr.StatusChange(); changed {
		s.opts.Metrics.ObserveStatusChange(ev.To.String())
		s.opts.Logger.Info("status_changed",
			zap.String("target", id),
			zap.String("from", ev.From.String()),
			zap.String("to", ev.To.String()),
		)
		if s.opts.OnStatusChange != nil {
			s.opts.OnStatusChange(ev)
		}
	}

	if !res.Success && s.opts.Alerter != nil {
		alerted = s.opts.Alerter.Evaluate(ctx, id, cfg.MaxConsecutiveFailures)
	}
	return res.Success, alerted, true
}
