package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servermonitor/internal/domain"
	"github.com/hamed0406/servermonitor/internal/metrics"
	"github.com/hamed0406/servermonitor/internal/probe"
)

type fakeChecker struct {
	mu      sync.Mutex
	up      map[string]bool
	calls   []string
	started chan string   // optional; receives id when a check begins
	release chan struct{} // optional; check blocks until closed
	onCheck func(string)  // optional; runs before the result is returned
}

func (f *fakeChecker) Check(ctx context.Context, target string) probe.CheckResult {
	f.mu.Lock()
	f.calls = append(f.calls, target)
	up := f.up[target]
	f.mu.Unlock()
	if f.onCheck != nil {
		f.onCheck(target)
	}
	if f.started != nil {
		f.started <- target
	}
	if f.release != nil {
		<-f.release
	}
	if up {
		return probe.CheckResult{Name: "fake", Success: true, LatencyMS: 12.6}
	}
	return probe.CheckResult{Name: "fake", Message: "unreachable"}
}

func (f *fakeChecker) checked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestRunCycle_AppliesResults(t *testing.T) {
	reg := newRegistry(t, 3, "up.example", "down.example")
	ck := &fakeChecker{up: map[string]bool{"up.example": true}}

	var changes []domain.StatusChange
	s := New(Options{
		Logger:         zap.NewNop(),
		Registry:       reg,
		Checker:        ck,
		OnStatusChange: func(c domain.StatusChange) { changes = append(changes, c) },
	})

	sum := s.RunCycle(context.Background(), reg.Settings())
	if sum.Checked != 2 || sum.Up != 1 || sum.Down != 1 || sum.Alerts != 0 {
		t.Fatalf("summary: %+v", sum)
	}

	up, _ := reg.Get("up.example")
	if up.Status != domain.StatusUp || up.LastLatencyMS != 13 || up.LastCheckedAt == nil {
		t.Fatalf("up target: %+v", up)
	}
	down, _ := reg.Get("down.example")
	if down.Status != domain.StatusDown || down.ConsecutiveFailures != 1 || down.LastLatencyMS != 0 {
		t.Fatalf("down target: %+v", down)
	}
	// first observation from unknown is not a change
	if len(changes) != 0 {
		t.Fatalf("changes: %+v", changes)
	}

	ck.mu.Lock()
	ck.up["down.example"] = true
	ck.mu.Unlock()
	s.RunCycle(context.Background(), reg.Settings())
	if len(changes) != 1 || changes[0].TargetID != "down.example" || changes[0].To != domain.StatusUp {
		t.Fatalf("changes: %+v", changes)
	}
	down, _ = reg.Get("down.example")
	if down.ConsecutiveFailures != 0 || down.LastAlertedFailureCount != nil {
		t.Fatalf("recovery did not reset: %+v", down)
	}
}

func TestRunCycle_AlertsEveryIncrementPastThreshold(t *testing.T) {
	reg := newRegistry(t, 3, "down.example")
	nt := &memNotifier{usable: true}
	s := New(Options{
		Registry: reg,
		Checker:  &fakeChecker{},
		Alerter:  NewAlerter(zap.NewNop(), reg, nt, nil, time.Second),
	})

	alerts := 0
	for range 4 {
		alerts += s.RunCycle(context.Background(), reg.Settings()).Alerts
	}
	if alerts != 2 || nt.count() != 2 {
		t.Fatalf("alerts=%d sent=%d, want 2", alerts, nt.count())
	}
}

func TestRunCycle_CancelledSkipsRemaining(t *testing.T) {
	reg := newRegistry(t, 3, "a.example", "b.example")
	ck := &fakeChecker{}
	s := New(Options{Registry: reg, Checker: ck})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sum := s.RunCycle(ctx, reg.Settings()); sum.Checked != 0 {
		t.Fatalf("checked %d after cancel", sum.Checked)
	}
	if len(ck.checked()) != 0 {
		t.Fatal("checker called after cancel")
	}
}

func TestStart_EmptyRegistry(t *testing.T) {
	s := New(Options{Registry: newRegistry(t, 3), Checker: &fakeChecker{}})
	if err := s.Start(context.Background()); !errors.Is(err, domain.ErrNoTargets) {
		t.Fatalf("err=%v", err)
	}
	if s.Running() {
		t.Fatal("must stay idle")
	}
	if err := s.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Fatalf("stop err=%v", err)
	}
}

func TestStartStop_DuringSleep(t *testing.T) {
	reg := newRegistry(t, 3, "a.example")
	cycles := make(chan CycleSummary, 4)
	s := New(Options{
		Registry: reg,
		Checker:  &fakeChecker{up: map[string]bool{"a.example": true}},
		OnCycle:  func(c CycleSummary) { cycles <- c },
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Fatalf("second start err=%v", err)
	}
	select {
	case <-cycles:
	case <-time.After(2 * time.Second):
		t.Fatal("no cycle ran")
	}

	begin := time.Now()
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if d := time.Since(begin); d > time.Second {
		t.Fatalf("stop during sleep took %v", d)
	}
	if s.Running() {
		t.Fatal("still running after stop")
	}
}

func TestStop_InFlightCheckAppliedOnce(t *testing.T) {
	reg := newRegistry(t, 3, "a.example", "b.example")
	ck := &fakeChecker{started: make(chan string, 4), release: make(chan struct{})}
	s := New(Options{Registry: reg, Checker: ck, StopGrace: 2 * time.Second})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case id := <-ck.started:
		if id != "a.example" {
			t.Fatalf("first check %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("check never started")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop() }()
	time.Sleep(20 * time.Millisecond)
	close(ck.release)

	if err := <-stopped; err != nil {
		t.Fatalf("stop: %v", err)
	}
	a, _ := reg.Get("a.example")
	if a.ConsecutiveFailures != 1 || a.LastCheckedAt == nil {
		t.Fatalf("in-flight result not applied once: %+v", a)
	}
	if got := ck.checked(); len(got) != 1 {
		t.Fatalf("checks after stop: %v", got)
	}
}

func TestStop_GraceExceeded(t *testing.T) {
	reg := newRegistry(t, 3, "a.example")
	ck := &fakeChecker{started: make(chan string, 1), release: make(chan struct{})}
	defer close(ck.release)
	s := New(Options{Registry: reg, Checker: ck, StopGrace: 50 * time.Millisecond})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-ck.started
	if err := s.Stop(); !errors.Is(err, domain.ErrStopTimeout) {
		t.Fatalf("err=%v", err)
	}
	if s.Running() {
		t.Fatal("scheduler must report idle after stop")
	}
}

func TestRunCycle_TargetAddedMidCycleWaitsForNextCycle(t *testing.T) {
	reg := newRegistry(t, 3, "a.example")
	ck := &fakeChecker{up: map[string]bool{"a.example": true, "b.example": true}}
	var once sync.Once
	ck.onCheck = func(string) {
		once.Do(func() {
			if err := reg.Add("b.example"); err != nil {
				t.Errorf("add: %v", err)
			}
		})
	}
	s := New(Options{Registry: reg, Checker: ck})

	if sum := s.RunCycle(context.Background(), reg.Settings()); sum.Checked != 1 {
		t.Fatalf("first cycle checked %d, want 1", sum.Checked)
	}
	b, _ := reg.Get("b.example")
	if b.LastCheckedAt != nil || b.Status != domain.StatusUnknown {
		t.Fatalf("target added mid-cycle was checked in the same cycle: %+v", b)
	}

	if sum := s.RunCycle(context.Background(), reg.Settings()); sum.Checked != 2 {
		t.Fatalf("second cycle checked %d, want 2", sum.Checked)
	}
	if got := ck.checked(); len(got) != 3 || got[2] != "b.example" {
		t.Fatalf("checks: %v", got)
	}
}

func TestStop_TimeoutKeepsSingleRunner(t *testing.T) {
	reg := newRegistry(t, 3, "a.example")
	ck := &fakeChecker{
		up:      map[string]bool{"a.example": true},
		started: make(chan string, 4),
		release: make(chan struct{}),
	}
	m := metrics.New()
	s := New(Options{Registry: reg, Checker: ck, Metrics: m, StopGrace: 50 * time.Millisecond})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-ck.started
	if err := s.Stop(); !errors.Is(err, domain.ErrStopTimeout) {
		t.Fatalf("stop err=%v", err)
	}
	if s.Running() {
		t.Fatal("must report idle once stop was requested")
	}
	if err := s.Start(context.Background()); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Fatalf("restart while old runner alive: err=%v", err)
	}

	close(ck.release)
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := s.Start(context.Background())
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrAlreadyRunning) || time.Now().After(deadline) {
			t.Fatalf("restart after old runner exited: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-ck.started:
	case <-time.After(2 * time.Second):
		t.Fatal("new runner never checked")
	}
	if !strings.Contains(scrape(m), "servermonitor_scheduler_running 1") {
		t.Fatal("old runner cleared the running gauge of the new one")
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if got := ck.checked(); len(got) != 2 {
		t.Fatalf("checks: %v, want one per runner", got)
	}
	if !strings.Contains(scrape(m), "servermonitor_scheduler_running 0") {
		t.Fatal("gauge not cleared after stop")
	}
}

func scrape(m *metrics.Collector) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}
