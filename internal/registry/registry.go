// Package registry holds the monitored targets and the monitor settings. It is
// the single mutable source of truth shared by the scheduler and presentation.
package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hamed0406/servermonitor/internal/alert"
	"github.com/hamed0406/servermonitor/internal/domain"
)

type Registry struct {
	mu       sync.RWMutex
	order    []string
	targets  map[string]*domain.Target
	settings domain.MonitorConfig
}

func New(settings domain.MonitorConfig) *Registry {
	return &Registry{
		targets:  make(map[string]*domain.Target),
		settings: settings,
	}
}

// Transition describes the effect of one applied check result.
type Transition struct {
	Target   domain.Target
	Previous domain.Status
}

// StatusChange reports an Up->Down or Down->Up flip. Transitions out of
// Unknown are not status changes.
func (t Transition) StatusChange() (domain.StatusChange, bool) {
	if t.Previous == domain.StatusUnknown || t.Previous == t.Target.Status {
		return domain.StatusChange{}, false
	}
	var at time.Time
	if t.Target.LastCheckedAt != nil {
		at = *t.Target.LastCheckedAt
	}
	return domain.StatusChange{
		TargetID: t.Target.ID,
		From:     t.Previous,
		To:       t.Target.Status,
		At:       at,
	}, true
}

// NormalizeID trims id and rejects empty ids or ids with inner whitespace.
func NormalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty id", domain.ErrInvalidTarget)
	}
	if strings.ContainsAny(id, " \t\r\n") {
		return "", fmt.Errorf("%w: %q contains whitespace", domain.ErrInvalidTarget, id)
	}
	return id, nil
}

func (r *Registry) Add(id string) error {
	id, err := NormalizeID(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[id]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateTarget, id)
	}
	r.targets[id] = &domain.Target{ID: id, Status: domain.StatusUnknown}
	r.order = append(r.order, id)
	return nil
}

func (r *Registry) Remove(id string) error {
	id = strings.TrimSpace(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	delete(r.targets, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every target and returns how many were removed.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.order)
	r.order = nil
	r.targets = make(map[string]*domain.Target)
	return n
}

// List returns copies of all targets in insertion order.
func (r *Registry) List() []domain.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Target, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.targets[id].Clone())
	}
	return out
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Get(id string) (domain.Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[strings.TrimSpace(id)]
	if !ok {
		return domain.Target{}, false
	}
	return t.Clone(), true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ApplyCheckResult runs the state transition for one probe result.
func (r *Registry) ApplyCheckResult(id string, reachable bool, latencyMS int, now time.Time) (Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	prev := t.Status
	checked := now
	t.LastCheckedAt = &checked
	if reachable {
		t.Status = domain.StatusUp
		t.ConsecutiveFailures = 0
		t.LastAlertedFailureCount = nil
		t.LastLatencyMS = max(latencyMS, 0)
	} else {
		t.Status = domain.StatusDown
		t.ConsecutiveFailures++
		t.LastLatencyMS = 0
	}
	return Transition{Target: t.Clone(), Previous: prev}, nil
}

// ClaimAlert evaluates the alert policy for id and, when it fires, records the
// alerted failure count before returning so a concurrent or repeated call for
// the same count cannot fire again.
func (r *Registry) ClaimAlert(id string, maxFailures int, channelUsable bool) (domain.Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if !ok || !alert.Evaluate(*t, maxFailures, channelUsable) {
		return domain.Target{}, false
	}
	n := t.ConsecutiveFailures
	t.LastAlertedFailureCount = &n
	return t.Clone(), true
}

func (r *Registry) Settings() domain.MonitorConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

func (r *Registry) UpdateSettings(cfg domain.MonitorConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.settings = cfg
	r.mu.Unlock()
	return nil
}

// State returns the persisted form: ids and settings only.
func (r *Registry) State() domain.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.State{
		Servers:       append([]string{}, r.order...),
		CheckInterval: r.settings.CheckIntervalSeconds,
		MaxFailures:   r.settings.MaxConsecutiveFailures,
	}
}

// Restore replaces membership and settings with st. Every restored target
// starts Unknown. Invalid or duplicate ids in st are skipped and returned.
func (r *Registry) Restore(st domain.State) []string {
	var skipped []string
	order := make([]string, 0, len(st.Servers))
	targets := make(map[string]*domain.Target, len(st.Servers))
	for _, raw := range st.Servers {
		id, err := NormalizeID(raw)
		if err != nil {
			skipped = append(skipped, raw)
			continue
		}
		if _, dup := targets[id]; dup {
			skipped = append(skipped, raw)
			continue
		}
		targets[id] = &domain.Target{ID: id, Status: domain.StatusUnknown}
		order = append(order, id)
	}

	r.mu.Lock()
	r.order = order
	r.targets = targets
	r.settings = st.Config()
	r.mu.Unlock()
	return skipped
}
