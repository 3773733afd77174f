package probe

import (
	"context"
	"time"
)

// TimeoutChecker enforces a hard deadline on Inner. Some transports (name
// resolution inside a pinger, a wedged subprocess) do not honor ctx promptly;
// the caller gets a failed result at the deadline either way.
type TimeoutChecker struct {
	Inner   Checker
	Timeout time.Duration
}

func WithTimeout(inner Checker, timeout time.Duration) *TimeoutChecker {
	return &TimeoutChecker{Inner: inner, Timeout: clampTimeout(timeout)}
}

func (t *TimeoutChecker) Check(ctx context.Context, target string) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, clampTimeout(t.Timeout))
	defer cancel()

	out := make(chan CheckResult, 1)
	go func() { out <- t.Inner.Check(ctx, target) }()

	select {
	case r := <-out:
		return r
	case <-ctx.Done():
		return CheckResult{Name: "TIMEOUT", Success: false, Message: ctx.Err().Error()}
	}
}
