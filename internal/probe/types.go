package probe

import (
	"context"
	"time"
)

// MaxTimeout bounds every single check so one unresponsive target cannot
// stall a cycle.
const MaxTimeout = 5 * time.Second

const DefaultTimeout = 3 * time.Second

// CheckResult holds the outcome of a single probe.
type CheckResult struct {
	Name       string  `json:"name"`
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	LatencyMS  float64 `json:"latency_ms,omitempty"`
	StatusCode int     `json:"status_code,omitempty"`
}

// Checker is implemented by any reachability check (ICMP, ping, TCP, HTTP).
// Check never returns an error: transport failures surface as Success=false.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}

func clampTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return min(d, MaxTimeout)
}

func sinceMS(start time.Time) float64 {
	return time.Since(start).Seconds() * 1000
}
