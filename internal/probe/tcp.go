package probe

import (
	"context"
	"net"
	"strconv"
	"time"
)

// TCPChecker treats a completed TCP handshake as reachable. Targets without
// a port are dialed on DefaultPort.
type TCPChecker struct {
	Timeout     time.Duration
	DefaultPort int
}

func NewTCPChecker(timeout time.Duration, defaultPort int) *TCPChecker {
	if defaultPort <= 0 {
		defaultPort = 80
	}
	return &TCPChecker{Timeout: clampTimeout(timeout), DefaultPort: defaultPort}
}

func (c *TCPChecker) address(target string) string {
	if _, _, err := net.SplitHostPort(target); err == nil {
		return target
	}
	return net.JoinHostPort(target, strconv.Itoa(c.DefaultPort))
}

func (c *TCPChecker) Check(ctx context.Context, target string) CheckResult {
	dialer := net.Dialer{Timeout: clampTimeout(c.Timeout)}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", c.address(target))
	latency := sinceMS(start)
	if err != nil {
		return CheckResult{Name: "TCP", Success: false, Message: err.Error()}
	}
	_ = conn.Close()
	return CheckResult{Name: "TCP", Success: true, Message: "connected", LatencyMS: latency}
}
