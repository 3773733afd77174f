package probe

import (
	"context"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// ICMPChecker sends a single echo request per check.
type ICMPChecker struct {
	Timeout    time.Duration
	Privileged bool
	Logger     *zap.Logger
}

func NewICMPChecker(timeout time.Duration, privileged bool, logger *zap.Logger) *ICMPChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ICMPChecker{Timeout: clampTimeout(timeout), Privileged: privileged, Logger: logger}
}

func (c *ICMPChecker) Check(ctx context.Context, target string) CheckResult {
	start := time.Now()
	pinger, err := probing.NewPinger(target)
	if err != nil {
		c.Logger.Debug("icmp_pinger_error", zap.String("target", target), zap.Error(err))
		return CheckResult{Name: "ICMP", Success: false, Message: err.Error()}
	}
	pinger.Count = 1
	pinger.Timeout = clampTimeout(c.Timeout)
	pinger.SetPrivileged(c.Privileged)

	done := make(chan error, 1)
	go func() { done <- pinger.Run() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return CheckResult{Name: "ICMP", Success: false, Message: ctx.Err().Error()}
	}
	if err != nil {
		c.Logger.Debug("icmp_run_error", zap.String("target", target), zap.Error(err))
		return CheckResult{Name: "ICMP", Success: false, Message: err.Error()}
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return CheckResult{Name: "ICMP", Success: false, Message: "no reply"}
	}
	return CheckResult{
		Name:      "ICMP",
		Success:   true,
		Message:   "reply from " + stats.IPAddr.String(),
		LatencyMS: sinceMS(start),
	}
}
