package probe

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ExecChecker shells out to the platform ping utility.
type ExecChecker struct {
	Path    string
	Timeout time.Duration
	GOOS    string
	Logger  *zap.Logger
}

func NewExecChecker(path string, timeout time.Duration, logger *zap.Logger) *ExecChecker {
	if path == "" {
		path = "ping"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecChecker{Path: path, Timeout: clampTimeout(timeout), GOOS: runtime.GOOS, Logger: logger}
}

// Args returns the single-echo arguments for the configured platform.
func (c *ExecChecker) Args(target string) []string {
	timeout := clampTimeout(c.Timeout)
	if c.GOOS == "windows" {
		return []string{"-n", "1", "-w", strconv.FormatInt(timeout.Milliseconds(), 10), target}
	}
	secs := int((timeout + time.Second - 1) / time.Second)
	return []string{"-c", "1", "-W", strconv.Itoa(secs), target}
}

func (c *ExecChecker) Check(ctx context.Context, target string) CheckResult {
	// the utility's own wait plus process start-up
	ctx, cancel := context.WithTimeout(ctx, clampTimeout(c.Timeout)+2*time.Second)
	defer cancel()

	start := time.Now()
	err := exec.CommandContext(ctx, c.Path, c.Args(target)...).Run()
	if err != nil {
		c.Logger.Debug("ping_exec_failed", zap.String("target", target), zap.Error(err))
		return CheckResult{Name: "PING", Success: false, Message: err.Error()}
	}
	return CheckResult{Name: "PING", Success: true, Message: "ok", LatencyMS: sinceMS(start)}
}
