package probe

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestExecChecker_Args(t *testing.T) {
	c := &ExecChecker{Timeout: 3 * time.Second, GOOS: "linux"}
	if got := strings.Join(c.Args("10.0.0.1"), " "); got != "-c 1 -W 3 10.0.0.1" {
		t.Fatalf("unexpected unix args %q", got)
	}
	c.GOOS = "windows"
	if got := strings.Join(c.Args("10.0.0.1"), " "); got != "-n 1 -w 3000 10.0.0.1" {
		t.Fatalf("unexpected windows args %q", got)
	}
}

func TestExecChecker_ExitStatus(t *testing.T) {
	okPath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true(1) not available")
	}
	failPath, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false(1) not available")
	}

	if out := NewExecChecker(okPath, time.Second, nil).Check(context.Background(), "x"); !out.Success {
		t.Fatalf("want success for zero exit, got %+v", out)
	}
	if out := NewExecChecker(failPath, time.Second, nil).Check(context.Background(), "x"); out.Success {
		t.Fatalf("want failure for non-zero exit, got %+v", out)
	}
}

func TestExecChecker_MissingTool(t *testing.T) {
	out := NewExecChecker("/nonexistent/ping-tool", time.Second, nil).Check(context.Background(), "x")
	if out.Success || out.Message == "" {
		t.Fatalf("want failure with message for missing tool, got %+v", out)
	}
}
