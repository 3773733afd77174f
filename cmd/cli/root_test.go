package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func setEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	state := filepath.Join(dir, "servers.json")
	t.Setenv("STATE_BACKEND", "file")
	t.Setenv("STATE_FILE", state)
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("PROBE_MODE", "tcp")
	t.Setenv("SMTP_USERNAME", "")
	t.Setenv("SLACK_WEBHOOK_URL", "")
	return state
}

func TestCLI_AddListRemove(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "add", "10.0.0.1", "b.example")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "added 10.0.0.1") || !strings.Contains(out, "added b.example") {
		t.Fatalf("add output: %s", out)
	}

	if _, err := execute(t, "add", "10.0.0.1"); err == nil {
		t.Fatal("duplicate add must fail")
	}

	out, err = execute(t, "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "10.0.0.1") || !strings.Contains(out, "b.example") {
		t.Fatalf("list output: %s", out)
	}

	if out, err = execute(t, "remove", "b.example"); err != nil || !strings.Contains(out, "removed b.example") {
		t.Fatalf("remove: %v %s", err, out)
	}
	if out, err = execute(t, "remove", "--all"); err != nil || !strings.Contains(out, "removed 1 servers") {
		t.Fatalf("remove --all: %v %s", err, out)
	}
}

func TestCLI_Settings(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "settings", "--interval", "45")
	if err != nil || !strings.Contains(out, "check_interval=45 max_failures=3") {
		t.Fatalf("settings: %v %s", err, out)
	}
	out, err = execute(t, "settings")
	if err != nil || !strings.Contains(out, "check_interval=45") {
		t.Fatalf("settings not persisted: %v %s", err, out)
	}
	if _, err := execute(t, "settings", "--max-failures", "0"); err == nil {
		t.Fatal("invalid settings must fail")
	}
}

func TestCLI_TestNotifyUnconfigured(t *testing.T) {
	setEnv(t)
	if _, err := execute(t, "test-notify"); err == nil {
		t.Fatal("expected error without a configured channel")
	}
}
