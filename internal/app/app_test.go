package app

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hamed0406/servermonitor/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.FromEnv()
	cfg.StateBackend = "file"
	cfg.StateFile = filepath.Join(t.TempDir(), "servers.json")
	cfg.ProbeMode = "tcp"
	cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.To = "", "", "", nil
	cfg.SlackWebhookURL = ""
	return cfg
}

func TestBuild_FileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := Build(ctx, cfg, zap.NewNop(), Hooks{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Notifier.Usable() {
		t.Fatal("no channel configured; alerts must be disabled")
	}
	if _, err := a.Engine.AddTarget(ctx, "10.0.0.1"); err != nil {
		t.Fatal(err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}

	b, err := Build(ctx, cfg, zap.NewNop(), Hooks{})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Shutdown(ctx)
	if got := b.Engine.ListTargets(); len(got) != 1 || got[0].ID != "10.0.0.1" {
		t.Fatalf("targets after rebuild: %+v", got)
	}
}

func TestBuild_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.StateBackend = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "state.db")

	a, err := Build(ctx, cfg, zap.NewNop(), Hooks{})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()
	for name, mutate := range map[string]func(*config.Config){
		"unknown backend":      func(c *config.Config) { c.StateBackend = "etcd" },
		"postgres without dsn": func(c *config.Config) { c.StateBackend = "postgres"; c.DatabaseURL = "" },
		"redis without url":    func(c *config.Config) { c.StateBackend = "redis"; c.RedisURL = "" },
		"unknown probe mode":   func(c *config.Config) { c.ProbeMode = "carrier-pigeon" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			mutate(&cfg)
			if _, err := Build(ctx, cfg, zap.NewNop(), Hooks{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewNotifier_UsableWithSMTP(t *testing.T) {
	cfg := testConfig(t)
	cfg.SMTP.Username, cfg.SMTP.Password = "bot", "secret"
	cfg.SMTP.From, cfg.SMTP.To = "bot@example.com", []string{"ops@example.com"}
	n := NewNotifier(cfg)
	if !n.Usable() {
		t.Fatal("expected usable channel")
	}
}
