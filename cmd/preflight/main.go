// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hamed0406/servermonitor/internal/config"
	"github.com/hamed0406/servermonitor/internal/probe"
)

func main() {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	envFile := ".env"
	if len(os.Args) > 1 {
		envFile = os.Args[1]
	}
	cfg, err := config.Load(envFile)
	if err != nil {
		fail(err.Error())
	}

	smtp := cfg.SMTP
	missing := []string{}
	for name, v := range map[string]string{
		"SMTP_USERNAME": smtp.Username,
		"SMTP_PASSWORD": smtp.Password,
		"SMTP_FROM":     smtp.From,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(smtp.To) == 0 {
		missing = append(missing, "SMTP_TO")
	}
	switch {
	case len(missing) == 0:
		ok(fmt.Sprintf("SMTP alerts via %s:%d to %s", smtp.Host, smtp.Port, strings.Join(smtp.To, ", ")))
		if !smtp.UseTLS {
			warn("SMTP_USE_TLS=false: credentials will be sent in clear text.")
		}
	case cfg.SlackWebhookURL == "":
		warn("email alerts disabled; missing " + strings.Join(missing, ", "))
	}
	if cfg.SlackWebhookURL != "" {
		ok("Slack alerts enabled")
	}
	if len(missing) > 0 && cfg.SlackWebhookURL == "" {
		warn("no notification channel configured ; failures will only be logged.")
	}

	switch cfg.StateBackend {
	case "file", "":
		ok("state file " + cfg.StateFile)
	case "memory":
		warn("STATE_BACKEND=memory ; servers are lost on restart.")
	case "sqlite":
		ok("state in sqlite " + cfg.SQLitePath)
	case "postgres":
		if cfg.DatabaseURL == "" {
			fail("STATE_BACKEND=postgres but DATABASE_URL is empty.")
		} else {
			ok("DATABASE_URL present")
		}
	case "redis":
		if cfg.RedisURL == "" {
			fail("STATE_BACKEND=redis but REDIS_URL is empty.")
		} else {
			ok("REDIS_URL present")
		}
	default:
		fail("unknown STATE_BACKEND " + cfg.StateBackend)
	}

	if _, err := probe.New(probe.Options{
		Mode:       cfg.ProbeMode,
		Timeout:    cfg.ProbeTimeout,
		TCPPort:    cfg.ProbeTCPPort,
		PingPath:   cfg.PingPath,
		Privileged: cfg.ICMPPrivileged,
	}, nil); err != nil {
		fail(err.Error())
	} else {
		ok(fmt.Sprintf("probe mode %s, timeout %s", cfg.ProbeMode, cfg.ProbeTimeout))
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty ; API accepts cross-origin requests from any site.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}
