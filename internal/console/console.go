// Package console is the interactive terminal front end over the engine.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/hamed0406/servermonitor/internal/domain"
	"github.com/hamed0406/servermonitor/internal/monitor"
	"github.com/hamed0406/servermonitor/internal/scheduler"
)

const timeLayout = "2006-01-02 15:04:05"

const menu = `
==== Server Monitor ====
 1) Add server
 2) Remove server
 3) Status dashboard
 4) Start monitoring
 5) Stop monitoring
 6) Settings
 7) Send test notification
 8) Test ping
 9) Clear all servers
 0) Quit
> `

type Console struct {
	Engine *monitor.Engine
	Logger *zap.Logger

	mu  sync.Mutex // guards out
	out io.Writer
	in  io.Reader

	lines   chan string
	readErr error // written before lines is closed
}

func New(in io.Reader, out io.Writer, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{Logger: logger, out: out, in: in}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// OnStatusChange prints transitions reported by the scheduler.
func (c *Console) OnStatusChange(ev domain.StatusChange) {
	switch ev.To {
	case domain.StatusDown:
		c.printf("\n[%s] %s is DOWN\n", ev.At.Format(timeLayout), ev.TargetID)
	case domain.StatusUp:
		c.printf("\n[%s] %s is back UP\n", ev.At.Format(timeLayout), ev.TargetID)
	}
}

// OnCycle prints the per-cycle summary.
func (c *Console) OnCycle(s scheduler.CycleSummary) {
	c.printf("\n[%s] checked %d: %d up, %d down, %d alerts (%s)\n",
		s.Started.Format(timeLayout), s.Checked, s.Up, s.Down, s.Alerts, s.Duration.Round(time.Millisecond))
}

// readInput feeds input lines to Run. A blocked Scan cannot be interrupted,
// so after cancellation the goroutine lingers until the next line or EOF.
func (c *Console) readInput(ctx context.Context) {
	defer close(c.lines)
	sc := bufio.NewScanner(c.in)
	for sc.Scan() {
		select {
		case c.lines <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
	c.readErr = sc.Err()
}

func (c *Console) readLine(ctx context.Context, prompt string) (string, bool) {
	c.printf("%s", prompt)
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-c.lines:
		if !ok {
			return "", false
		}
		return strings.TrimSpace(line), true
	}
}

// Run serves the menu until the user quits, input ends or ctx is cancelled.
// Cancellation returns immediately, even while waiting for input.
func (c *Console) Run(ctx context.Context) error {
	c.lines = make(chan string)
	go c.readInput(ctx)

	c.printf("Notification channel: %s\n", c.channel())
	for {
		choice, ok := c.readLine(ctx, menu)
		if !ok {
			if err := ctx.Err(); err != nil {
				c.printf("\nInterrupted.\n")
				return err
			}
			return c.readErr
		}
		switch choice {
		case "1":
			c.add(ctx)
		case "2":
			c.remove(ctx)
		case "3":
			c.Dashboard()
		case "4":
			c.report(c.Engine.StartMonitoring(), "Monitoring started.")
		case "5":
			c.report(c.Engine.StopMonitoring(ctx), "Monitoring stopped.")
		case "6":
			c.settings(ctx)
		case "7":
			c.testNotification(ctx)
		case "8":
			c.testPing(ctx)
		case "9":
			c.clear(ctx)
		case "0", "q", "quit", "exit":
			c.printf("Bye.\n")
			return nil
		case "":
		default:
			c.printf("Unknown option %q\n", choice)
		}
	}
}

func (c *Console) channel() string {
	if !c.Engine.NotifierUsable() {
		return "not configured (alerts disabled)"
	}
	return c.Engine.NotifierName()
}

func (c *Console) report(err error, okMsg string) {
	if err != nil {
		c.printf("Error: %s\n", describe(err))
		return
	}
	c.printf("%s\n", okMsg)
}

func (c *Console) add(ctx context.Context) {
	id, ok := c.readLine(ctx, "Server IP or hostname: ")
	if !ok {
		return
	}
	t, err := c.Engine.AddTarget(ctx, id)
	c.report(err, fmt.Sprintf("Added %s.", t.ID))
}

func (c *Console) remove(ctx context.Context) {
	id, ok := c.readLine(ctx, "Server to remove: ")
	if !ok {
		return
	}
	c.report(c.Engine.RemoveTarget(ctx, id), fmt.Sprintf("Removed %s.", id))
}

func (c *Console) clear(ctx context.Context) {
	ans, ok := c.readLine(ctx, "Remove ALL servers? [y/N]: ")
	if !ok || !strings.EqualFold(ans, "y") {
		c.printf("Cancelled.\n")
		return
	}
	n := c.Engine.ClearTargets(ctx)
	c.printf("Removed %d servers.\n", n)
}

// Dashboard prints one row per target.
func (c *Console) Dashboard() {
	targets := c.Engine.ListTargets()
	cfg := c.Engine.Settings()

	c.mu.Lock()
	defer c.mu.Unlock()
	state := "stopped"
	if c.Engine.Monitoring() {
		state = "running"
	}
	fmt.Fprintf(c.out, "Monitoring: %s | interval %ds | alert after %d failures | channel: %s\n",
		state, cfg.CheckIntervalSeconds, cfg.MaxConsecutiveFailures, c.channel())
	if len(targets) == 0 {
		fmt.Fprintln(c.out, "No servers configured.")
		return
	}

	tw := tablewriter.NewWriter(c.out)
	tw.SetHeader([]string{"Server", "Status", "Last check", "Latency", "Failures"})
	for _, t := range targets {
		tw.Append(row(t))
	}
	tw.Render()
}

func row(t domain.Target) []string {
	last, latency := "never", "-"
	if t.LastCheckedAt != nil {
		last = t.LastCheckedAt.Format(timeLayout)
	}
	if t.Status == domain.StatusUp {
		latency = fmt.Sprintf("%d ms", t.LastLatencyMS)
	}
	return []string{t.ID, strings.ToUpper(t.Status.String()), last, latency, strconv.Itoa(t.ConsecutiveFailures)}
}

func (c *Console) settings(ctx context.Context) {
	cur := c.Engine.Settings()
	c.printf("Current: interval %ds, max failures %d\n", cur.CheckIntervalSeconds, cur.MaxConsecutiveFailures)

	next := cur
	if v, ok := c.readInt(ctx, fmt.Sprintf("Check interval seconds (>= %d, blank keeps %d): ",
		domain.MinCheckIntervalSeconds, cur.CheckIntervalSeconds)); ok {
		next.CheckIntervalSeconds = v
	}
	if v, ok := c.readInt(ctx, fmt.Sprintf("Max consecutive failures (>= %d, blank keeps %d): ",
		domain.MinMaxConsecutiveFailures, cur.MaxConsecutiveFailures)); ok {
		next.MaxConsecutiveFailures = v
	}
	if next == cur {
		c.printf("No changes.\n")
		return
	}
	c.report(c.Engine.UpdateSettings(ctx, next), "Settings saved; they apply from the next cycle.")
}

func (c *Console) readInt(ctx context.Context, prompt string) (int, bool) {
	s, ok := c.readLine(ctx, prompt)
	if !ok || s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		c.printf("Not a number: %q\n", s)
		return 0, false
	}
	return n, true
}

func (c *Console) testNotification(ctx context.Context) {
	ch, err := c.Engine.SendTestNotification(ctx)
	if err != nil {
		c.printf("Error: %s\n", describe(err))
		return
	}
	c.printf("Sending test notification via %s...\n", c.Engine.NotifierName())
	select {
	case err := <-ch:
		c.report(err, "Test notification sent.")
	case <-ctx.Done():
	}
}

func (c *Console) testPing(ctx context.Context) {
	id, ok := c.readLine(ctx, "Server to ping: ")
	if !ok {
		return
	}
	ch, err := c.Engine.ProbeOnce(ctx, id)
	if err != nil {
		c.printf("Error: %s\n", describe(err))
		return
	}
	var o domain.ProbeOutcome
	select {
	case o = <-ch:
	case <-ctx.Done():
		return
	}
	if o.Reachable {
		c.printf("%s is reachable (%d ms)\n", o.TargetID, o.LatencyMS)
		return
	}
	c.printf("%s is unreachable: %s\n", o.TargetID, o.Message)
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoTargets):
		return "add at least one server first"
	case errors.Is(err, domain.ErrChannelUnusable):
		return "notification channel is not configured (set SMTP_* or SLACK_WEBHOOK_URL)"
	default:
		return err.Error()
	}
}
