package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servermonitor/internal/alert"
	"github.com/hamed0406/servermonitor/internal/metrics"
	"github.com/hamed0406/servermonitor/internal/notify"
	"github.com/hamed0406/servermonitor/internal/registry"
)

const DefaultNotifyTimeout = 10 * time.Second

// Alerter applies the alert policy after a failed check and delivers the
// resulting notification. Delivery failures are logged and never retried
// within the cycle; the next failure increment re-arms the policy.
type Alerter struct {
	logger   *zap.Logger
	reg      *registry.Registry
	notifier notify.Notifier
	metrics  *metrics.Collector
	timeout  time.Duration
	now      func() time.Time
}

func NewAlerter(
	logger *zap.Logger,
	reg *registry.Registry,
	notifier notify.Notifier,
	m *metrics.Collector,
	timeout time.Duration,
) *Alerter {
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &Alerter{
		logger:   logger,
		reg:      reg,
		notifier: notifier,
		metrics:  m,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Usable reports whether a notification channel is configured.
func (a *Alerter) Usable() bool {
	return a.notifier != nil && a.notifier.Usable()
}

// Evaluate returns true when a notification was attempted for id.
func (a *Alerter) Evaluate(ctx context.Context, id string, maxFailures int) bool {
	t, fire := a.reg.ClaimAlert(id, maxFailures, a.Usable())
	if !fire {
		return false
	}

	msg := alert.Failure(t, a.now())
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	if err := a.notifier.Send(sctx, msg.Title, msg.Text); err != nil {
		a.metrics.ObserveAlert("failed")
		a.logger.Error("alert_failed",
			zap.String("target", id),
			zap.Int("consecutive_failures", t.ConsecutiveFailures),
			zap.String("alert_id", msg.ID),
			zap.String("channel", a.notifier.Name()),
			zap.Error(err),
		)
		return true
	}
	a.metrics.ObserveAlert("sent")
	a.logger.Info("alert_sent",
		zap.String("target", id),
		zap.Int("consecutive_failures", t.ConsecutiveFailures),
		zap.String("alert_id", msg.ID),
		zap.String("channel", a.notifier.Name()),
	)
	return true
}
