// Package metrics exposes engine counters in Prometheus format. A nil
// *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	checks       *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	statusChange *prometheus.CounterVec
	targets      prometheus.Gauge
	running      prometheus.Gauge
	cycle        prometheus.Histogram
	saveErrors   prometheus.Counter
}

func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servermonitor_checks_total",
			Help: "Reachability checks performed, by result.",
		}, []string{"result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servermonitor_alerts_total",
			Help: "Alert notifications attempted, by outcome.",
		}, []string{"outcome"}),
		statusChange: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servermonitor_status_changes_total",
			Help: "Up/down transitions, by new status.",
		}, []string{"to"}),
		targets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "servermonitor_targets",
			Help: "Number of registered targets.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "servermonitor_scheduler_running",
			Help: "1 while the check cycle runner is active.",
		}),
		cycle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "servermonitor_cycle_duration_seconds",
			Help:    "Wall time of one full check cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		saveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "servermonitor_state_save_errors_total",
			Help: "Failed attempts to persist registry state.",
		}),
	}
	c.reg.MustRegister(
		c.checks, c.alerts, c.statusChange, c.targets, c.running, c.cycle, c.saveErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveCheck(up bool) {
	if c == nil {
		return
	}
	if up {
		c.checks.WithLabelValues("up").Inc()
	} else {
		c.checks.WithLabelValues("down").Inc()
	}
}

// ObserveAlert records "sent" or "failed".
func (c *Collector) ObserveAlert(outcome string) {
	if c == nil {
		return
	}
	c.alerts.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveStatusChange(to string) {
	if c == nil {
		return
	}
	c.statusChange.WithLabelValues(to).Inc()
}

func (c *Collector) SetTargets(n int) {
	if c == nil {
		return
	}
	c.targets.Set(float64(n))
}

func (c *Collector) SetRunning(on bool) {
	if c == nil {
		return
	}
	if on {
		c.running.Set(1)
	} else {
		c.running.Set(0)
	}
}

func (c *Collector) ObserveCycle(d time.Duration) {
	if c == nil {
		return
	}
	c.cycle.Observe(d.Seconds())
}

func (c *Collector) SaveFailed() {
	if c == nil {
		return
	}
	c.saveErrors.Inc()
}
