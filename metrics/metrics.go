// Package metrics exposes Prometheus instrumentation for the session and
// notification core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the session manager and notification poller report to.
type Recorder interface {
	RecordLogin(success bool)
	RecordLogout(backendAcknowledged bool)
	RecordTokenRefresh(success bool)
	RecordPoll(success bool)
	SetUnreadCount(count int)
}

// Nop discards every measurement.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordLogin(bool)        {}
func (Nop) RecordLogout(bool)       {}
func (Nop) RecordTokenRefresh(bool) {}
func (Nop) RecordPoll(bool)         {}
func (Nop) SetUnreadCount(int)      {}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	logins       *prometheus.CounterVec
	logouts      *prometheus.CounterVec
	tokenRefresh *prometheus.CounterVec
	polls        *prometheus.CounterVec
	unreadAlerts prometheus.Gauge
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferretcontrol_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferretcontrol_logouts_total",
			Help: "Logouts by whether the backend acknowledged them",
		}, []string{"backend"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferretcontrol_token_refresh_total",
			Help: "Access token refreshes by result",
		}, []string{"result"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferretcontrol_notification_polls_total",
			Help: "Unread count refreshes by result",
		}, []string{"result"}),
		unreadAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ferretcontrol_unread_notifications",
			Help: "Last known unread security notification count",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.logouts,
		c.tokenRefresh,
		c.polls,
		c.unreadAlerts,
	)

	return c
}

func (c *Collector) RecordLogin(success bool) {
	c.logins.WithLabelValues(result(success)).Inc()
}

func (c *Collector) RecordLogout(backendAcknowledged bool) {
	label := "acknowledged"
	if !backendAcknowledged {
		label = "unacknowledged"
	}
	c.logouts.WithLabelValues(label).Inc()
}

func (c *Collector) RecordTokenRefresh(success bool) {
	c.tokenRefresh.WithLabelValues(result(success)).Inc()
}

func (c *Collector) RecordPoll(success bool) {
	c.polls.WithLabelValues(result(success)).Inc()
}

func (c *Collector) SetUnreadCount(count int) {
	c.unreadAlerts.Set(float64(count))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
