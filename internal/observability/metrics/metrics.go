// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics implements bot.Recorder on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	publishTotal  *prometheus.CounterVec
	cursor        prometheus.Gauge
	messages      prometheus.Gauge
	lastSuccess   prometheus.Gauge
	saveFailures  prometheus.Counter
	tickDuration  prometheus.Histogram
	contentReload prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tweetbot",
			Name:      "publish_total",
			Help:      "Publish attempts by result (ok or failure kind).",
		}, []string{"result"}),
		cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tweetbot",
			Name:      "cursor",
			Help:      "Index of the next message to publish.",
		}),
		messages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tweetbot",
			Name:      "messages",
			Help:      "Number of messages in the loaded content list.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tweetbot",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful publish.",
		}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tweetbot",
			Name:      "cursor_save_failures_total",
			Help:      "Cursor writes that failed after a successful publish.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tweetbot",
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one tick, publish call included.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		contentReload: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tweetbot",
			Name:      "content_reloads_total",
			Help:      "Content list replacements picked up at runtime.",
		}),
	}
	m.reg.MustRegister(
		m.publishTotal, m.cursor, m.messages, m.lastSuccess,
		m.saveFailures, m.tickDuration, m.contentReload,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry is served by the debug listener.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Published(cursor int, at time.Time) {
	m.publishTotal.WithLabelValues("ok").Inc()
	m.cursor.Set(float64(cursor))
	m.lastSuccess.Set(float64(at.Unix()))
}

func (m *Metrics) PublishFailed(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.publishTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) CursorSaveFailed() { m.saveFailures.Inc() }

func (m *Metrics) TickDone(d time.Duration) { m.tickDuration.Observe(d.Seconds()) }

func (m *Metrics) ContentLoaded(messages, cursor int, reload bool) {
	m.messages.Set(float64(messages))
	m.cursor.Set(float64(cursor))
	if reload {
		m.contentReload.Inc()
	}
}
