// Package metrics exposes Prometheus instrumentation for the golden-hour
// session.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the session reports to. A nil Recorder is not
// allowed; use Nop when metrics are off.
type Recorder interface {
	RecordGrant()
	RecordFetch(provider, outcome string, latency time.Duration)
	RecordCountdown(remaining time.Duration)
	RecordExpired()
	RecordState(state string)
}

// Fetch outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeNetwork   = "network_failure"
	OutcomeMalformed = "malformed_data"
)

type Collector struct {
	grants       prometheus.Counter
	fetches      *prometheus.CounterVec
	fetchLatency prometheus.Histogram
	countdown    prometheus.Gauge
	expirations  prometheus.Counter
	state        *prometheus.GaugeVec
	states       []string
}

// NewCollector registers the session metrics on reg. states lists every
// value RecordState may receive so that exactly one is set to 1.
func NewCollector(reg prometheus.Registerer, states []string) *Collector {
	c := &Collector{
		grants: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "golden_hour_permission_grants_total",
			Help: "Location permission grants that started a session cycle.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "golden_hour_sun_times_fetch_total",
			Help: "Sun times fetches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "golden_hour_sun_times_fetch_latency_seconds",
			Help:    "Latency of sun times fetches.",
			Buckets: prometheus.DefBuckets,
		}),
		countdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "golden_hour_countdown_seconds",
			Help: "Seconds until the next golden hour boundary.",
		}),
		expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "golden_hour_countdown_expired_total",
			Help: "Countdowns that reached their target.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "golden_hour_session_state",
			Help: "Current session state (1 for the active state).",
		}, []string{"state"}),
		states: states,
	}

	reg.MustRegister(
		c.grants,
		c.fetches,
		c.fetchLatency,
		c.countdown,
		c.expirations,
		c.state,
	)
	return c
}

func (c *Collector) RecordGrant() {
	c.grants.Inc()
}

func (c *Collector) RecordFetch(provider, outcome string, latency time.Duration) {
	c.fetches.WithLabelValues(provider, outcome).Inc()
	c.fetchLatency.Observe(latency.Seconds())
}

func (c *Collector) RecordCountdown(remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	c.countdown.Set(remaining.Seconds())
}

func (c *Collector) RecordExpired() {
	c.expirations.Inc()
	c.countdown.Set(0)
}

func (c *Collector) RecordState(state string) {
	for _, s := range c.states {
		c.state.WithLabelValues(s).Set(0)
	}
	c.state.WithLabelValues(state).Set(1)
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type nop struct{}

// Nop discards everything.
var Nop Recorder = nop{}

func (nop) RecordGrant()                              {}
func (nop) RecordFetch(string, string, time.Duration) {}
func (nop) RecordCountdown(time.Duration)             {}
func (nop) RecordExpired()                            {}
func (nop) RecordState(string)                        {}
