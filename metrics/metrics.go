// Package metrics exposes bridge metrics on a private Prometheus registry.
//
// Every method is safe on a nil *Collector so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds collector configuration
type Config struct {
	// Namespace prefixes every metric, defaults to "paywall"
	Namespace string `yaml:"namespace" json:"namespace"`
	// Path is the HTTP path of the scrape endpoint, defaults to /metrics
	Path string `yaml:"path" json:"path"`
	// WaitBuckets are histogram buckets for purchase/restore waits in seconds
	WaitBuckets []float64 `yaml:"waitBuckets" json:"waitBuckets"`
}

// Collector groups the bridge metrics
type Collector struct {
	config   Config
	registry *prometheus.Registry

	pending  *prometheus.GaugeVec
	outcomes *prometheus.CounterVec
	orphaned *prometheus.CounterVec
	stale    *prometheus.CounterVec
	wait     *prometheus.HistogramVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

// New creates a collector with its own registry
func New(config Config) *Collector {
	if config.Namespace == "" {
		config.Namespace = "paywall"
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}
	if len(config.WaitBuckets) == 0 {
		config.WaitBuckets = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300}
	}
	c := &Collector{config: config, registry: prometheus.NewRegistry()}
	c.init()
	return c
}

func (c *Collector) init() {
	ns := c.config.Namespace
	c.pending = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns, Subsystem: "broker", Name: "pending",
		Help: "Outstanding purchase and restore requests.",
	}, []string{"kind"})
	c.outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "broker", Name: "outcomes_total",
		Help: "Resolved purchase and restore requests by result.",
	}, []string{"kind", "result"})
	c.orphaned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "broker", Name: "orphaned_total",
		Help: "Requests superseded before resolution.",
	}, []string{"kind"})
	c.stale = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "broker", Name: "stale_responses_total",
		Help: "Responses that matched no pending request.",
	}, []string{"kind"})
	c.wait = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "broker", Name: "wait_seconds",
		Help:    "Time a purchase or restore waited for the scripting layer.",
		Buckets: c.config.WaitBuckets,
	}, []string{"kind"})
	c.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "rpc", Name: "requests_total",
		Help: "JSON-RPC requests by method and result.",
	}, []string{"method", "success"})
	c.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "rpc", Name: "request_duration_seconds",
		Help:    "JSON-RPC request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	c.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "events", Name: "emitted_total",
		Help: "Events emitted to the scripting layer by channel.",
	}, []string{"channel", "delivered"})
	c.registry.MustRegister(c.pending, c.outcomes, c.orphaned, c.stale, c.wait, c.requests, c.latency, c.events)
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Path returns the scrape path
func (c *Collector) Path() string {
	return c.config.Path
}

// Handler returns the scrape handler
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// SetPending records outstanding requests of a kind
func (c *Collector) SetPending(kind string, count int) {
	if c == nil {
		return
	}
	c.pending.WithLabelValues(kind).Set(float64(count))
}

// Outcome counts a resolved request
func (c *Collector) Outcome(kind, result string) {
	if c == nil {
		return
	}
	c.outcomes.WithLabelValues(kind, result).Inc()
}

// Orphaned counts a superseded request
func (c *Collector) Orphaned(kind string) {
	if c == nil {
		return
	}
	c.orphaned.WithLabelValues(kind).Inc()
}

// Stale counts a response without a pending request
func (c *Collector) Stale(kind string) {
	if c == nil {
		return
	}
	c.stale.WithLabelValues(kind).Inc()
}

// ObserveWait records how long a request waited
func (c *Collector) ObserveWait(kind string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.wait.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Request records a JSON-RPC request
func (c *Collector) Request(method string, success bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, boolLabel(success)).Inc()
	c.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Event records an emitted event
func (c *Collector) Event(channel string, delivered bool) {
	if c == nil {
		return
	}
	c.events.WithLabelValues(channel, boolLabel(delivered)).Inc()
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
