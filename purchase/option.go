package purchase

import (
	"strings"
	"time"

	"github.com/viant/paywall/metrics"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Policy controls what happens to outstanding requests when a new one arrives
type Policy int

const (
	// SingleFlight allows one outstanding request per kind; a new request orphans the old one.
	SingleFlight Policy = iota
	// Concurrent keeps every request until its own response arrives.
	Concurrent
)

func (p Policy) String() string {
	if p == Concurrent {
		return "concurrent"
	}
	return "singleFlight"
}

// ParsePolicy parses a policy name, anything but concurrent is single flight
func ParsePolicy(name string) Policy {
	if strings.EqualFold(name, "concurrent") {
		return Concurrent
	}
	return SingleFlight
}

// Option configures a Broker
type Option func(b *Broker)

// WithPolicy sets the pending request policy
func WithPolicy(policy Policy) Option {
	return func(b *Broker) {
		b.policy = policy
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(b *Broker) {
		b.metrics = collector
	}
}

// WithTracer sets the tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(b *Broker) {
		if tracer != nil {
			b.tracer = tracer
		}
	}
}

// WithIDGenerator sets the correlation id generator
func WithIDGenerator(fn func() string) Option {
	return func(b *Broker) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// WithClock sets the time source
func WithClock(fn func() time.Time) Option {
	return func(b *Broker) {
		if fn != nil {
			b.now = fn
		}
	}
}
