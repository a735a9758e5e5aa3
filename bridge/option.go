package bridge

import (
	"context"

	"github.com/viant/paywall/codec"
	"github.com/viant/paywall/event"
	"github.com/viant/paywall/fallback"
	"github.com/viant/paywall/metrics"
	"github.com/viant/paywall/sdk"
	"go.uber.org/zap"
)

// Observer receives every global paywall event after it was forwarded
type Observer func(ctx context.Context, evt *event.Event)

// SecretResolver resolves an api key reference to its value
type SecretResolver func(ctx context.Context, value string) (string, error)

// Option configures a Service
type Option func(s *Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Service) {
		s.metrics = collector
	}
}

// WithFallbackStore sets where fallback bundles are persisted
func WithFallbackStore(store *fallback.Store) Option {
	return func(s *Service) {
		s.fallback = store
	}
}

// WithHostDelegate registers the delegate used when the payload asks for the default delegate
func WithHostDelegate(delegate sdk.Delegate) Option {
	return func(s *Service) {
		s.host = delegate
	}
}

// WithObserver adds an event observer
func WithObserver(observer Observer) Option {
	return func(s *Service) {
		if observer != nil {
			s.observers = append(s.observers, observer)
		}
	}
}

// WithOutboundEncoding marker-encodes every outbound payload with c
func WithOutboundEncoding(c *codec.Codec) Option {
	return func(s *Service) {
		s.codec = c
	}
}

// WithSecretResolver resolves the api key before the SDK sees it
func WithSecretResolver(resolver SecretResolver) Option {
	return func(s *Service) {
		s.resolveSecret = resolver
	}
}
