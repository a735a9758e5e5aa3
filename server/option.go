package server

import (
	"net/http"

	"github.com/viant/jsonrpc/transport/server/stdio"
	"github.com/viant/paywall/metrics"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option is a function that configures the server.
type Option func(s *Server) error

// WithCORS adds a new CORS handler to the server.
func WithCORS(cors *Cors) Option {
	return func(s *Server) error {
		s.corsHandler = newCorsPolicy(cors).Middleware
		return nil
	}
}

// WithAuthorizer adds an HTTP authorizer middleware to the server.
func WithAuthorizer(authorizer Middleware) Option {
	return func(s *Server) error {
		s.authorizer = authorizer
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithMetrics records per method request metrics and exposes them over HTTP
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) error {
		s.metrics = collector
		return nil
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) error {
		if tracer != nil {
			s.tracer = tracer
		}
		return nil
	}
}

// WithVersion sets the version reported by ping and the HTTP version header.
func WithVersion(version string) Option {
	return func(s *Server) error {
		s.version = version
		return nil
	}
}

// WithEndpointAddress sets the default HTTP listen address.
func WithEndpointAddress(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

func WithSSEURI(uri string) Option {
	return func(s *Server) error {
		s.sseURI = uri
		return nil
	}
}

func WithSSEMessageURI(uri string) Option {
	return func(s *Server) error {
		s.sseMessageURI = uri
		return nil
	}
}

func WithStreamableURI(uri string) Option {
	return func(s *Server) error {
		s.streamableURI = uri
		return nil
	}
}

// WithRootRedirect redirects "/" to the active HTTP transport.
func WithRootRedirect(flag bool) Option {
	return func(s *Server) error {
		s.rootRedirect = flag
		return nil
	}
}

// WithCustomHTTPHandler mounts an extra handler next to the JSON-RPC endpoints.
func WithCustomHTTPHandler(path string, handler http.HandlerFunc) Option {
	return func(s *Server) error {
		if s.customHTTPHandlers == nil {
			s.customHTTPHandlers = make(map[string]http.HandlerFunc)
		}
		s.customHTTPHandlers[path] = handler
		return nil
	}
}

func WithStdioOptions(options ...stdio.Option) Option {
	return func(s *Server) error {
		s.stdioOptions = append(s.stdioOptions, options...)
		return nil
	}
}
