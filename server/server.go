package server

import (
	"context"
	"errors"

	"github.com/viant/jsonrpc/transport"
	"github.com/viant/jsonrpc/transport/server/stdio"
	"github.com/viant/paywall/bridge"
	"github.com/viant/paywall/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultVersion is reported when no version option is set
const DefaultVersion = "0.1"

// Server exposes the bridge service over JSON-RPC transports
type Server struct {
	service *bridge.Service
	hub     *Hub
	version string

	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer

	// authorizer guards HTTP transports
	authorizer  Middleware
	corsHandler Middleware

	stdioOptions []stdio.Option
	httpServer
}

// NewHandler creates a new handler instance, the connection becomes the event target
func (s *Server) NewHandler(ctx context.Context, transport transport.Transport) transport.Handler {
	return s.newHandler(ctx, transport)
}

func (s *Server) newHandler(_ context.Context, transport transport.Transport) *Handler {
	ret := newHandler(s, transport)
	s.hub.Attach(transport)
	return ret
}

// Stdio serves the bridge on stdin/stdout, the logger must not write to stdout
func (s *Server) Stdio(ctx context.Context) *stdio.Server {
	s.logger.Debug("stdio transport created", zap.Int("options", len(s.stdioOptions)), zap.String("version", s.version))
	return stdio.New(ctx, s.NewHandler, s.stdioOptions...)
}

// Hub returns the event hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Service returns the bridge service
func (s *Server) Service() *bridge.Service {
	return s.service
}

// New creates a new Server instance, hub must be the emitter the service and its broker were built with
func New(service *bridge.Service, hub *Hub, options ...Option) (*Server, error) {
	if service == nil {
		return nil, errors.New("no bridge service specified")
	}
	if hub == nil {
		return nil, errors.New("no event hub specified")
	}
	s := &Server{
		service:     service,
		hub:         hub,
		version:     DefaultVersion,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer("github.com/viant/paywall/server"),
		corsHandler: newCorsPolicy(nil).Middleware,
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}
