package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/viant/jsonrpc/transport/server/http/sse"
	"github.com/viant/jsonrpc/transport/server/http/streamable"
)

// VersionHeader carries the bridge version on every HTTP response
const VersionHeader = "Paywall-Bridge-Version"

const (
	defaultAddr          = "127.0.0.1:5000"
	defaultSSEURI        = "/sse"
	defaultSSEMessageURI = "/message"
	defaultStreamableURI = "/rpc"
	healthURI            = "/healthz"
)

// Middleware is a function that takes an http.Handler and returns an http.Handler
type Middleware func(next http.Handler) http.Handler

// ChainMiddlewareHandlers wraps h so that the first middleware runs first
func ChainMiddlewareHandlers(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type httpServer struct {
	useStreamableHTTP  bool
	addr               string
	customHTTPHandlers map[string]http.HandlerFunc
	sseURI             string
	sseMessageURI      string
	streamableURI      string
	rootRedirect       bool
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// UseStreamableHTTP sets whether the root redirect targets streamable HTTP or SSE.
func (s *Server) UseStreamableHTTP(flag bool) {
	s.useStreamableHTTP = flag
}

// HTTP creates an HTTP server exposing the SSE and streamable transports, health and metrics.
// Bridge endpoints pass through the authorizer, version and CORS middleware; health and metrics do not.
func (s *Server) HTTP(_ context.Context, addr string) *http.Server {
	s.sseURI = orDefault(s.sseURI, defaultSSEURI)
	s.sseMessageURI = orDefault(s.sseMessageURI, defaultSSEMessageURI)
	s.streamableURI = orDefault(s.streamableURI, defaultStreamableURI)
	return &http.Server{
		Addr:    orDefault(addr, orDefault(s.addr, defaultAddr)),
		Handler: s.routes(),
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	for path, handler := range s.customHTTPHandlers {
		mux.Handle(path, handler)
	}
	mux.HandleFunc(healthURI, s.health)
	if s.metrics != nil {
		mux.Handle(s.metrics.Path(), s.metrics.Handler())
	}

	guard := s.bridgeMiddleware()
	events := ChainMiddlewareHandlers(sse.New(s.NewHandler, sse.WithURI(s.sseURI), sse.WithMessageURI(s.sseMessageURI)), guard...)
	mux.Handle(s.sseURI, events)
	mux.Handle(s.sseMessageURI, events)
	mux.Handle(s.streamableURI, ChainMiddlewareHandlers(streamable.New(s.NewHandler, streamable.WithURI(s.streamableURI)), guard...))

	if s.rootRedirect {
		mux.HandleFunc("/", s.redirectRoot)
	}
	return mux
}

func (s *Server) bridgeMiddleware() []Middleware {
	var ret []Middleware
	if s.authorizer != nil {
		ret = append(ret, s.authorizer)
	}
	return append(ret, versionMiddleware(s.version), s.corsHandler)
}

func (s *Server) redirectRoot(w http.ResponseWriter, r *http.Request) {
	target := s.sseURI
	if s.useStreamableHTTP {
		target = s.streamableURI
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "ok",
		"version":        s.version,
		"initialized":    s.service.Initialized(),
		"downloadStatus": s.service.DownloadStatus(),
		"connected":      s.hub.Connected(),
	})
}

func versionMiddleware(version string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(VersionHeader, version)
			next.ServeHTTP(w, r)
		})
	}
}
