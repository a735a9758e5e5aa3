package paywall

import (
	"fmt"
	"net/http"

	"github.com/viant/paywall/bridge"
	"github.com/viant/paywall/fallback"
	"github.com/viant/paywall/metrics"
	"github.com/viant/paywall/purchase"
	"github.com/viant/paywall/sdk"
	"github.com/viant/paywall/server"
	"github.com/viant/paywall/server/auth"
	"go.uber.org/zap"
)

// ServerOptions defines options for configuring a bridge server.
type ServerOptions struct {
	Version   string           `yaml:"version" json:"version"`
	Transport *ServerTransport `yaml:"transport" json:"transport"`
	Purchase  *PurchaseOptions `yaml:"purchase" json:"purchase"`
	// FallbackURL is the base location of the fallback bundle directory
	FallbackURL string       `yaml:"fallbackURL" json:"fallbackURL" long:"fallback-dir" description:"fallback bundle base directory or afs URL"`
	Auth        *auth.Config `yaml:"auth" json:"auth"`

	Logger         *zap.Logger           `yaml:"-" json:"-"`
	Metrics        *metrics.Collector    `yaml:"-" json:"-"`
	Observers      []bridge.Observer     `yaml:"-" json:"-"`
	SecretResolver bridge.SecretResolver `yaml:"-" json:"-"`
	// HostDelegate is used when the initialize payload sets useDefaultDelegate
	HostDelegate sdk.Delegate `yaml:"-" json:"-"`
}

// PurchaseOptions configures the purchase broker
type PurchaseOptions struct {
	// Policy is singleFlight or concurrent
	Policy string `yaml:"policy" json:"policy" long:"purchase-policy" description:"pending purchase policy" choice:"singleFlight" choice:"concurrent"`
}

type ServerTransport struct {
	Type           string                      `yaml:"type" json:"type"`
	Options        *ServerTransportOptions     `yaml:"options" json:"options"`
	Authorizer     server.Middleware           `yaml:"-" json:"-"`
	CustomHandlers map[string]http.HandlerFunc `yaml:"-" json:"-"`
}

type ServerTransportOptions struct {
	Type string       `yaml:"type" json:"type"  short:"T" long:"transport-type" description:"bridge transport type, e.g., stdio, sse, streamable" choice:"stdio" choice:"sse" choice:"streamable"`
	Port int          `yaml:"port" json:"port"`
	Cors *server.Cors `yaml:"cors" json:"cors"`
	// Optional HTTP transport configuration
	SSEURI        string `yaml:"sseURI" json:"sseURI"`
	SSEMessageURI string `yaml:"sseMessageURI" json:"sseMessageURI"`
	StreamableURI string `yaml:"streamableURI" json:"streamableURI"`
	RootRedirect  bool   `yaml:"rootRedirect" json:"rootRedirect"`
}

// UseStreamableHTTP returns true when the HTTP transport should default to streamable
func (o *ServerOptions) UseStreamableHTTP() bool {
	if o == nil || o.Transport == nil {
		return false
	}
	useStreaming := o.Transport.Type == "streamable"
	if options := o.Transport.Options; options != nil {
		switch options.Type {
		case "streamable":
			useStreaming = true
		case "sse":
			useStreaming = false
		}
	}
	return useStreaming
}

// NewServer creates a bridge server hosting paywall, together with its broker, service and event hub.
func NewServer(paywall sdk.Paywall, options *ServerOptions) (*server.Server, error) {
	if paywall == nil {
		return nil, fmt.Errorf("paywall sdk was nil")
	}
	if options == nil {
		options = &ServerOptions{}
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hub := server.NewHub(logger)
	var brokerOptions = []purchase.Option{purchase.WithLogger(logger), purchase.WithMetrics(options.Metrics)}
	if options.Purchase != nil {
		brokerOptions = append(brokerOptions, purchase.WithPolicy(purchase.ParsePolicy(options.Purchase.Policy)))
	}
	broker := purchase.New(hub, brokerOptions...)

	var serviceOptions = []bridge.Option{bridge.WithLogger(logger), bridge.WithMetrics(options.Metrics)}
	if options.FallbackURL != "" {
		serviceOptions = append(serviceOptions, bridge.WithFallbackStore(fallback.New(options.FallbackURL)))
	}
	if options.HostDelegate != nil {
		serviceOptions = append(serviceOptions, bridge.WithHostDelegate(options.HostDelegate))
	}
	if options.SecretResolver != nil {
		serviceOptions = append(serviceOptions, bridge.WithSecretResolver(options.SecretResolver))
	}
	for _, observer := range options.Observers {
		serviceOptions = append(serviceOptions, bridge.WithObserver(observer))
	}
	service := bridge.New(paywall, broker, hub, serviceOptions...)

	var serverOptions = []server.Option{server.WithLogger(logger), server.WithMetrics(options.Metrics)}
	if options.Version != "" {
		serverOptions = append(serverOptions, server.WithVersion(options.Version))
	}
	if options.Auth != nil {
		authService, err := auth.New(options.Auth)
		if err != nil {
			return nil, err
		}
		serverOptions = append(serverOptions, server.WithAuthorizer(authService.Middleware))
	}
	if transportOptions := options.Transport; transportOptions != nil {
		if transportOptions.Authorizer != nil {
			serverOptions = append(serverOptions, server.WithAuthorizer(transportOptions.Authorizer))
		}
		if httpOptions := transportOptions.Options; httpOptions != nil {
			if httpOptions.Port > 0 {
				serverOptions = append(serverOptions, server.WithEndpointAddress(fmt.Sprintf(":%v", httpOptions.Port)))
			}
			if httpOptions.Cors != nil {
				serverOptions = append(serverOptions, server.WithCORS(httpOptions.Cors))
			}
			if httpOptions.SSEURI != "" {
				serverOptions = append(serverOptions, server.WithSSEURI(httpOptions.SSEURI))
			}
			if httpOptions.SSEMessageURI != "" {
				serverOptions = append(serverOptions, server.WithSSEMessageURI(httpOptions.SSEMessageURI))
			}
			if httpOptions.StreamableURI != "" {
				serverOptions = append(serverOptions, server.WithStreamableURI(httpOptions.StreamableURI))
			}
			if httpOptions.RootRedirect {
				serverOptions = append(serverOptions, server.WithRootRedirect(true))
			}
		}
		for path, handler := range transportOptions.CustomHandlers {
			serverOptions = append(serverOptions, server.WithCustomHTTPHandler(path, handler))
		}
	}

	srv, err := server.New(service, hub, serverOptions...)
	if err != nil {
		return nil, err
	}
	srv.UseStreamableHTTP(options.UseStreamableHTTP())
	return srv, nil
}
