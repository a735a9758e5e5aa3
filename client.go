package paywall

import (
	"context"
	"fmt"
	"net/http"

	"github.com/viant/jsonrpc/transport"
	"github.com/viant/jsonrpc/transport/client/http/sse"
	"github.com/viant/jsonrpc/transport/client/http/streamable"
	"github.com/viant/jsonrpc/transport/client/stdio"
	"github.com/viant/paywall/client"
)

// ClientOptions
//
// defines options for connecting the scripting side to a bridge.
type ClientOptions struct {
	Transport ClientTransport `yaml:"transport,omitempty" json:"transport,omitempty"  short:"t" long:"transport" description:"bridge transport options"`
	// Token is sent as a bearer token on HTTP transports
	Token string `yaml:"token,omitempty" json:"token,omitempty" long:"token" env:"PAYWALL_TOKEN" description:"bearer token"`
	// Config, when set, is sent with initialize once connected
	Config               map[string]interface{} `yaml:"config,omitempty" json:"config,omitempty"`
	CustomVariableValues map[string]interface{} `yaml:"customVariableValues,omitempty" json:"customVariableValues,omitempty"`
}

// ClientTransport defines transport options for a bridge client.
type ClientTransport struct {
	Type                 string `yaml:"type" json:"type"  short:"T" long:"transport-type" description:"bridge transport type, e.g., stdio, sse, streamable" choice:"stdio" choice:"sse" choice:"streamable"`
	ClientTransportStdio `yaml:",inline"`
	ClientTransportHTTP  `yaml:",inline"`
}

// ClientTransportStdio defines options for a standard input/output transport.
type ClientTransportStdio struct {
	Command   string   `yaml:"command" json:"command"  short:"C" long:"command" description:"bridge command"`
	Arguments []string `yaml:"arguments" json:"arguments"  short:"A" long:"arguments" description:"bridge command arguments"`
}

// ClientTransportHTTP defines options for the HTTP transports.
type ClientTransportHTTP struct {
	URL string `yaml:"url" json:"url"  short:"u" long:"url" description:"bridge url"`
}

// bearer adds a bearer token to every request
type bearer struct {
	token string
	next  http.RoundTripper
}

func (b *bearer) RoundTrip(request *http.Request) (*http.Response, error) {
	request = request.Clone(request.Context())
	request.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(request)
}

// NewClient connects handler to a bridge and returns the client bound to it.
func NewClient(ctx context.Context, handler *client.Handler, options *ClientOptions) (*client.Client, error) {
	if options == nil {
		return nil, fmt.Errorf("client options were nil")
	}
	if handler == nil {
		handler = client.NewHandler()
	}
	rpcTransport, err := options.getTransport(ctx, handler)
	if err != nil {
		return nil, err
	}
	cli := client.New(rpcTransport, client.WithHandler(handler))
	if options.Config != nil {
		if _, err = cli.Initialize(ctx, options.Config, options.CustomVariableValues); err != nil {
			return nil, err
		}
	}
	return cli, nil
}

func (c *ClientOptions) httpClient() *http.Client {
	if c.Token == "" {
		return nil
	}
	return &http.Client{Transport: &bearer{token: c.Token, next: http.DefaultTransport}}
}

// getTransport constructs a JSON-RPC transport based on ClientOptions.Transport.
func (c *ClientOptions) getTransport(ctx context.Context, handler transport.Handler) (transport.Transport, error) {
	httpClient := c.httpClient()
	switch c.Transport.Type {
	case "stdio":
		stdioOptions := c.Transport.ClientTransportStdio
		if stdioOptions.Command == "" {
			return nil, fmt.Errorf("command is required for stdio transport")
		}
		ret, err := stdio.New(stdioOptions.Command,
			stdio.WithHandler(handler),
			stdio.WithArguments(stdioOptions.Arguments...))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdio transport: %w", err)
		}
		return ret, nil
	case "sse":
		httpOptions := c.Transport.ClientTransportHTTP
		if httpOptions.URL == "" {
			return nil, fmt.Errorf("URL is required for sse transport")
		}
		opts := []sse.Option{}
		if httpClient != nil {
			opts = append(opts, sse.WithHttpClient(httpClient), sse.WithMessageHttpClient(httpClient))
		}
		opts = append(opts, sse.WithHandler(handler))
		ret, err := sse.New(ctx, httpOptions.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSE transport: %w", err)
		}
		return ret, nil
	case "streamable":
		httpOptions := c.Transport.ClientTransportHTTP
		if httpOptions.URL == "" {
			return nil, fmt.Errorf("URL is required for streamable transport")
		}
		opts := []streamable.Option{}
		if httpClient != nil {
			opts = append(opts, streamable.WithHTTPClient(httpClient))
		}
		opts = append(opts, streamable.WithHandler(handler))
		ret, err := streamable.New(ctx, httpOptions.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable transport: %w", err)
		}
		return ret, nil
	default:
		return nil, fmt.Errorf("no transport configured")
	}
}
