package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/viant/afs"
	"github.com/viant/paywall"
	"github.com/viant/paywall/internal/logging"
	"github.com/viant/paywall/metrics"
	"github.com/viant/paywall/sdk/simulator"
	"github.com/viant/paywall/sink/kafka"
	"github.com/viant/paywall/telemetry"
	"gopkg.in/yaml.v3"
)

const serviceName = "paywall-bridge"

// Options are the command line flags, they win over the YAML file
type Options struct {
	Transport    string   `short:"t" long:"transport" env:"PAYWALL_TRANSPORT" description:"bridge transport" choice:"stdio" choice:"sse" choice:"streamable"`
	Port         int      `short:"p" long:"port" env:"PAYWALL_PORT" description:"HTTP port"`
	ConfigURL    string   `short:"c" long:"config" env:"PAYWALL_CONFIG" description:"YAML configuration file or afs URL"`
	LogLevel     string   `long:"log-level" env:"PAYWALL_LOG_LEVEL" description:"log level" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	LogFormat    string   `long:"log-format" env:"PAYWALL_LOG_FORMAT" description:"log format" choice:"console" choice:"json"`
	APIKey       string   `long:"api-key" env:"PAYWALL_API_KEY" description:"initializes the hosted SDK at startup, accepts secret:<URL>|<key> references"`
	AuthSecret   string   `long:"auth-secret" env:"PAYWALL_AUTH_SECRET" description:"JWT signing key for HTTP transports, accepts secret references"`
	KafkaBrokers []string `long:"kafka-brokers" env:"KAFKA_BROKERS" env-delim:"," description:"kafka brokers receiving paywall events"`
	KafkaTopic   string   `long:"kafka-topic" env:"KAFKA_TOPIC" description:"kafka topic for paywall events"`
	Otel         bool     `long:"otel" env:"PAYWALL_OTEL" description:"export traces over OTLP HTTP"`
	OtelEndpoint string   `long:"otel-endpoint" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT" description:"OTLP traces endpoint"`
	FallbackDir  string   `long:"fallback-dir" env:"PAYWALL_FALLBACK_DIR" description:"fallback bundle base directory or afs URL"`
	Concurrent   bool     `long:"concurrent" description:"keep every pending purchase instead of single flight"`
	Triggers     []string `long:"triggers" description:"simulated triggers as name[:paywall[:product,product]]"`
	Version      bool     `short:"v" long:"version" description:"print version"`
}

// File is the YAML configuration
type File struct {
	Server       *paywall.ServerOptions `yaml:"server"`
	Logging      *logging.Config        `yaml:"logging"`
	Metrics      metrics.Config         `yaml:"metrics"`
	Telemetry    *telemetry.Config      `yaml:"telemetry"`
	Kafka        *kafka.Config          `yaml:"kafka"`
	Simulator    SimulatorConfig        `yaml:"simulator"`
	APIKey       string                 `yaml:"apiKey"`
	CustomValues map[string]interface{} `yaml:"customVariableValues"`
}

// SimulatorConfig configures the hosted simulator
type SimulatorConfig struct {
	Triggers     []simulator.Trigger `yaml:"triggers"`
	Entitlements []string            `yaml:"entitlements"`
}

// ParseOptions parses command line arguments
func ParseOptions(args []string) (*Options, error) {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return nil, err
	}
	return options, nil
}

// Load reads the YAML file when configured and merges the flags into it
func Load(ctx context.Context, options *Options) (*File, error) {
	ret := &File{}
	if options.ConfigURL != "" {
		data, err := afs.New().DownloadWithURL(ctx, options.ConfigURL)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %v: %w", options.ConfigURL, err)
		}
		if err = yaml.Unmarshal(data, ret); err != nil {
			return nil, fmt.Errorf("failed to parse config %v: %w", options.ConfigURL, err)
		}
	}
	if err := ret.merge(options); err != nil {
		return nil, err
	}
	return ret, nil
}

func (f *File) merge(options *Options) error {
	if f.Server == nil {
		f.Server = &paywall.ServerOptions{}
	}
	if f.Server.Version == "" {
		f.Server.Version = version
	}
	if f.Server.Transport == nil {
		f.Server.Transport = &paywall.ServerTransport{}
	}
	transport := f.Server.Transport
	if options.Transport != "" {
		transport.Type = options.Transport
	}
	if transport.Type == "" {
		transport.Type = "stdio"
	}
	if options.Port > 0 {
		if transport.Options == nil {
			transport.Options = &paywall.ServerTransportOptions{}
		}
		transport.Options.Port = options.Port
	}
	if options.FallbackDir != "" {
		f.Server.FallbackURL = options.FallbackDir
	}
	if options.Concurrent {
		f.Server.Purchase = &paywall.PurchaseOptions{Policy: "concurrent"}
	}
	if options.AuthSecret != "" {
		if f.Server.Auth == nil {
			f.Server.Auth = defaultAuth()
		}
		f.Server.Auth.Secret = options.AuthSecret
	}

	if f.Logging == nil {
		f.Logging = logging.DefaultConfig()
	}
	if options.LogLevel != "" {
		f.Logging.Level = options.LogLevel
	}
	if options.LogFormat != "" {
		f.Logging.Format = options.LogFormat
	}
	if f.Logging.Output == "" || (transport.Type == "stdio" && f.Logging.Output == "stdout") {
		// stdout carries the JSON-RPC stream
		f.Logging.Output = "stderr"
	}

	if f.Telemetry == nil {
		f.Telemetry = &telemetry.Config{}
	}
	if options.Otel {
		f.Telemetry.Enabled = true
	}
	if options.OtelEndpoint != "" {
		f.Telemetry.Endpoint = options.OtelEndpoint
	}
	if f.Telemetry.ServiceName == "" {
		f.Telemetry.ServiceName = serviceName
	}
	if f.Telemetry.Version == "" {
		f.Telemetry.Version = f.Server.Version
	}

	if len(options.KafkaBrokers) > 0 {
		if f.Kafka == nil {
			f.Kafka = &kafka.Config{}
		}
		f.Kafka.Brokers = options.KafkaBrokers
	}
	if f.Kafka != nil && options.KafkaTopic != "" {
		f.Kafka.Topic = options.KafkaTopic
	}
	if f.Kafka != nil && f.Kafka.Topic == "" {
		f.Kafka.Topic = "paywall-events"
	}

	if options.APIKey != "" {
		f.APIKey = options.APIKey
	}
	for _, spec := range options.Triggers {
		trigger, err := parseTrigger(spec)
		if err != nil {
			return err
		}
		f.Simulator.Triggers = append(f.Simulator.Triggers, *trigger)
	}
	return nil
}

// parseTrigger parses name[:paywall[:product,product]]
func parseTrigger(spec string) (*simulator.Trigger, error) {
	parts := strings.SplitN(spec, ":", 3)
	ret := &simulator.Trigger{Name: strings.TrimSpace(parts[0])}
	if ret.Name == "" {
		return nil, fmt.Errorf("invalid trigger %q: name was empty", spec)
	}
	if len(parts) > 1 {
		ret.Paywall = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		for _, product := range strings.Split(parts[2], ",") {
			if product = strings.TrimSpace(product); product != "" {
				ret.Products = append(ret.Products, product)
			}
		}
	}
	return ret, nil
}
