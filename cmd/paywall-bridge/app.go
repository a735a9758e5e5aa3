package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/viant/paywall"
	"github.com/viant/paywall/bridge"
	"github.com/viant/paywall/internal/logging"
	"github.com/viant/paywall/metrics"
	"github.com/viant/paywall/sdk/simulator"
	"github.com/viant/paywall/secret"
	"github.com/viant/paywall/server"
	"github.com/viant/paywall/server/auth"
	"github.com/viant/paywall/sink/kafka"
	"github.com/viant/paywall/telemetry"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func defaultAuth() *auth.Config {
	return &auth.Config{Issuer: serviceName, ExcludeURI: "/healthz"}
}

func newLogger(cfg *File) (*zap.Logger, error) {
	return logging.New(cfg.Logging)
}

func newMetrics(cfg *File) *metrics.Collector {
	return metrics.New(cfg.Metrics)
}

func newResolver(logger *zap.Logger) *secret.Resolver {
	return secret.New(secret.WithLogger(logger))
}

func newSimulator(cfg *File, logger *zap.Logger) *simulator.Simulator {
	options := []simulator.Option{simulator.WithLogger(logger), simulator.WithTriggers(cfg.Simulator.Triggers...)}
	if len(cfg.Simulator.Entitlements) > 0 {
		options = append(options, simulator.WithEntitlements(cfg.Simulator.Entitlements...))
	}
	return simulator.New(options...)
}

// newSink returns nil when no kafka brokers are configured
func newSink(lc fx.Lifecycle, cfg *File, logger *zap.Logger) (*kafka.Sink, error) {
	if cfg.Kafka == nil || len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	sink, err := kafka.New(cfg.Kafka, kafka.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Info("publishing paywall events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return sink.Close()
		},
	})
	return sink, nil
}

func newServer(cfg *File, sim *simulator.Simulator, logger *zap.Logger, collector *metrics.Collector, resolver *secret.Resolver, sink *kafka.Sink) (*server.Server, error) {
	options := cfg.Server
	options.Logger = logger
	options.Metrics = collector
	options.SecretResolver = resolver.Resolve
	if sink != nil {
		options.Observers = append(options.Observers, bridge.Observer(sink.Observe))
	}
	if options.Auth != nil {
		resolved, err := resolver.Resolve(context.Background(), options.Auth.Secret)
		if err != nil {
			return nil, err
		}
		options.Auth.Secret = resolved
	}
	return paywall.NewServer(sim, options)
}

func setupTelemetry(lc fx.Lifecycle, cfg *File, logger *zap.Logger) error {
	shutdown, err := telemetry.Init(context.Background(), cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return shutdown(ctx)
		},
	})
	return nil
}

// initializeSDK starts the hosted SDK when an api key is configured, scripting clients then see alreadyStarted
func initializeSDK(lc fx.Lifecycle, cfg *File, srv *server.Server, logger *zap.Logger) {
	if cfg.APIKey == "" {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			started, err := srv.Service().Initialize(ctx, map[string]interface{}{"apiKey": cfg.APIKey}, cfg.CustomValues)
			if err != nil {
				return err
			}
			logger.Info("sdk initialized at startup", zap.Bool("started", started), zap.String("downloadStatus", string(srv.Service().DownloadStatus())))
			return nil
		},
	})
}

func registerTransport(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *File, srv *server.Server, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := cfg.Server.Transport.Type
	if transport == "stdio" {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				stdioServer := srv.Stdio(ctx)
				go func() {
					if err := stdioServer.ListenAndServe(); err != nil {
						logger.Error("stdio transport stopped", zap.Error(err))
					}
					_ = shutdowner.Shutdown()
				}()
				logger.Info("serving bridge on stdio")
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
		return
	}
	httpServer := srv.HTTP(ctx, "")
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Info("serving bridge over HTTP", zap.String("addr", httpServer.Addr), zap.String("transport", transport))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP transport stopped", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			shutdownCtx, done := context.WithTimeout(ctx, shutdownTimeout)
			defer done()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	})
}

func newApp(cfg *File) *fx.App {
	return fx.New(
		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			newMetrics,
			newResolver,
			newSimulator,
			newSink,
			newServer,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(
			setupTelemetry,
			initializeSDK,
			registerTransport,
		),
	)
}
