package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/paywall/sdk/simulator"
	"go.uber.org/fx"
)

func TestParseTrigger(t *testing.T) {
	var testCases = []struct {
		description string
		spec        string
		expect      *simulator.Trigger
		expectErr   bool
	}{
		{description: "name only", spec: "onboarding", expect: &simulator.Trigger{Name: "onboarding"}},
		{description: "with paywall", spec: "onboarding:onboarding_v1", expect: &simulator.Trigger{Name: "onboarding", Paywall: "onboarding_v1"}},
		{description: "with products", spec: "onboarding:onboarding_v1:sku_a, sku_b", expect: &simulator.Trigger{Name: "onboarding", Paywall: "onboarding_v1", Products: []string{"sku_a", "sku_b"}}},
		{description: "empty name", spec: ":paywall", expectErr: true},
	}
	for _, testCase := range testCases {
		actual, err := parseTrigger(testCase.spec)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configURL := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(configURL, []byte(`
server:
  transport:
    type: sse
    options:
      port: 5050
  purchase:
    policy: singleFlight
logging:
  level: warn
  format: json
kafka:
  brokers: [kafka:9092]
simulator:
  triggers:
    - name: onboarding
      paywall: onboarding_v1
      products: [sku_a]
`), 0o600))

	var testCases = []struct {
		description     string
		args            []string
		expectTransport string
		expectPort      int
		expectOutput    string
		expectLevel     string
		expectPolicy    string
		expectTriggers  int
		expectTopic     string
	}{
		{
			description:     "yaml only",
			args:            []string{"--config", configURL},
			expectTransport: "sse",
			expectPort:      5050,
			expectOutput:    "stderr",
			expectLevel:     "warn",
			expectPolicy:    "singleFlight",
			expectTriggers:  1,
			expectTopic:     "paywall-events",
		},
		{
			description:     "flags win",
			args:            []string{"--config", configURL, "--transport", "streamable", "--port", "6060", "--log-level", "debug", "--concurrent", "--triggers", "upgrade", "--kafka-topic", "events"},
			expectTransport: "streamable",
			expectPort:      6060,
			expectOutput:    "stderr",
			expectLevel:     "debug",
			expectPolicy:    "concurrent",
			expectTriggers:  2,
			expectTopic:     "events",
		},
	}
	for _, testCase := range testCases {
		options, err := ParseOptions(testCase.args)
		require.NoError(t, err, testCase.description)
		cfg, err := Load(context.Background(), options)
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expectTransport, cfg.Server.Transport.Type, testCase.description)
		assert.Equal(t, testCase.expectPort, cfg.Server.Transport.Options.Port, testCase.description)
		assert.Equal(t, testCase.expectOutput, cfg.Logging.Output, testCase.description)
		assert.Equal(t, testCase.expectLevel, cfg.Logging.Level, testCase.description)
		assert.Equal(t, testCase.expectPolicy, cfg.Server.Purchase.Policy, testCase.description)
		assert.Len(t, cfg.Simulator.Triggers, testCase.expectTriggers, testCase.description)
		assert.Equal(t, testCase.expectTopic, cfg.Kafka.Topic, testCase.description)
		assert.Equal(t, serviceName, cfg.Telemetry.ServiceName, testCase.description)
	}
}

func TestLoad_StdioLogsToStderr(t *testing.T) {
	options, err := ParseOptions([]string{"--auth-secret", "s3cr3t"})
	require.NoError(t, err)
	cfg, err := Load(context.Background(), options)
	require.NoError(t, err)
	assert.Equal(t, "stdio", cfg.Server.Transport.Type)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	require.NotNil(t, cfg.Server.Auth)
	assert.Equal(t, "s3cr3t", cfg.Server.Auth.Secret)
	assert.Nil(t, cfg.Kafka)
}

func TestNewApp(t *testing.T) {
	options, err := ParseOptions([]string{"--transport", "sse", "--port", "0", "--triggers", "onboarding"})
	require.NoError(t, err)
	cfg, err := Load(context.Background(), options)
	require.NoError(t, err)
	cfg.Logging.Level = "error"
	assert.NoError(t, fx.ValidateApp(
		fx.Supply(cfg),
		fx.Provide(newLogger, newMetrics, newResolver, newSimulator, newSink, newServer),
		fx.Invoke(setupTelemetry, initializeSDK, registerTransport),
	))
}
