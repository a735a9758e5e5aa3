// Package kafka publishes paywall events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/viant/paywall/event"
	"go.uber.org/zap"
)

// EventVersion is the envelope schema version
const EventVersion = "1"

const globalKey = "global"

// Config configures the producer
type Config struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`
	// Async does not wait for broker acknowledgements
	Async bool `yaml:"async" json:"async"`
}

// Envelope is the message published for every paywall event
type Envelope struct {
	EventType    string                 `json:"eventType"`
	EventVersion string                 `json:"eventVersion"`
	OccurredAt   time.Time              `json:"occurredAt"`
	AggregateID  string                 `json:"aggregateId"`
	Data         map[string]interface{} `json:"data"`
}

// Writer writes kafka messages, *kafkago.Writer does
type Writer interface {
	WriteMessages(ctx context.Context, messages ...kafkago.Message) error
	Close() error
}

// Sink publishes events keyed by trigger so that one trigger's events stay ordered
type Sink struct {
	writer Writer
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Sink
type Option func(s *Sink)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// WithWriter replaces the kafka writer
func WithWriter(writer Writer) Option {
	return func(s *Sink) {
		s.writer = writer
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		s.now = now
	}
}

// Publish writes one event
func (s *Sink) Publish(ctx context.Context, evt *event.Event) error {
	envelope := &Envelope{
		EventType:    string(evt.Type),
		EventVersion: EventVersion,
		OccurredAt:   s.now().UTC(),
		AggregateID:  evt.TriggerName,
		Data:         event.ToDictionary(evt),
	}
	if envelope.AggregateID == "" {
		envelope.AggregateID = globalKey
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal %v envelope: %w", evt.Type, err)
	}
	return s.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(envelope.AggregateID),
		Value: value,
	})
}

// Observe publishes an event and logs failures; it matches the bridge observer signature
func (s *Sink) Observe(ctx context.Context, evt *event.Event) {
	if err := s.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", string(evt.Type)), zap.String("trigger", evt.TriggerName), zap.Error(err))
	}
}

func (s *Sink) Close() error {
	return s.writer.Close()
}

// New creates a sink
func New(cfg *Config, options ...Option) (*Sink, error) {
	ret := &Sink{logger: zap.NewNop(), now: time.Now}
	for _, opt := range options {
		opt(ret)
	}
	if ret.writer == nil {
		if cfg == nil || len(cfg.Brokers) == 0 {
			return nil, errors.New("kafka: brokers were empty")
		}
		if cfg.Topic == "" {
			return nil, errors.New("kafka: topic was empty")
		}
		ret.writer = kafkago.NewWriter(kafkago.WriterConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			Balancer: &kafkago.Hash{},
			Async:    cfg.Async,
		})
	}
	return ret, nil
}
