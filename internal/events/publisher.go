// Package events publishes coaching results to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"tone-coach-service/internal/observability/metrics"
)

// Event types carried in the eventType header.
const (
	EventTypeAnalysis = "coaching.analysis"
	EventTypeRecap    = "coaching.recap"
)

// Publisher publishes analysis results and session recaps to separate Kafka topics.
type Publisher struct {
	writerAnalysis *kafka.Writer
	writerRecap    *kafka.Writer
	principal      string
	topicAnalysis  string
	topicRecap     string
	enabled        bool
	metrics        *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers       []string
	TopicAnalysis string
	TopicRecap    string
	Principal     string
	Enabled       bool
}

// New creates a new Kafka event publisher. When Kafka is disabled or no brokers are
// configured, events are only logged.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:     cfg.Principal,
			topicAnalysis: cfg.TopicAnalysis,
			topicRecap:    cfg.TopicRecap,
			enabled:       false,
			metrics:       m,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicAnalysis", cfg.TopicAnalysis).
		Str("topicRecap", cfg.TopicRecap).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerAnalysis: newWriter(cfg.TopicAnalysis),
		writerRecap:    newWriter(cfg.TopicRecap),
		principal:      cfg.Principal,
		topicAnalysis:  cfg.TopicAnalysis,
		topicRecap:     cfg.TopicRecap,
		enabled:        true,
		metrics:        m,
	}
}

// Enabled reports whether events are written to Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishAnalysis publishes an analysis result keyed by session id.
func (p *Publisher) PublishAnalysis(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerAnalysis, p.topicAnalysis, EventTypeAnalysis, key, event)
}

// PublishRecap publishes a session recap keyed by session id.
func (p *Publisher) PublishRecap(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerRecap, p.topicRecap, EventTypeRecap, key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerAnalysis != nil {
		if e := p.writerAnalysis.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing analysis writer")
			err = e
		}
	}
	if p.writerRecap != nil {
		if e := p.writerRecap.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing recap writer")
			err = e
		}
	}
	return err
}
