package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"tone-coach-service/internal/models"
)

// ErrNoBrokers is returned when a consumer is created without brokers.
var ErrNoBrokers = errors.New("kafka brokers required")

// Handler receives decoded coaching events. Exactly one of analysis or recap is set.
type Handler func(analysis *models.AnalysisEvent, recap *models.RecapEvent)

// Consumer tails the analysis and recap topics, for dashboards and debugging.
type Consumer struct {
	readers []*kafka.Reader
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Brokers       []string
	TopicAnalysis string
	TopicRecap    string
	// Since rewinds each partition reader to messages newer than now minus Since.
	Since time.Duration
}

// lookupPartitions lists the partition ids of a topic.
var lookupPartitions = func(brokers []string, topic string) ([]int, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(topic)
	if err != nil {
		return nil, err
	}
	return partitionIDs(topic, partitions), nil
}

func partitionIDs(topic string, partitions []kafka.Partition) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, p := range partitions {
		if p.Topic != topic || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		ids = append(ids, p.ID)
	}
	sort.Ints(ids)
	return ids
}

// NewConsumer creates one reader per topic partition, without a consumer group.
// Events are keyed by session, so every partition has to be read.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	c := &Consumer{}
	for _, topic := range []string{cfg.TopicAnalysis, cfg.TopicRecap} {
		if topic == "" {
			continue
		}
		ids, err := lookupPartitions(cfg.Brokers, topic)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("list partitions of %s: %w", topic, err)
		}
		for _, id := range ids {
			c.readers = append(c.readers, kafka.NewReader(kafka.ReaderConfig{
				Brokers:   cfg.Brokers,
				Topic:     topic,
				Partition: id,
				MinBytes:  1,
				MaxBytes:  10e6,
			}))
		}
	}
	if cfg.Since > 0 {
		at := time.Now().Add(-cfg.Since)
		for _, r := range c.readers {
			if err := r.SetOffsetAt(context.Background(), at); err != nil {
				log.Warn().Err(err).Str("topic", r.Config().Topic).Msg("Failed to rewind reader")
			}
		}
	}
	return c, nil
}

// Run reads all topics until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, h Handler) {
	done := make(chan struct{}, len(c.readers))
	for _, r := range c.readers {
		go func(r *kafka.Reader) {
			defer func() { done <- struct{}{} }()
			consume(ctx, r, h)
		}(r)
	}
	for range c.readers {
		<-done
	}
}

func consume(ctx context.Context, r *kafka.Reader, h Handler) {
	topic := r.Config().Topic
	log.Info().Str("topic", topic).Int("partition", r.Config().Partition).Msg("Consuming coaching events")

	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("topic", topic).Msg("Kafka read error")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if err := dispatchMessage(msg, h); err != nil {
			log.Warn().Err(err).Str("topic", topic).Int64("offset", msg.Offset).Msg("Skipping undecodable event")
		}
	}
}

// dispatchMessage decodes a message by its eventType header.
func dispatchMessage(msg kafka.Message, h Handler) error {
	eventType := ""
	for _, hdr := range msg.Headers {
		if hdr.Key == "eventType" {
			eventType = string(hdr.Value)
		}
	}

	switch eventType {
	case EventTypeAnalysis:
		var ev models.AnalysisEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return err
		}
		h(&ev, nil)
	case EventTypeRecap:
		var ev models.RecapEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return err
		}
		h(nil, &ev)
	default:
		return errors.New("unknown event type " + eventType)
	}
	return nil
}

// Close closes all readers.
func (c *Consumer) Close() error {
	var err error
	for _, r := range c.readers {
		if e := r.Close(); e != nil {
			err = e
		}
	}
	return err
}
