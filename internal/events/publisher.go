// Package events delivers order and return lifecycle events to Kafka through
// a transactional outbox.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Publisher sends an encoded event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}

// KafkaPublisher publishes through a synchronous sarama producer guarded by a
// circuit breaker.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	breaker  *gobreaker.CircuitBreaker
	logger   zerolog.Logger
}

// NewKafkaPublisher connects a synchronous producer to brokers.
func NewKafkaPublisher(brokers []string, logger zerolog.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info().Strs("brokers", brokers).Msg("kafka producer connected")

	return NewKafkaPublisherWithProducer(producer, logger), nil
}

// ProducerConfig returns the producer settings used for outbox delivery.
func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, logger zerolog.Logger) *KafkaPublisher {
	log := logger.With().Str("component", "kafka-publisher").Logger()

	settings := gobreaker.Settings{
		Name:        "kafka-publisher",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &KafkaPublisher{
		producer: producer,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		logger:   log,
	}
}

// ErrBreakerOpen is returned while the circuit breaker rejects publishes.
var ErrBreakerOpen = errors.New("kafka publisher circuit open")

// Publish sends payload to topic keyed by key.
func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}

	type sent struct {
		partition int32
		offset    int64
	}

	res, err := executeWithBreaker(p.breaker, func() (sent, error) {
		partition, offset, err := p.producer.SendMessage(msg)
		return sent{partition: partition, offset: offset}, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrBreakerOpen, err)
		}
		return fmt.Errorf("failed to send message to %s: %w", topic, err)
	}

	p.logger.Debug().
		Str("topic", topic).
		Str("key", key).
		Int32("partition", res.partition).
		Int64("offset", res.offset).
		Msg("message sent")

	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

func executeWithBreaker[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return *new(T), err
	}
	return res.(T), nil
}
