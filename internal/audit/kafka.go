package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// ErrSinkUnavailable is returned while the circuit breaker is open.
var ErrSinkUnavailable = errors.New("audit sink unavailable")

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher writes audit events as JSON records keyed by resource id, so
// every event for one record lands on the same partition in order.
type KafkaPublisher struct {
	client   *kgo.Client
	producer producer
	topic    string
	breaker  *circuitBreaker
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

// WithCircuitBreaker overrides the failure threshold and cooldown.
func WithCircuitBreaker(threshold int, cooldown time.Duration) KafkaOption {
	return func(p *KafkaPublisher) {
		p.breaker = newCircuitBreaker(threshold, cooldown)
	}
}

// NewKafkaPublisher connects a franz-go client to brokers.
func NewKafkaPublisher(brokers []string, topic string, opts ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordDeliveryTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p := newKafkaPublisher(client, topic, opts...)
	p.client = client
	return p, nil
}

func newKafkaPublisher(prod producer, topic string, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: prod,
		topic:    topic,
		breaker:  newCircuitBreaker(5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureTopic creates the audit topic when it does not exist yet.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	if p.client == nil {
		return nil
	}
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", p.topic, resp.Err)
	}
	return nil
}

// Publish produces e synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if !p.breaker.allow() {
		return ErrSinkUnavailable
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(e.ResourceID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(e.Action)},
			{Key: "resource", Value: []byte(e.Resource)},
		},
	}
	if err := p.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		p.breaker.recordFailure()
		return fmt.Errorf("produce audit event: %w", err)
	}
	p.breaker.recordSuccess()
	return nil
}

// Close flushes and closes the underlying client.
func (p *KafkaPublisher) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
