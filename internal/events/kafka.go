package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chemequip/backend/internal/models"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	headerEventType       = "event-type"
	defaultPublishTimeout = 5 * time.Second
)

// KafkaPublisher writes dataset events to a topic, keyed by dataset id.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	timeout time.Duration
}

// NewKafkaPublisher creates a producer client. Brokers are contacted lazily,
// so an unreachable cluster surfaces on the first Publish.
func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher needs at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka publisher needs a topic")
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RecordDeliveryTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}
	return &KafkaPublisher{client: cl, topic: topic, timeout: timeout}, nil
}

// Publish implements Publisher. It blocks until the broker acknowledges the
// record or the timeout passes.
func (p *KafkaPublisher) Publish(ctx context.Context, ev models.DatasetEvent) error {
	rec, err := newRecord(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("producing to %s: %w", p.topic, err)
	}
	return nil
}

// Close releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

func newRecord(ev models.DatasetEvent) (*kgo.Record, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	return &kgo.Record{
		Key:   []byte(ev.DatasetID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: headerEventType, Value: []byte(ev.Type)},
		},
	}, nil
}
