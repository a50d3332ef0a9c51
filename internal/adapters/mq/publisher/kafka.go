package publisher

import (
	"context"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/okian/datemaker/internal/domain/model"
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher produces each command as one record keyed by chat ID, so a
// user's commands stay ordered within a partition.
type KafkaPublisher struct {
	client producer
	topic  string
}

// NewKafkaPublisher connects a franz-go client to brokers.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic, clientID string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func newKafkaPublisherWith(p producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{client: p, topic: topic}
}

func (k *KafkaPublisher) Publish(ctx context.Context, cmd model.Command) error {
	body, err := cmd.Body()
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Name, err)
	}
	headers := cmd.Headers()
	rec := &kgo.Record{
		Topic:   k.topic,
		Key:     []byte(strconv.FormatInt(cmd.ChatID, 10)),
		Value:   body,
		Headers: make([]kgo.RecordHeader, 0, len(headers)),
	}
	for _, key := range headerOrder {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: key, Value: []byte(headers[key])})
	}
	if err := k.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", cmd.Name, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	k.client.Close()
	return nil
}

func (k *KafkaPublisher) Name() string { return "kafka" }

var headerOrder = []string{
	model.HeaderUserID,
	model.HeaderChatID,
	model.HeaderEventID,
	model.HeaderMessageID,
	model.HeaderCommand,
}
