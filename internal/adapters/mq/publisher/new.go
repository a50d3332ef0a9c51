package publisher

import (
	"context"
	"fmt"

	"github.com/okian/datemaker/internal/adapters/mq/queue"
	"github.com/okian/datemaker/internal/config"
	"github.com/okian/datemaker/pkg/logger"
)

// New builds the configured driver wrapped with instrumentation. For the
// memory driver the backing queue is returned too so the caller can drain it.
func New(ctx context.Context, cfg config.Messaging, log logger.Logger) (Publisher, *queue.InMemoryQueue, error) {
	switch cfg.Driver {
	case "kafka":
		brokers := cfg.BrokerList()
		if len(brokers) == 0 {
			return nil, nil, ErrNoBrokers
		}
		p, err := NewKafkaPublisher(ctx, brokers, cfg.Topic, cfg.ClientID)
		if err != nil {
			return nil, nil, err
		}
		return Instrument(p, log), nil, nil
	case "redis":
		p, err := NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Stream, cfg.StreamMaxLen)
		if err != nil {
			return nil, nil, err
		}
		return Instrument(p, log), nil, nil
	case "memory", "":
		q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.QueueSize))
		return Instrument(q, log), q, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
