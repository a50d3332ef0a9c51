package publisher

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/datemaker/internal/domain/model"
)

type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisPublisher appends commands to a Redis stream. Each entry carries the
// routing headers as fields next to the JSON body.
type RedisPublisher struct {
	client streamClient
	stream string
	maxLen int64
}

// NewRedisPublisher connects to addr and checks the connection.
func NewRedisPublisher(ctx context.Context, addr, password string, db int, stream string, maxLen int64) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisPublisher{client: client, stream: stream, maxLen: maxLen}, nil
}

func newRedisPublisherWith(c streamClient, stream string, maxLen int64) *RedisPublisher {
	return &RedisPublisher{client: c, stream: stream, maxLen: maxLen}
}

func (r *RedisPublisher) Publish(ctx context.Context, cmd model.Command) error {
	body, err := cmd.Body()
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Name, err)
	}
	values := make(map[string]interface{}, 6)
	for k, v := range cmd.Headers() {
		values[k] = v
	}
	values["body"] = string(body)

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: values,
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", cmd.Name, err)
	}
	return nil
}

func (r *RedisPublisher) Close() error { return r.client.Close() }

func (r *RedisPublisher) Name() string { return "redis" }
