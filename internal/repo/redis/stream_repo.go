package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// StreamRepo appends events to a Redis stream. Delivery and retries
// belong to the downstream consumer group.
type StreamRepo struct {
	client *goredis.Client
}

func NewStreamRepo(client *goredis.Client) *StreamRepo {
	return &StreamRepo{client: client}
}

func (r *StreamRepo) Publish(ctx context.Context, stream string, values map[string]any) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	if stream == "" || len(values) == 0 {
		return "", fmt.Errorf("invalid stream publish payload")
	}

	id, err := r.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish stream event: %w", err)
	}

	return id, nil
}
