package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"graintrade.org/internal/users"
)

const DefaultStream = "new-user"

// RedisNotifier appends events to a Redis stream. Each entry has a single
// "data" field holding the JSON message.
type RedisNotifier struct {
	client redis.UniversalClient
	stream string
}

func NewRedisNotifier(client redis.UniversalClient, stream string) *RedisNotifier {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisNotifier{client: client, stream: stream}
}

// NewRedisNotifierFromURL dials the server named by a redis:// URL.
func NewRedisNotifierFromURL(rawURL, stream string) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisNotifier(redis.NewClient(opts), stream), nil
}

func (n *RedisNotifier) UserCreated(ctx context.Context, u users.User) error {
	data, err := json.Marshal(newUserCreatedMessage(u))
	if err != nil {
		return err
	}
	if err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]any{"data": data},
	}).Err(); err != nil {
		return fmt.Errorf("publish to stream %s: %w", n.stream, err)
	}
	return nil
}

// Ping checks connectivity. Used by the readiness probe.
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
