package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Redis appends events to a capped stream.
type Redis struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *slog.Logger
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, stream string, maxLen int64, logger *slog.Logger) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis notifier requires an address")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &Redis{client: client, stream: stream, maxLen: maxLen, logger: logger}, nil
}

// Notify implements Notifier.
func (r *Redis) Notify(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"book_id": e.BookID,
			"status":  e.Status,
			"data":    string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to add event to stream %s: %w", r.stream, err)
	}
	r.logger.Debug("event published", "stream", r.stream, "id", id, "status", e.Status)
	return nil
}

// Close implements Notifier.
func (r *Redis) Close() error {
	return r.client.Close()
}
