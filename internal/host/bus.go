package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bus delivers host messages to an external desktop process over Redis
// Streams. One stream per desktop; FIFO within the stream.
type Bus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

const streamPrefix = "cortex:host:"

// NewBus connects to Redis and verifies the connection.
func NewBus(redisURL string, logger *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Bus{rdb: rdb, logger: logger}, nil
}

// Publish appends a host message to the desktop's stream.
func (b *Bus) Publish(ctx context.Context, desktopID string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	stream := streamPrefix + desktopID
	_, err = b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}

	b.logger.Debug("published host message",
		zap.String("desktop", desktopID),
		zap.String("type", msg.Type))
	return nil
}

// Subscribe emits messages from a desktop's stream until the context is
// cancelled.
func (b *Bus) Subscribe(ctx context.Context, desktopID string) <-chan Message {
	ch := make(chan Message, 16)
	stream := streamPrefix + desktopID

	go func() {
		defer close(ch)
		lastID := "0"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Count:   10,
				Block:   2 * time.Second,
			}).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					b.logger.Warn("host stream read failed", zap.Error(err))
					select {
					case <-ctx.Done():
						return
					case <-time.After(time.Second):
					}
				}
				continue
			}

			for _, r := range results {
				for _, raw := range r.Messages {
					lastID = raw.ID
					data, ok := raw.Values["data"].(string)
					if !ok {
						continue
					}
					var msg Message
					if json.Unmarshal([]byte(data), &msg) == nil {
						ch <- msg
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
