package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/equiply/workflow-service/internal/config"
	"github.com/equiply/workflow-service/internal/events"
)

var errRedisNotConfigured = errors.New("redis client not configured")

// Redis holds the client that carries workflow events to other processes.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis. An unreachable server is logged, not fatal:
// events published meanwhile are dropped by the notification relay and
// readiness reports redis as down until it comes back.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout(),
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout())
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errRedisNotConfigured
	}
	return r.Client.Ping(ctx).Err()
}

// WatchEvents subscribes to the workflow events channel and calls fn for each
// event until ctx ends or fn returns an error.
func (r *Redis) WatchEvents(ctx context.Context, channel string, logger *zap.Logger, fn func(events.Event) error) error {
	if r == nil || r.Client == nil {
		return errRedisNotConfigured
	}
	sub := r.Client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	return relayEvents(ctx, sub.Channel(), logger, fn)
}

// relayEvents decodes pub/sub messages. Messages that are not workflow events
// are logged and skipped.
func relayEvents(ctx context.Context, messages <-chan *redis.Message, logger *zap.Logger, fn func(events.Event) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil || event.Type == "" {
				logger.Warn("skipping message that is not a workflow event",
					zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if err := fn(event); err != nil {
				return err
			}
		}
	}
}
